package jobshop

import (
	"encoding/json"
	"fmt"
	"slices"
)

type solutionJSON struct {
	Makespan         int      `json:"makespan"`
	MachineMakespans []int    `json:"machine_makespans"`
	Operations       Schedule `json:"schedule"`
}

// MarshalJSON сериализует решение вместе с рассчитанными значениями.
func (s *Solution) MarshalJSON() ([]byte, error) {
	return json.Marshal(solutionJSON{
		Makespan:         s.makespan,
		MachineMakespans: s.machineMakespans,
		Operations:       s.schedule,
	})
}

// Encode - байтовое представление решения для передачи и хранения.
func Encode(s *Solution) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("encode: nil solution")
	}
	return json.Marshal(s)
}

// Decode восстанавливает решение и заново оценивает расписание.
// Сохранённые значения должны совпасть с пересчитанными.
func Decode(ev *Evaluator, data []byte) (*Solution, error) {
	var raw solutionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode solution: %w", err)
	}
	sol, err := NewSolution(ev, raw.Operations)
	if err != nil {
		return nil, fmt.Errorf("decode solution: %w", err)
	}
	if sol.makespan != raw.Makespan {
		return nil, fmt.Errorf("decode solution: stored makespan %d, evaluated %d", raw.Makespan, sol.makespan)
	}
	if raw.MachineMakespans != nil && !slices.Equal(raw.MachineMakespans, sol.machineMakespans) {
		return nil, fmt.Errorf("decode solution: machine makespans differ from evaluated")
	}
	return sol, nil
}
