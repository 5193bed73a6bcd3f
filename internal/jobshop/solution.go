package jobshop

import (
	"encoding/binary"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// Solution - неизменяемое оценённое расписание.
type Solution struct {
	schedule         Schedule
	machineMakespans []int
	profile          []int // machineMakespans по убыванию
	makespan         int
	fingerprint      uint64
}

// NewSolution оценивает расписание и строит решение.
// Расписание переходит во владение решения и не должно изменяться после вызова.
func NewSolution(ev *Evaluator, s Schedule) (*Solution, error) {
	mm, err := ev.Evaluate(s, nil)
	if err != nil {
		return nil, err
	}
	profile := slices.Clone(mm)
	slices.SortFunc(profile, func(a, b int) int { return b - a })
	return &Solution{
		schedule:         s,
		machineMakespans: mm,
		profile:          profile,
		makespan:         profile[0],
		fingerprint:      fingerprint(s),
	}, nil
}

func fingerprint(s Schedule) uint64 {
	buf := make([]byte, 0, len(s)*16)
	for _, op := range s {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(op.Job))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(op.Task))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(op.Sequence))
		buf = binary.LittleEndian.AppendUint32(buf, uint32(op.Machine))
	}
	return xxhash.Sum64(buf)
}

func (s *Solution) Makespan() int { return s.makespan }

// MachineMakespans возвращает копию времён завершения по станкам.
func (s *Solution) MachineMakespans() []int { return slices.Clone(s.machineMakespans) }

// Len - число операций.
func (s *Solution) Len() int { return len(s.schedule) }

// At возвращает i-ю операцию.
func (s *Solution) At(i int) Operation { return s.schedule[i] }

// Schedule возвращает копию расписания.
func (s *Solution) Schedule() Schedule { return s.schedule.Clone() }

// Fingerprint - хеш расписания. Равные расписания имеют равные хеши.
func (s *Solution) Fingerprint() uint64 { return s.fingerprint }

// Key - ключ для хеш-таблиц: makespan и хеш расписания.
// Совпадение ключей не гарантирует равенства, его подтверждает Equal.
func (s *Solution) Key() Key { return Key{Makespan: s.makespan, Hash: s.fingerprint} }

// Key идентифицирует решение в табу-списке и множестве соседей.
type Key struct {
	Makespan int
	Hash     uint64
}

// Compare задаёт полный порядок: сначала makespan, затем лексикографически
// отсортированные по убыванию времена станков. Меньше - лучше.
// Решения с одинаковым профилем загрузки считаются равными по порядку.
func Compare(a, b *Solution) int {
	if a.makespan != b.makespan {
		if a.makespan < b.makespan {
			return -1
		}
		return 1
	}
	return slices.Compare(a.profile, b.profile)
}

// Less сообщает, что a строго лучше b.
func Less(a, b *Solution) bool { return Compare(a, b) < 0 }

// Equal - одинаковые makespan и расписание.
func Equal(a, b *Solution) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.makespan == b.makespan &&
		a.fingerprint == b.fingerprint &&
		slices.Equal(a.schedule, b.schedule)
}

// Best возвращает лучшее решение из набора, при равенстве - первое. nil пропускаются.
func Best(xs ...*Solution) *Solution {
	var best *Solution
	for _, x := range xs {
		if x == nil {
			continue
		}
		if best == nil || Less(x, best) {
			best = x
		}
	}
	return best
}
