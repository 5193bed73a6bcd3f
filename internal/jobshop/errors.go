package jobshop

import "errors"

var (
	// ErrIncompleteSolution - расписание содержит не ровно одну операцию на задачу.
	// Это ошибка вызывающего кода, повторять попытку бессмысленно.
	ErrIncompleteSolution = errors.New("jobshop: incomplete solution")

	// ErrInfeasibleSolution - нарушен порядок задач внутри работы, выбран
	// недоступный станок или переналадка не определена. Ожидаемая ситуация
	// для генераторов соседей и кроссовера, обрабатывается повтором.
	ErrInfeasibleSolution = errors.New("jobshop: infeasible solution")

	// ErrGenerationStuck - исчерпан лимит повторов при построении решения.
	ErrGenerationStuck = errors.New("jobshop: solution generation stuck")
)
