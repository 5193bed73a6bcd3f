// Package pq содержит обобщённую двоичную кучу с явным компаратором.
// Одна и та же реализация используется и как min-куча, и как max-куча:
// направление задаётся функцией less.
package pq

import "container/heap"

// Heap - двоичная куча элементов T.
// less(a, b) == true означает, что a ближе к вершине, чем b.
type Heap[T any] struct {
	inner *items[T]
}

// New создаёт пустую кучу с заданным порядком.
func New[T any](less func(a, b T) bool) *Heap[T] {
	return &Heap[T]{inner: &items[T]{less: less}}
}

// From строит кучу из готового среза за O(n). Срез не копируется.
func From[T any](xs []T, less func(a, b T) bool) *Heap[T] {
	h := &Heap[T]{inner: &items[T]{xs: xs, less: less}}
	heap.Init(h.inner)
	return h
}

func (h *Heap[T]) Len() int { return len(h.inner.xs) }

func (h *Heap[T]) Push(x T) { heap.Push(h.inner, x) }

// Pop извлекает вершину. Для пустой кучи возвращает нулевое значение и false.
func (h *Heap[T]) Pop() (T, bool) {
	if len(h.inner.xs) == 0 {
		var zero T
		return zero, false
	}
	return heap.Pop(h.inner).(T), true
}

// Peek возвращает вершину без извлечения.
func (h *Heap[T]) Peek() (T, bool) {
	if len(h.inner.xs) == 0 {
		var zero T
		return zero, false
	}
	return h.inner.xs[0], true
}

// ReplaceTop заменяет вершину и восстанавливает порядок.
func (h *Heap[T]) ReplaceTop(x T) {
	if len(h.inner.xs) == 0 {
		heap.Push(h.inner, x)
		return
	}
	h.inner.xs[0] = x
	heap.Fix(h.inner, 0)
}

// Items возвращает копию содержимого в порядке хранения (не отсортированном).
func (h *Heap[T]) Items() []T {
	out := make([]T, len(h.inner.xs))
	copy(out, h.inner.xs)
	return out
}

// Any сообщает, есть ли элемент, удовлетворяющий pred. Не копирует содержимое.
func (h *Heap[T]) Any(pred func(T) bool) bool {
	for _, x := range h.inner.xs {
		if pred(x) {
			return true
		}
	}
	return false
}

// items реализует heap.Interface.
type items[T any] struct {
	xs   []T
	less func(a, b T) bool
}

func (s *items[T]) Len() int           { return len(s.xs) }
func (s *items[T]) Less(i, j int) bool { return s.less(s.xs[i], s.xs[j]) }
func (s *items[T]) Swap(i, j int)      { s.xs[i], s.xs[j] = s.xs[j], s.xs[i] }
func (s *items[T]) Push(x any)         { s.xs = append(s.xs, x.(T)) }
func (s *items[T]) Pop() any {
	n := len(s.xs)
	x := s.xs[n-1]
	var zero T
	s.xs[n-1] = zero
	s.xs = s.xs[:n-1]
	return x
}
