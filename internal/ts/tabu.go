package ts

import "flexShop/internal/jobshop"

// tabuList - кольцевой буфер решений с мапой для проверки принадлежности.
// Ключ мапы - makespan и хеш расписания, точное совпадение проверяет Equal.
type tabuList struct {
	m    map[jobshop.Key][]*jobshop.Solution
	ring []*jobshop.Solution
	i    int
	n    int
}

func newTabuList(capacity int) *tabuList {
	return &tabuList{
		m:    make(map[jobshop.Key][]*jobshop.Solution, capacity),
		ring: make([]*jobshop.Solution, capacity),
	}
}

func (t *tabuList) Len() int { return t.n }

// Contains проверяет, находится ли решение в табу-списке.
func (t *tabuList) Contains(s *jobshop.Solution) bool {
	for _, x := range t.m[s.Key()] {
		if jobshop.Equal(x, s) {
			return true
		}
	}
	return false
}

// Push добавляет решение, вытесняя самое старое при переполнении.
func (t *tabuList) Push(s *jobshop.Solution) {
	// Удаление старого элемента из кольцевого буфера
	if old := t.ring[t.i]; old != nil {
		k := old.Key()
		bucket := t.m[k]
		for j, x := range bucket {
			if x == old {
				bucket = append(bucket[:j], bucket[j+1:]...)
				break
			}
		}
		if len(bucket) == 0 {
			delete(t.m, k)
		} else {
			t.m[k] = bucket
		}
		t.n--
	}

	t.ring[t.i] = s
	t.m[s.Key()] = append(t.m[s.Key()], s)
	t.n++

	t.i++
	if t.i >= len(t.ring) {
		t.i = 0
	}
}
