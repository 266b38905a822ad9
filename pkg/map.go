package pkg

type Map[K comparable, V any] map[K]V

func (m Map[K, V]) Get(key K) V {
	return m[key]
}

func (m Map[K, V]) Lookup(key K) (V, bool) {
	v, ok := m[key]
	return v, ok
}

func (m Map[K, V]) Set(key K, value V) {
	m[key] = value
}

// Add sets key only when it is absent, and reports whether it did.
func (m Map[K, V]) Add(key K, value V) bool {
	if _, ok := m[key]; ok {
		return false
	}
	m[key] = value
	return true
}

func (m Map[K, V]) Has(key K) bool {
	_, ok := m[key]
	return ok
}

func (m Map[K, V]) Delete(key K) {
	delete(m, key)
}

// InsertSortMap keeps keys in the order they were first pushed.
type InsertSortMap[K comparable, V any] struct {
	Idx    Map[K, V]
	Sorted []K
}

func NewInsertSortMap[K comparable, V any]() *InsertSortMap[K, V] {
	return &InsertSortMap[K, V]{Idx: Map[K, V]{}, Sorted: []K{}}
}

func (m *InsertSortMap[K, V]) Len() int { return len(m.Sorted) }

func (m *InsertSortMap[K, V]) Lookup(key K) (V, bool) { return m.Idx.Lookup(key) }

func (m *InsertSortMap[K, V]) Has(key K) bool { return m.Idx.Has(key) }

// Push adds key at the end, or replaces its value where it already is.
func (m *InsertSortMap[K, V]) Push(key K, value V) {
	if m.Idx.Add(key, value) {
		m.Sorted = append(m.Sorted, key)
		return
	}
	m.Idx.Set(key, value)
}

func (m *InsertSortMap[K, V]) Values() []V {
	values := make([]V, 0, len(m.Sorted))
	for _, k := range m.Sorted {
		values = append(values, m.Idx.Get(k))
	}
	return values
}
