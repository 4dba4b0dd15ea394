package cache

import "container/list"

// lruMap is a string-keyed map that remembers use order.
// Front = most recent, Back = least recent. Not safe for concurrent use;
// the Manager holds its lock around every call.
type lruMap[V any] struct {
	items map[string]*list.Element
	order *list.List
}

type lruEntry[V any] struct {
	key   string
	value V
}

func newLRUMap[V any]() *lruMap[V] {
	return &lruMap[V]{
		items: make(map[string]*list.Element),
		order: list.New(),
	}
}

// get returns the value and marks it as recently used
func (m *lruMap[V]) get(key string) (V, bool) {
	if elem, ok := m.items[key]; ok {
		m.order.MoveToFront(elem)
		return elem.Value.(*lruEntry[V]).value, true
	}
	var zero V
	return zero, false
}

// set inserts or updates a value and marks it as recently used
func (m *lruMap[V]) set(key string, value V) {
	if elem, ok := m.items[key]; ok {
		m.order.MoveToFront(elem)
		elem.Value.(*lruEntry[V]).value = value
		return
	}
	m.items[key] = m.order.PushFront(&lruEntry[V]{key: key, value: value})
}

func (m *lruMap[V]) delete(key string) bool {
	elem, ok := m.items[key]
	if !ok {
		return false
	}
	m.order.Remove(elem)
	delete(m.items, key)
	return true
}

func (m *lruMap[V]) len() int {
	return m.order.Len()
}

// evictOldest removes up to n least recently used entries and returns how many were removed
func (m *lruMap[V]) evictOldest(n int) int {
	removed := 0
	for removed < n {
		elem := m.order.Back()
		if elem == nil {
			break
		}
		m.order.Remove(elem)
		delete(m.items, elem.Value.(*lruEntry[V]).key)
		removed++
	}
	return removed
}

func (m *lruMap[V]) clear() {
	m.items = make(map[string]*list.Element)
	m.order.Init()
}

// snapshot copies the entries into a plain map
func (m *lruMap[V]) snapshot() map[string]V {
	out := make(map[string]V, len(m.items))
	for k, elem := range m.items {
		out[k] = elem.Value.(*lruEntry[V]).value
	}
	return out
}
