package hmap

import "github.com/sympath/sympath/utils"

// A simple implementation of a mutable hash map keyed on a custom hasher.
// Useful when we cannot use Go's maps directly, e. g. for structurally
// compared keys such as exploded graph nodes.

// Uses linked lists to resolve hash collisions.

type node[K, V any] struct {
	key   K
	value V
	next  *node[K, V]
}

type Map[K, V any] struct {
	hasher Hasher[K]
	mp     map[uint32]*node[K, V]
	size   int
}

// Hasher hashes and compares keys of type K.
type Hasher[K any] interface {
	Hash(K) uint32
	Equal(K, K) bool
}

// Order of V and K are swapped since K can be inferred by the argument.
func NewMap[V, K any](hasher Hasher[K]) *Map[K, V] {
	return &Map[K, V]{
		hasher: hasher,
		mp:     make(map[uint32]*node[K, V]),
	}
}

// NewHashableMap constructs a map keyed on hashable, equality comparable keys.
func NewHashableMap[V any, K utils.HashableEq[K]]() *Map[K, V] {
	return NewMap[V](utils.HashableHasher[K]())
}

func (m *Map[K, V]) Set(key K, value V) {
	h := m.hasher.Hash(key)
	if snode, found := m.mp[h]; !found {
		m.mp[h] = &node[K, V]{key, value, nil}
		m.size++
	} else {
		for {
			if m.hasher.Equal(key, snode.key) {
				snode.value = value
				return
			}

			if next := snode.next; next == nil {
				// Hash collision :(
				snode.next = &node[K, V]{key, value, nil}
				m.size++
				return
			} else {
				snode = next
			}
		}
	}
}

func (m *Map[K, V]) GetOk(key K) (res V, ok bool) {
	for node := m.mp[m.hasher.Hash(key)]; node != nil; node = node.next {
		if m.hasher.Equal(key, node.key) {
			return node.value, true
		}
	}

	return
}

func (m *Map[K, V]) Get(key K) V {
	v, _ := m.GetOk(key)
	return v
}

func (m *Map[K, V]) Len() int {
	return m.size
}

// ForEach executes the given procedure for every key-value pair in the map.
// Iteration order is unspecified.
func (m *Map[K, V]) ForEach(do func(K, V)) {
	for _, snode := range m.mp {
		for ; snode != nil; snode = snode.next {
			do(snode.key, snode.value)
		}
	}
}
