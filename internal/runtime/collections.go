package runtime

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// List is an ordered, index-addressed collection (the forced content of a
// Listing, and the value of `List(...)`).
type List struct {
	Elements []Value
}

func (l *List) Kind() string { return "List" }
func (l *List) String() string {
	parts := make([]string, len(l.Elements))
	for i, e := range l.Elements {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Set is an insertion-ordered collection with value-equality deduplication.
type Set struct {
	Elements []Value
}

func (s *Set) Kind() string { return "Set" }
func (s *Set) String() string {
	parts := make([]string, len(s.Elements))
	for i, e := range s.Elements {
		parts[i] = e.String()
	}
	return "Set(" + strings.Join(parts, ", ") + ")"
}

// Map is an insertion-ordered key/value collection (the forced content of a
// Mapping, and the value of `Map(...)`). Keys compare by value equality, not
// identity, so arbitrary Values (not just strings) may be keys.
type Map struct {
	keys   []Value
	values []Value
	index  map[string]int // hash key -> position in keys/values
}

// NewMap creates an empty ordered map.
func NewMap() *Map {
	return &Map{index: make(map[string]int)}
}

func (m *Map) Kind() string { return "Map" }
func (m *Map) String() string {
	parts := make([]string, len(m.keys))
	for i := range m.keys {
		parts[i] = fmt.Sprintf("%s: %s", m.keys[i], m.values[i])
	}
	return "Map(" + strings.Join(parts, ", ") + ")"
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.keys) }

// Keys returns the keys in insertion order.
func (m *Map) Keys() []Value { return m.keys }

// Values returns the values in the same order as Keys.
func (m *Map) Values() []Value { return m.values }

// Get looks up a value by key using value equality.
func (m *Map) Get(key Value) (Value, bool) {
	i, ok := m.index[HashKey(key)]
	if !ok {
		return nil, false
	}
	return m.values[i], true
}

// Put inserts or overwrites key -> value. When key already exists, its
// original position is preserved and only the value changes, so a spread
// carrying a duplicate key keeps the target's key order.
func (m *Map) Put(key, value Value) {
	h := HashKey(key)
	if i, ok := m.index[h]; ok {
		m.values[i] = value
		return
	}
	m.index[h] = len(m.keys)
	m.keys = append(m.keys, key)
	m.values = append(m.values, value)
}

// HashKey produces a string hash consistent with Equal: equal values always
// hash identically. It is deliberately simple (type tag + String()) since
// Pkl key values are small primitives or shallow composites in practice.
func HashKey(v Value) string {
	if v == nil {
		return "null"
	}
	switch val := v.(type) {
	case Int:
		return "n:" + strconv.FormatInt(val.Value, 10)
	case Float:
		// Integral floats hash like the Int they compare equal to.
		if val.Value == math.Trunc(val.Value) && val.Value >= math.MinInt64 && val.Value < math.MaxInt64 {
			return "n:" + strconv.FormatInt(int64(val.Value), 10)
		}
		return "n:" + strconv.FormatFloat(val.Value, 'g', -1, 64)
	case *List:
		parts := make([]string, len(val.Elements))
		for i, e := range val.Elements {
			parts[i] = HashKey(e)
		}
		return "List[" + strings.Join(parts, ",") + "]"
	case *Set:
		parts := make([]string, len(val.Elements))
		for i, e := range val.Elements {
			parts[i] = HashKey(e)
		}
		sort.Strings(parts)
		return "Set[" + strings.Join(parts, ",") + "]"
	case *Map:
		parts := make([]string, len(val.keys))
		for i := range val.keys {
			parts[i] = HashKey(val.keys[i]) + "=" + HashKey(val.values[i])
		}
		sort.Strings(parts)
		return "Map[" + strings.Join(parts, ",") + "]"
	case Bytes:
		return fmt.Sprintf("Bytes:%x", val.Data)
	default:
		return v.Kind() + ":" + v.String()
	}
}

// Equal is the value-equality used by ==, Set/Map membership, and member
// key comparison: deep, order-insensitive for Set/Map, order-sensitive for
// List/Listing.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ai, ok := a.(Int); ok {
		if bi, ok := b.(Int); ok {
			return ai.Value == bi.Value
		}
		if bf, ok := b.(Float); ok {
			return float64(ai.Value) == bf.Value
		}
		return false
	}
	if af, ok := a.(Float); ok {
		if bf, ok := b.(Float); ok {
			return FloatEqual(af.Value, bf.Value)
		}
		if bi, ok := b.(Int); ok {
			return af.Value == float64(bi.Value)
		}
		return false
	}
	if aList, ok := a.(*List); ok {
		bList, ok := b.(*List)
		if !ok || len(aList.Elements) != len(bList.Elements) {
			return false
		}
		for i := range aList.Elements {
			if !Equal(aList.Elements[i], bList.Elements[i]) {
				return false
			}
		}
		return true
	}
	if aSet, ok := a.(*Set); ok {
		bSet, ok := b.(*Set)
		if !ok || len(aSet.Elements) != len(bSet.Elements) {
			return false
		}
		for _, e := range aSet.Elements {
			if !setContains(bSet, e) {
				return false
			}
		}
		return true
	}
	if aMap, ok := a.(*Map); ok {
		bMap, ok := b.(*Map)
		if !ok || aMap.Len() != bMap.Len() {
			return false
		}
		for i, k := range aMap.keys {
			bv, ok := bMap.Get(k)
			if !ok || !Equal(aMap.values[i], bv) {
				return false
			}
		}
		return true
	}
	return HashKey(a) == HashKey(b)
}

func setContains(s *Set, v Value) bool {
	for _, e := range s.Elements {
		if Equal(e, v) {
			return true
		}
	}
	return false
}

// NewSet builds a Set from elements, deduplicating by value equality and
// keeping first-seen insertion order.
func NewSet(elements []Value) *Set {
	s := &Set{}
	for _, e := range elements {
		if !setContains(s, e) {
			s.Elements = append(s.Elements, e)
		}
	}
	return s
}
