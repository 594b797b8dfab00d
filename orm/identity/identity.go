// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package identity implements the session-scoped identity map: which
entities are known to a session, bucketed by (type, parental key), each
bucket mapping a primary key to the one tracked instance representing that
row.

Composite keys are small tuples of primitive values and are not directly
comparable with Go's "==" for slice/map contents, so lookups hash the tuple
with xxhash and resolve collisions with an equality check — the "byte
serialized keys" approach the design notes call for, minus the actual byte
serialization.
*/
package identity

import (
	"fmt"
	"reflect"

	"github.com/cespare/xxhash/v2"
)

// Key is an ordered tuple of hashable column values identifying one row.
type Key []any

// Equal reports whether k and other hold the same values in the same order.
func (k Key) Equal(other Key) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

// hash returns a fast, non-cryptographic hash of the tuple's values, used
// to bucket entries within the identity map's chained hash table.
func (k Key) hash() uint64 {
	h := xxhash.New()
	for _, v := range k {
		fmt.Fprintf(h, "%T:%v|", v, v)
	}
	return h.Sum64()
}

// Identity is the full identifying tuple of one tracked entity.
type Identity struct {
	Type        reflect.Type
	ParentalKey Key
	PrimaryKey  Key
}

type bucketID struct {
	typ          reflect.Type
	parentalHash uint64
}

type entry struct {
	key    Key
	entity any
}

type bucket struct {
	slots map[uint64][]entry
}

func newBucket() *bucket {
	return &bucket{slots: map[uint64][]entry{}}
}

func (b *bucket) get(k Key) (any, bool) {
	for _, e := range b.slots[k.hash()] {
		if e.key.Equal(k) {
			return e.entity, true
		}
	}
	return nil, false
}

func (b *bucket) put(k Key, entity any) {
	h := k.hash()
	for i, e := range b.slots[h] {
		if e.key.Equal(k) {
			b.slots[h][i].entity = entity
			return
		}
	}
	b.slots[h] = append(b.slots[h], entry{key: k, entity: entity})
}

func (b *bucket) delete(k Key) {
	h := k.hash()
	slot := b.slots[h]
	for i, e := range slot {
		if e.key.Equal(k) {
			b.slots[h] = append(slot[:i], slot[i+1:]...)
			return
		}
	}
}

func (b *bucket) clone() *bucket {
	nb := newBucket()
	for h, entries := range b.slots {
		nb.slots[h] = append([]entry{}, entries...)
	}
	return nb
}

// Map is the session-scoped identity map. It is not safe for concurrent use
// — sessions are sequential by design (see the core's concurrency model).
type Map struct {
	buckets map[bucketID]*bucket
}

// New returns an empty identity map.
func New() *Map {
	return &Map{buckets: map[bucketID]*bucket{}}
}

func bucketIDFor(typ reflect.Type, parentalKey Key) bucketID {
	return bucketID{typ: typ, parentalHash: parentalKey.hash()}
}

// Track registers entity under id, replacing any previously tracked
// instance at the same identity.
func (m *Map) Track(id Identity, entity any) {
	bid := bucketIDFor(id.Type, id.ParentalKey)
	b, ok := m.buckets[bid]
	if !ok {
		b = newBucket()
		m.buckets[bid] = b
	}
	b.put(id.PrimaryKey, entity)
}

// Get returns the tracked instance at id, if any.
func (m *Map) Get(id Identity) (any, bool) {
	bid := bucketIDFor(id.Type, id.ParentalKey)
	b, ok := m.buckets[bid]
	if !ok {
		return nil, false
	}
	return b.get(id.PrimaryKey)
}

// Untrack removes id from tracking. A no-op if id was not tracked.
func (m *Map) Untrack(id Identity) {
	bid := bucketIDFor(id.Type, id.ParentalKey)
	if b, ok := m.buckets[bid]; ok {
		b.delete(id.PrimaryKey)
	}
}

// ByParent returns every entity tracked under (typ, parentalKey), keyed by
// the string form of its primary key — used by the aggregate engine to
// diff "previously tracked children" against "currently attached children".
func (m *Map) ByParent(typ reflect.Type, parentalKey Key) map[string]any {
	bid := bucketIDFor(typ, parentalKey)
	b, ok := m.buckets[bid]
	if !ok {
		return nil
	}
	out := map[string]any{}
	for _, entries := range b.slots {
		for _, e := range entries {
			out[keyString(e.key)] = e.entity
		}
	}
	return out
}

// keyString renders a Key as a stable string, suitable as a map key when
// grouping by identity (not used for hashing — just for readable diffing).
func keyString(k Key) string {
	s := ""
	for i, v := range k {
		if i > 0 {
			s += "\x1f"
		}
		s += fmt.Sprintf("%v", v)
	}
	return s
}

// KeyString exposes keyString to callers outside this package (the engine)
// that need to group rows by composite-key identity without hashing.
func KeyString(k Key) string {
	return keyString(k)
}

// Snapshot is an opaque point-in-time copy of the identity map's tracking
// state, used by nested transactions to restore on rollback.
type Snapshot struct {
	buckets map[bucketID]*bucket
}

// Snapshot copies the current tracking state. Entities themselves are not
// cloned — only the bookkeeping of which identities are tracked.
func (m *Map) Snapshot() Snapshot {
	cp := make(map[bucketID]*bucket, len(m.buckets))
	for id, b := range m.buckets {
		cp[id] = b.clone()
	}
	return Snapshot{buckets: cp}
}

// Restore replaces the map's tracking state with a previously taken
// Snapshot, discarding any tracking changes made since.
func (m *Map) Restore(s Snapshot) {
	m.buckets = s.buckets
}
