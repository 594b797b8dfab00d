// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/orm1go/orm/identity"
)

type widget struct{}

var widgetType = reflect.TypeOf(widget{})

func TestTrackThenGetReturnsTheSameEntity(t *testing.T) {
	m := identity.New()
	w := &widget{}
	id := identity.Identity{Type: widgetType, PrimaryKey: identity.Key{1}}

	m.Track(id, w)

	got, ok := m.Get(id)
	require.True(t, ok)
	assert.Same(t, w, got)
}

func TestGetMissReturnsFalse(t *testing.T) {
	m := identity.New()
	_, ok := m.Get(identity.Identity{Type: widgetType, PrimaryKey: identity.Key{1}})
	assert.False(t, ok)
}

func TestTrackOverwritesPreviousInstanceAtSameIdentity(t *testing.T) {
	m := identity.New()
	id := identity.Identity{Type: widgetType, PrimaryKey: identity.Key{1}}
	first, second := &widget{}, &widget{}

	m.Track(id, first)
	m.Track(id, second)

	got, ok := m.Get(id)
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestUntrackRemovesTheEntity(t *testing.T) {
	m := identity.New()
	id := identity.Identity{Type: widgetType, PrimaryKey: identity.Key{1}}
	m.Track(id, &widget{})

	m.Untrack(id)

	_, ok := m.Get(id)
	assert.False(t, ok)
}

func TestUntrackOfUntrackedIdentityIsNoop(t *testing.T) {
	m := identity.New()
	assert.NotPanics(t, func() {
		m.Untrack(identity.Identity{Type: widgetType, PrimaryKey: identity.Key{1}})
	})
}

func TestDifferentParentalKeysAreDistinctBuckets(t *testing.T) {
	m := identity.New()
	idA := identity.Identity{Type: widgetType, ParentalKey: identity.Key{"A"}, PrimaryKey: identity.Key{1}}
	idB := identity.Identity{Type: widgetType, ParentalKey: identity.Key{"B"}, PrimaryKey: identity.Key{1}}
	a, b := &widget{}, &widget{}

	m.Track(idA, a)
	m.Track(idB, b)

	gotA, _ := m.Get(idA)
	gotB, _ := m.Get(idB)
	assert.Same(t, a, gotA)
	assert.Same(t, b, gotB)
}

func TestByParentReturnsOnlyEntitiesUnderThatParentalKey(t *testing.T) {
	m := identity.New()
	parent := identity.Key{"post-1"}
	other := identity.Key{"post-2"}

	m.Track(identity.Identity{Type: widgetType, ParentalKey: parent, PrimaryKey: identity.Key{1}}, &widget{})
	m.Track(identity.Identity{Type: widgetType, ParentalKey: parent, PrimaryKey: identity.Key{2}}, &widget{})
	m.Track(identity.Identity{Type: widgetType, ParentalKey: other, PrimaryKey: identity.Key{3}}, &widget{})

	grouped := m.ByParent(widgetType, parent)
	assert.Len(t, grouped, 2)
}

func TestByParentOnUnknownBucketReturnsNil(t *testing.T) {
	m := identity.New()
	assert.Nil(t, m.ByParent(widgetType, identity.Key{"none"}))
}

func TestKeyEqualComparesElementwise(t *testing.T) {
	assert.True(t, identity.Key{1, "a"}.Equal(identity.Key{1, "a"}))
	assert.False(t, identity.Key{1, "a"}.Equal(identity.Key{1, "b"}))
	assert.False(t, identity.Key{1}.Equal(identity.Key{1, "a"}))
}

func TestSnapshotRestoreDiscardsChangesSinceSnapshot(t *testing.T) {
	m := identity.New()
	id := identity.Identity{Type: widgetType, PrimaryKey: identity.Key{1}}
	m.Track(id, &widget{})

	snap := m.Snapshot()
	m.Untrack(id)
	_, stillThere := m.Get(id)
	require.False(t, stillThere)

	m.Restore(snap)
	_, ok := m.Get(id)
	assert.True(t, ok)
}

func TestSnapshotIsIndependentOfSubsequentTracking(t *testing.T) {
	m := identity.New()
	snap := m.Snapshot()

	m.Track(identity.Identity{Type: widgetType, PrimaryKey: identity.Key{1}}, &widget{})

	m.Restore(snap)
	_, ok := m.Get(identity.Identity{Type: widgetType, PrimaryKey: identity.Key{1}})
	assert.False(t, ok)
}

func TestKeyStringDiffersForDifferentValues(t *testing.T) {
	assert.NotEqual(t, identity.KeyString(identity.Key{1}), identity.KeyString(identity.Key{2}))
}
