package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/CKDRisk/internal/model"
)

func TestTransitions(t *testing.T) {
	var v View = CollectingInput{}
	assert.Equal(t, KindCollecting, v.Kind())

	a := model.Assessment{DeathInHospital: 0.04, ProlongedLOS: 0.31}
	v = Submit(a)
	require.Equal(t, KindResults, v.Kind())
	assert.Equal(t, a, v.(ShowingResults).Assessment)

	v = Reset()
	assert.Equal(t, CollectingInput{}, v)
}

func TestStoreDefaultsToCollecting(t *testing.T) {
	s, err := NewStore(4)
	require.NoError(t, err)
	assert.Equal(t, CollectingInput{}, s.Get(NewID()))
}

func TestStoreIsolatesSessions(t *testing.T) {
	s, err := NewStore(4)
	require.NoError(t, err)

	alice, bob := NewID(), NewID()
	s.Set(alice, Submit(model.Assessment{DeathInHospital: 0.2}))

	assert.Equal(t, KindResults, s.Get(alice).Kind())
	assert.Equal(t, KindCollecting, s.Get(bob).Kind())

	s.Set(alice, Reset())
	assert.Equal(t, KindCollecting, s.Get(alice).Kind())
	assert.Zero(t, s.Len())
}

func TestStoreEvictsOldest(t *testing.T) {
	s, err := NewStore(2)
	require.NoError(t, err)

	ids := []string{NewID(), NewID(), NewID()}
	for _, id := range ids {
		s.Set(id, Submit(model.Assessment{}))
	}
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, KindCollecting, s.Get(ids[0]).Kind())
	assert.Equal(t, KindResults, s.Get(ids[2]).Kind())
}

func TestNewStoreRejectsZeroCapacity(t *testing.T) {
	_, err := NewStore(0)
	assert.Error(t, err)
}

func TestValidID(t *testing.T) {
	assert.True(t, ValidID(NewID()))
	assert.False(t, ValidID("not-a-session"))
}
