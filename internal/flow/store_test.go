package flow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_GetReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Set(1, State{Step: StepTripStartDate, Fields: Fields{Destination: "Lisbon"}})

	st, ok := s.Get(1)
	require.True(t, ok)

	// Mutating the copy must not leak into the store.
	st.Fields.Destination = "Porto"

	again, ok := s.Get(1)
	require.True(t, ok)
	require.Equal(t, "Lisbon", again.Fields.Destination)
}

func TestStore_SetStampsUserID(t *testing.T) {
	s := NewStore()
	s.Set(7, State{Step: StepCityInput})

	st, ok := s.Get(7)
	require.True(t, ok)
	require.Equal(t, int64(7), st.UserID)
}

func TestStore_Clear(t *testing.T) {
	s := NewStore()
	s.Set(1, State{Step: StepTripNotes})
	s.Clear(1)

	_, ok := s.Get(1)
	require.False(t, ok)

	s.Clear(1) // clearing an absent state is a no-op
}
