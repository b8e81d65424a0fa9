package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsSetBaseFields(t *testing.T) {
	now := time.Now()

	cases := []struct {
		event     Event
		eventType string
		aggregate string
	}{
		{NewSessionStarted(7, "ada", now), TypeSessionStarted, "ada"},
		{NewSessionEnded(7, "ada", ReasonUnauthorized, now), TypeSessionEnded, "ada"},
		{NewResourceCreated("idea", "3", nil, now), TypeResourceCreated, "3"},
		{NewResourceUpdated("idea", "3", json.RawMessage(`{}`), now), TypeResourceUpdated, "3"},
		{NewResourceDeleted("tag", "9", now), TypeResourceDeleted, "9"},
	}

	seen := map[string]bool{}
	for _, tc := range cases {
		assert.Equal(t, tc.eventType, tc.event.GetEventType())
		assert.Equal(t, tc.aggregate, tc.event.GetAggregateID())
		assert.Equal(t, now, tc.event.GetTimestamp())
		assert.NotEmpty(t, tc.event.GetEventID())
		assert.False(t, seen[tc.event.GetEventID()], "event ids are unique")
		seen[tc.event.GetEventID()] = true
	}
	assert.Len(t, Types, len(cases))
}

func TestResourceUpdated_Decode(t *testing.T) {
	evt := NewResourceUpdated("idea", "3", json.RawMessage(`{"id":3,"name":"kite"}`), time.Now())

	var body struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	require.NoError(t, evt.Decode(&body))
	assert.Equal(t, int64(3), body.ID)
	assert.Equal(t, "kite", body.Name)
}

func TestSessionEnded_JSON(t *testing.T) {
	data, err := json.Marshal(NewSessionEnded(1, "ada", ReasonLogout, time.Now()))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"event_type":"session.ended"`)
	assert.Contains(t, string(data), `"reason":"logout"`)
}
