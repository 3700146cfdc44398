package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRejectsIncompleteEntries(t *testing.T) {
	svc := New(NewMemoryStore())
	err := svc.Record(context.Background(), Entry{Action: ActionAssessmentSubmit, EntityType: EntityAssessmentRecord, EntityID: "r1"})
	require.ErrorIs(t, err, ErrInvalidEvent)
}

func TestRecordEncodesPayloadsAndListsNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc := New(NewMemoryStore())
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	svc.Now = func() time.Time { return now }

	require.NoError(t, svc.Record(ctx, Entry{
		ActorID: "E0002", Action: ActionAssessmentSubmit, EntityType: EntityAssessmentRecord, EntityID: "r1",
		After: map[string]any{"version": 1},
	}))
	require.NoError(t, svc.Record(ctx, Entry{
		ActorID: "E0001", Action: ActionPeriodCreate, EntityType: EntityPeriod, EntityID: "2",
	}))
	require.NoError(t, svc.Record(ctx, Entry{
		ActorID: "E0003", Action: ActionAssessmentSubmit, EntityType: EntityAssessmentRecord, EntityID: "r1",
		After: map[string]any{"version": 2},
	}))

	events, err := svc.List(ctx, Filter{EntityType: EntityAssessmentRecord, EntityID: "r1"})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "E0003", events[0].ActorID)
	assert.Equal(t, "E0002", events[1].ActorID)
	assert.Nil(t, events[0].Before)
	assert.True(t, now.Equal(events[0].CreatedAt))

	var after map[string]int
	require.NoError(t, json.Unmarshal(events[0].After, &after))
	assert.Equal(t, 2, after["version"])
}

func TestListPaging(t *testing.T) {
	ctx := context.Background()
	svc := New(NewMemoryStore())
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, svc.Record(ctx, Entry{ActorID: "E0001", Action: ActionPeriodCreate, EntityType: EntityPeriod, EntityID: id}))
	}

	page, err := svc.List(ctx, Filter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].EntityID)

	assert.Equal(t, DefaultListLimit, clampLimit(0))
	assert.Equal(t, MaxListLimit, clampLimit(10000))
}
