package audit

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	ActionAssessmentSubmit = "assessment.submit"
	ActionPeriodCreate     = "period.create"

	EntityAssessmentRecord = "assessment_record"
	EntityPeriod           = "assessment_period"

	DefaultListLimit = 100
	MaxListLimit     = 500
)

var ErrInvalidEvent = errors.New("invalid audit event")

type Event struct {
	ID         int64           `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId,omitempty"`
	IP         string          `json:"ip,omitempty"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	Action     string
	EntityType string
	EntityID   string
	ActorID    string
	Limit      int
	Offset     int
}

type StoreAPI interface {
	Append(ctx context.Context, evt Event) (int64, error)
	List(ctx context.Context, filter Filter) ([]Event, error)
}

type Service struct {
	Store StoreAPI
	Now   func() time.Time
}

func New(store StoreAPI) *Service {
	return &Service{Store: store, Now: func() time.Time { return time.Now().UTC() }}
}

// Entry is what callers know about a change; Record stamps and encodes it.
type Entry struct {
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	RequestID  string
	IP         string
	Before     any
	After      any
}

func (s *Service) Record(ctx context.Context, entry Entry) error {
	if strings.TrimSpace(entry.ActorID) == "" || entry.Action == "" || entry.EntityType == "" || entry.EntityID == "" {
		return ErrInvalidEvent
	}
	before, err := encode(entry.Before)
	if err != nil {
		return err
	}
	after, err := encode(entry.After)
	if err != nil {
		return err
	}
	_, err = s.Store.Append(ctx, Event{
		ActorID:    entry.ActorID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		RequestID:  entry.RequestID,
		IP:         entry.IP,
		Before:     before,
		After:      after,
		CreatedAt:  s.Now(),
	})
	return err
}

// List returns newest events first, clamping the page size.
func (s *Service) List(ctx context.Context, filter Filter) ([]Event, error) {
	filter.Limit = clampLimit(filter.Limit)
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.Store.List(ctx, filter)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return min(limit, MaxListLimit)
}

func encode(value any) (json.RawMessage, error) {
	if value == nil {
		return nil, nil
	}
	return json.Marshal(value)
}
