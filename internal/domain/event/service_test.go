package event_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/traceback/internal/domain/event"
	"github.com/rpggio/traceback/internal/repository"
	"github.com/rpggio/traceback/internal/repository/mocks"
)

func TestEventService_IngestTruncatesToSeconds(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 3, 4, 9, 0, 0, 123456789, time.UTC)

	repo := &mocks.EventRepository{}
	repo.On("Upsert", ctx, mock.MatchedBy(func(ev *event.Event) bool {
		return ev.StartDate.Nanosecond() == 0 && ev.EndDate.Nanosecond() == 0
	})).Return(event.UpsertResult{ID: "e1", WasNew: true}, nil)

	svc := event.NewService(repo, nil)
	res, err := svc.Ingest(ctx, &event.Event{
		Type:       event.TypeCalendar,
		Title:      "Standup",
		StartDate:  start,
		EndDate:    start.Add(15 * time.Minute),
		ExternalID: "uid-1",
		Payload:    &event.CalendarPayload{},
	})
	require.NoError(t, err)
	require.True(t, res.WasNew)
	repo.AssertExpectations(t)
}

func TestEventService_IngestRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	svc := event.NewService(&mocks.EventRepository{}, nil)

	cases := map[string]struct {
		ev   *event.Event
		want error
	}{
		"nil":          {nil, event.ErrInvalidInput},
		"unknown type": {&event.Event{Type: "email", ExternalID: "x", StartDate: now, EndDate: now}, event.ErrInvalidInput},
		"no external":  {&event.Event{Type: event.TypeCalendar, StartDate: now, EndDate: now}, event.ErrInvalidInput},
		"end first":    {&event.Event{Type: event.TypeCalendar, ExternalID: "x", StartDate: now, EndDate: now.Add(-time.Hour)}, event.ErrInvalidInput},
		"wrong payload": {&event.Event{
			Type: event.TypeCalendar, ExternalID: "x", StartDate: now, EndDate: now,
			Payload: &event.BrowserPayload{URL: "https://github.com"},
		}, event.ErrInvalidPayload},
	}
	for name, tc := range cases {
		_, err := svc.Ingest(ctx, tc.ev)
		require.ErrorIs(t, err, tc.want, name)
	}
}

func TestEventService_ListRejectsBackwardsRange(t *testing.T) {
	from := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, -1)

	svc := event.NewService(&mocks.EventRepository{}, nil)
	_, err := svc.List(context.Background(), event.ListOptions{From: &from, To: &to})
	require.ErrorIs(t, err, event.ErrInvalidInput)
}

func TestEventService_AssignProject(t *testing.T) {
	ctx := context.Background()
	blank := "  "
	p1 := "p1"

	repo := &mocks.EventRepository{}
	repo.On("AssignProject", ctx, "e1", (*string)(nil)).Return(nil)
	repo.On("AssignProject", ctx, "e1", &p1).Return(nil)
	repo.On("AssignProject", ctx, "e404", &p1).Return(repository.ErrNotFound)

	svc := event.NewService(repo, nil)
	require.NoError(t, svc.AssignProject(ctx, "e1", &blank))
	require.NoError(t, svc.AssignProject(ctx, "e1", &p1))
	require.ErrorIs(t, svc.AssignProject(ctx, "e404", &p1), event.ErrEventNotFound)
	repo.AssertExpectations(t)
}

func TestEventService_GetWrapsStoreErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")

	repo := &mocks.EventRepository{}
	repo.On("Get", ctx, "e404").Return(nil, repository.ErrNotFound)
	repo.On("Get", ctx, "e500").Return(nil, boom)

	svc := event.NewService(repo, nil)
	_, err := svc.Get(ctx, "e404")
	require.ErrorIs(t, err, event.ErrEventNotFound)
	_, err = svc.Get(ctx, "e500")
	require.ErrorIs(t, err, boom)
}
