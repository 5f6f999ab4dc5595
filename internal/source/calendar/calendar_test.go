package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rpggio/traceback/internal/source"
	"github.com/stretchr/testify/require"
)

type authStub struct {
	status   Authorization
	answer   Authorization
	requests int
}

func (a *authStub) Status(context.Context) (Authorization, error) { return a.status, nil }

func (a *authStub) Request(context.Context) (Authorization, error) {
	a.requests++
	return a.answer, nil
}

type providerStub struct {
	records []Record
	err     error
	calls   int
}

func (p *providerStub) Events(context.Context, source.Window) ([]Record, error) {
	p.calls++
	return p.records, p.err
}

func TestAdapter_RequestsOnceWhenUndetermined(t *testing.T) {
	auth := &authStub{status: NotDetermined, answer: FullAccess}
	w := testWindow()
	prov := &providerStub{records: []Record{
		{ExternalID: "a", Title: "in", Start: w.Start.Add(time.Hour), End: w.Start.Add(2 * time.Hour)},
		{ExternalID: "", Title: "no id", Start: w.Start.Add(time.Hour), End: w.Start.Add(2 * time.Hour)},
		{ExternalID: "b", Title: "before", Start: w.Start.Add(-48 * time.Hour), End: w.Start.Add(-47 * time.Hour)},
	}}

	a := NewAdapter(auth, prov, nil)
	records, err := a.Fetch(context.Background(), w)
	require.NoError(t, err)
	require.Equal(t, 1, auth.requests)
	require.Len(t, records, 1)
	require.Equal(t, "a", records[0].ExternalID)
}

func TestAdapter_DeniedNeverFetches(t *testing.T) {
	for _, status := range []Authorization{Denied, Restricted} {
		prov := &providerStub{}
		a := NewAdapter(&authStub{status: status}, prov, nil)
		_, err := a.Fetch(context.Background(), testWindow())
		require.ErrorIs(t, err, source.ErrPermissionDenied)
		require.Zero(t, prov.calls)
	}
}

func TestAdapter_RequestRefused(t *testing.T) {
	a := NewAdapter(&authStub{status: NotDetermined, answer: Denied}, &providerStub{}, nil)
	_, err := a.Fetch(context.Background(), testWindow())
	require.ErrorIs(t, err, source.ErrPermissionDenied)
}

func TestAdapter_ProviderError(t *testing.T) {
	prov := &providerStub{err: errors.New("boom")}
	a := NewAdapter(&authStub{status: FullAccess}, prov, nil)
	_, err := a.Fetch(context.Background(), testWindow())
	require.ErrorContains(t, err, "boom")
}
