// Package ingest runs the sync pipeline: it pulls each activity source over
// a time window, normalizes what it reads and upserts it into the event
// store, publishing progress on a Bus as it goes.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rpggio/traceback/internal/domain/event"
	"github.com/rpggio/traceback/internal/domain/syncstate"
	"github.com/rpggio/traceback/internal/normalize"
	"github.com/rpggio/traceback/internal/source"
	"github.com/rpggio/traceback/internal/source/browser"
	"github.com/rpggio/traceback/internal/source/calendar"
	"github.com/rpggio/traceback/internal/source/vcs"
)

// ErrSyncInProgress is returned when a run is requested while one is active.
var ErrSyncInProgress = errors.New("sync already in progress")

// DefaultDaysBack is the length of the first sync window.
const DefaultDaysBack = 90

// Per-item failures beyond this many are only counted.
const maxLoggedErrors = 3

// Phase is the step a run is in. Completed, Cancelled and Failed are terminal.
type Phase string

const (
	PhaseIdle                  Phase = "idle"
	PhaseDeterminingWindow     Phase = "determining_window"
	PhaseSyncingCalendar       Phase = "syncing_calendar"
	PhaseSyncingVersionControl Phase = "syncing_version_control"
	PhaseSyncingBrowser        Phase = "syncing_browser"
	PhaseUpdatingStatus        Phase = "updating_status"
	PhaseCompleted             Phase = "completed"
	PhaseCancelled             Phase = "cancelled"
	PhaseFailed                Phase = "failed"
)

// CalendarSource returns calendar records overlapping a window. Fetch may
// wait on an authorization prompt until ctx ends.
type CalendarSource interface {
	Fetch(ctx context.Context, window source.Window) ([]calendar.Record, error)
}

// RepositorySource lists working copies and reads their activity one
// repository at a time.
type RepositorySource interface {
	Repositories(ctx context.Context) ([]vcs.Repository, error)
	Activities(repo vcs.Repository, since time.Time) ([]vcs.Activity, error)
}

// BrowserSource returns page visits within a window.
type BrowserSource interface {
	Fetch(ctx context.Context, window source.Window) ([]browser.Visit, error)
}

// EventStore validates and upserts normalized events.
type EventStore interface {
	Ingest(ctx context.Context, ev *event.Event) (event.UpsertResult, error)
	DiscoveredRepositoryPaths(ctx context.Context) ([]string, error)
}

// ContactStore upserts calendar organizers.
type ContactStore interface {
	Upsert(ctx context.Context, name string, email *string) (string, error)
}

// OrgLister returns the configured organization names.
type OrgLister interface {
	Orgs(ctx context.Context) ([]string, error)
}

// Classifier re-applies project rules after new events are stored.
type Classifier interface {
	Apply(ctx context.Context) (int64, error)
}

// Sources are the adapters a run reads from. A nil source is reported as
// unavailable and skipped.
type Sources struct {
	Calendar       CalendarSource
	VersionControl RepositorySource
	Browser        BrowserSource
}

// Stores are the persistence dependencies of a run.
type Stores struct {
	Events   EventStore
	Contacts ContactStore
	State    syncstate.Repository
	Orgs     OrgLister
}

// Options tune an Orchestrator.
type Options struct {
	DaysBack int
	Rules    Classifier
	Bus      *Bus
	Logger   *slog.Logger
	Now      func() time.Time
}

// SourceResult summarizes one source phase.
type SourceResult struct {
	Source  source.Name `json:"source"`
	Status  Status      `json:"status"`
	New     int         `json:"new_events"`
	Updated int         `json:"updated_events"`
	Skipped int         `json:"skipped"`
	Errors  int         `json:"errors"`
	Error   string      `json:"error,omitempty"`
}

// Result is the outcome of one run.
type Result struct {
	State         Phase          `json:"state"`
	WindowStart   time.Time      `json:"window_start"`
	WindowEnd     time.Time      `json:"window_end"`
	FirstSync     bool           `json:"first_sync"`
	Sources       []SourceResult `json:"sources"`
	TotalNew      int            `json:"total_new"`
	TotalUpdated  int            `json:"total_updated"`
	RulesAffected int64          `json:"rules_affected"`
	Duration      time.Duration  `json:"duration_ns"`
	Err           error          `json:"-"`
	Error         string         `json:"error,omitempty"`
}

// Run is a sync pass executing on its own goroutine.
type Run struct {
	cancel context.CancelFunc
	done   chan struct{}
	phase  atomic.Value
	result Result
}

// Cancel asks the run to stop at the next phase or item boundary.
func (r *Run) Cancel() { r.cancel() }

// Done is closed when the run has ended.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run ends and returns its result.
func (r *Run) Wait() Result {
	<-r.done
	return r.result
}

// Phase returns the step the run is currently in.
func (r *Run) Phase() Phase {
	p, _ := r.phase.Load().(Phase)
	return p
}

func (r *Run) setPhase(p Phase) { r.phase.Store(p) }

// Orchestrator runs sync passes one at a time.
type Orchestrator struct {
	sources  Sources
	stores   Stores
	rules    Classifier
	bus      *Bus
	daysBack int
	now      func() time.Time
	logger   *slog.Logger

	running atomic.Bool
	mu      sync.Mutex
	current *Run
	last    *Result
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(sources Sources, stores Stores, opts Options) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Bus == nil {
		opts.Bus = NewBus(DefaultBufferSize)
	}
	if opts.DaysBack <= 0 {
		opts.DaysBack = DefaultDaysBack
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		sources:  sources,
		stores:   stores,
		rules:    opts.Rules,
		bus:      opts.Bus,
		daysBack: opts.DaysBack,
		now:      opts.Now,
		logger:   opts.Logger,
	}
}

// Bus returns the progress stream.
func (o *Orchestrator) Bus() *Bus { return o.bus }

// Start begins a run and returns immediately. The run keeps ctx's values
// but not its cancellation; use Run.Cancel to stop it.
func (o *Orchestrator) Start(ctx context.Context) (*Run, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrSyncInProgress
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	run := &Run{cancel: cancel, done: make(chan struct{})}
	run.setPhase(PhaseDeterminingWindow)

	o.mu.Lock()
	o.current = run
	o.mu.Unlock()

	go o.execute(runCtx, run)
	return run, nil
}

// Sync runs a pass and waits for it. Cancelling ctx cancels the run.
func (o *Orchestrator) Sync(ctx context.Context) Result {
	run, err := o.Start(ctx)
	if err != nil {
		return Result{State: PhaseFailed, Err: err, Error: err.Error()}
	}
	select {
	case <-ctx.Done():
		run.Cancel()
	case <-run.Done():
	}
	return run.Wait()
}

// Cancel stops the active run, if any, and reports whether there was one.
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	run := o.current
	o.mu.Unlock()
	if run == nil {
		return false
	}
	run.Cancel()
	return true
}

// Report is the orchestrator's view of sync state.
type Report struct {
	syncstate.Metadata
	Running    bool    `json:"running"`
	Phase      Phase   `json:"phase"`
	LastResult *Result `json:"last_result,omitempty"`
}

// Status combines the stored sync metadata with the in-memory run state.
func (o *Orchestrator) Status(ctx context.Context) (Report, error) {
	md, err := o.stores.State.Get(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("getting sync state: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	report := Report{Metadata: md, Phase: PhaseIdle, LastResult: o.last}
	if o.current != nil {
		report.Running = true
		report.Phase = o.current.Phase()
	}
	return report, nil
}

func (o *Orchestrator) execute(ctx context.Context, run *Run) {
	started := o.now()
	work := context.WithoutCancel(ctx)
	res := Result{}

	defer func() {
		res.Duration = o.now().Sub(started)
		if res.Err != nil {
			res.Error = res.Err.Error()
		}
		run.result = res
		run.setPhase(res.State)

		o.mu.Lock()
		o.current = nil
		o.last = &res
		o.mu.Unlock()

		o.running.Store(false)
		run.cancel()
		close(run.done)
	}()

	o.bus.Publish(Message{Kind: KindStarted, Timestamp: started.UTC()})

	if err := o.stores.State.MarkStarted(work); err != nil {
		o.fail(work, &res, fmt.Errorf("marking sync started: %w", err))
		return
	}

	window, first, err := o.window(work)
	if err != nil {
		o.fail(work, &res, err)
		return
	}
	res.WindowStart, res.WindowEnd, res.FirstSync = window.Start, window.End, first
	if first {
		o.logger.Info("starting first sync", "days", o.daysBack, "since", window.Start)
	} else {
		o.logger.Info("starting delta sync", "since", window.Start)
	}

	phases := []struct {
		phase Phase
		name  source.Name
		run   func(ctx, work context.Context, window source.Window, t *tally) error
	}{
		{PhaseSyncingCalendar, source.Calendar, o.syncCalendar},
		{PhaseSyncingVersionControl, source.VersionControl, o.syncVersionControl},
		{PhaseSyncingBrowser, source.BrowserHistory, o.syncBrowser},
	}
	for _, p := range phases {
		if ctx.Err() != nil {
			o.cancelled(work, &res)
			return
		}
		run.setPhase(p.phase)
		sr := o.syncSource(ctx, work, p.name, window, p.run)
		res.Sources = append(res.Sources, sr)
		res.TotalNew += sr.New
		res.TotalUpdated += sr.Updated
	}
	if ctx.Err() != nil {
		o.cancelled(work, &res)
		return
	}

	run.setPhase(PhaseUpdatingStatus)
	if o.rules != nil {
		n, err := o.rules.Apply(work)
		if err != nil {
			o.logger.Warn("re-applying rules failed", "error", err)
		}
		res.RulesAffected = n
	}

	end := window.End
	if err := o.stores.State.MarkFinished(work, &end); err != nil {
		o.fail(work, &res, fmt.Errorf("updating sync status: %w", err))
		return
	}

	res.State = PhaseCompleted
	elapsed := o.now().Sub(started)
	o.bus.Publish(Message{
		Kind:         KindCompleted,
		TotalNew:     res.TotalNew,
		TotalUpdated: res.TotalUpdated,
		DurationMS:   elapsed.Milliseconds(),
	})
	o.logger.Info("sync completed", "new", res.TotalNew, "updated", res.TotalUpdated, "duration", elapsed)
}

func (o *Orchestrator) window(ctx context.Context) (source.Window, bool, error) {
	md, err := o.stores.State.Get(ctx)
	if err != nil {
		return source.Window{}, false, fmt.Errorf("reading sync state: %w", err)
	}
	now := o.now().UTC().Truncate(time.Second)
	if md.LastSyncTime == nil {
		return source.Window{Start: now.AddDate(0, 0, -o.daysBack), End: now}, true, nil
	}
	return source.Window{Start: md.LastSyncTime.UTC(), End: now}, false, nil
}

func (o *Orchestrator) syncSource(
	ctx, work context.Context,
	name source.Name,
	window source.Window,
	fn func(ctx, work context.Context, window source.Window, t *tally) error,
) SourceResult {
	o.bus.Publish(Message{Kind: KindProgress, Source: name, Status: StatusStarting})

	t := &tally{source: name, logger: o.logger}
	err := fn(ctx, work, window, t)
	t.summarize()
	sr := t.result()

	switch {
	case err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()):
		o.logger.Info("source interrupted", "source", name, "new", sr.New, "updated", sr.Updated)
		sr.Status = StatusInProgress
	case err != nil:
		o.logger.Warn("source failed", "source", name, "error", err)
		o.bus.Publish(Message{Kind: KindProgress, Source: name, Status: StatusFailed, Message: err.Error()})
		o.bus.Publish(Message{Kind: KindSourceCompleted, Source: name})
		return SourceResult{Source: name, Status: StatusFailed, Error: err.Error()}
	default:
		sr.Status = StatusCompleted
		o.bus.Publish(Message{
			Kind:    KindProgress,
			Source:  name,
			Status:  StatusCompleted,
			Message: fmt.Sprintf("%d new, %d updated", sr.New, sr.Updated),
		})
	}
	o.bus.Publish(Message{Kind: KindSourceCompleted, Source: name, NewEvents: sr.New, UpdatedEvents: sr.Updated})
	return sr
}

func (o *Orchestrator) syncCalendar(ctx, work context.Context, window source.Window, t *tally) error {
	if o.sources.Calendar == nil {
		return fmt.Errorf("%w: no calendar provider configured", source.ErrSourceUnavailable)
	}
	// The fetch is read-only and may wait on the host, so it runs on the
	// cancellable context. Only writes use work.
	records, err := o.sources.Calendar.Fetch(ctx, window)
	if err != nil {
		return err
	}
	o.progress(source.Calendar, "fetched %d events", len(records))

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		var organizerID *string
		if rec.OrganizerName != "" {
			var email *string
			if rec.OrganizerEmail != "" {
				email = &rec.OrganizerEmail
			}
			id, err := o.stores.Contacts.Upsert(work, rec.OrganizerName, email)
			if err != nil {
				o.logger.Warn("failed to upsert organizer", "organizer", rec.OrganizerName, "error", err)
			} else {
				organizerID = &id
			}
		}

		ev, err := normalize.Calendar(rec, organizerID)
		if err != nil {
			t.fail(err)
			continue
		}
		t.record(o.stores.Events.Ingest(work, ev))
	}
	return nil
}

func (o *Orchestrator) syncVersionControl(ctx, work context.Context, window source.Window, t *tally) error {
	if o.sources.VersionControl == nil {
		return fmt.Errorf("%w: version control is not configured", source.ErrSourceUnavailable)
	}
	repos, err := o.sources.VersionControl.Repositories(work)
	if err != nil {
		return err
	}
	o.progress(source.VersionControl, "found %d repositories", len(repos))

	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			return err
		}
		acts, err := o.sources.VersionControl.Activities(repo, window.Start)
		if err != nil {
			o.logger.Warn("skipping repository", "repository", repo.Name, "error", err)
			continue
		}
		for _, act := range acts {
			if err := ctx.Err(); err != nil {
				return err
			}
			if act.Timestamp.After(window.End) {
				continue
			}
			t.record(o.stores.Events.Ingest(work, normalize.VersionControl(act, repo)))
		}
	}
	return nil
}

func (o *Orchestrator) syncBrowser(ctx, work context.Context, window source.Window, t *tally) error {
	if o.sources.Browser == nil {
		return fmt.Errorf("%w: browser history is not configured", source.ErrSourceUnavailable)
	}
	visits, err := o.sources.Browser.Fetch(work, window)
	if err != nil {
		return err
	}
	o.progress(source.BrowserHistory, "fetched %d visits", len(visits))

	discovered, err := o.stores.Events.DiscoveredRepositoryPaths(work)
	if err != nil {
		return fmt.Errorf("listing discovered repositories: %w", err)
	}
	var orgs []string
	if o.stores.Orgs != nil {
		orgs, err = o.stores.Orgs.Orgs(work)
		if err != nil {
			o.logger.Warn("ignoring organizations", "error", err)
			orgs = nil
		}
	}

	for _, visit := range visits {
		if err := ctx.Err(); err != nil {
			return err
		}
		ev := normalize.Browser(visit)
		if !normalize.IncludeVisit(ev.RepositoryPath, discovered, orgs) {
			t.skipped++
			continue
		}
		t.record(o.stores.Events.Ingest(work, ev))
	}
	return nil
}

func (o *Orchestrator) progress(name source.Name, format string, args ...any) {
	o.bus.Publish(Message{Kind: KindProgress, Source: name, Status: StatusInProgress, Message: fmt.Sprintf(format, args...)})
}

func (o *Orchestrator) fail(work context.Context, res *Result, err error) {
	if ferr := o.stores.State.MarkFinished(work, nil); ferr != nil {
		o.logger.Error("failed to clear sync flag", "error", ferr)
	}
	res.State = PhaseFailed
	res.Err = err
	o.bus.Publish(Message{Kind: KindFailed, Error: err.Error()})
	o.logger.Error("sync failed", "error", err)
}

func (o *Orchestrator) cancelled(work context.Context, res *Result) {
	if err := o.stores.State.MarkFinished(work, nil); err != nil {
		o.logger.Error("failed to clear sync flag", "error", err)
	}
	res.State = PhaseCancelled
	res.Err = context.Canceled
	o.bus.Publish(Message{Kind: KindCancelled})
	o.logger.Info("sync cancelled", "new", res.TotalNew, "updated", res.TotalUpdated)
}

// tally counts the outcome of each item in a source phase.
type tally struct {
	source  source.Name
	logger  *slog.Logger
	new     int
	updated int
	skipped int
	errors  int
}

func (t *tally) record(res event.UpsertResult, err error) {
	if err != nil {
		t.fail(err)
		return
	}
	if res.WasNew {
		t.new++
	} else {
		t.updated++
	}
}

func (t *tally) fail(err error) {
	t.errors++
	if t.errors <= maxLoggedErrors {
		t.logger.Warn("failed to store item", "source", t.source, "error", err)
	}
}

func (t *tally) summarize() {
	if t.errors > maxLoggedErrors {
		t.logger.Warn(fmt.Sprintf("... and %d more errors", t.errors-maxLoggedErrors), "source", t.source)
	}
}

func (t *tally) result() SourceResult {
	return SourceResult{Source: t.source, New: t.new, Updated: t.updated, Skipped: t.skipped, Errors: t.errors}
}
