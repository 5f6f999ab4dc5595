package calendar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/rpggio/traceback/internal/source"
)

const defaultMaxOccurrences = 5000

// ICSProvider reads events from iCalendar files or http(s) feeds.
// Configuring at least one source counts as granting access.
type ICSProvider struct {
	sources        []string
	client         *http.Client
	logger         *slog.Logger
	maxOccurrences int
}

// NewICSProvider creates a provider for the given paths or URLs.
func NewICSProvider(sources []string, logger *slog.Logger) *ICSProvider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ICSProvider{
		sources:        sources,
		client:         &http.Client{Timeout: 30 * time.Second},
		logger:         logger,
		maxOccurrences: defaultMaxOccurrences,
	}
}

func (p *ICSProvider) Status(context.Context) (Authorization, error) {
	if len(p.sources) == 0 {
		return NotDetermined, nil
	}
	return FullAccess, nil
}

func (p *ICSProvider) Request(context.Context) (Authorization, error) {
	if len(p.sources) == 0 {
		return Denied, nil
	}
	return FullAccess, nil
}

// Events loads every source and returns occurrences overlapping window.
// A source that cannot be read is skipped; if none can be read the
// provider is unavailable.
func (p *ICSProvider) Events(ctx context.Context, window source.Window) ([]Record, error) {
	if len(p.sources) == 0 {
		return nil, fmt.Errorf("%w: no calendar sources configured", source.ErrSourceUnavailable)
	}

	var (
		out     []Record
		loaded  int
		lastErr error
	)
	for _, src := range p.sources {
		body, err := p.load(ctx, src)
		if err != nil {
			p.logger.Warn("calendar source unreadable", "source", redact(src), "error", err)
			lastErr = err
			continue
		}
		records, err := ParseICS(body, window, p.maxOccurrences, p.logger)
		if err != nil {
			p.logger.Warn("calendar source unparseable", "source", redact(src), "error", err)
			lastErr = err
			continue
		}
		loaded++
		out = append(out, records...)
	}

	if loaded == 0 {
		return nil, fmt.Errorf("%w: %v", source.ErrSourceUnavailable, lastErr)
	}
	return out, nil
}

func (p *ICSProvider) load(ctx context.Context, src string) ([]byte, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return os.ReadFile(src)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

type vevent struct {
	uid        string
	summary    string
	notes      string
	location   string
	start      time.Time
	end        time.Time
	allDay     bool
	rrule      string
	exdates    []time.Time
	recurrence *time.Time
	organizer  string
	orgEmail   string
	attendees  []string
}

// ParseICS parses an iCalendar payload and expands recurrences within window.
// Malformed VEVENTs are dropped.
func ParseICS(body []byte, window source.Window, maxOccurrences int, logger *slog.Logger) ([]Record, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty calendar body", source.ErrParse)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if maxOccurrences <= 0 {
		maxOccurrences = defaultMaxOccurrences
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", source.ErrParse, err)
	}

	var events []vevent
	overridden := make(map[string]bool)
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(ve)
		if err != nil {
			logger.Debug("dropping calendar event", "uid", ve.Id(), "error", err)
			continue
		}
		if ev.recurrence != nil {
			overridden[occurrenceKey(ev.uid, *ev.recurrence)] = true
		}
		events = append(events, ev)
	}

	var out []Record
	for _, ev := range events {
		switch {
		case ev.recurrence != nil:
			if window.Overlaps(ev.start, ev.end) {
				out = append(out, ev.record(occurrenceKey(ev.uid, *ev.recurrence), ev.start, ev.end))
			}
		case ev.rrule != "":
			occ, err := expand(ev, window, maxOccurrences)
			if err != nil {
				logger.Debug("dropping recurring event", "uid", ev.uid, "error", err)
				continue
			}
			for _, start := range occ {
				key := occurrenceKey(ev.uid, start)
				if overridden[key] {
					continue
				}
				out = append(out, ev.record(key, start, start.Add(ev.end.Sub(ev.start))))
			}
		default:
			if window.Overlaps(ev.start, ev.end) {
				out = append(out, ev.record(ev.uid, ev.start, ev.end))
			}
		}
	}
	return out, nil
}

func parseVEvent(ve *ical.VEvent) (vevent, error) {
	var ev vevent

	ev.uid = ve.Id()
	if ev.uid == "" {
		return ev, errors.New("missing UID")
	}
	if p := ve.GetProperty(ical.ComponentPropertyStatus); p != nil && strings.EqualFold(p.Value, "CANCELLED") {
		return ev, errors.New("cancelled")
	}

	ev.summary = textProp(ve, ical.ComponentPropertySummary)
	ev.notes = textProp(ve, ical.ComponentPropertyDescription)
	ev.location = textProp(ve, ical.ComponentPropertyLocation)

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return ev, errors.New("missing DTSTART")
	}
	if vs := dtStart.ICalParameters["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		ev.allDay = true
	}
	if !strings.Contains(dtStart.Value, "T") {
		ev.allDay = true
	}

	var err error
	if ev.allDay {
		ev.start, err = ve.GetAllDayStartAt()
	} else {
		ev.start, err = ve.GetStartAt()
	}
	if err != nil {
		return ev, fmt.Errorf("DTSTART: %w", err)
	}

	if ev.allDay {
		ev.end, err = ve.GetAllDayEndAt()
	} else {
		ev.end, err = ve.GetEndAt()
	}
	switch {
	case err != nil && ev.allDay:
		ev.end = ev.start.AddDate(0, 0, 1)
	case err != nil:
		ev.end = ev.start
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		ev.rrule = p.Value
	}
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, ev.start.Location()); err == nil {
				ev.exdates = append(ev.exdates, t)
			}
		}
	}
	if p := ve.GetProperty(ical.ComponentPropertyRecurrenceId); p != nil {
		t, err := parseICSTime(p.Value, ev.start.Location())
		if err != nil {
			return ev, fmt.Errorf("RECURRENCE-ID: %w", err)
		}
		ev.recurrence = &t
	}

	if p := ve.GetProperty(ical.ComponentPropertyOrganizer); p != nil {
		if cn := p.ICalParameters[string(ical.ParameterCn)]; len(cn) > 0 {
			ev.organizer = strings.Trim(cn[0], `"`)
		}
		ev.orgEmail = strings.TrimPrefix(strings.TrimPrefix(p.Value, "mailto:"), "MAILTO:")
		if ev.organizer == "" {
			ev.organizer = ev.orgEmail
		}
	}
	for _, a := range ve.Attendees() {
		name := ""
		if cn := a.ICalParameters[string(ical.ParameterCn)]; len(cn) > 0 {
			name = strings.Trim(cn[0], `"`)
		}
		if name == "" {
			name = a.Email()
		}
		if name != "" {
			ev.attendees = append(ev.attendees, name)
		}
	}

	return ev, nil
}

func (ev vevent) record(id string, start, end time.Time) Record {
	return Record{
		ExternalID:     id,
		Title:          ev.summary,
		Start:          start,
		End:            end,
		AllDay:         ev.allDay,
		Location:       ev.location,
		Notes:          ev.notes,
		Attendees:      ev.attendees,
		OrganizerName:  ev.organizer,
		OrganizerEmail: ev.orgEmail,
	}
}

func expand(ev vevent, window source.Window, maxOccurrences int) ([]time.Time, error) {
	r, err := rrule.StrToRRule(ev.rrule)
	if err != nil {
		return nil, fmt.Errorf("%w: RRULE %q: %v", source.ErrParse, ev.rrule, err)
	}
	r.DTStart(ev.start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.exdates {
		set.ExDate(ex)
	}

	// Occurrences that start before the window but are still running overlap it.
	loc := ev.start.Location()
	dur := ev.end.Sub(ev.start)
	times := set.Between(window.Start.Add(-dur).In(loc), window.End.In(loc), true)
	if len(times) > maxOccurrences {
		times = times[:maxOccurrences]
	}
	return times, nil
}

func textProp(ve *ical.VEvent, prop ical.ComponentProperty) string {
	p := ve.GetProperty(prop)
	if p == nil {
		return ""
	}
	return ical.FromText(p.Value)
}

func occurrenceKey(uid string, start time.Time) string {
	return uid + "/" + start.UTC().Format(time.RFC3339)
}

// parseICSTime parses a DATE or DATE-TIME value; floating times use loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return time.Time{}, fmt.Errorf("%w: empty time value", source.ErrParse)
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}

func redact(src string) string {
	if i := strings.Index(src, "?"); i >= 0 {
		return src[:i] + "?…"
	}
	return src
}
