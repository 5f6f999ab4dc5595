package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/traceback/internal/domain/event"
	"github.com/rpggio/traceback/internal/domain/project"
	"github.com/rpggio/traceback/internal/domain/settings"
	"github.com/rpggio/traceback/internal/ingest"
)

var (
	errInvalidParams = errors.New("invalid params")
	errUnknownMethod = errors.New("unknown method")
)

// SyncService defines the sync operations needed by MCP.
type SyncService interface {
	Start(ctx context.Context) (*ingest.Run, error)
	Cancel() bool
	Status(ctx context.Context) (ingest.Report, error)
}

// EventService defines event operations needed by MCP.
type EventService interface {
	List(ctx context.Context, opts event.ListOptions) ([]event.Event, error)
	Get(ctx context.Context, id string) (*event.Event, error)
	AssignProject(ctx context.Context, eventID string, projectID *string) error
	Reset(ctx context.Context) error
}

// ProjectService defines project and rule operations needed by MCP.
type ProjectService interface {
	Create(ctx context.Context, req project.CreateRequest) (*project.Project, error)
	Get(ctx context.Context, id string) (*project.Project, error)
	List(ctx context.Context) ([]project.ProjectSummary, error)
	Update(ctx context.Context, req project.UpdateRequest) (*project.Project, error)
	Delete(ctx context.Context, id string) error
	CreateRule(ctx context.Context, req project.CreateRuleRequest) (*project.Rule, error)
	ListRules(ctx context.Context) ([]project.Rule, error)
	UpdateRule(ctx context.Context, req project.UpdateRuleRequest) (*project.Rule, error)
	DeleteRule(ctx context.Context, id string) error
}

// SettingsService defines settings operations needed by MCP.
type SettingsService interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) (map[string]string, error)
	Orgs(ctx context.Context) ([]string, error)
	AddOrg(ctx context.Context, name string) ([]string, error)
	RemoveOrg(ctx context.Context, name string) ([]string, error)
	WorkDomains(ctx context.Context) ([]settings.WorkDomain, error)
	AddWorkDomain(ctx context.Context, domain string) (*settings.WorkDomain, error)
	RemoveWorkDomain(ctx context.Context, domain string) error
}

// RuleEngine re-applies every classification rule.
type RuleEngine interface {
	Apply(ctx context.Context) (int64, error)
}

// Services contains all services needed by MCP.
type Services struct {
	Sync     SyncService
	Events   EventService
	Projects ProjectService
	Settings SettingsService
	Rules    RuleEngine
}

// Handler dispatches tool calls to services.
type Handler struct {
	sync     SyncService
	events   EventService
	projects ProjectService
	settings SettingsService
	rules    RuleEngine
}

// NewHandler creates a new MCP handler.
func NewHandler(svc Services) *Handler {
	return &Handler{
		sync:     svc.Sync,
		events:   svc.Events,
		projects: svc.Projects,
		settings: svc.Settings,
		rules:    svc.Rules,
	}
}

// Handle dispatches a tool call by name.
func (h *Handler) Handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	res, err := h.dispatch(ctx, method, params)
	if err != nil {
		return nil, mapError(err)
	}
	return res, nil
}

func (h *Handler) dispatch(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "sync_now":
		var req SyncNowParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.syncNow(ctx, req)
	case "cancel_sync":
		return CancelSyncResponse{Cancelled: h.sync.Cancel()}, nil
	case "get_sync_status":
		return h.sync.Status(ctx)

	case "list_events":
		var req ListEventsParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.listEvents(ctx, req)
	case "assign_event":
		var req AssignEventParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if req.EventID == "" {
			return nil, fmt.Errorf("%w: event_id is required", errInvalidParams)
		}
		var projectID *string
		if req.ProjectID != "" {
			projectID = &req.ProjectID
		}
		if err := h.events.AssignProject(ctx, req.EventID, projectID); err != nil {
			return nil, err
		}
		ev, err := h.events.Get(ctx, req.EventID)
		if err != nil {
			return nil, err
		}
		return toEventResponse(*ev), nil

	case "list_projects":
		return h.projects.List(ctx)
	case "create_project":
		var req CreateProjectParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.projects.Create(ctx, project.CreateRequest{Name: req.Name, Color: req.Color})
	case "update_project":
		var req UpdateProjectParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.projects.Update(ctx, project.UpdateRequest{ID: req.ID, Name: req.Name, Color: req.Color})
	case "delete_project":
		var req IDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.projects.Delete(ctx, req.ID); err != nil {
			return nil, err
		}
		return StatusResponse{Deleted: true}, nil

	case "list_rules":
		var req ListRulesParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.listRules(ctx, req.ProjectID)
	case "create_rule":
		var req CreateRuleParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.projects.CreateRule(ctx, project.CreateRuleRequest{
			ProjectID:  req.ProjectID,
			RuleType:   req.RuleType,
			MatchValue: req.MatchValue,
		})
	case "update_rule":
		var req UpdateRuleParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.projects.UpdateRule(ctx, project.UpdateRuleRequest{
			ID:         req.ID,
			ProjectID:  req.ProjectID,
			RuleType:   req.RuleType,
			MatchValue: req.MatchValue,
		})
	case "delete_rule":
		var req IDParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.projects.DeleteRule(ctx, req.ID); err != nil {
			return nil, err
		}
		return StatusResponse{Deleted: true}, nil
	case "apply_rules":
		affected, err := h.rules.Apply(ctx)
		if err != nil {
			return nil, err
		}
		return ApplyRulesResponse{Affected: affected}, nil

	case "list_orgs":
		orgs, err := h.settings.Orgs(ctx)
		return orgsResponse(orgs, err)
	case "add_org":
		var req OrgParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return orgsResponse(h.settings.AddOrg(ctx, req.Name))
	case "remove_org":
		var req OrgParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return orgsResponse(h.settings.RemoveOrg(ctx, req.Name))

	case "list_work_domains":
		return h.settings.WorkDomains(ctx)
	case "add_work_domain":
		var req WorkDomainParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.settings.AddWorkDomain(ctx, req.Domain)
	case "remove_work_domain":
		var req WorkDomainParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.settings.RemoveWorkDomain(ctx, req.Domain); err != nil {
			return nil, err
		}
		return StatusResponse{Deleted: true}, nil

	case "get_setting":
		var req GetSettingParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if req.Key == "" {
			return h.settings.All(ctx)
		}
		value, err := h.settings.Get(ctx, req.Key)
		if err != nil {
			return nil, err
		}
		return map[string]string{req.Key: value}, nil
	case "set_setting":
		var req SetSettingParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		if err := h.settings.Set(ctx, req.Key, req.Value); err != nil {
			return nil, err
		}
		return map[string]string{req.Key: req.Value}, nil

	case "reset_database":
		var req ResetDatabaseParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return h.reset(ctx, req)
	default:
		return nil, fmt.Errorf("%w: %s", errUnknownMethod, method)
	}
}

func (h *Handler) syncNow(ctx context.Context, req SyncNowParams) (SyncNowResponse, error) {
	run, err := h.sync.Start(ctx)
	if err != nil {
		return SyncNowResponse{}, err
	}
	if !req.Wait {
		return SyncNowResponse{Started: true, Phase: run.Phase()}, nil
	}
	select {
	case <-ctx.Done():
		return SyncNowResponse{Started: true, Phase: run.Phase()}, nil
	case <-run.Done():
	}
	res := run.Wait()
	return SyncNowResponse{Started: true, Phase: res.State, Result: &res}, nil
}

func (h *Handler) listEvents(ctx context.Context, req ListEventsParams) ([]EventResponse, error) {
	from, err := parseTime(req.From)
	if err != nil {
		return nil, err
	}
	to, err := parseTime(req.To)
	if err != nil {
		return nil, err
	}
	events, err := h.events.List(ctx, event.ListOptions{
		From:      from,
		To:        to,
		ProjectID: req.ProjectID,
		Types:     req.Types,
		Limit:     req.Limit,
		Offset:    req.Offset,
	})
	if err != nil {
		return nil, err
	}
	resp := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		resp = append(resp, toEventResponse(ev))
	}
	return resp, nil
}

func (h *Handler) listRules(ctx context.Context, projectID string) ([]project.Rule, error) {
	rules, err := h.projects.ListRules(ctx)
	if err != nil {
		return nil, err
	}
	if projectID == "" {
		return rules, nil
	}
	filtered := make([]project.Rule, 0, len(rules))
	for _, rule := range rules {
		if rule.ProjectID == projectID {
			filtered = append(filtered, rule)
		}
	}
	return filtered, nil
}

func (h *Handler) reset(ctx context.Context, req ResetDatabaseParams) (StatusResponse, error) {
	if !req.Confirm {
		return StatusResponse{}, fmt.Errorf("%w: confirm must be true", errInvalidParams)
	}
	status, err := h.sync.Status(ctx)
	if err != nil {
		return StatusResponse{}, err
	}
	if status.Running {
		return StatusResponse{}, ingest.ErrSyncInProgress
	}
	if err := h.events.Reset(ctx); err != nil {
		return StatusResponse{}, err
	}
	return StatusResponse{Reset: true}, nil
}

func orgsResponse(orgs []string, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if orgs == nil {
		orgs = []string{}
	}
	return OrgsResponse{Orgs: orgs}, nil
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return fmt.Errorf("%w: %v", errInvalidParams, err)
	}
	return nil
}

// parseTime accepts RFC 3339 timestamps or plain dates.
func parseTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: cannot parse time %q", errInvalidParams, raw)
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}

func stringValue(val *string) string {
	if val == nil {
		return ""
	}
	return *val
}
