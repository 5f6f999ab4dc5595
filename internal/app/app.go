// Package app wires configuration, storage, sources and services together.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/traceback/internal/classify"
	"github.com/rpggio/traceback/internal/config"
	"github.com/rpggio/traceback/internal/domain/event"
	"github.com/rpggio/traceback/internal/domain/project"
	"github.com/rpggio/traceback/internal/domain/settings"
	"github.com/rpggio/traceback/internal/ingest"
	"github.com/rpggio/traceback/internal/mcp"
	"github.com/rpggio/traceback/internal/source/browser"
	"github.com/rpggio/traceback/internal/source/calendar"
	"github.com/rpggio/traceback/internal/source/vcs"
	"github.com/rpggio/traceback/internal/sqlite"
	"github.com/rpggio/traceback/internal/transport"
)

// Version is reported to MCP clients.
var Version = "dev"

// App holds the wired services of one process.
type App struct {
	DB       *sqlite.DB
	Events   *event.Service
	Projects *project.Service
	Settings *settings.Service
	Rules    *classify.Engine
	Sync     *ingest.Orchestrator

	cfg    config.Config
	logger *slog.Logger
}

// New opens the database, applies migrations, seeds path settings from cfg
// and wires every service.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("preparing database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	if err := db.SeedSettings(ctx, map[string]string{
		settings.KeyRepositoryRoot:     cfg.Paths.RepositoryRoot,
		settings.KeyBrowserProfilePath: cfg.Paths.BrowserProfile,
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("seeding settings: %w", err)
	}

	eventRepo := sqlite.NewEventRepository(db)
	ruleRepo := sqlite.NewRuleRepository(db)

	a := &App{
		DB:       db,
		Events:   event.NewService(eventRepo, logger),
		Projects: project.NewService(sqlite.NewProjectRepository(db), ruleRepo, logger),
		Settings: settings.NewService(sqlite.NewSettingsRepository(db), sqlite.NewWorkDomainRepository(db), logger),
		Rules:    classify.NewEngine(ruleRepo, eventRepo, logger),
		cfg:      cfg,
		logger:   logger,
	}

	a.Sync = ingest.NewOrchestrator(
		ingest.Sources{
			Calendar:       calendarSource(cfg.Calendar, logger),
			VersionControl: vcs.NewAdapter(a.Settings, cfg.Sync.DiscoveryDepth, logger),
			Browser:        browser.NewAdapter(a.Settings, logger),
		},
		ingest.Stores{
			Events:   a.Events,
			Contacts: sqlite.NewContactRepository(db),
			State:    sqlite.NewSyncStateRepository(db),
			Orgs:     a.Settings,
		},
		ingest.Options{
			DaysBack: cfg.Sync.DaysBack,
			Rules:    a.Rules,
			Bus:      ingest.NewBus(cfg.Sync.ProgressBuffer),
			Logger:   logger,
		},
	)
	return a, nil
}

// Close releases the database.
func (a *App) Close() error {
	return a.DB.Close()
}

// Services returns the services exposed as MCP tools.
func (a *App) Services() mcp.Services {
	return mcp.Services{
		Sync:     a.Sync,
		Events:   a.Events,
		Projects: a.Projects,
		Settings: a.Settings,
		Rules:    a.Rules,
	}
}

// MCPServer builds the MCP tool server.
func (a *App) MCPServer() *sdkmcp.Server {
	return mcp.NewServer(mcp.Config{
		Services:      a.Services(),
		Token:         a.cfg.Server.Token,
		TransportMode: a.cfg.Transport.Mode,
		Version:       Version,
		Logger:        a.logger,
	})
}

// Router builds the HTTP surface: JSON-RPC, sync control, the progress
// stream and the streamable MCP endpoint.
func (a *App) Router() http.Handler {
	server := a.MCPServer()
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return server },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: 30 * time.Minute},
	)
	return transport.NewServer(transport.Options{
		Handler: mcp.NewHandler(a.Services()),
		Sync:    a.Sync,
		MCP:     mcpHandler,
		Token:   a.cfg.Server.Token,
		Logger:  a.logger,
	})
}

func calendarSource(cfg config.CalendarConfig, logger *slog.Logger) ingest.CalendarSource {
	switch cfg.Provider {
	case config.CalendarICS:
		sources := make([]string, 0, len(cfg.ICSSources))
		for _, src := range cfg.ICSSources {
			sources = append(sources, settings.ExpandHome(src))
		}
		p := calendar.NewICSProvider(sources, logger)
		return calendar.NewAdapter(p, p, logger)
	case config.CalendarGoogle:
		p := calendar.NewGoogleProvider(
			settings.ExpandHome(cfg.GoogleCredentials),
			settings.ExpandHome(cfg.GoogleToken),
			logger,
		)
		return calendar.NewAdapter(p, p, logger)
	default:
		return nil
	}
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
