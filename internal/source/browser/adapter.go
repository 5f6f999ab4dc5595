package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rpggio/traceback/internal/source"
)

// profileRoots are searched below the home directory, in order.
var profileRoots = []string{
	"Library/Application Support/zen/Profiles",
	"Library/Application Support/Firefox/Profiles",
	".zen",
	".mozilla/firefox",
	"snap/firefox/common/.mozilla/firefox",
}

// ErrNoProfile is returned when no browser profile can be found.
var ErrNoProfile = errors.New("no browser profile found")

// DetectProfile finds a profile directory holding places.sqlite. Within a
// profile root, a directory named like "default" and "release" is preferred
// over any other "default" profile.
func DetectProfile(home string) (string, error) {
	for _, rel := range profileRoots {
		dir := filepath.Join(home, filepath.FromSlash(rel))
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		var defaults []string
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			if !strings.Contains(strings.ToLower(entry.Name()), "default") {
				continue
			}
			if _, err := os.Stat(filepath.Join(dir, entry.Name(), PlacesFile)); err != nil {
				continue
			}
			defaults = append(defaults, entry.Name())
		}
		if len(defaults) == 0 {
			continue
		}

		sort.Strings(defaults)
		for _, name := range defaults {
			if strings.Contains(strings.ToLower(name), "release") {
				return filepath.Join(dir, name), nil
			}
		}
		return filepath.Join(dir, defaults[0]), nil
	}
	return "", ErrNoProfile
}

// ProfileResolver returns the configured profile path, or "" when unset.
type ProfileResolver interface {
	BrowserProfilePath(ctx context.Context) (string, error)
}

// Adapter reads visits from the configured or detected profile.
type Adapter struct {
	profiles ProfileResolver
	history  History
	home     func() (string, error)
	logger   *slog.Logger
}

// NewAdapter creates a browser history adapter.
func NewAdapter(profiles ProfileResolver, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{profiles: profiles, home: os.UserHomeDir, logger: logger}
}

// WithHome overrides the home directory used for profile detection.
func (a *Adapter) WithHome(home string) *Adapter {
	a.home = func() (string, error) { return home, nil }
	return a
}

// ProfilePath resolves the profile: the setting first, then detection.
func (a *Adapter) ProfilePath(ctx context.Context) (string, error) {
	path, err := a.profiles.BrowserProfilePath(ctx)
	if err != nil {
		a.logger.Debug("browser profile setting unavailable", "error", err)
	}
	if strings.TrimSpace(path) != "" {
		return path, nil
	}

	home, err := a.home()
	if err != nil {
		return "", fmt.Errorf("%w: resolving home directory: %v", source.ErrSourceUnavailable, err)
	}
	detected, err := DetectProfile(home)
	if err != nil {
		return "", fmt.Errorf("%w: %v", source.ErrSourceUnavailable, err)
	}
	a.logger.Debug("detected browser profile", "path", detected)
	return detected, nil
}

// Fetch returns visits within window, newest first.
func (a *Adapter) Fetch(ctx context.Context, window source.Window) ([]Visit, error) {
	path, err := a.ProfilePath(ctx)
	if err != nil {
		return nil, err
	}
	return a.history.Visits(ctx, path, window)
}
