// Package vcs discovers local git working copies and reads their reference
// logs as activity.
package vcs

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/rpggio/traceback/internal/source"
)

// Activity is one classified reference-log entry.
type Activity struct {
	RepositoryID   string
	RepositoryName string
	Kind           Kind
	Timestamp      time.Time
	RefName        *string
	CommitHash     *string
	Title          string
}

// RootResolver returns the directory repositories are discovered under.
type RootResolver interface {
	RepositoryRoot(ctx context.Context) (string, error)
}

// Adapter discovers repositories and extracts their activity.
type Adapter struct {
	roots    RootResolver
	reader   *Reader
	maxDepth int
	logger   *slog.Logger
}

// NewAdapter creates a version-control adapter.
func NewAdapter(roots RootResolver, maxDepth int, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Adapter{roots: roots, reader: NewReader(), maxDepth: maxDepth, logger: logger}
}

// Repositories resolves the configured root and discovers working copies under it.
func (a *Adapter) Repositories(ctx context.Context) ([]Repository, error) {
	root, err := a.roots.RepositoryRoot(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: resolving repository root: %v", source.ErrSourceUnavailable, err)
	}
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("%w: repository root is not configured", source.ErrSourceUnavailable)
	}
	repos, err := Discover(root, a.maxDepth, a.reader, a.logger)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("discovered repositories", "root", root, "count", len(repos))
	return repos, nil
}

// Activities returns the classified activity of repo at or after since.
func (a *Adapter) Activities(repo Repository, since time.Time) ([]Activity, error) {
	handle, err := a.reader.Open(repo.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", source.ErrSourceUnavailable, err)
	}

	refs, err := handle.References()
	if err != nil {
		a.logger.Debug("partial reference list", "repository", repo.Name, "error", err)
	}

	var out []Activity
	for _, ref := range refs {
		entries, err := handle.Reflog(ref)
		if err != nil {
			a.logger.Debug("skipping reflog", "repository", repo.Name, "ref", ref, "error", err)
			continue
		}
		for _, entry := range entries {
			if entry.When.Before(since) {
				continue
			}
			kind, ok := Classify(entry.Message)
			if !ok {
				continue
			}

			var commitMessage string
			if kind == KindCommit {
				commitMessage = handle.CommitMessage(entry.NewHash)
			}
			hash := entry.NewHash
			out = append(out, Activity{
				RepositoryID:   repo.ID,
				RepositoryName: repo.Name,
				Kind:           kind,
				Timestamp:      entry.When,
				RefName:        RefName(kind, entry.Message),
				CommitHash:     &hash,
				Title:          Title(entry.Message, commitMessage),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Fetch discovers repositories and returns the activity of all of them
// within window. A repository that cannot be read is skipped.
func (a *Adapter) Fetch(ctx context.Context, window source.Window) ([]Activity, error) {
	repos, err := a.Repositories(ctx)
	if err != nil {
		return nil, err
	}
	var out []Activity
	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		acts, err := a.Activities(repo, window.Start)
		if err != nil {
			a.logger.Warn("skipping repository", "repository", repo.Name, "error", err)
			continue
		}
		for _, act := range acts {
			if !act.Timestamp.After(window.End) {
				out = append(out, act)
			}
		}
	}
	return out, nil
}
