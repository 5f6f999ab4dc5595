package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/traceback/internal/repository"
)

// Service handles settings, organizations and work domains.
type Service struct {
	repo    Repository
	domains WorkDomainRepository
	logger  *slog.Logger
}

// NewService creates a new settings service.
func NewService(repo Repository, domains WorkDomainRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, domains: domains, logger: logger}
}

// Get returns the raw value for key.
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	v, err := s.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrSettingNotFound
		}
		return "", fmt.Errorf("getting setting %s: %w", key, err)
	}
	return v, nil
}

// Set stores a raw value. Organization lists are validated first.
func (s *Service) Set(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%w: key is required", ErrValidation)
	}
	if key == KeyGitHubOrgs {
		if err := ValidateOrgs(value); err != nil {
			return err
		}
	}
	if err := s.repo.Set(ctx, key, value); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return nil
}

// All returns every stored setting.
func (s *Service) All(ctx context.Context) (map[string]string, error) {
	all, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing settings: %w", err)
	}
	return all, nil
}

// RepositoryRoot returns the directory scanned for repositories, or "" if unset.
func (s *Service) RepositoryRoot(ctx context.Context) (string, error) {
	return s.path(ctx, KeyRepositoryRoot)
}

// BrowserProfilePath returns the configured browser profile, or "" if unset.
func (s *Service) BrowserProfilePath(ctx context.Context) (string, error) {
	return s.path(ctx, KeyBrowserProfilePath)
}

func (s *Service) path(ctx context.Context, key string) (string, error) {
	v, err := s.Get(ctx, key)
	if errors.Is(err, ErrSettingNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return ExpandHome(strings.TrimSpace(v)), nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// Orgs returns the configured organization names.
func (s *Service) Orgs(ctx context.Context) ([]string, error) {
	raw, err := s.Get(ctx, KeyGitHubOrgs)
	if errors.Is(err, ErrSettingNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	return parseOrgs(raw)
}

// AddOrg appends an organization name.
func (s *Service) AddOrg(ctx context.Context, name string) ([]string, error) {
	orgs, err := s.Orgs(ctx)
	if err != nil {
		return nil, err
	}
	return s.saveOrgs(ctx, append(orgs, strings.TrimSpace(name)))
}

// RemoveOrg drops an organization name. Removing an absent name is a no-op.
func (s *Service) RemoveOrg(ctx context.Context, name string) ([]string, error) {
	orgs, err := s.Orgs(ctx)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	orgs = slices.DeleteFunc(orgs, func(o string) bool { return o == name })
	return s.saveOrgs(ctx, orgs)
}

func (s *Service) saveOrgs(ctx context.Context, orgs []string) ([]string, error) {
	raw, err := encodeOrgs(orgs)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Set(ctx, KeyGitHubOrgs, raw); err != nil {
		return nil, fmt.Errorf("saving orgs: %w", err)
	}
	return orgs, nil
}

// WorkDomains returns the allow-listed domains.
func (s *Service) WorkDomains(ctx context.Context) ([]WorkDomain, error) {
	list, err := s.domains.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing work domains: %w", err)
	}
	return list, nil
}

// AddWorkDomain allow-lists a domain.
func (s *Service) AddWorkDomain(ctx context.Context, domain string) (*WorkDomain, error) {
	d, err := NormalizeDomain(domain)
	if err != nil {
		return nil, err
	}
	wd := &WorkDomain{ID: uuid.NewString(), Domain: d, CreatedAt: time.Now().UTC()}
	if err := s.domains.Add(ctx, wd); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrDuplicateWorkDomain
		}
		return nil, fmt.Errorf("adding work domain: %w", err)
	}
	return wd, nil
}

// RemoveWorkDomain removes a domain from the allow-list.
func (s *Service) RemoveWorkDomain(ctx context.Context, domain string) error {
	d, err := NormalizeDomain(domain)
	if err != nil {
		return err
	}
	if err := s.domains.Remove(ctx, d); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrWorkDomainNotFound
		}
		return fmt.Errorf("removing work domain: %w", err)
	}
	return nil
}

// NormalizeDomain lower-cases a domain and strips any scheme or path.
func NormalizeDomain(domain string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(domain))
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexByte(d, '/'); i >= 0 {
		d = d[:i]
	}
	if d == "" || strings.ContainsAny(d, " \t?#") {
		return "", fmt.Errorf("%w: invalid domain %q", ErrValidation, domain)
	}
	return d, nil
}
