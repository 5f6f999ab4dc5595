package vcs

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rpggio/traceback/internal/source"
)

// DefaultMaxDepth is how many directory levels below the root are searched.
const DefaultMaxDepth = 2

var skipDirs = map[string]bool{
	"node_modules": true,
	"target":       true,
	"dist":         true,
	"build":        true,
	"vendor":       true,
}

// Repository identifies a local working copy.
type Repository struct {
	ID        string
	Name      string
	LocalPath string
	OriginURL *string
}

// Discover walks root up to maxDepth levels and returns every directory
// holding a .git directory. Directories that cannot be read are skipped.
func Discover(root string, maxDepth int, reader *Reader, logger *slog.Logger) ([]Repository, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if reader == nil {
		reader = NewReader()
	}
	if maxDepth < 0 {
		maxDepth = DefaultMaxDepth
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: repository root %s: %v", source.ErrSourceUnavailable, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: repository root %s is not a directory", source.ErrSourceUnavailable, root)
	}

	var repos []Repository
	walk(root, 0, maxDepth, func(dir string) {
		repo, err := identify(dir, reader)
		if err != nil {
			logger.Debug("skipping repository", "path", dir, "error", err)
			return
		}
		repos = append(repos, repo)
	}, logger)
	return repos, nil
}

func walk(dir string, depth, maxDepth int, found func(string), logger *slog.Logger) {
	if depth > maxDepth {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Debug("unreadable directory", "path", dir, "error", err)
		return
	}
	for _, entry := range entries {
		if !isDir(dir, entry) {
			continue
		}
		name := entry.Name()
		if name == ".git" {
			found(dir)
			continue
		}
		if strings.HasPrefix(name, ".") || skipDirs[name] {
			continue
		}
		walk(filepath.Join(dir, name), depth+1, maxDepth, found, logger)
	}
}

func isDir(parent string, entry fs.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(parent, entry.Name()))
	return err == nil && info.IsDir()
}

func identify(dir string, reader *Reader) (Repository, error) {
	handle, err := reader.Open(dir)
	if err != nil {
		return Repository{}, err
	}

	repo := Repository{
		Name:      filepath.Base(dir),
		LocalPath: dir,
	}
	origin, err := handle.Origin()
	switch {
	case err == nil && origin != "":
		repo.OriginURL = &origin
		repo.ID = md5Hex(origin)
	case err == nil, errors.Is(err, ErrNoOrigin):
		canonical, cerr := filepath.EvalSymlinks(dir)
		if cerr != nil {
			canonical = dir
		}
		if abs, aerr := filepath.Abs(canonical); aerr == nil {
			canonical = abs
		}
		repo.ID = "local-" + md5Hex(canonical)
	default:
		return Repository{}, err
	}
	return repo, nil
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
