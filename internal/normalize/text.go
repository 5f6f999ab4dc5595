// Package normalize converts source records into events.
package normalize

import (
	"encoding/binary"
	"encoding/hex"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spaolacci/murmur3"
)

const (
	maxURLTitle   = 80
	truncURLTitle = 77
)

var codeHosts = []string{"github.com", "gitlab.com", "bitbucket.org"}

var reservedSegments = map[string]bool{
	"issues":         true,
	"pull":           true,
	"pulls":          true,
	"pull-requests":  true,
	"merge_requests": true,
	"tree":           true,
	"blob":           true,
	"commit":         true,
	"commits":        true,
	"releases":       true,
	"actions":        true,
	"wiki":           true,
}

// Domain returns the authority of url: the text between "://" and the next
// "/". A string without a scheme is returned unchanged.
func Domain(url string) string {
	_, rest, ok := strings.Cut(url, "://")
	if !ok {
		return url
	}
	host, _, _ := strings.Cut(rest, "/")
	return host
}

// URLRepositoryPath extracts "owner/repo" (or a deeper group path) from a
// code-host web URL. Paths stop at the first reserved segment such as
// "issues" or "blob".
func URLRepositoryPath(url string) *string {
	domain := Domain(url)
	hosted := false
	for _, h := range codeHosts {
		if strings.Contains(domain, h) {
			hosted = true
			break
		}
	}
	if !hosted {
		return nil
	}

	_, rest, ok := strings.Cut(url, "://")
	if !ok {
		return nil
	}
	_, path, ok := strings.Cut(rest, "/")
	if !ok {
		return nil
	}
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}

	var segments []string
	for _, seg := range strings.Split(path, "/") {
		if seg == "" || reservedSegments[seg] {
			break
		}
		segments = append(segments, seg)
	}
	if len(segments) < 2 {
		return nil
	}
	last := len(segments) - 1
	segments[last] = strings.TrimSuffix(segments[last], ".git")
	p := strings.Join(segments, "/")
	return &p
}

// RemoteRepositoryPath extracts the repository path from a git remote URL
// in scp, http(s) or ssh form.
func RemoteRepositoryPath(origin string) *string {
	origin = strings.TrimSpace(origin)
	var path string
	switch {
	case strings.HasPrefix(origin, "git@"):
		_, p, ok := strings.Cut(origin, ":")
		if !ok {
			return nil
		}
		path = p
	case strings.HasPrefix(origin, "http://"), strings.HasPrefix(origin, "https://"), strings.HasPrefix(origin, "ssh://"):
		_, rest, _ := strings.Cut(origin, "://")
		_, p, ok := strings.Cut(rest, "/")
		if !ok {
			return nil
		}
		path = p
	default:
		return nil
	}
	path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")
	if path == "" {
		return nil
	}
	return &path
}

// RepositoryPath derives a canonical repository path from either an scp or
// ssh git remote, or a code-host web URL. http(s) input is only accepted
// from a known code host, with or without a trailing ".git".
func RepositoryPath(s string) *string {
	if strings.HasPrefix(s, "git@") || strings.HasPrefix(s, "ssh://") {
		return RemoteRepositoryPath(s)
	}
	return URLRepositoryPath(s)
}

// Notes trims trailing whitespace from each line, collapses runs of blank
// lines and strips blank lines at both ends. All-blank input yields nil.
func Notes(notes *string) *string {
	if notes == nil {
		return nil
	}
	lines := strings.Split(strings.ReplaceAll(*notes, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	prevBlank := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r\v\f")
		blank := line == ""
		if blank && prevBlank {
			continue
		}
		out = append(out, line)
		prevBlank = blank
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	for len(out) > 0 && out[0] == "" {
		out = out[1:]
	}
	if len(out) == 0 {
		return nil
	}
	s := strings.Join(out, "\n")
	return &s
}

// TruncateURL shortens urls longer than 80 bytes to 77 bytes plus "...",
// backing off to a rune boundary.
func TruncateURL(url string) string {
	if len(url) <= maxURLTitle {
		return url
	}
	cut := truncURLTitle
	for cut > 0 && !utf8.RuneStart(url[cut]) {
		cut--
	}
	return url[:cut] + "..."
}

// VersionControlExternalID keys an activity on its repository and instant.
func VersionControlExternalID(repositoryID string, at time.Time) string {
	return repositoryID + ":" + at.UTC().Format(time.RFC3339)
}

// BrowserExternalID keys a visit on its url and microsecond visit time.
func BrowserExternalID(url string, visit time.Time) string {
	h := murmur3.New128()
	h.Write([]byte(url))
	h.Write([]byte{0})
	var micros [8]byte
	binary.BigEndian.PutUint64(micros[:], uint64(visit.UnixMicro()))
	h.Write(micros[:])
	return "browser-" + hex.EncodeToString(h.Sum(nil))
}
