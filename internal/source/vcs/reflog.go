package vcs

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rpggio/traceback/internal/source"
)

// Kind classifies a reference-log entry.
type Kind string

const (
	KindCommit     Kind = "commit"
	KindCheckout   Kind = "checkout"
	KindMerge      Kind = "merge"
	KindRebase     Kind = "rebase"
	KindPull       Kind = "pull"
	KindReset      Kind = "reset"
	KindCherryPick Kind = "cherry_pick"
	KindStash      Kind = "stash"
)

var prefixKinds = []struct {
	prefix string
	kind   Kind
}{
	{"commit", KindCommit},
	{"checkout", KindCheckout},
	{"merge", KindMerge},
	{"rebase", KindRebase},
	{"pull", KindPull},
	{"reset", KindReset},
	{"cherry-pick", KindCherryPick},
}

// ReflogEntry is one line of a reference log.
type ReflogEntry struct {
	OldHash string
	NewHash string
	Name    string
	Email   string
	When    time.Time
	Message string
}

// Classify maps a reference-log message to an activity kind. Fetches,
// clones and unrecognized messages report false.
func Classify(message string) (Kind, bool) {
	if strings.Contains(message, "fetch") || strings.Contains(message, "clone") {
		return "", false
	}
	for _, pk := range prefixKinds {
		if strings.HasPrefix(message, pk.prefix) {
			return pk.kind, true
		}
	}
	if strings.Contains(message, "stash") {
		return KindStash, true
	}
	return "", false
}

// RefName extracts the reference an entry moved to, when the message names one.
func RefName(kind Kind, message string) *string {
	var ref string
	switch kind {
	case KindCheckout:
		i := strings.Index(message, " to ")
		if i < 0 {
			return nil
		}
		ref = message[i+len(" to "):]
	case KindMerge, KindRebase:
		fields := strings.Fields(message)
		if len(fields) < 2 {
			return nil
		}
		ref = fields[1]
		if kind == KindMerge {
			ref = strings.TrimRight(ref, ":")
		}
	default:
		return nil
	}
	if ref == "" {
		return nil
	}
	return &ref
}

// Title renders a human-readable summary of an entry. commitMessage is the
// full message of the commit the entry points at, if known.
func Title(message, commitMessage string) string {
	if strings.HasPrefix(message, "commit") {
		if first := firstLine(commitMessage); first != "" {
			return first
		}
		if i := strings.Index(message, ": "); i >= 0 {
			return message[i+2:]
		}
		return message
	}

	const checkoutPrefix = "checkout: moving from "
	if rest, ok := strings.CutPrefix(message, checkoutPrefix); ok {
		if from, to, ok := strings.Cut(rest, " to "); ok {
			return fmt.Sprintf("Switched to %s (from %s)", to, from)
		}
	}

	if rest, ok := strings.CutPrefix(message, "merge "); ok {
		if branch, _, ok := strings.Cut(rest, ":"); ok {
			return "Merged " + strings.TrimSpace(branch)
		}
	}

	if target, ok := strings.CutPrefix(message, "reset: moving to "); ok {
		return "Reset to " + target
	}

	if strings.HasPrefix(message, "pull") {
		if strings.Contains(message, "Fast-forward") {
			return "Pulled (fast-forward)"
		}
		return "Pulled"
	}

	if strings.HasPrefix(message, "rebase") {
		switch {
		case strings.Contains(message, "(start)"):
			return "Rebase started"
		case strings.Contains(message, "(finish)"):
			return "Rebase finished"
		}
		return "Rebase"
	}

	return message
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, "\r\n")
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// ParseReflog reads a reference log in git's on-disk format:
//
//	<old> <new> <name> <<email>> <unix-seconds> <tz>\t<message>
//
// Lines that do not parse are skipped.
func ParseReflog(r io.Reader) ([]ReflogEntry, error) {
	var entries []ReflogEntry
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		entry, err := parseReflogLine(sc.Text())
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := sc.Err(); err != nil {
		return entries, fmt.Errorf("reading reflog: %w", err)
	}
	return entries, nil
}

func parseReflogLine(line string) (ReflogEntry, error) {
	var e ReflogEntry

	header, message, _ := strings.Cut(line, "\t")
	e.Message = strings.TrimSpace(message)

	old, rest, ok := strings.Cut(header, " ")
	if !ok {
		return e, fmt.Errorf("%w: reflog line without hashes", source.ErrParse)
	}
	newHash, rest, ok := strings.Cut(rest, " ")
	if !ok {
		return e, fmt.Errorf("%w: reflog line without new hash", source.ErrParse)
	}
	e.OldHash, e.NewHash = old, newHash

	open := strings.LastIndex(rest, "<")
	closing := strings.LastIndex(rest, ">")
	if open < 0 || closing < open {
		return e, fmt.Errorf("%w: reflog line without identity", source.ErrParse)
	}
	e.Name = strings.TrimSpace(rest[:open])
	e.Email = rest[open+1 : closing]

	fields := strings.Fields(rest[closing+1:])
	if len(fields) < 1 {
		return e, fmt.Errorf("%w: reflog line without timestamp", source.ErrParse)
	}
	secs, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return e, fmt.Errorf("%w: reflog timestamp %q", source.ErrParse, fields[0])
	}
	e.When = time.Unix(secs, 0).UTC()
	return e, nil
}
