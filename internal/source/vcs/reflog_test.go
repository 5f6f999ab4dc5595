package vcs

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		message string
		kind    Kind
		ok      bool
	}{
		{"commit: add parser", KindCommit, true},
		{"commit (initial): first", KindCommit, true},
		{"commit (amend): fix typo", KindCommit, true},
		{"checkout: moving from main to feature/x", KindCheckout, true},
		{"merge feature/x: Fast-forward", KindMerge, true},
		{"rebase (start): checkout main", KindRebase, true},
		{"pull: Fast-forward", KindPull, true},
		{"reset: moving to HEAD~1", KindReset, true},
		{"cherry-pick: add parser", KindCherryPick, true},
		{"WIP on main: stash something", KindStash, true},
		{"fetch: fast-forward", "", false},
		{"clone: from git@github.com:a/b.git", "", false},
		{"pull: fetch and merge", "", false},
		{"branch: Created from HEAD", "", false},
	}
	for _, tc := range cases {
		kind, ok := Classify(tc.message)
		require.Equal(t, tc.ok, ok, tc.message)
		require.Equal(t, tc.kind, kind, tc.message)
	}
}

func TestCheckoutEntry(t *testing.T) {
	msg := "checkout: moving from main to feature-x"
	kind, ok := Classify(msg)
	require.True(t, ok)
	require.Equal(t, KindCheckout, kind)

	ref := RefName(kind, msg)
	require.NotNil(t, ref)
	require.Equal(t, "feature-x", *ref)
	require.Equal(t, "Switched to feature-x (from main)", Title(msg, ""))
}

func TestRefName(t *testing.T) {
	merge := RefName(KindMerge, "merge feature/y: Merge made by the 'ort' strategy.")
	require.NotNil(t, merge)
	require.Equal(t, "feature/y", *merge)

	rebase := RefName(KindRebase, "rebase (finish): returning to refs/heads/main")
	require.NotNil(t, rebase)
	require.Equal(t, "(finish):", *rebase)

	require.Nil(t, RefName(KindCommit, "commit: x"))
	require.Nil(t, RefName(KindCheckout, "checkout: detached"))
	require.Nil(t, RefName(KindMerge, "merge"))
}

func TestTitle(t *testing.T) {
	cases := []struct {
		message string
		commit  string
		want    string
	}{
		{"commit: add parser", "Add parser\n\nLonger body", "Add parser"},
		{"commit: add parser", "", "add parser"},
		{"merge feature/y: Fast-forward", "", "Merged feature/y"},
		{"reset: moving to HEAD~1", "", "Reset to HEAD~1"},
		{"pull: Fast-forward", "", "Pulled (fast-forward)"},
		{"pull --rebase origin main", "", "Pulled"},
		{"rebase (start): checkout main", "", "Rebase started"},
		{"rebase (finish): returning to refs/heads/x", "", "Rebase finished"},
		{"rebase -i (pick): x", "", "Rebase"},
		{"cherry-pick: add parser", "", "cherry-pick: add parser"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Title(tc.message, tc.commit), tc.message)
	}
}

func TestParseReflog(t *testing.T) {
	log := strings.Join([]string{
		"0000000000000000000000000000000000000000 1111111111111111111111111111111111111111 Ada Lovelace <ada@example.com> 1700000000 +0100\tcommit (initial): first",
		"garbage line",
		"1111111111111111111111111111111111111111 2222222222222222222222222222222222222222 Ada <ada@example.com> notatime +0000\tcommit: bad",
		"1111111111111111111111111111111111111111 2222222222222222222222222222222222222222 Ada <ada@example.com> 1700000600 -0500\tcheckout: moving from main to dev",
		"",
	}, "\n")

	entries, err := ParseReflog(strings.NewReader(log))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.Equal(t, "Ada Lovelace", entries[0].Name)
	require.Equal(t, "ada@example.com", entries[0].Email)
	require.Equal(t, "1111111111111111111111111111111111111111", entries[0].NewHash)
	require.Equal(t, time.Unix(1700000000, 0).UTC(), entries[0].When)
	require.Equal(t, "commit (initial): first", entries[0].Message)

	require.Equal(t, "checkout: moving from main to dev", entries[1].Message)
}
