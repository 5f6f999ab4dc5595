package settings

import "time"

// Setting keys read by the sync pipeline.
const (
	KeyRepositoryRoot     = "repository_root"
	KeyBrowserProfilePath = "browser_profile_path"
	KeyGitHubOrgs         = "github_orgs"
)

// WorkDomain is an allow-listed web authority whose browsing counts as work.
type WorkDomain struct {
	ID        string    `json:"id"`
	Domain    string    `json:"domain"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultWorkDomains seeds the allow-list on first migration.
var DefaultWorkDomains = []string{
	"dropbox.com",
	"paper.dropbox.com",
	"docs.google.com",
	"sheets.google.com",
	"slides.google.com",
	"drive.google.com",
	"monday.com",
	"notion.so",
	"linear.app",
	"github.com",
	"gitlab.com",
	"stackoverflow.com",
	"developer.mozilla.org",
}
