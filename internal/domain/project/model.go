package project

import "time"

// Project groups events the user considers part of the same work.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     *string   `json:"color,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ProjectSummary is a project with its event count, used for listing.
type ProjectSummary struct {
	Project
	EventCount int `json:"event_count"`
	RuleCount  int `json:"rule_count"`
}

// RuleType selects which events a rule inspects and how it matches them.
type RuleType string

const (
	RuleTypeOrganizer    RuleType = "organizer"
	RuleTypeTitlePattern RuleType = "title_pattern"
	RuleTypeRepository   RuleType = "repository"
	RuleTypeURLPattern   RuleType = "url_pattern"
	RuleTypeDomain       RuleType = "domain"
)

// RuleTypes lists every supported rule type.
var RuleTypes = []RuleType{RuleTypeOrganizer, RuleTypeTitlePattern, RuleTypeRepository, RuleTypeURLPattern, RuleTypeDomain}

// Valid reports whether t is a supported rule type.
func (t RuleType) Valid() bool {
	for _, known := range RuleTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Rule assigns ProjectID to every stored event it matches.
type Rule struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	RuleType   RuleType  `json:"rule_type"`
	MatchValue string    `json:"match_value"`
	CreatedAt  time.Time `json:"created_at"`
}
