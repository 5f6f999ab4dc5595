package mcp

// ToolDefinition describes a tool exposed to MCP clients.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func stringProp(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func enumProp(description string, values ...string) map[string]any {
	return map[string]any{"type": "string", "description": description, "enum": values}
}

func intProp(description string) map[string]any {
	return map[string]any{"type": "integer", "description": description, "minimum": 0}
}

func boolProp(description string) map[string]any {
	return map[string]any{"type": "boolean", "description": description}
}

var ruleTypes = []string{"organizer", "title_pattern", "repository", "url_pattern", "domain"}

// buildToolCatalog returns all available MCP tools
func buildToolCatalog() []ToolDefinition {
	return []ToolDefinition{
		// Sync
		{
			Name:        "sync_now",
			Description: "Start a sync of calendar, version control and browser history. Fails if a sync is already running.",
			InputSchema: objectSchema(map[string]any{
				"wait": boolProp("Block until the sync finishes and return its result"),
			}),
		},
		{
			Name:        "cancel_sync",
			Description: "Cancel the running sync. Events already stored are kept.",
			InputSchema: objectSchema(map[string]any{}),
		},
		{
			Name:        "get_sync_status",
			Description: "Get the last sync time, whether a sync is running, its current phase and the last result",
			InputSchema: objectSchema(map[string]any{}),
		},

		// Events
		{
			Name:        "list_events",
			Description: "List stored events ordered by start date. Browser events are limited to work domains unless project_id is set.",
			InputSchema: objectSchema(map[string]any{
				"from":       stringProp("Range start, RFC 3339 or YYYY-MM-DD"),
				"to":         stringProp("Range end, RFC 3339 or YYYY-MM-DD"),
				"project_id": stringProp("Only events assigned to this project"),
				"types": map[string]any{
					"type":  "array",
					"items": enumProp("Event type", "calendar", "version_control", "browser_history"),
				},
				"limit":  intProp("Maximum number of events"),
				"offset": intProp("Number of events to skip"),
			}),
		},
		{
			Name:        "assign_event",
			Description: "Assign an event to a project, or clear its assignment when project_id is omitted. The next sync re-applies rules.",
			InputSchema: objectSchema(map[string]any{
				"event_id":   stringProp("Event ID"),
				"project_id": stringProp("Project ID (omit to clear)"),
			}, "event_id"),
		},

		// Projects
		{
			Name:        "list_projects",
			Description: "List projects with their event and rule counts",
			InputSchema: objectSchema(map[string]any{}),
		},
		{
			Name:        "create_project",
			Description: "Create a project to group events",
			InputSchema: objectSchema(map[string]any{
				"name":  stringProp("Unique project name"),
				"color": stringProp("Hex color such as #3366ff"),
			}, "name"),
		},
		{
			Name:        "update_project",
			Description: "Rename a project or change its color",
			InputSchema: objectSchema(map[string]any{
				"id":    stringProp("Project ID"),
				"name":  stringProp("New name"),
				"color": stringProp("New hex color, empty to clear"),
			}, "id"),
		},
		{
			Name:        "delete_project",
			Description: "Delete a project and its rules. Its events become unassigned.",
			InputSchema: objectSchema(map[string]any{
				"id": stringProp("Project ID"),
			}, "id"),
		},

		// Rules
		{
			Name:        "list_rules",
			Description: "List classification rules in the order they are applied",
			InputSchema: objectSchema(map[string]any{
				"project_id": stringProp("Only rules for this project"),
			}),
		},
		{
			Name:        "create_rule",
			Description: "Create a rule that assigns matching events to a project. url_pattern accepts * and ? wildcards.",
			InputSchema: objectSchema(map[string]any{
				"project_id":  stringProp("Project ID"),
				"rule_type":   enumProp("What the rule matches on", ruleTypes...),
				"match_value": stringProp("Organizer email, title or URL pattern, repository path or domain"),
			}, "project_id", "rule_type", "match_value"),
		},
		{
			Name:        "update_rule",
			Description: "Change a rule's project, type or match value",
			InputSchema: objectSchema(map[string]any{
				"id":          stringProp("Rule ID"),
				"project_id":  stringProp("New project ID"),
				"rule_type":   enumProp("New rule type", ruleTypes...),
				"match_value": stringProp("New match value"),
			}, "id"),
		},
		{
			Name:        "delete_rule",
			Description: "Delete a classification rule. Existing assignments are kept.",
			InputSchema: objectSchema(map[string]any{
				"id": stringProp("Rule ID"),
			}, "id"),
		},
		{
			Name:        "apply_rules",
			Description: "Apply every rule to stored events now and return the number of events updated",
			InputSchema: objectSchema(map[string]any{}),
		},

		// Organizations
		{
			Name:        "list_orgs",
			Description: "List GitHub organizations whose pages count as work browsing",
			InputSchema: objectSchema(map[string]any{}),
		},
		{
			Name:        "add_org",
			Description: "Add a GitHub organization",
			InputSchema: objectSchema(map[string]any{
				"name": stringProp("Organization login"),
			}, "name"),
		},
		{
			Name:        "remove_org",
			Description: "Remove a GitHub organization",
			InputSchema: objectSchema(map[string]any{
				"name": stringProp("Organization login"),
			}, "name"),
		},

		// Work domains
		{
			Name:        "list_work_domains",
			Description: "List domains whose browsing history is included in event listings",
			InputSchema: objectSchema(map[string]any{}),
		},
		{
			Name:        "add_work_domain",
			Description: "Allow-list a domain for browser event listings",
			InputSchema: objectSchema(map[string]any{
				"domain": stringProp("Domain or URL"),
			}, "domain"),
		},
		{
			Name:        "remove_work_domain",
			Description: "Remove a domain from the allow-list",
			InputSchema: objectSchema(map[string]any{
				"domain": stringProp("Domain"),
			}, "domain"),
		},

		// Settings
		{
			Name:        "get_setting",
			Description: "Get one setting, or all settings when key is omitted",
			InputSchema: objectSchema(map[string]any{
				"key": enumProp("Setting key", "repository_root", "browser_profile_path", "github_orgs"),
			}),
		},
		{
			Name:        "set_setting",
			Description: "Set a setting value. github_orgs takes a JSON array of organization logins.",
			InputSchema: objectSchema(map[string]any{
				"key":   enumProp("Setting key", "repository_root", "browser_profile_path", "github_orgs"),
				"value": stringProp("New value"),
			}, "key", "value"),
		},

		// Maintenance
		{
			Name:        "reset_database",
			Description: "Delete all events, contacts and sync state. Projects, rules and settings are kept.",
			InputSchema: objectSchema(map[string]any{
				"confirm": boolProp("Must be true"),
			}, "confirm"),
		},
	}
}
