package settings

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const orgsSchemaURL = "traceback://schemas/github_orgs.json"

// Organization names follow GitHub's rules: 1-39 characters, alphanumeric
// or hyphen, not starting with a hyphen.
const orgsSchemaJSON = `{
	"type": "array",
	"uniqueItems": true,
	"items": {
		"type": "string",
		"pattern": "^[A-Za-z0-9][A-Za-z0-9-]{0,38}$"
	}
}`

var orgsSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(orgsSchemaJSON))
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(orgsSchemaURL, doc); err != nil {
		return nil, err
	}
	return c.Compile(orgsSchemaURL)
})

// ValidateOrgs checks a JSON array of organization names.
func ValidateOrgs(raw string) error {
	sch, err := orgsSchema()
	if err != nil {
		return fmt.Errorf("compiling org schema: %w", err)
	}
	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: github_orgs is not valid JSON: %v", ErrValidation, err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("%w: github_orgs: %v", ErrValidation, err)
	}
	return nil
}

func parseOrgs(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{}, nil
	}
	var orgs []string
	if err := json.Unmarshal([]byte(raw), &orgs); err != nil {
		return nil, fmt.Errorf("%w: github_orgs: %v", ErrValidation, err)
	}
	if orgs == nil {
		orgs = []string{}
	}
	return orgs, nil
}

func encodeOrgs(orgs []string) (string, error) {
	if orgs == nil {
		orgs = []string{}
	}
	data, err := json.Marshal(orgs)
	if err != nil {
		return "", err
	}
	raw := string(data)
	if err := ValidateOrgs(raw); err != nil {
		return "", err
	}
	return raw, nil
}
