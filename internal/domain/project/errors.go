package project

import "errors"

var (
	// ErrProjectNotFound indicates the project doesn't exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrRuleNotFound indicates the rule doesn't exist.
	ErrRuleNotFound = errors.New("rule not found")
	// ErrInvalidInput indicates invalid project or rule input.
	ErrInvalidInput = errors.New("invalid project input")
	// ErrDuplicateName indicates another project already has the name.
	ErrDuplicateName = errors.New("project name already exists")
	// ErrDuplicateRule indicates a rule with the same type and match value exists.
	ErrDuplicateRule = errors.New("rule already exists")
)
