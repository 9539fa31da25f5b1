package odds

import (
	"fmt"

	sonic "github.com/bytedance/sonic"
)

// Filter is a JSON predicate tree sent to the stream server with subscribe
// messages. Evaluation happens server-side; clients only validate structure
// before sending so a malformed predicate is surfaced inline instead of
// silently matching nothing.
type Filter struct {
	And   []Filter `json:"and,omitempty"`
	Or    []Filter `json:"or,omitempty"`
	Not   *Filter  `json:"not,omitempty"`
	Field string   `json:"field,omitempty"`
	Op    string   `json:"op,omitempty"`
	Value any      `json:"value,omitempty"`
}

var compareOps = map[string]bool{
	"eq":     true,
	"neq":    true,
	"gt":     true,
	"gte":    true,
	"lt":     true,
	"lte":    true,
	"in":     true,
	"exists": true,
}

// ParseFilter decodes and validates a predicate document.
func ParseFilter(data []byte) (Filter, error) {
	var f Filter
	if err := sonic.Unmarshal(data, &f); err != nil {
		return Filter{}, fmt.Errorf("parse filter: %w", err)
	}
	if err := f.Validate(); err != nil {
		return Filter{}, err
	}
	return f, nil
}

// Validate checks that every node is exactly one of and/or/not/comparison and
// that comparison leaves carry a field and a known operator.
func (f Filter) Validate() error {
	branches := 0
	if len(f.And) > 0 {
		branches++
	}
	if len(f.Or) > 0 {
		branches++
	}
	if f.Not != nil {
		branches++
	}
	leaf := f.Field != "" || f.Op != ""
	if leaf {
		branches++
	}

	switch {
	case branches == 0:
		return fmt.Errorf("filter node is empty")
	case branches > 1:
		return fmt.Errorf("filter node mixes composite and comparison forms")
	}

	if leaf {
		if f.Field == "" {
			return fmt.Errorf("comparison is missing a field")
		}
		if !compareOps[f.Op] {
			return fmt.Errorf("unknown comparison op %q", f.Op)
		}
		if f.Op != "exists" && f.Value == nil {
			return fmt.Errorf("comparison op %q requires a value", f.Op)
		}
		return nil
	}

	for _, child := range f.And {
		if err := child.Validate(); err != nil {
			return err
		}
	}
	for _, child := range f.Or {
		if err := child.Validate(); err != nil {
			return err
		}
	}
	if f.Not != nil {
		return f.Not.Validate()
	}
	return nil
}
