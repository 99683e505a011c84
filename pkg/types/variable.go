// Package types provides core data types for the chunked table store.
package types

import "fmt"

// Variable is the identity tuple naming a single output column.
// ID is unique within a frame. Type is empty for "simple" variables;
// a frame holds either all-simple or all-full variables, never a mix.
type Variable struct {
	ID    int    `json:"id"`
	Table string `json:"table"`
	Key   string `json:"key"`
	Type  string `json:"type,omitempty"`
	Units string `json:"units"`
}

// IsSimple reports whether the variable uses the 4-part identity form.
func (v Variable) IsSimple() bool {
	return v.Type == ""
}

// String returns a human-readable identity, used in error messages.
func (v Variable) String() string {
	if v.IsSimple() {
		return fmt.Sprintf("(%d, %s, %s, %s)", v.ID, v.Table, v.Key, v.Units)
	}
	return fmt.Sprintf("(%d, %s, %s, %s, %s)", v.ID, v.Table, v.Key, v.Type, v.Units)
}

// FieldValue returns the named identity field as a string.
// Valid names are "id", "table", "key", "type" and "units".
func (v Variable) FieldValue(name string) (string, error) {
	switch name {
	case "id":
		return fmt.Sprintf("%d", v.ID), nil
	case "table":
		return v.Table, nil
	case "key":
		return v.Key, nil
	case "type":
		return v.Type, nil
	case "units":
		return v.Units, nil
	default:
		return "", fmt.Errorf("types: unknown identity field %q", name)
	}
}
