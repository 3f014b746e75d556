package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Classification holds a subject/topic/class/difficulty attribute that is
// either a single value or an ordered list of values. Read it through
// Normalize so both shapes are handled the same way.
type Classification struct {
	values   []string
	multiple bool
}

func Single(value string) Classification {
	if value == "" {
		return Classification{}
	}
	return Classification{values: []string{value}}
}

func Multiple(values ...string) Classification {
	return Classification{values: append([]string(nil), values...), multiple: true}
}

// Normalize returns the attribute as a list. A single value becomes a
// one-element list, an unset attribute an empty one.
func (c Classification) Normalize() []string {
	if len(c.values) == 0 {
		return []string{}
	}
	return append([]string(nil), c.values...)
}

func (c Classification) IsMultiple() bool { return c.multiple }

func (c Classification) IsZero() bool { return len(c.values) == 0 && !c.multiple }

func (c Classification) Contains(value string) bool {
	for _, v := range c.values {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}

func (c Classification) String() string {
	return strings.Join(c.values, ", ")
}

func (c Classification) MarshalJSON() ([]byte, error) {
	switch {
	case c.multiple:
		return json.Marshal(c.Normalize())
	case len(c.values) == 0:
		return []byte("null"), nil
	default:
		return json.Marshal(c.values[0])
	}
}

func (c *Classification) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = Classification{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Single(s)
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*c = Multiple(list...)
	default:
		return fmt.Errorf("classification must be a string or a list of strings, got %s", data)
	}
	return nil
}

// ClassificationSeparator joins several values in one spreadsheet cell.
const ClassificationSeparator = "|"

// ParseClassification reads the spreadsheet form, where several values are
// separated by ClassificationSeparator.
func ParseClassification(raw string) Classification {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, ClassificationSeparator) {
		return Single(raw)
	}
	parts := strings.Split(raw, ClassificationSeparator)
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			values = append(values, p)
		}
	}
	return Multiple(values...)
}

// Format is the inverse of ParseClassification.
func (c Classification) Format() string {
	return strings.Join(c.values, ClassificationSeparator)
}
