package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/varscope/internal/ir"
)

// timeLayout stores timestamps as sortable UTC text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

// marshalTags converts tags to canonical JSON TEXT for storage.
func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := ir.MarshalCanonical(tags)
	if err != nil {
		return "", fmt.Errorf("marshal tags: %w", err)
	}
	return string(data), nil
}

func unmarshalTags(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(data), &tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	return tags, nil
}

// marshalTrace encodes a trace body. Traces carry timestamps and durations,
// which canonical JSON does not model, so the standard encoder is used.
func marshalTrace(tr *ir.ResolutionTrace) (string, error) {
	data, err := json.Marshal(tr)
	if err != nil {
		return "", fmt.Errorf("marshal trace: %w", err)
	}
	return string(data), nil
}

func unmarshalTrace(data string) (*ir.ResolutionTrace, error) {
	var tr ir.ResolutionTrace
	if err := json.Unmarshal([]byte(data), &tr); err != nil {
		return nil, fmt.Errorf("unmarshal trace: %w", err)
	}
	return &tr, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
