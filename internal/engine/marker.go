package engine

import (
	"regexp"
	"strings"
)

const (
	markerPrefix = "{{UNRESOLVED:"
	markerSuffix = "}}"
)

var markerPattern = regexp.MustCompile(`\{\{UNRESOLVED:([A-Za-z_][A-Za-z0-9_.-]*(?:\(\))?)\}\}`)

// UnresolvedMarker returns the placeholder substituted for a reference that
// could not be resolved. The marker cannot be mistaken for ${...} syntax,
// so it is never re-expanded.
func UnresolvedMarker(name string) string {
	return markerPrefix + name + markerSuffix
}

// FunctionMarker returns the placeholder for a failed function call.
func FunctionMarker(name string) string {
	return UnresolvedMarker(name + "()")
}

// Marker locates one placeholder in a resolved value: Value[Start:End] is
// UnresolvedMarker(Name). Function markers keep their "()" suffix.
type Marker struct {
	Name  string `json:"name"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// writeMarker appends the marker for name to out and records its span.
func writeMarker(out *strings.Builder, markers []Marker, name string) []Marker {
	text := UnresolvedMarker(name)
	start := out.Len()
	out.WriteString(text)
	return append(markers, Marker{Name: name, Start: start, End: start + len(text)})
}

// shiftMarkers returns markers moved offset bytes to the right.
func shiftMarkers(markers []Marker, offset int) []Marker {
	out := make([]Marker, len(markers))
	for i, m := range markers {
		out[i] = Marker{Name: m.Name, Start: m.Start + offset, End: m.End + offset}
	}
	return out
}

// FindUnresolvedMarkers returns the names inside every marker in value, in
// order of appearance. Function markers keep their "()" suffix.
//
// It reads text only, so a variable whose value literally spells a marker
// is reported too. Result.Markers lists exactly the markers the resolver
// substituted.
func FindUnresolvedMarkers(value string) []string {
	matches := markerPattern.FindAllStringSubmatch(value, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}
