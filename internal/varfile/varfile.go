// Package varfile loads variable sets from YAML or CUE files.
//
// Both formats describe the same document: optional profile_id and rule_id,
// plus one section per scope. YAML sections are lists:
//
//	profile_id: p1
//	global:
//	  - name: host
//	    value: api.example.com
//	  - name: token
//	    value: s3cret
//	    is_secret: true
//
// CUE sections are structs keyed by variable name. A bare string is
// shorthand for {value: "..."}:
//
//	profile_id: "p1"
//	global: {
//		host: "api.example.com"
//		token: {value: "s3cret", is_secret: true}
//	}
//
// Variables are enabled unless enabled: false is given.
package varfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/varscope/internal/ir"
)

// Set is a parsed variable file.
type Set struct {
	Path      string
	ProfileID string
	RuleID    string
	Variables []ir.Variable
}

// Spec groups the variables by scope for ir.NewResolutionContext.
// profileID and ruleID override the file's ids when non-empty; profile and
// rule variables owned by anything other than the active ids are left out.
func (s *Set) Spec(profileID, ruleID string) ir.ContextSpec {
	spec := ir.ContextSpec{ProfileID: s.ProfileID, RuleID: s.RuleID}
	if profileID != "" {
		spec.ProfileID = profileID
	}
	if ruleID != "" {
		spec.RuleID = ruleID
	}
	for _, v := range s.Owned() {
		switch v.Scope {
		case ir.ScopeSystem:
			spec.System = append(spec.System, v)
		case ir.ScopeGlobal:
			spec.Global = append(spec.Global, v)
		case ir.ScopeProfile:
			if v.OwnerID == "" || v.OwnerID == spec.ProfileID {
				v.OwnerID = spec.ProfileID
				spec.Profile = append(spec.Profile, v)
			}
		case ir.ScopeRule:
			if v.OwnerID == "" || v.OwnerID == spec.RuleID {
				v.OwnerID = spec.RuleID
				spec.Rule = append(spec.Rule, v)
			}
		}
	}
	return spec
}

// Owned returns every variable, with empty profile and rule owners set to
// the file's profile_id and rule_id.
func (s *Set) Owned() []ir.Variable {
	out := make([]ir.Variable, len(s.Variables))
	for i, v := range s.Variables {
		if v.OwnerID == "" {
			switch v.Scope {
			case ir.ScopeProfile:
				v.OwnerID = s.ProfileID
			case ir.ScopeRule:
				v.OwnerID = s.RuleID
			}
		}
		out[i] = v
	}
	return out
}

// Context builds a resolution context from the set.
func (s *Set) Context(profileID, ruleID string) (*ir.ResolutionContext, error) {
	rctx, err := ir.NewResolutionContext(s.Spec(profileID, ruleID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return rctx, nil
}

// Load reads path, choosing the format by extension: .cue for CUE,
// .yaml/.yml (or anything else) for YAML.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read variable file: %w", err)
	}
	var set *Set
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		set, err = ParseCUE(path, data)
	default:
		set, err = ParseYAML(path, data)
	}
	if err != nil {
		return nil, err
	}
	return set, nil
}

// sectionOrder is the order scopes are read in, lowest precedence first.
var sectionOrder = []ir.Scope{ir.ScopeSystem, ir.ScopeGlobal, ir.ScopeProfile, ir.ScopeRule}

// Entry is one variable as written in a file, before defaults are applied.
type Entry struct {
	Name     string   `json:"name" yaml:"name"`
	Value    string   `json:"value" yaml:"value"`
	OwnerID  string   `json:"owner_id" yaml:"owner_id"`
	Enabled  *bool    `json:"enabled" yaml:"enabled"`
	IsSecret bool     `json:"is_secret" yaml:"is_secret"`
	Tags     []string `json:"tags" yaml:"tags"`
}

func (fv Entry) Variable(sc ir.Scope) ir.Variable {
	enabled := true
	if fv.Enabled != nil {
		enabled = *fv.Enabled
	}
	return ir.Variable{
		Name:     fv.Name,
		Value:    fv.Value,
		Scope:    sc,
		OwnerID:  fv.OwnerID,
		Enabled:  enabled,
		IsSecret: fv.IsSecret,
		Tags:     fv.Tags,
	}
}

// FileError reports a problem at a position in a variable file.
type FileError struct {
	Path    string
	Line    int
	Column  int
	Field   string
	Message string
}

func (e *FileError) Error() string {
	loc := e.Path
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d:%d", e.Path, e.Line, e.Column)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", loc, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", loc, e.Message)
}

// checkNames rejects empty and duplicate names within one scope+owner.
func checkNames(path string, vars []ir.Variable) error {
	seen := make(map[string]bool, len(vars))
	for _, v := range vars {
		if v.Name == "" {
			return &FileError{Path: path, Field: string(v.Scope), Message: "variable with empty name"}
		}
		if seen[v.Key()] {
			return &FileError{Path: path, Field: string(v.Scope) + "." + v.Name, Message: "defined twice"}
		}
		seen[v.Key()] = true
	}
	return nil
}
