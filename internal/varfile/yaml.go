package varfile

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is the YAML form of a variable file. Other YAML documents (test
// scenarios) embed it to declare variables inline.
type Document struct {
	ProfileID string  `yaml:"profile_id"`
	RuleID    string  `yaml:"rule_id"`
	System    []Entry `yaml:"system"`
	Global    []Entry `yaml:"global"`
	Profile   []Entry `yaml:"profile"`
	Rule      []Entry `yaml:"rule"`
}

// Set applies defaults and checks names. path is used in errors only.
func (d Document) Set(path string) (*Set, error) {
	set := &Set{Path: path, ProfileID: d.ProfileID, RuleID: d.RuleID}
	sections := [][]Entry{d.System, d.Global, d.Profile, d.Rule}
	for i, sc := range sectionOrder {
		for _, fv := range sections[i] {
			set.Variables = append(set.Variables, fv.Variable(sc))
		}
	}
	if err := checkNames(path, set.Variables); err != nil {
		return nil, err
	}
	return set, nil
}

// ParseYAML parses a YAML variable document. path is used in errors only.
func ParseYAML(path string, data []byte) (*Set, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &FileError{Path: path, Message: fmt.Sprintf("parse yaml: %v", err)}
	}
	return doc.Set(path)
}
