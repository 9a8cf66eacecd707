package varfile

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/roach88/varscope/internal/ir"
)

// ParseCUE compiles a CUE variable document. path is used in errors and
// positions only.
func ParseCUE(path string, data []byte) (*Set, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(path, err)
	}

	set := &Set{Path: path}
	var err error
	if set.ProfileID, err = optionalString(path, v, "profile_id"); err != nil {
		return nil, err
	}
	if set.RuleID, err = optionalString(path, v, "rule_id"); err != nil {
		return nil, err
	}

	for _, sc := range sectionOrder {
		section := v.LookupPath(cue.ParsePath(string(sc)))
		if !section.Exists() {
			continue
		}
		vars, err := compileSection(path, sc, section)
		if err != nil {
			return nil, err
		}
		set.Variables = append(set.Variables, vars...)
	}
	if err := checkNames(path, set.Variables); err != nil {
		return nil, err
	}
	return set, nil
}

func compileSection(path string, sc ir.Scope, section cue.Value) ([]ir.Variable, error) {
	if section.Kind() != cue.StructKind {
		return nil, fileErrorAt(path, section, string(sc), "must be a struct of name: value")
	}
	iter, err := section.Fields()
	if err != nil {
		return nil, formatCUEError(path, err)
	}
	var vars []ir.Variable
	for iter.Next() {
		fv, err := compileVariable(path, iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		vars = append(vars, fv.Variable(sc))
	}
	return vars, nil
}

func compileVariable(path, name string, v cue.Value) (Entry, error) {
	fv := Entry{Name: name}
	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return fv, formatCUEError(path, err)
		}
		fv.Value = s
		return fv, nil
	case cue.StructKind:
		if err := v.Decode(&fv); err != nil {
			return fv, formatCUEError(path, err)
		}
		fv.Name = name
		if !v.LookupPath(cue.ParsePath("value")).Exists() {
			return fv, fileErrorAt(path, v, name, "value is required")
		}
		return fv, nil
	default:
		return fv, fileErrorAt(path, v, name, fmt.Sprintf("must be a string or struct, got %s", v.Kind()))
	}
}

func optionalString(path string, v cue.Value, field string) (string, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", fileErrorAt(path, f, field, "must be a string")
	}
	return s, nil
}

func fileErrorAt(path string, v cue.Value, field, msg string) error {
	fe := &FileError{Path: path, Field: field, Message: msg}
	if pos := v.Pos(); pos.IsValid() {
		fe.Line, fe.Column = pos.Line(), pos.Column()
	}
	return fe
}

// formatCUEError keeps the first error and its position.
func formatCUEError(path string, err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return &FileError{Path: path, Message: err.Error()}
	}
	first := errs[0]
	fe := &FileError{Path: path, Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		fe.Line, fe.Column = positions[0].Line(), positions[0].Column()
	}
	return fe
}
