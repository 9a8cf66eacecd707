package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/varscope/internal/template"
)

// TemplateIssue is one syntax error in a template.
type TemplateIssue struct {
	Message string `json:"message"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Near    string `json:"near"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid      bool            `json:"valid"`
	References []string        `json:"references"`
	Errors     []TemplateIssue `json:"errors,omitempty"`
}

func (r ValidationResult) Text(verbose bool) string {
	var b strings.Builder
	if r.Valid {
		b.WriteString("✓ Template is valid\n")
		if verbose && len(r.References) > 0 {
			fmt.Fprintf(&b, "  references: %s\n", strings.Join(r.References, ", "))
		}
		return b.String()
	}
	b.WriteString("✗ Template is invalid\n\n")
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "  %d:%d  %s (near %q)\n", e.Start, e.End, e.Message, e.Near)
	}
	return b.String()
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <template>",
		Short: "Check template syntax without resolving",
		Long: `Check a template for syntax errors without resolving anything.

Reports every error found, with byte offsets into the template.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, tmpl string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	vr := template.Validate(tmpl)
	result := ValidationResult{Valid: vr.IsValid, References: []string{}}
	if vr.IsValid {
		refs, _ := template.ReferencedVariables(tmpl)
		result.References = refs
		return formatter.Success(result)
	}

	for _, e := range vr.Errors {
		result.Errors = append(result.Errors, TemplateIssue{
			Message: e.Message,
			Start:   e.Span.Start,
			End:     e.Span.End,
			Near:    e.Excerpt(),
		})
	}
	return formatter.Fail(ExitFailure, ErrCodeSyntax,
		fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)), result, "")
}
