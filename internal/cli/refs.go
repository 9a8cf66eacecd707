package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/varscope/internal/template"
)

// RefsResult lists the variables a template references directly.
type RefsResult struct {
	Variables []string `json:"variables"`
}

func (r RefsResult) Text(bool) string {
	if len(r.Variables) == 0 {
		return "(no references)\n"
	}
	return strings.Join(r.Variables, "\n") + "\n"
}

// NewRefsCommand creates the refs command.
func NewRefsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "refs <template>",
		Short:         "List the variables a template references",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			names, err := template.ReferencedVariables(args[0])
			if err != nil {
				return formatter.Abort(ExitFailure, ErrCodeSyntax, "invalid template", err)
			}
			return formatter.Success(RefsResult{Variables: names})
		},
	}
}
