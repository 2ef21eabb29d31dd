package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sqlmint-labs/sqlmint/internal/pipeline"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check configuration and SQL without generating",
		Long: `Validate the project configuration and statically check every annotated
SQL file: directive syntax, duplicate statement names and placeholder
references. No database instance is started and nothing is written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st := StateFrom(cmd.Context())

			report, err := pipeline.New(st.Project, st.Logger).Check(cmd.Context())
			if err != nil {
				st.Renderer.Error(err)
				return ErrReported
			}

			if st.Renderer.JSON(report) {
				return nil
			}

			rows := make([][]string, 0, len(report.Groups))
			for _, g := range report.Groups {
				rows = append(rows, []string{
					g.Engine,
					strings.Join(g.Files, "\n"),
					strings.Join(g.Generators, "\n"),
					fmt.Sprintf("%d", g.Statements),
				})
			}
			st.Renderer.Table([]string{"Engine", "Files", "Generators", "Statements"}, rows)
			st.Renderer.Successf("configuration valid")
			return nil
		},
	}
}
