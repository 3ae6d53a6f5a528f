package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/relgraph/pkg/diagram"
	errs "github.com/matzehuels/relgraph/pkg/errors"
	"github.com/matzehuels/relgraph/pkg/pipeline"
)

// describeCommand creates the describe command.
func (c *CLI) describeCommand() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "describe FILE",
		Short: "Show how a query composes without loading any rows",
		Example: `  relgraph describe users_with_tasks.json
  relgraph describe users_with_tasks.json --format svg -o query.svg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := pipeline.ReadQuery(args[0])
			if err != nil {
				return err
			}
			s, err := c.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.Close()

			var data []byte
			if format == formatJSON {
				outline, err := s.runner.Describe(q)
				if err != nil {
					return err
				}
				if data, err = json.MarshalIndent(outline, "", "  "); err != nil {
					return errs.Wrap(errs.ErrCodeInternal, err, "encode outline")
				}
				data = append(data, '\n')
			} else if data, _, err = s.runner.Diagram(cmd.Context(), q, format); err != nil {
				return err
			}

			if output == "" {
				_, err := cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return errs.Wrap(errs.ErrCodeInvalidPath, err, "write %s", output)
			}
			printSuccess("Described %s", q.Root.Relation)
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", diagram.FormatDOT, "output format: dot, svg, json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")

	return cmd
}
