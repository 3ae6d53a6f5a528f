package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/relgraph/pkg/pipeline"
)

// relationsCommand creates the relations command.
func (c *CLI) relationsCommand() *cobra.Command {
	var pick bool

	cmd := &cobra.Command{
		Use:   "relations",
		Short: "List the configured relations",
		Long:  `List the configured relations. With --pick, choose one interactively and print its rows.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.Close()

			infos := s.reg.Info()
			if !pick {
				rows := make([][]string, len(infos))
				for i, info := range infos {
					rows[i] = relationRow("", info)
				}
				fmt.Fprintln(cmd.OutOrStdout(), relationTable(rows).Render())
				return nil
			}

			final, err := tea.NewProgram(NewRelationListModel(infos)).Run()
			if err != nil {
				return err
			}
			m, ok := final.(RelationListModel)
			if !ok || m.Selected == nil {
				printInfo("No relation selected")
				return nil
			}
			q := pipeline.Query{Root: pipeline.Step{Relation: m.Selected.Name}}
			return c.runQuery(cmd.Context(), cmd.OutOrStdout(), s.runner, q, queryOpts{format: formatTable})
		},
	}

	cmd.Flags().BoolVar(&pick, "pick", false, "pick a relation interactively and print its rows")

	return cmd
}
