package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	errs "github.com/matzehuels/relgraph/pkg/errors"
	"github.com/matzehuels/relgraph/pkg/pipeline"
)

// Output formats of the query command.
const (
	formatJSON  = "json"
	formatTable = "table"
)

type queryOpts struct {
	format      string
	noCache     bool
	refresh     bool
	concurrency int
}

// queryCommand creates the query command.
func (c *CLI) queryCommand() *cobra.Command {
	var opts queryOpts

	cmd := &cobra.Command{
		Use:   "query FILE",
		Short: "Run a query file (JSON or TOML) against the configured relations",
		Example: `  relgraph query users_with_tasks.json
  relgraph query users_with_tasks.toml --format table --refresh`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != formatJSON && opts.format != formatTable {
				return errs.New(errs.ErrCodeInvalidInput, "unknown output format %q (want json or table)", opts.format)
			}
			q, err := pipeline.ReadQuery(args[0])
			if err != nil {
				return err
			}
			s, err := c.open(cmd.Context(), opts.noCache)
			if err != nil {
				return err
			}
			defer s.Close()
			if opts.concurrency > 0 {
				s.runner.Concurrency = opts.concurrency
			}
			return c.runQuery(cmd.Context(), cmd.OutOrStdout(), s.runner, q, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", formatJSON, "output format: json, table")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached results and store the fresh one")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "child relations loaded in parallel (default from config)")

	return cmd
}

func (c *CLI) runQuery(ctx context.Context, w io.Writer, runner *pipeline.Runner, q pipeline.Query, opts queryOpts) error {
	prog := newProgress(c.Logger)
	var spinner *Spinner
	if opts.format == formatTable {
		spinner = newSpinnerWithContext(ctx, "Loading "+q.Root.Relation+"...")
		spinner.Start()
	}

	res, err := runner.Execute(ctx, q, pipeline.Options{
		Refresh: opts.refresh,
		NoCache: opts.noCache,
		Logger:  c.Logger,
	})
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return err
	}
	prog.done("Loaded "+q.Root.Relation, "cached", res.CacheHit)

	if opts.format == formatJSON {
		if _, err := w.Write(res.Data); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return err
	}

	titles := []string{q.Root.Relation}
	for _, n := range q.Nodes {
		titles = append(titles, n.Relation)
	}
	if err := renderResult(w, res.Data, titles); err != nil {
		return errs.Wrap(errs.ErrCodeInternal, err, "render table")
	}
	printStats(res.Stats.RootRows, res.Stats.Nodes, res.Stats.Bytes, res.CacheHit)
	return nil
}
