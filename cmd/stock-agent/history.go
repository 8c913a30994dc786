package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kitbuilder587/stock-agent/internal/llm"
	"github.com/kitbuilder587/stock-agent/internal/repository/postgres"
)

var errNoDatabase = errors.New("DATABASE_URL is not set, run history is unavailable")

func (c *cli) historyCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent analysis runs from the history database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.cfg.Database.URL == "" {
				return errNoDatabase
			}

			ctx := cmd.Context()
			db, err := postgres.New(ctx, c.cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			runs, err := postgres.NewRunRepo(db).ListRecent(ctx, limit)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CREATED\tPROVIDER\tMODE\tSTOCKS\tFILE")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					r.CreatedAt.Local().Format(time.DateTime),
					llm.Label(r.Provider),
					r.Mode,
					r.Stocks,
					r.FilePath,
				)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")
	return cmd
}
