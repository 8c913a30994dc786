package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kitbuilder587/stock-agent/internal/logging"
	"github.com/kitbuilder587/stock-agent/internal/prompts"
)

func (c *cli) sectionsCommand() *cobra.Command {
	var show string

	cmd := &cobra.Command{
		Use:   "sections",
		Short: "List the sections of the prompts file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sections, err := prompts.NewLoader(logging.Get(promptLoaderLog)).Load(c.cfg.Prompts.File)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if show != "" {
				body, err := sections.Get(show)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, body)
				return nil
			}

			for _, name := range sections.Names() {
				lines := prompts.SplitLines(sections[name])
				fmt.Fprintf(out, "%-28s %d line(s)\n", name, len(lines))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&show, "show", "", "print the body of one section")
	return cmd
}
