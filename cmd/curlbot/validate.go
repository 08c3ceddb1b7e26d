package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/kdoroschak/curlbot-v2/internal/rule"
)

func validateCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a rule document before publishing it to the wiki",
		Long: `validate parses a local YAML rule document with the same parser the
bot applies to the wiki page and reports every problem it finds, so a rule
edit can be checked before it goes live.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}

			r, err := rule.Parse(raw)
			if err != nil {
				for _, e := range multierr.Errors(err) {
					fmt.Fprintf(cmd.ErrOrStderr(), "  - %v\n", e)
				}
				return fmt.Errorf("rule document is invalid")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "OK: %d flair(s) watched, %d keyword(s)\n",
				len(r.FlairsRequiringComment), len(r.Keywords))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the YAML rule document.")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
