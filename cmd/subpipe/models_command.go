package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/subtitle-track-pipeline/internal/translator"
)

func newModelsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models the configured provider offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			models, err := translator.Models(cmd.Context(), cfg.TranslatorSettings())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(models) == 0 {
				fmt.Fprintf(out, "Provider %s reports no models\n", cfg.Provider.Name)
				return nil
			}

			rows := make([][]string, 0, len(models))
			for _, m := range models {
				rows = append(rows, []string{m.ID, m.Name})
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"ID", "Name"}, rows,
				[]columnAlignment{alignLeft, alignLeft}))
			return nil
		},
	}
}
