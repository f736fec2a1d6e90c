package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newTracksCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "tracks <video>",
		Short: "List the subtitle tracks of a video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDeps(func(deps *appDeps) error {
				info, err := deps.toolchain.Probe(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(info.Tracks) == 0 {
					fmt.Fprintf(out, "No subtitle tracks in %s\n", info.FileName)
					return nil
				}

				rows := make([][]string, 0, len(info.Tracks))
				for _, track := range info.Tracks {
					rows = append(rows, []string{
						strconv.Itoa(track.Index),
						track.Codec,
						track.Language,
						track.Title,
						yesNo(track.Default),
						yesNo(track.Forced),
					})
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"Index", "Codec", "Language", "Title", "Default", "Forced"}, rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft}))
				return nil
			})
		},
	}
}
