package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newBackupsCommand(ctx *commandContext) *cobra.Command {
	backupsCmd := &cobra.Command{
		Use:   "backups",
		Short: "Inspect and manage subtitle track backups",
	}

	backupsCmd.AddCommand(newBackupsListCommand(ctx))
	backupsCmd.AddCommand(newBackupsRestoreCommand(ctx))
	backupsCmd.AddCommand(newBackupsDeleteCommand(ctx))

	return backupsCmd
}

func newBackupsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list [video]",
		Short: "List backups, optionally filtered to one video",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDeps(func(deps *appDeps) error {
				videoPath := ""
				if len(args) == 1 {
					videoPath = args[0]
				}
				records, err := deps.lifecycle.List(cmd.Context(), videoPath)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No backups recorded")
					return nil
				}

				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					rows = append(rows, []string{
						rec.ID,
						filepath.Base(rec.VideoPath),
						strconv.Itoa(rec.TrackIndex),
						rec.Language,
						rec.Title,
						rec.CreatedAt.Local().Format(time.DateTime),
					})
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"ID", "Video", "Track", "Language", "Title", "Created"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft}))
				return nil
			})
		},
	}
}

func newBackupsRestoreCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup-id>",
		Short: "Re-embed a backed-up track into its video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDeps(func(deps *appDeps) error {
				if err := deps.toolchain.Verify(cmd.Context()); err != nil {
					return err
				}
				info, err := deps.lifecycle.Restore(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restored backup %s; %s now has %d subtitle track(s)\n",
					args[0], info.FileName, len(info.Tracks))
				return nil
			})
		},
	}
}

func newBackupsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <backup-id>",
		Short: "Delete a backup record and its artifact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDeps(func(deps *appDeps) error {
				if err := deps.lifecycle.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted backup %s\n", args[0])
				return nil
			})
		},
	}
}
