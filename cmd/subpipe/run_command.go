package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/subtitle-track-pipeline/internal/pipeline"
	"github.com/MimeLyc/subtitle-track-pipeline/internal/service"
	"github.com/MimeLyc/subtitle-track-pipeline/internal/translator"
	"github.com/MimeLyc/subtitle-track-pipeline/pkg/file"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		scanDir      string
		trackIndex   int
		sourceLang   string
		targetLang   string
		style        string
		outputFormat string
		batchSize    int
		contextLines int
		delayMS      int
		embed        bool
		setDefault   bool
	)

	cmd := &cobra.Command{
		Use:   "run [video]...",
		Short: "Translate the subtitle tracks of the given videos",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if scanDir != "" {
				found, err := service.FindVideos(scanDir)
				if err != nil {
					return err
				}
				paths = append(paths, found...)
			}
			if len(paths) == 0 {
				return errors.New("no videos given; pass files or --dir")
			}
			for _, p := range paths {
				if !file.Exists(p) {
					return fmt.Errorf("no such video: %s", p)
				}
			}

			return ctx.withDeps(func(deps *appDeps) error {
				if err := deps.toolchain.Verify(cmd.Context()); err != nil {
					return err
				}

				provider, err := translator.New(deps.cfg.TranslatorSettings())
				if err != nil {
					return err
				}

				opts := deps.cfg.PipelineOptions()
				applyFlag(cmd, "track", func() { opts.TrackIndex = trackIndex })
				applyFlag(cmd, "source", func() { opts.SourceLang = sourceLang })
				applyFlag(cmd, "target", func() { opts.TargetLang = targetLang })
				applyFlag(cmd, "style", func() { opts.Style = style })
				applyFlag(cmd, "format", func() { opts.OutputFormat = outputFormat })
				applyFlag(cmd, "batch-size", func() { opts.BatchSize = batchSize })
				applyFlag(cmd, "context-lines", func() { opts.ContextLines = contextLines })
				applyFlag(cmd, "delay-ms", func() { opts.RequestDelay = time.Duration(delayMS) * time.Millisecond })
				applyFlag(cmd, "embed", func() { opts.EmbedEnabled = embed })
				applyFlag(cmd, "set-default", func() { opts.SetDefault = setDefault })

				out := cmd.OutOrStdout()
				var lastStatus string
				sink := pipeline.SinkFunc(func(s pipeline.Snapshot) {
					if s.Status != lastStatus {
						lastStatus = s.Status
						fmt.Fprintf(out, "[%3.0f%%] %s\n", s.Percent, s.Status)
					}
				})

				runner := pipeline.NewRunner(deps.toolchain, provider, deps.lifecycle, deps.store, sink)
				snap, err := runner.Run(cmd.Context(), paths, opts)
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(snap.Files))
				failed := 0
				for _, f := range snap.Files {
					result := f.OutputPath
					if f.Stage == pipeline.StageFailed {
						failed++
						result = f.FailReason
					}
					rows = append(rows, []string{filepath.Base(f.Path), string(f.Stage), result})
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"File", "Stage", "Result"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft}))

				if failed == len(snap.Files) {
					return fmt.Errorf("all %d file(s) failed", failed)
				}
				if failed > 0 {
					fmt.Fprintf(out, "%d of %d file(s) failed\n", failed, len(snap.Files))
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&scanDir, "dir", "", "Translate every video found under this directory")
	cmd.Flags().IntVar(&trackIndex, "track", -1, "Subtitle track index to translate (-1 selects automatically)")
	cmd.Flags().StringVar(&sourceLang, "source", "", "Source language tag (empty detects from the track)")
	cmd.Flags().StringVar(&targetLang, "target", "", "Target language tag")
	cmd.Flags().StringVar(&style, "style", "", "Translation style: natural, literal, localized, formal, casual, honorifics")
	cmd.Flags().StringVar(&outputFormat, "format", "", "Output subtitle format: srt, ass or vtt")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Lines per translation request")
	cmd.Flags().IntVar(&contextLines, "context-lines", 0, "Translated lines carried between batches")
	cmd.Flags().IntVar(&delayMS, "delay-ms", 0, "Pause between translation requests in milliseconds")
	cmd.Flags().BoolVar(&embed, "embed", false, "Embed the translated track back into the video")
	cmd.Flags().BoolVar(&setDefault, "set-default", false, "Mark the embedded track as default")

	return cmd
}

// applyFlag runs apply only when the user set the flag, so config-file and
// environment values survive unless explicitly overridden.
func applyFlag(cmd *cobra.Command, name string, apply func()) {
	if cmd.Flags().Changed(name) {
		apply()
	}
}
