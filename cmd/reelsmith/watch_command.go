package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"reelsmith/internal/build"
	"reelsmith/internal/scenes"
	"reelsmith/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var flags buildFlags
	cmd := &cobra.Command{
		Use:   "watch <content-unit>",
		Short: "Rebuild the video whenever the content unit changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			req, err := flags.request(cfg, args[0], build.ModeFull)
			if err != nil {
				return err
			}
			unit, err := scenes.ResolveUnit(args[0], cfg.Render.SourceExt)
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}

			debounce := time.Duration(cfg.Watch.DebounceMS) * time.Millisecond
			watcher, err := watch.New(unit.Source, debounce, logger)
			if err != nil {
				return err
			}
			builder := build.New(cfg, logger)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", unit.Source)
			return watcher.Run(cmd.Context(), func(runCtx context.Context) error {
				result, err := builder.Run(runCtx, req)
				if err != nil {
					if failed := result.Render.Failed(); len(failed) > 0 {
						fmt.Fprintln(cmd.ErrOrStderr(), renderFailureTable(failed))
					}
					return err
				}
				fmt.Fprintln(out, renderBuildSummary(result, req.Mode))
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}
