package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"reelsmith/internal/build"
	"reelsmith/internal/config"
	"reelsmith/internal/render"
	"reelsmith/internal/services"
)

type buildFlags struct {
	quality string
	threads int
}

func (f *buildFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.quality, "quality", "q", "", "Quality tier: "+strings.Join(config.QualityNames(), ", ")+" (default from config)")
	cmd.Flags().IntVarP(&f.threads, "threads", "t", 0, "Render workers and encoder threads (default from config)")
}

// request turns the flags into a build request, falling back to config.
func (f *buildFlags) request(cfg *config.Config, unit string, mode build.Mode) (build.Request, error) {
	req := build.Request{Unit: unit, Quality: cfg.QualityLevel(), Threads: f.threads, Mode: mode}
	if f.threads < 0 {
		return req, services.Wrap(services.ErrConfiguration, "cli", "parse threads", fmt.Sprintf("--threads %d must be positive", f.threads), nil)
	}
	if strings.TrimSpace(f.quality) != "" {
		level, err := config.ParseQuality(f.quality)
		if err != nil {
			return req, services.Wrap(services.ErrConfiguration, "cli", "parse quality", "", err)
		}
		req.Quality = level
	}
	return req, nil
}

func newBuildCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newBuildModeCommand(ctx, build.ModeFull, "build <content-unit>", "Render every scene and merge the clips into one video"),
		newBuildModeCommand(ctx, build.ModeRenderOnly, "render <content-unit>", "Render every scene without merging"),
		newBuildModeCommand(ctx, build.ModeMergeOnly, "merge <content-unit>", "Merge previously rendered clips"),
	}
}

func newBuildModeCommand(ctx *commandContext, mode build.Mode, use, short string) *cobra.Command {
	var flags buildFlags
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			req, err := flags.request(cfg, args[0], mode)
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}

			var opts []build.Option
			progress := newRenderProgress(cmd.ErrOrStderr())
			if progress != nil {
				opts = append(opts, build.WithRenderObserver(progress.observe))
			}
			builder := build.New(cfg, logger, opts...)

			result, err := builder.Run(cmd.Context(), req)
			progress.finish()
			if err != nil {
				if failed := result.Render.Failed(); len(failed) > 0 {
					fmt.Fprintln(cmd.ErrOrStderr(), renderFailureTable(failed))
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderBuildSummary(result, mode))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// renderProgress drives a progress bar from render observer callbacks. A nil
// *renderProgress is valid and does nothing.
type renderProgress struct {
	bar *progressbar.ProgressBar
}

// newRenderProgress returns nil unless w is a terminal.
func newRenderProgress(w io.Writer) *renderProgress {
	file, ok := w.(*os.File)
	if !ok || !isTerminal(file) {
		return nil
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(file),
		progressbar.OptionSetDescription("rendering scenes"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionClearOnFinish(),
	)
	return &renderProgress{bar: bar}
}

func (p *renderProgress) observe(result render.JobResult) {
	if p == nil {
		return
	}
	desc := "rendered " + result.Job.Scene.Name
	if !result.Succeeded() {
		desc = "failed " + result.Job.Scene.Name
	}
	p.bar.Describe(desc)
	_ = p.bar.Add(1)
}

func (p *renderProgress) finish() {
	if p == nil {
		return
	}
	_ = p.bar.Finish()
}

func qualityLabel(level config.QualityLevel) string {
	return cases.Title(language.English).String(level.String())
}

func renderBuildSummary(result build.Result, mode build.Mode) string {
	var b strings.Builder
	if rows := jobRows(result.Render.Results); len(rows) > 0 {
		var elapsed time.Duration
		for _, res := range result.Render.Results {
			elapsed += res.Elapsed
		}
		footer := []string{"", fmt.Sprintf("%d scenes", len(rows)), "", formatElapsed(elapsed)}
		b.WriteString(renderTableWithFooter(
			[]string{"#", "Scene", "Status", "Render time"},
			rows,
			footer,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
		))
		b.WriteString("\n")
	}

	pairs := [][2]string{
		{"Run", result.RunID},
		{"Unit", result.Unit.Basename},
		{"Quality", fmt.Sprintf("%s (%s)", qualityLabel(result.Preset.Level), result.Preset.Resolution)},
		{"Mode", mode.String()},
	}
	if len(result.Duplicates) > 0 {
		pairs = append(pairs, [2]string{"Duplicate scenes", strings.Join(result.Duplicates, ", ")})
	}
	if mode != build.ModeRenderOnly {
		pairs = append(pairs,
			[2]string{"Clips merged", fmt.Sprintf("%d", result.Merge.Clips)},
			[2]string{"Video length", formatElapsed(result.Merge.Duration)},
			[2]string{"Output", result.Merge.Output},
		)
		if skipped := len(result.Collection.Skipped); skipped > 0 {
			pairs = append(pairs, [2]string{"Stale clips skipped", fmt.Sprintf("%d", skipped)})
		}
	}
	pairs = append(pairs, [2]string{"Elapsed", formatElapsed(result.Elapsed)})
	b.WriteString(renderKeyValues(pairs))
	return b.String()
}

func jobRows(results []render.JobResult) [][]string {
	rows := make([][]string, 0, len(results))
	for i, res := range results {
		if res.Job.Scene.Name == "" {
			continue
		}
		status := "ok"
		if !res.Succeeded() {
			status = "failed: " + services.Classify(res.Err)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			res.Job.Scene.Name,
			status,
			formatElapsed(res.Elapsed),
		})
	}
	return rows
}

func renderFailureTable(failed []render.JobResult) string {
	rows := make([][]string, 0, len(failed))
	for _, res := range failed {
		rows = append(rows, []string{
			fmt.Sprintf("%d", res.Finished),
			res.Job.Scene.Name,
			res.Err.Error(),
		})
	}
	return renderTable([]string{"Finished", "Scene", "Error"}, rows, []columnAlignment{alignRight, alignLeft, alignLeft})
}

func formatElapsed(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
