package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"reelsmith/internal/config"
	"reelsmith/internal/deps"
	"reelsmith/internal/media/ffprobe"
	"reelsmith/internal/narration"
	"reelsmith/internal/services"
	"reelsmith/internal/services/tts"
	"reelsmith/internal/voicecache"
)

func newVoiceCommand(ctx *commandContext) *cobra.Command {
	voiceCmd := &cobra.Command{
		Use:   "voice",
		Short: "Narration cache utilities",
	}
	voiceCmd.AddCommand(newVoiceSayCommand(ctx))
	voiceCmd.AddCommand(newVoiceKeyCommand(ctx))
	voiceCmd.AddCommand(newVoiceListCommand(ctx))
	voiceCmd.AddCommand(newVoiceVoicesCommand(ctx))
	return voiceCmd
}

func newSynthesizer(cfg *config.Config) *tts.CLI {
	return tts.NewCLI(
		tts.WithBinary(cfg.Voice.TTSBinary),
		tts.WithArgs(cfg.Voice.TTSArgs),
		tts.WithListVoicesArgs(cfg.Voice.ListVoicesArgs),
	)
}

func openVoiceCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*voicecache.Cache, error) {
	return voicecache.New(ctx, voicecache.Options{
		Dir:         cfg.Paths.VoiceDir,
		AudioExt:    cfg.Voice.AudioExt,
		Synthesizer: newSynthesizer(cfg),
		Prober:      ffprobe.Prober{Binary: deps.ResolveFFprobe(cfg.Merge.FFmpegBinary, cfg.FFprobe.Binary)},
		IndexPath:   cfg.VoiceIndexPath(),
		Logger:      logger,
	})
}

type sayView struct {
	Key      string            `json:"key" yaml:"key"`
	Path     string            `json:"path" yaml:"path"`
	Voice    string            `json:"voice" yaml:"voice"`
	Duration float64           `json:"duration_seconds" yaml:"duration_seconds"`
	Offset   float64           `json:"offset_seconds" yaml:"offset_seconds"`
	Factor   float64           `json:"factor" yaml:"factor"`
	Hold     float64           `json:"hold_seconds" yaml:"hold_seconds"`
	Elapsed  float64           `json:"elapsed_seconds" yaml:"elapsed_seconds"`
	Events   []narration.Event `json:"events" yaml:"events"`
}

func newVoiceSayCommand(ctx *commandContext) *cobra.Command {
	var (
		voice      string
		offset     float64
		factor     float64
		actionArgs []string
		formatFlag string
	)
	cmd := &cobra.Command{
		Use:   "say <text>",
		Short: "Narrate a line and print its cue sheet",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			format, err := parseOutputFormat(formatFlag)
			if err != nil {
				return err
			}
			actions := make([]narration.Action, 0, len(actionArgs))
			for _, raw := range actionArgs {
				action, err := narration.ParseAction(raw)
				if err != nil {
					return services.Wrap(services.ErrConfiguration, "cli", "parse action", raw, err)
				}
				actions = append(actions, action)
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			cache, err := openVoiceCache(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer cache.Close()

			narrator := narration.NewSynchronizer(cache, narration.Settings{
				Voice:  cfg.Voice.DefaultVoice,
				Factor: cfg.Voice.Factor,
			}, logger)
			cue := narration.Cue{
				Text:   strings.Join(args, " "),
				Voice:  voice,
				Offset: offset,
			}
			if cmd.Flags().Changed("factor") {
				cue.Factor = &factor
			}
			sheet := narration.NewSheet()
			result, err := narrator.Narrate(cmd.Context(), sheet, cue, actions...)
			if err != nil {
				return err
			}

			view := sayView{
				Key:      result.Entry.Key.String(),
				Path:     result.Entry.Path,
				Voice:    result.Voice,
				Duration: result.Entry.DurationSeconds,
				Offset:   result.Offset,
				Factor:   result.Factor,
				Hold:     result.Hold,
				Elapsed:  sheet.Elapsed(),
				Events:   sheet.Events(),
			}
			if handled, err := writeStructured(cmd, format, view); handled {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderKeyValues([][2]string{
				{"Key", view.Key},
				{"Path", view.Path},
				{"Voice", view.Voice},
				{"Duration", formatSeconds(view.Duration)},
				{"Hold", formatSeconds(view.Hold)},
				{"Timeline length", formatSeconds(view.Elapsed)},
			}))
			fmt.Fprintln(out, renderCueSheet(view.Events))
			return nil
		},
	}
	cmd.Flags().StringVar(&voice, "voice", "", "Voice to narrate with (default from config)")
	cmd.Flags().Float64Var(&offset, "offset", 0, "Seconds to delay the clip from the current position (negative starts it earlier)")
	cmd.Flags().Float64Var(&factor, "factor", 0, "Scale applied to the hold after the actions (default from config; 0 skips the hold)")
	cmd.Flags().StringArrayVar(&actionArgs, "action", nil, "Action to play alongside the clip, as name or name:seconds (repeatable)")
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "table", "Output format: table, json or yaml")
	return cmd
}

func renderCueSheet(events []narration.Event) string {
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		detail := ev.Path
		if len(ev.Actions) > 0 {
			detail = strings.Join(ev.Actions, ", ")
		}
		rows = append(rows, []string{
			formatSeconds(ev.Start),
			string(ev.Kind),
			formatSeconds(ev.Duration),
			detail,
		})
	}
	return renderTable([]string{"Start", "Event", "Length", "Detail"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft})
}

func newVoiceKeyCommand(ctx *commandContext) *cobra.Command {
	var voice string
	cmd := &cobra.Command{
		Use:   "key <text>",
		Short: "Print the cache key and path for a line without synthesizing it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(voice) == "" {
				voice = cfg.Voice.DefaultVoice
			}
			key := voicecache.KeyFor(voice, strings.Join(args, " "))
			ext := cfg.Voice.AudioExt
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Key: %s\n", key)
			fmt.Fprintf(out, "Path: %s\n", filepath.Join(cfg.Paths.VoiceDir, key.String()+ext))
			return nil
		},
	}
	cmd.Flags().StringVar(&voice, "voice", "", "Voice to key with (default from config)")
	return cmd
}

type voiceEntryView struct {
	Key       string    `json:"key" yaml:"key"`
	Voice     string    `json:"voice,omitempty" yaml:"voice,omitempty"`
	Text      string    `json:"text,omitempty" yaml:"text,omitempty"`
	Duration  float64   `json:"duration_seconds" yaml:"duration_seconds"`
	SizeBytes int64     `json:"size_bytes" yaml:"size_bytes"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Path      string    `json:"path" yaml:"path"`
}

func newVoiceListCommand(ctx *commandContext) *cobra.Command {
	var formatFlag string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached narration clips",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			format, err := parseOutputFormat(formatFlag)
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			cache, err := openVoiceCache(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer cache.Close()

			entries, err := cache.Entries(cmd.Context())
			if err != nil {
				return err
			}
			views := make([]voiceEntryView, 0, len(entries))
			for _, entry := range entries {
				views = append(views, voiceEntryView{
					Key:       entry.Key.String(),
					Voice:     entry.Voice,
					Text:      entry.Text,
					Duration:  entry.DurationSeconds,
					SizeBytes: entry.SizeBytes,
					CreatedAt: entry.CreatedAt,
					Path:      entry.Path,
				})
			}
			if handled, err := writeStructured(cmd, format, views); handled {
				return err
			}

			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintf(out, "No cached narration in %s\n", cache.Dir())
				return nil
			}
			rows := make([][]string, 0, len(views))
			var total int64
			for _, v := range views {
				total += v.SizeBytes
				rows = append(rows, []string{
					v.Key,
					v.Voice,
					truncate(v.Text, 40),
					formatSeconds(v.Duration),
					humanize.IBytes(uint64(max(v.SizeBytes, 0))),
				})
			}
			footer := []string{fmt.Sprintf("%d clips", len(views)), "", "", "", humanize.IBytes(uint64(max(total, 0)))}
			fmt.Fprintln(out, renderTableWithFooter(
				[]string{"Key", "Voice", "Text", "Duration", "Size"},
				rows,
				footer,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "table", "Output format: table, json or yaml")
	return cmd
}

func newVoiceVoicesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "voices",
		Short: "List the voices the speech synthesizer offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			voices, err := newSynthesizer(cfg).Voices(cmd.Context())
			if err != nil {
				return services.Wrap(services.ErrExternalTool, "voice", "list voices", cfg.Voice.TTSBinary, err)
			}
			out := cmd.OutOrStdout()
			for _, v := range voices {
				marker := ""
				if v == cfg.Voice.DefaultVoice {
					marker = " (default)"
				}
				fmt.Fprintf(out, "%s%s\n", v, marker)
			}
			return nil
		},
	}
}

func formatSeconds(seconds float64) string {
	return fmt.Sprintf("%.2fs", seconds)
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
