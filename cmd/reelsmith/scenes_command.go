package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/scenes"
)

type scenesView struct {
	Unit       string         `json:"unit" yaml:"unit"`
	Source     string         `json:"source" yaml:"source"`
	Scenes     []scenes.Scene `json:"scenes" yaml:"scenes"`
	Duplicates []string       `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
}

func newScenesCommand(ctx *commandContext) *cobra.Command {
	var formatFlag string
	cmd := &cobra.Command{
		Use:   "scenes <content-unit>",
		Short: "List the narrated scenes declared in a content unit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			format, err := parseOutputFormat(formatFlag)
			if err != nil {
				return err
			}
			unit, err := scenes.ResolveUnit(args[0], cfg.Render.SourceExt)
			if err != nil {
				return err
			}
			found, err := scenes.LocateFile(unit.Source, cfg.Render.SceneMarker)
			if err != nil {
				return err
			}

			view := scenesView{
				Unit:       unit.Basename,
				Source:     unit.Source,
				Scenes:     found.Scenes,
				Duplicates: found.Duplicates,
			}
			if view.Scenes == nil {
				view.Scenes = []scenes.Scene{}
			}
			if handled, err := writeStructured(cmd, format, view); handled {
				return err
			}

			out := cmd.OutOrStdout()
			if len(found.Scenes) == 0 {
				fmt.Fprintf(out, "No %s scenes found in %s\n", cfg.Render.SceneMarker, unit.Source)
				return nil
			}
			rows := make([][]string, 0, len(found.Scenes))
			for i, scene := range found.Scenes {
				rows = append(rows, []string{fmt.Sprintf("%d", i+1), scene.Name, fmt.Sprintf("%d", scene.Order)})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Scene", "Line"}, rows, []columnAlignment{alignRight, alignLeft, alignRight}))
			if len(found.Duplicates) > 0 {
				fmt.Fprintln(out, renderStatusLine("Duplicates", statusWarn,
					strings.Join(found.Duplicates, ", ")+" (last declaration wins)", shouldColorize(out)))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "table", "Output format: table, json or yaml")
	return cmd
}
