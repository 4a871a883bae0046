package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"reelsmith/internal/deps"
	"reelsmith/internal/preflight"
	"reelsmith/internal/services"
)

type checkView struct {
	Dependencies []deps.Status      `json:"dependencies" yaml:"dependencies"`
	Preflight    []preflight.Result `json:"preflight" yaml:"preflight"`
	Ready        bool               `json:"ready" yaml:"ready"`
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var formatFlag string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report external tool availability and directory readiness",
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

			statuses := preflight.CheckSystemDeps(cfg)
			results := preflight.RunAll(cfg)
			depsErr := deps.RequireAvailable(statuses)
			view := checkView{
				Dependencies: statuses,
				Preflight:    results,
				Ready:        depsErr == nil && preflight.AllPassed(results),
			}

			if handled, err := writeStructured(cmd, format, view); !handled {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				lines := renderSectionHeader("Dependencies", colorize)
				lines = append(lines, dependencyLines(statuses, colorize)...)
				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Directories", colorize)...)
				lines = append(lines, preflightLines(results, colorize)...)
				fmt.Fprintln(out, strings.Join(lines, "\n"))
			} else if err != nil {
				return err
			}

			if depsErr != nil {
				return depsErr
			}
			if !view.Ready {
				var failed []string
				for _, r := range results {
					if !r.Passed {
						failed = append(failed, r.Name)
					}
				}
				return services.Wrap(services.ErrConfiguration, "preflight", "check directories",
					"not ready: "+strings.Join(failed, ", "), nil)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "table", "Output format: table, json or yaml")
	return cmd
}
