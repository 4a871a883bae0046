package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"reelsmith/internal/config"
	"reelsmith/internal/services"
)

// Requirement defines an external tool reelsmith relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string `json:"name" yaml:"name"`
	Command     string `json:"command" yaml:"command"`
	Description string `json:"description" yaml:"description"`
	Optional    bool   `json:"optional" yaml:"optional"`
	Available   bool   `json:"available" yaml:"available"`
	Detail      string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Requirements lists the tools the configured pipeline invokes. The speech
// synthesizer is only needed for voice commands, so it is optional for builds.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "Renderer", Command: cfg.Render.Binary, Description: "Renders scenes to video clips"},
		{Name: "FFmpeg", Command: cfg.Merge.FFmpegBinary, Description: "Concatenates scene clips"},
		{Name: "FFprobe", Command: ResolveFFprobe(cfg.Merge.FFmpegBinary, cfg.FFprobe.Binary), Description: "Measures clip and narration durations"},
		{Name: "Speech synthesizer", Command: cfg.Voice.TTSBinary, Description: "Synthesizes narration", Optional: true},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// RequireAvailable returns an ErrExternalTool error naming every missing
// required dependency, or nil when all are present.
func RequireAvailable(statuses []Status) error {
	var missing []string
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, fmt.Sprintf("%s (%s)", status.Name, status.Command))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return services.Wrap(services.ErrExternalTool, "preflight", "check dependencies",
		"missing "+strings.Join(missing, ", "), nil)
}
