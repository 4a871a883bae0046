package deps

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFprobe returns the ffprobe binary to run. When ffprobe is left at
// its bare default and ffmpeg is configured as a path, an ffprobe that sits
// next to that ffmpeg is preferred, so static builds unpacked outside PATH
// work without extra configuration.
func ResolveFFprobe(ffmpegBinary, ffprobeBinary string) string {
	ffprobeBinary = strings.TrimSpace(ffprobeBinary)
	if ffprobeBinary != "" && ffprobeBinary != "ffprobe" {
		return ffprobeBinary
	}
	ffmpegBinary = strings.TrimSpace(ffmpegBinary)
	if !strings.ContainsRune(ffmpegBinary, filepath.Separator) {
		return "ffprobe"
	}
	candidate := filepath.Join(filepath.Dir(ffmpegBinary), executableName("ffprobe"))
	if info, err := os.Stat(candidate); err == nil && isExecutable(info) {
		return candidate
	}
	return "ffprobe"
}

func executableName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
