package obs

import (
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfoOnce sync.Once

	// всегда 1; версия в метках
	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Communities API build: version, VCS commit and Go toolchain.",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// InitBuildInfo registers the build gauge once and sets it. A commit of "" or
// "dev" is replaced by the VCS revision stamped into the binary, if any.
func InitBuildInfo(version, commit string) {
	buildInfoOnce.Do(func() {
		prometheus.MustRegister(buildInfo)
	})
	info, _ := debug.ReadBuildInfo()
	buildInfo.WithLabelValues(version, resolveCommit(commit, info), runtime.Version()).Set(1)
}

func resolveCommit(commit string, info *debug.BuildInfo) string {
	if commit != "" && commit != "dev" {
		return commit
	}
	if info != nil {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				if len(s.Value) > 12 {
					return s.Value[:12]
				}
				return s.Value
			}
		}
	}
	if commit == "" {
		return "unknown"
	}
	return commit
}
