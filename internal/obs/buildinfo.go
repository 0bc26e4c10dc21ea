package obs

import (
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfoOnce sync.Once

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nurseconnect_build_info",
			Help: "NurseConnect API build information.",
		},
		[]string{"version", "commit", "goversion"},
	)
)

// InitBuildInfo publishes nurseconnect_build_info{version,commit,goversion} 1.
// An empty commit falls back to the VCS revision stamped by the toolchain.
func InitBuildInfo(version, commit string) {
	goVersion := "unknown"
	if info, ok := debug.ReadBuildInfo(); ok {
		goVersion = info.GoVersion
		if commit == "" || commit == "dev" {
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" && s.Value != "" {
					commit = s.Value
				}
			}
		}
	}
	buildInfoOnce.Do(func() {
		prometheus.MustRegister(buildInfo)
	})
	buildInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
