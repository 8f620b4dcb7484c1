package telemetry

import "os"

const defaultArtifactsDir = ".agent"

// ObserveEnabled reports whether JSONL emission is on (AGT_OBSERVE_JSON=1).
// Read on every call so tests and long-running servers can toggle it.
func ObserveEnabled() bool {
	return os.Getenv("AGT_OBSERVE_JSON") == "1"
}

// ArtifactsDir returns the directory events.jsonl is written to.
func ArtifactsDir() string {
	if dir := os.Getenv("AGT_ARTIFACTS_DIR"); dir != "" {
		return dir
	}
	return defaultArtifactsDir
}
