package telemetry

import (
	"context"

	"github.com/petasbytes/research-agent/internal/metrics"
)

const featuresVersion = "2"

// Input kinds for EmitLocalFeatures.
const (
	InputQuery     = "query"
	InputSummarize = "summarize"
)

type localFeatures struct {
	Kind    string           `json:"kind"`
	Version string           `json:"features_version"`
	User    metrics.Features `json:"user"`
}

// EmitLocalFeatures records size features of user input, never the text itself.
func EmitLocalFeatures(ctx context.Context, kind, text string) {
	if !ObserveEnabled() {
		return
	}
	Emit(ctx, "local_features", localFeatures{
		Kind:    kind,
		Version: featuresVersion,
		User:    metrics.CountFeatures(text),
	})
}
