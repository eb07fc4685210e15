// Package interaction exposes the multi-modal interaction analysis pipeline:
// timeline fusion, modality analysis, score aggregation and insight
// generation over one annotation payload.
package interaction

import (
	"time"

	"interaction-analyzer/pkg/analyzer"
	"interaction-analyzer/pkg/scoring"
	"interaction-analyzer/pkg/timeline"
)

// Analysis depth labels recorded in result metadata.
const (
	DepthStandard      = "standard"
	DepthComprehensive = "comprehensive"
)

// Metadata describes one analysis invocation.
type Metadata struct {
	AnalysisID      string    `json:"analysisId"`
	ProcessedAt     time.Time `json:"processedAt"`
	Duration        float64   `json:"durationSeconds"`
	ConfidenceScore float64   `json:"confidenceScore"`
	AnalysisDepth   string    `json:"analysisDepth"`
}

// Result is the complete output of one analysis invocation: published scores,
// qualitative findings, per-analyzer raw results for audit, and metadata.
type Result struct {
	// Empty marks the well-defined sentinel returned when every modality
	// input was simultaneously absent. Callers use it to distinguish "no
	// signal" from a system failure.
	Empty bool `json:"empty,omitempty"`

	Scores   scoring.ScoreSet `json:"scores"`
	Insights scoring.Insights `json:"insights"`

	Proximity    analyzer.ProximityResult    `json:"proximity"`
	Face         analyzer.FaceResult         `json:"face"`
	Conversation analyzer.ConversationResult `json:"conversation"`
	Play         analyzer.PlayResult         `json:"play"`

	Stats   timeline.SummaryStats     `json:"stats"`
	Quality timeline.DataQualityGrade `json:"quality"`

	// Merged carries the fused timeline when the analysis depth is
	// comprehensive; omitted otherwise to keep results compact.
	Merged []timeline.TimelineEvent `json:"merged,omitempty"`

	Metadata Metadata `json:"metadata"`
}
