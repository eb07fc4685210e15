// Package scoring combines the modality analyzers' outputs into weighted
// composite scores and human-readable findings.
package scoring

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"interaction-analyzer/pkg/analyzer"
	pkgerrors "interaction-analyzer/pkg/errors"
	"interaction-analyzer/pkg/timeline"
)

// Weighted sub-signal categories. The weight table over these must sum to 1.
const (
	CategoryPhysicalProximity  = "physical_proximity"
	CategoryMovementSynchrony  = "movement_synchrony"
	CategoryFaceOrientation    = "face_orientation"
	CategoryLanguageFrequency  = "language_frequency"
	CategoryLanguageQuality    = "language_quality"
	CategoryPlayDiversity      = "play_diversity"
	CategoryAttentionSpan      = "attention_span"
	CategoryConflictResolution = "conflict_resolution"
)

// Published score range. Raw sub-signals live in [0,1]; published category and
// overall scores are clamped to this range.
const (
	ScoreFloor   = 1.0
	ScoreCeiling = 10.0

	weightTolerance = 1e-9
)

// DefaultWeights returns the fixed production weight table.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		CategoryPhysicalProximity:  0.15,
		CategoryMovementSynchrony:  0.10,
		CategoryFaceOrientation:    0.15,
		CategoryLanguageFrequency:  0.15,
		CategoryLanguageQuality:    0.15,
		CategoryPlayDiversity:      0.10,
		CategoryAttentionSpan:      0.10,
		CategoryConflictResolution: 0.10,
	}
}

// ValidateWeights checks the weight table sums to 1 within tolerance.
func ValidateWeights(weights map[string]float64) error {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if math.Abs(sum-1) > weightTolerance {
		return pkgerrors.Wrap(pkgerrors.ErrInvalidWeights,
			fmt.Sprintf("weight table sums to %.12f, want 1.0", sum))
	}
	return nil
}

// RenormalizeWeights scales a weight table back to a unit sum. Zero-sum
// tables fall back to the defaults.
func RenormalizeWeights(weights map[string]float64) map[string]float64 {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return DefaultWeights()
	}
	out := make(map[string]float64, len(weights))
	for k, w := range weights {
		out[k] = w / sum
	}
	return out
}

// CompositeScore is one weighted sub-signal.
type CompositeScore struct {
	Category        string  `json:"category"`
	RawValue        float64 `json:"rawValue"`
	Weight          float64 `json:"weight"`
	NormalizedValue float64 `json:"normalizedValue"`
}

// CategoryScores are the four published category scores on the 1-10 scale.
type CategoryScores struct {
	PhysicalEngagement   float64 `json:"physicalEngagement"`
	CommunicationQuality float64 `json:"communicationQuality"`
	EmotionalConnection  float64 `json:"emotionalConnection"`
	PlayCreativity       float64 `json:"playCreativity"`
}

// ScoreSet is the aggregated scoring output.
type ScoreSet struct {
	Components           []CompositeScore          `json:"components"`
	Categories           CategoryScores            `json:"categories"`
	OverallDevelopment   float64                   `json:"overallDevelopment"`
	ConfidenceMultiplier float64                   `json:"confidenceMultiplier"`
	Ceiling              float64                   `json:"ceiling"`
	Quality              timeline.DataQualityGrade `json:"quality"`
}

// qualityAdjustment maps a data-quality grade to a confidence multiplier and
// a score ceiling. Both drop together so sparse input cannot produce a
// spuriously excellent result.
func qualityAdjustment(grade timeline.DataQualityGrade) (multiplier, ceiling float64) {
	switch grade {
	case timeline.QualityExcellent:
		return 1.0, 10.0
	case timeline.QualityGood:
		return 0.9, 9.0
	case timeline.QualityFair:
		return 0.75, 7.5
	default:
		return 0.6, 6.0
	}
}

// Aggregator applies the weight table to normalized sub-signals.
type Aggregator struct {
	logger  *logrus.Entry
	weights map[string]float64
}

// NewAggregator constructs an Aggregator. Nil weights use the defaults; an
// invalid table is rejected.
func NewAggregator(logger *logrus.Logger, weights map[string]float64) (*Aggregator, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if weights == nil {
		weights = DefaultWeights()
	}
	if err := ValidateWeights(weights); err != nil {
		return nil, err
	}
	return &Aggregator{
		logger:  logger.WithField("component", "score_aggregator"),
		weights: weights,
	}, nil
}

// Aggregate combines the four analyzer results into category scores and one
// overall score, tempered by the data-quality grade.
func (a *Aggregator) Aggregate(
	prox analyzer.ProximityResult,
	face analyzer.FaceResult,
	conv analyzer.ConversationResult,
	play analyzer.PlayResult,
	quality timeline.DataQualityGrade,
) ScoreSet {
	signals := map[string]float64{
		CategoryPhysicalProximity:  clamp01(prox.ProximityScore),
		CategoryMovementSynchrony:  clamp01(prox.MovementSynchrony),
		CategoryFaceOrientation:    clamp01(face.EngagementScore),
		CategoryLanguageFrequency:  clamp01(float64(conv.TurnTaking.TotalTurns) / 20),
		CategoryLanguageQuality:    clamp01(conv.AverageWordConfidence),
		CategoryPlayDiversity:      clamp01(play.Creativity.DiversityScore / 100),
		CategoryAttentionSpan:      clamp01(longestFocus(play) / 120),
		CategoryConflictResolution: clamp01(turnEvenness(conv)),
	}

	multiplier, ceiling := qualityAdjustment(quality)

	set := ScoreSet{
		ConfidenceMultiplier: multiplier,
		Ceiling:              ceiling,
		Quality:              quality,
	}

	var weighted float64
	for _, category := range orderedCategories() {
		weight := a.weights[category]
		raw := signals[category]
		weighted += weight * raw
		set.Components = append(set.Components, CompositeScore{
			Category:        category,
			RawValue:        raw,
			Weight:          weight,
			NormalizedValue: clamp01(raw),
		})
	}

	set.OverallDevelopment = publish(weighted, multiplier, ceiling)
	set.Categories = CategoryScores{
		PhysicalEngagement: publish(
			0.6*signals[CategoryPhysicalProximity]+0.4*signals[CategoryMovementSynchrony],
			multiplier, ceiling),
		CommunicationQuality: publish(
			0.5*signals[CategoryLanguageFrequency]+0.5*signals[CategoryLanguageQuality],
			multiplier, ceiling),
		EmotionalConnection: publish(
			0.7*signals[CategoryFaceOrientation]+0.3*clamp01(face.EmotionalSynchrony),
			multiplier, ceiling),
		PlayCreativity: publish(
			0.6*signals[CategoryPlayDiversity]+0.4*signals[CategoryAttentionSpan],
			multiplier, ceiling),
	}

	a.logger.WithFields(logrus.Fields{
		"overall":    set.OverallDevelopment,
		"quality":    quality,
		"multiplier": multiplier,
	}).Debug("Scores aggregated")

	return set
}

// orderedCategories fixes the component ordering for stable output.
func orderedCategories() []string {
	return []string{
		CategoryPhysicalProximity,
		CategoryMovementSynchrony,
		CategoryFaceOrientation,
		CategoryLanguageFrequency,
		CategoryLanguageQuality,
		CategoryPlayDiversity,
		CategoryAttentionSpan,
		CategoryConflictResolution,
	}
}

// publish maps a [0,1] value onto the published 1-10 scale, applies the
// confidence multiplier and clamps to the floor and quality ceiling.
func publish(value, multiplier, ceiling float64) float64 {
	score := (ScoreFloor + (ScoreCeiling-ScoreFloor)*clamp01(value)) * multiplier
	if score < ScoreFloor {
		score = ScoreFloor
	}
	if score > ceiling {
		score = ceiling
	}
	return math.Round(score*10) / 10
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// longestFocus returns the longest sustained engagement with a single object
// or cooperative window, in seconds.
func longestFocus(play analyzer.PlayResult) float64 {
	var longest float64
	for _, u := range play.ToyUsage {
		if u.Duration > longest {
			longest = u.Duration
		}
	}
	for _, p := range play.CooperativePatterns {
		if p.Duration > longest {
			longest = p.Duration
		}
	}
	return longest
}

// turnEvenness measures how evenly turns were shared between speakers. With a
// single speaker there is no sharing to score.
func turnEvenness(conv analyzer.ConversationResult) float64 {
	if len(conv.TurnTaking.Balance) < 2 {
		return 0
	}
	minShare, maxShare := 1.0, 0.0
	for _, share := range conv.TurnTaking.Balance {
		if share < minShare {
			minShare = share
		}
		if share > maxShare {
			maxShare = share
		}
	}
	return 1 - (maxShare - minShare)
}
