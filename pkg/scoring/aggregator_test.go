package scoring

import (
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interaction-analyzer/pkg/analyzer"
	pkgerrors "interaction-analyzer/pkg/errors"
	"interaction-analyzer/pkg/timeline"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func TestDefaultWeightsSumToOne(t *testing.T) {
	weights := DefaultWeights()

	var sum float64
	for _, w := range weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.NoError(t, ValidateWeights(weights))
}

func TestRenormalizePreservesUnitSum(t *testing.T) {
	for category := range DefaultWeights() {
		weights := DefaultWeights()
		weights[category] *= 3

		require.Error(t, ValidateWeights(weights))
		renormalized := RenormalizeWeights(weights)
		assert.NoError(t, ValidateWeights(renormalized), "category %s", category)
	}
}

func TestRenormalizeZeroSumFallsBackToDefaults(t *testing.T) {
	out := RenormalizeWeights(map[string]float64{"a": 0})
	assert.Equal(t, DefaultWeights(), out)
}

func TestNewAggregatorRejectsInvalidWeights(t *testing.T) {
	_, err := NewAggregator(testLogger(), map[string]float64{"physical_proximity": 0.5})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrInvalidWeights))
}

func TestValidateWeightsWrapsSentinel(t *testing.T) {
	err := ValidateWeights(map[string]float64{"a": 0.4, "b": 0.4})
	require.Error(t, err)
	assert.True(t, pkgerrors.Is(err, pkgerrors.ErrInvalidWeights))
	assert.Contains(t, err.Error(), "0.8")
}

func TestAggregateEmptyResultsFloorsScores(t *testing.T) {
	agg, err := NewAggregator(testLogger(), nil)
	require.NoError(t, err)

	set := agg.Aggregate(
		analyzer.ProximityResult{},
		analyzer.FaceResult{},
		analyzer.ConversationResult{},
		analyzer.PlayResult{},
		timeline.QualityPoor,
	)

	assert.Equal(t, ScoreFloor, set.OverallDevelopment)
	assert.Equal(t, ScoreFloor, set.Categories.PhysicalEngagement)
	assert.Equal(t, ScoreFloor, set.Categories.CommunicationQuality)
	assert.Equal(t, ScoreFloor, set.Categories.EmotionalConnection)
	assert.Equal(t, ScoreFloor, set.Categories.PlayCreativity)
	assert.Equal(t, 0.6, set.ConfidenceMultiplier)
	assert.Equal(t, 6.0, set.Ceiling)
}

func maxedResults() (analyzer.ProximityResult, analyzer.FaceResult, analyzer.ConversationResult, analyzer.PlayResult) {
	prox := analyzer.ProximityResult{ProximityScore: 1.0, MovementSynchrony: 1.0}
	face := analyzer.FaceResult{EngagementScore: 1.0, EmotionalSynchrony: 1.0}
	conv := analyzer.ConversationResult{AverageWordConfidence: 1.0}
	conv.TurnTaking.TotalTurns = 40
	conv.TurnTaking.Balance = map[string]float64{"speaker_1": 0.5, "speaker_2": 0.5}
	play := analyzer.PlayResult{
		Creativity: analyzer.CreativityIndicators{DiversityScore: 100},
		ToyUsage:   map[string]analyzer.ToyUsage{"ball": {Name: "ball", Duration: 300}},
	}
	return prox, face, conv, play
}

func TestAggregateMaxedSignalsHitCeiling(t *testing.T) {
	agg, err := NewAggregator(testLogger(), nil)
	require.NoError(t, err)

	prox, face, conv, play := maxedResults()
	set := agg.Aggregate(prox, face, conv, play, timeline.QualityExcellent)

	assert.Equal(t, 10.0, set.OverallDevelopment)
	assert.Equal(t, 10.0, set.Categories.PhysicalEngagement)
	assert.Equal(t, 10.0, set.Categories.EmotionalConnection)
}

func TestPoorQualityCapsMaxedScores(t *testing.T) {
	agg, err := NewAggregator(testLogger(), nil)
	require.NoError(t, err)

	prox, face, conv, play := maxedResults()
	set := agg.Aggregate(prox, face, conv, play, timeline.QualityPoor)

	// Even perfect raw signals cannot exceed the poor-coverage ceiling.
	assert.Equal(t, 6.0, set.OverallDevelopment)
	assert.Equal(t, 6.0, set.Categories.PhysicalEngagement)
}

func TestGoodQualityMultiplier(t *testing.T) {
	agg, err := NewAggregator(testLogger(), nil)
	require.NoError(t, err)

	prox, face, conv, play := maxedResults()
	set := agg.Aggregate(prox, face, conv, play, timeline.QualityGood)

	assert.Equal(t, 9.0, set.OverallDevelopment)
	assert.Equal(t, 0.9, set.ConfidenceMultiplier)
}

func TestAggregateClampsOutOfRangeSignals(t *testing.T) {
	agg, err := NewAggregator(testLogger(), nil)
	require.NoError(t, err)

	prox := analyzer.ProximityResult{ProximityScore: 5.0, MovementSynchrony: -3.0}
	face := analyzer.FaceResult{EngagementScore: 2.0, EmotionalSynchrony: math.NaN()}
	conv := analyzer.ConversationResult{AverageWordConfidence: 7.0}
	conv.TurnTaking.TotalTurns = 100000
	play := analyzer.PlayResult{Creativity: analyzer.CreativityIndicators{DiversityScore: 500}}

	set := agg.Aggregate(prox, face, conv, play, timeline.QualityExcellent)

	for _, c := range set.Components {
		assert.GreaterOrEqualf(t, c.RawValue, 0.0, "component %s", c.Category)
		assert.LessOrEqualf(t, c.RawValue, 1.0, "component %s", c.Category)
	}
	assert.GreaterOrEqual(t, set.OverallDevelopment, ScoreFloor)
	assert.LessOrEqual(t, set.OverallDevelopment, ScoreCeiling)
}

func TestComponentOrderingStable(t *testing.T) {
	agg, err := NewAggregator(testLogger(), nil)
	require.NoError(t, err)

	set := agg.Aggregate(
		analyzer.ProximityResult{}, analyzer.FaceResult{},
		analyzer.ConversationResult{}, analyzer.PlayResult{},
		timeline.QualityExcellent,
	)

	require.Len(t, set.Components, 8)
	assert.Equal(t, CategoryPhysicalProximity, set.Components[0].Category)
	assert.Equal(t, CategoryConflictResolution, set.Components[7].Category)

	var weightSum float64
	for _, c := range set.Components {
		weightSum += c.Weight
	}
	assert.InDelta(t, 1.0, weightSum, 1e-9)
}

func TestTurnEvennessRequiresTwoSpeakers(t *testing.T) {
	conv := analyzer.ConversationResult{}
	conv.TurnTaking.Balance = map[string]float64{"speaker_1": 1.0}
	assert.Zero(t, turnEvenness(conv))

	conv.TurnTaking.Balance["speaker_2"] = 0.0
	conv.TurnTaking.Balance["speaker_1"] = 1.0
	assert.Zero(t, turnEvenness(conv))

	conv.TurnTaking.Balance = map[string]float64{"speaker_1": 0.6, "speaker_2": 0.4}
	assert.InDelta(t, 0.8, turnEvenness(conv), 1e-9)
}

func TestLongestFocusUsesToysAndCooperation(t *testing.T) {
	play := analyzer.PlayResult{
		ToyUsage: map[string]analyzer.ToyUsage{
			"ball": {Duration: 45},
		},
		CooperativePatterns: []analyzer.CooperativePattern{{Duration: 80}},
	}
	assert.Equal(t, 80.0, longestFocus(play))
}
