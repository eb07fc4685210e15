package interaction

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interaction-analyzer/pkg/scoring"
	"interaction-analyzer/pkg/timeline"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func confPtr(f float64) *float64 { return &f }

// boxFrames emits one frame per second across the window, at a fixed box.
func boxFrames(from, to float64, box timeline.NormalizedBoundingBox) []timeline.TimestampedObject {
	var frames []timeline.TimestampedObject
	for t := from; t < to; t++ {
		frames = append(frames, timeline.TimestampedObject{
			TimeOffset:            t,
			NormalizedBoundingBox: &box,
			Confidence:            confPtr(0.9),
		})
	}
	return frames
}

func boxedAnnotation(name string, frames []timeline.TimestampedObject) timeline.EntityAnnotation {
	return timeline.EntityAnnotation{
		Entity: &timeline.DetectedEntity{Description: name},
		Tracks: []timeline.DetectedTrack{{TimestampedObjects: frames}},
	}
}

// sessionPayload builds a synthetic two-person play session with speech,
// objects and faces spanning 60 seconds.
func sessionPayload() *timeline.AnnotationPayload {
	personA := timeline.NormalizedBoundingBox{Left: 0.30, Top: 0.2, Right: 0.45, Bottom: 0.8}
	personB := timeline.NormalizedBoundingBox{Left: 0.45, Top: 0.2, Right: 0.60, Bottom: 0.8}
	faceA := timeline.NormalizedBoundingBox{Left: 0.10, Top: 0.35, Right: 0.50, Bottom: 0.65}
	faceB := timeline.NormalizedBoundingBox{Left: 0.30, Top: 0.35, Right: 0.70, Bottom: 0.65}
	ball := timeline.NormalizedBoundingBox{Left: 0.4, Top: 0.6, Right: 0.5, Bottom: 0.7}
	block := timeline.NormalizedBoundingBox{Left: 0.5, Top: 0.6, Right: 0.6, Bottom: 0.7}

	var words []timeline.WordInfo
	vocab := []string{"look", "at", "the", "ball", "can", "you", "roll", "it"}
	for i := 0; i < 24; i++ {
		tag := 1 + i/3%2
		start := float64(i * 2)
		words = append(words, timeline.WordInfo{
			Word:       vocab[i%len(vocab)],
			StartTime:  start,
			EndTime:    start + 1,
			Confidence: 0.9,
			SpeakerTag: tag,
		})
	}

	return &timeline.AnnotationPayload{
		PersonDetection: []timeline.EntityAnnotation{
			boxedAnnotation("person", boxFrames(0, 60, personA)),
			boxedAnnotation("person", boxFrames(0, 60, personB)),
		},
		FaceDetection: []timeline.EntityAnnotation{
			boxedAnnotation("face", boxFrames(0, 60, faceA)),
			boxedAnnotation("face", boxFrames(0, 60, faceB)),
		},
		ObjectTracking: []timeline.EntityAnnotation{
			boxedAnnotation("Ball", boxFrames(0, 60, ball)),
			boxedAnnotation("Block", boxFrames(10, 60, block)),
		},
		SpeechTranscription: []timeline.SpeechTranscription{{
			Alternatives: []timeline.SpeechAlternative{{Words: words}},
		}},
		ShotChanges: []timeline.ShotChange{
			{StartTimeOffset: "0s", EndTimeOffset: "30s"},
			{StartTimeOffset: "30s", EndTimeOffset: "60s"},
		},
	}
}

func TestAnalyzeEmptyPayloadReturnsSentinel(t *testing.T) {
	p, err := NewPipeline(testLogger(), Options{})
	require.NoError(t, err)

	result, err := p.Analyze(context.Background(), &timeline.AnnotationPayload{})

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Empty)
	assert.Equal(t, timeline.QualityPoor, result.Quality)
	assert.Equal(t, scoring.ScoreFloor, result.Scores.OverallDevelopment)
	assert.NotEmpty(t, result.Metadata.AnalysisID)
	assert.Zero(t, result.Metadata.ConfidenceScore)
}

func TestAnalyzeNilPayloadReturnsSentinel(t *testing.T) {
	p, err := NewPipeline(testLogger(), Options{})
	require.NoError(t, err)

	result, err := p.Analyze(context.Background(), nil)

	require.NoError(t, err)
	assert.True(t, result.Empty)
}

func TestAnalyzeFullSession(t *testing.T) {
	p, err := NewPipeline(testLogger(), Options{})
	require.NoError(t, err)

	result, err := p.Analyze(context.Background(), sessionPayload())

	require.NoError(t, err)
	assert.False(t, result.Empty)

	// Published scores stay on the 1-10 scale.
	for name, score := range map[string]float64{
		"overall":       result.Scores.OverallDevelopment,
		"physical":      result.Scores.Categories.PhysicalEngagement,
		"communication": result.Scores.Categories.CommunicationQuality,
		"emotional":     result.Scores.Categories.EmotionalConnection,
		"play":          result.Scores.Categories.PlayCreativity,
	} {
		assert.GreaterOrEqualf(t, score, scoring.ScoreFloor, "%s below floor", name)
		assert.LessOrEqualf(t, score, scoring.ScoreCeiling, "%s above ceiling", name)
	}

	// Adjacent persons register as close.
	assert.Greater(t, result.Proximity.ProximityScore, 0.5)
	// Both speakers produced turns.
	assert.Greater(t, result.Conversation.TurnTaking.TotalTurns, 1)
	assert.Len(t, result.Conversation.SpeakerProfiles, 2)
	// Two concurrent objects drive sharing.
	assert.Greater(t, result.Play.SharingRatio, 0.0)

	assert.NotEmpty(t, result.Metadata.AnalysisID)
	assert.Equal(t, DepthStandard, result.Metadata.AnalysisDepth)
	assert.False(t, result.Metadata.ProcessedAt.IsZero())
	assert.Greater(t, result.Metadata.ConfidenceScore, 0.0)
	assert.NotEmpty(t, result.Insights.Summary)

	// Standard depth omits the raw fused timeline.
	assert.Nil(t, result.Merged)
}

func TestAnalyzeComprehensiveDepthCarriesMergedTimeline(t *testing.T) {
	p, err := NewPipeline(testLogger(), Options{Depth: DepthComprehensive})
	require.NoError(t, err)

	result, err := p.Analyze(context.Background(), sessionPayload())

	require.NoError(t, err)
	assert.NotEmpty(t, result.Merged)
	assert.Equal(t, DepthComprehensive, result.Metadata.AnalysisDepth)
}

func TestAnalyzeSequentialMatchesConcurrent(t *testing.T) {
	concurrent, err := NewPipeline(testLogger(), Options{})
	require.NoError(t, err)
	sequential, err := NewPipeline(testLogger(), Options{Sequential: true})
	require.NoError(t, err)

	payload := sessionPayload()
	a, err := concurrent.Analyze(context.Background(), payload)
	require.NoError(t, err)
	b, err := sequential.Analyze(context.Background(), payload)
	require.NoError(t, err)

	assert.Equal(t, a.Scores, b.Scores)
	assert.Equal(t, a.Proximity, b.Proximity)
	assert.Equal(t, a.Face, b.Face)
	assert.Equal(t, a.Conversation, b.Conversation)
	assert.Equal(t, a.Play, b.Play)
}

func TestAnalyzeCancelledContext(t *testing.T) {
	p, err := NewPipeline(testLogger(), Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := p.Analyze(ctx, sessionPayload())

	assert.Nil(t, result)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCustomBuilderOptionsRetained(t *testing.T) {
	p, err := NewPipeline(testLogger(), Options{
		Builder: timeline.BuilderOptions{ObjectConfidenceFloor: 0.9},
	})
	require.NoError(t, err)

	box := timeline.NormalizedBoundingBox{Left: 0.4, Top: 0.6, Right: 0.5, Bottom: 0.7}
	payload := &timeline.AnnotationPayload{
		ObjectTracking: []timeline.EntityAnnotation{{
			Entity: &timeline.DetectedEntity{Description: "ball"},
			Tracks: []timeline.DetectedTrack{{TimestampedObjects: []timeline.TimestampedObject{{
				TimeOffset:            1.0,
				NormalizedBoundingBox: &box,
				Confidence:            confPtr(0.2),
			}}}},
		}},
	}

	result, err := p.Analyze(context.Background(), payload)

	require.NoError(t, err)
	// The raised floor must survive pipeline construction and drop the frame.
	assert.Zero(t, result.Stats.ObjectEvents)
}

func TestNewPipelineRejectsInvalidWeights(t *testing.T) {
	_, err := NewPipeline(testLogger(), Options{
		Weights: map[string]float64{"physical_proximity": 2.0},
	})
	assert.Error(t, err)
}
