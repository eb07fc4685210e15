package analyzer

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"interaction-analyzer/pkg/timeline"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

// personTrack builds a person track with an event at each time, centered at
// the given positions.
func personTrack(id string, times []float64, centers []timeline.Point) timeline.Track {
	track := timeline.Track{EntityID: id, Role: timeline.RoleUnknown}
	for i, tm := range times {
		c := centers[i%len(centers)]
		box := timeline.BoundingBox{
			Left: c.X - 0.05, Right: c.X + 0.05,
			Top: c.Y - 0.1, Bottom: c.Y + 0.1,
		}
		track.Events = append(track.Events, timeline.TimedEvent{
			Time:       tm,
			Modality:   timeline.ModalityPerson,
			Confidence: 0.9,
			Person: &timeline.PersonPayload{
				Box: box, Center: box.Center(), Size: box.Area(),
			},
		})
	}
	return track
}

func secondRange(from, to, step float64) []float64 {
	var times []float64
	for t := from; t < to; t += step {
		times = append(times, t)
	}
	return times
}

func TestProximityScorePerfectCloseness(t *testing.T) {
	a := NewProximityAnalyzer(testLogger(), DefaultProximityOptions())

	// Two persons within 0.1 of each other in every bucket of a 60s window.
	times := secondRange(0, 60, 1)
	t1 := personTrack("p1", times, []timeline.Point{{X: 0.40, Y: 0.50}})
	t2 := personTrack("p2", times, []timeline.Point{{X: 0.45, Y: 0.50}})

	result := a.Analyze([]timeline.Track{t1, t2})

	assert.Equal(t, 1.0, result.ProximityScore)
	assert.Equal(t, result.BucketCount, result.CloseBuckets)
}

func TestProximityNoTracks(t *testing.T) {
	a := NewProximityAnalyzer(testLogger(), DefaultProximityOptions())
	result := a.Analyze(nil)
	assert.Zero(t, result.ProximityScore)
	assert.Zero(t, result.MovementSynchrony)
	assert.Empty(t, result.ActivityLevels)
}

func TestProximitySingleTrack(t *testing.T) {
	a := NewProximityAnalyzer(testLogger(), DefaultProximityOptions())
	track := personTrack("p1", secondRange(0, 30, 1), []timeline.Point{{X: 0.5, Y: 0.5}})

	result := a.Analyze([]timeline.Track{track})

	assert.Zero(t, result.ProximityScore)
	require.Len(t, result.ActivityLevels, 1)
	assert.Equal(t, "low", result.ActivityLevels[0].Level)
}

func TestProximitySparseDetectionDegradesScore(t *testing.T) {
	a := NewProximityAnalyzer(testLogger(), DefaultProximityOptions())

	// First person covers the full 60s; the second only the first half.
	t1 := personTrack("p1", secondRange(0, 60, 1), []timeline.Point{{X: 0.40, Y: 0.50}})
	t2 := personTrack("p2", secondRange(0, 30, 1), []timeline.Point{{X: 0.45, Y: 0.50}})

	result := a.Analyze([]timeline.Track{t1, t2})

	// Buckets without both persons stay in the denominator.
	assert.Greater(t, result.ProximityScore, 0.0)
	assert.Less(t, result.ProximityScore, 1.0)
	assert.Equal(t, 12, result.BucketCount)
	assert.Equal(t, 6, result.CloseBuckets)
}

func TestProximityFarApartScoresZero(t *testing.T) {
	a := NewProximityAnalyzer(testLogger(), DefaultProximityOptions())

	t1 := personTrack("p1", secondRange(0, 30, 1), []timeline.Point{{X: 0.1, Y: 0.2}})
	t2 := personTrack("p2", secondRange(0, 30, 1), []timeline.Point{{X: 0.9, Y: 0.8}})

	result := a.Analyze([]timeline.Track{t1, t2})
	assert.Zero(t, result.ProximityScore)
}

func TestMovementSynchronyParallelMotion(t *testing.T) {
	a := NewProximityAnalyzer(testLogger(), DefaultProximityOptions())

	// Both persons drift rightward at the same rate.
	times := secondRange(0, 30, 1)
	centers1 := make([]timeline.Point, len(times))
	centers2 := make([]timeline.Point, len(times))
	for i := range times {
		x := 0.2 + 0.01*float64(i)
		centers1[i] = timeline.Point{X: x, Y: 0.4}
		centers2[i] = timeline.Point{X: x + 0.05, Y: 0.6}
	}
	t1 := trackFromCenters("p1", times, centers1)
	t2 := trackFromCenters("p2", times, centers2)

	result := a.Analyze([]timeline.Track{t1, t2})

	assert.Greater(t, result.MovementSynchrony, 0.8)
	assert.LessOrEqual(t, result.MovementSynchrony, 1.0)
}

func trackFromCenters(id string, times []float64, centers []timeline.Point) timeline.Track {
	track := timeline.Track{EntityID: id}
	for i, tm := range times {
		c := centers[i]
		box := timeline.BoundingBox{
			Left: c.X - 0.05, Right: c.X + 0.05,
			Top: c.Y - 0.1, Bottom: c.Y + 0.1,
		}
		track.Events = append(track.Events, timeline.TimedEvent{
			Time:       tm,
			Modality:   timeline.ModalityPerson,
			Confidence: 0.9,
			Person:     &timeline.PersonPayload{Box: box, Center: box.Center(), Size: box.Area()},
		})
	}
	return track
}

func TestMovementSynchronyWithinBounds(t *testing.T) {
	a := NewProximityAnalyzer(testLogger(), DefaultProximityOptions())

	// Opposite motion should not push synchrony out of range.
	times := secondRange(0, 30, 1)
	centers1 := make([]timeline.Point, len(times))
	centers2 := make([]timeline.Point, len(times))
	for i := range times {
		centers1[i] = timeline.Point{X: 0.2 + 0.01*float64(i), Y: 0.5}
		centers2[i] = timeline.Point{X: 0.8 - 0.01*float64(i), Y: 0.5}
	}

	result := a.Analyze([]timeline.Track{
		trackFromCenters("p1", times, centers1),
		trackFromCenters("p2", times, centers2),
	})

	assert.GreaterOrEqual(t, result.MovementSynchrony, 0.0)
	assert.LessOrEqual(t, result.MovementSynchrony, 1.0)
}

func TestActivityLevelClassification(t *testing.T) {
	a := NewProximityAnalyzer(testLogger(), DefaultProximityOptions())

	times := secondRange(0, 20, 1)
	active := make([]timeline.Point, len(times))
	for i := range times {
		active[i] = timeline.Point{X: 0.1 + 0.04*float64(i%10), Y: 0.5}
	}

	result := a.Analyze([]timeline.Track{trackFromCenters("p1", times, active)})

	require.Len(t, result.ActivityLevels, 1)
	assert.Equal(t, "high", result.ActivityLevels[0].Level)
	assert.NotEmpty(t, result.ActivityLevels[0].Windows)
}
