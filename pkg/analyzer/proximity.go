// Package analyzer contains the four modality analyzers that derive
// cross-modal interaction signals from the fused timeline. Each analyzer is a
// stateless object over immutable input; they share no state and are safe to
// run concurrently.
package analyzer

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"interaction-analyzer/pkg/timeline"
)

const (
	// stillnessEpsilon is the per-bucket displacement magnitude below which a
	// person is considered stationary.
	stillnessEpsilon = 0.005

	highActivityThreshold   = 0.02
	mediumActivityThreshold = 0.005
)

// ProximityOptions tunes the spatial proximity and movement analysis.
type ProximityOptions struct {
	// BucketSeconds is the co-occurrence window width.
	BucketSeconds float64
	// ProximityThreshold is the normalized center distance below which two
	// persons count as close.
	ProximityThreshold float64
}

// DefaultProximityOptions returns the production defaults.
func DefaultProximityOptions() ProximityOptions {
	return ProximityOptions{BucketSeconds: 5, ProximityThreshold: 0.3}
}

// ActivityWindow is a contiguous run of buckets sharing an activity level.
type ActivityWindow struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Level string  `json:"level"`
}

// PersonActivity summarizes one person's movement.
type PersonActivity struct {
	EntityID            string           `json:"entityId"`
	Role                timeline.Role    `json:"role"`
	AverageDisplacement float64          `json:"averageDisplacement"`
	Level               string           `json:"level"`
	Windows             []ActivityWindow `json:"windows,omitempty"`
}

// ProximityResult is the output of the proximity and movement analysis. All
// score fields lie in [0,1].
type ProximityResult struct {
	ProximityScore     float64          `json:"proximityScore"`
	MovementSynchrony  float64          `json:"movementSynchrony"`
	ActivityLevels     []PersonActivity `json:"activityLevels,omitempty"`
	BucketCount        int              `json:"bucketCount"`
	CloseBuckets       int              `json:"closeBuckets"`
	SynchronousBuckets int              `json:"synchronousBuckets"`
}

// ProximityAnalyzer scores spatial distance, movement synchrony and activity
// levels between tracked persons.
type ProximityAnalyzer struct {
	logger *logrus.Entry
	opts   ProximityOptions
}

// NewProximityAnalyzer constructs a ProximityAnalyzer.
func NewProximityAnalyzer(logger *logrus.Logger, opts ProximityOptions) *ProximityAnalyzer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.BucketSeconds <= 0 {
		opts.BucketSeconds = 5
	}
	if opts.ProximityThreshold <= 0 {
		opts.ProximityThreshold = 0.3
	}
	return &ProximityAnalyzer{
		logger: logger.WithField("component", "proximity_analyzer"),
		opts:   opts,
	}
}

// Analyze computes proximity and movement signals over the person tracks.
// Fewer than two tracks yields a zero-score result, never an error.
func (a *ProximityAnalyzer) Analyze(personTracks []timeline.Track) ProximityResult {
	result := ProximityResult{}
	if len(personTracks) == 0 {
		return result
	}

	result.ActivityLevels = a.activityLevels(personTracks)

	if len(personTracks) < 2 {
		return result
	}

	first, second := primaryPair(personTracks)
	firstBuckets := centersByBucket(first, a.opts.BucketSeconds)
	secondBuckets := centersByBucket(second, a.opts.BucketSeconds)

	lo, hi, ok := bucketRange(firstBuckets, secondBuckets)
	if !ok {
		return result
	}

	// Sparse buckets stay in the denominator so thin detection degrades the
	// score instead of being ignored.
	total := hi - lo + 1
	var closeCount int
	var syncSum float64
	var syncCount int

	for idx := lo; idx <= hi; idx++ {
		p1, ok1 := firstBuckets[idx]
		p2, ok2 := secondBuckets[idx]
		if !ok1 || !ok2 {
			continue
		}

		dist := distance(meanPoint(p1), meanPoint(p2))
		if dist < a.opts.ProximityThreshold {
			closeCount++
		}

		if score, valid := bucketSynchrony(p1, p2); valid {
			syncSum += score
			if score > 0.5 {
				syncCount++
			}
		}
	}

	result.BucketCount = total
	result.CloseBuckets = closeCount
	result.SynchronousBuckets = syncCount
	result.ProximityScore = float64(closeCount) / float64(total)
	result.MovementSynchrony = syncSum / float64(total)

	a.logger.WithFields(logrus.Fields{
		"buckets":   total,
		"close":     closeCount,
		"proximity": result.ProximityScore,
		"synchrony": result.MovementSynchrony,
	}).Debug("Proximity analysis complete")

	return result
}

// primaryPair picks the two best-covered person tracks as the participants.
func primaryPair(tracks []timeline.Track) (*timeline.Track, *timeline.Track) {
	indices := make([]int, len(tracks))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(i, j int) bool {
		return len(tracks[indices[i]].Events) > len(tracks[indices[j]].Events)
	})
	return &tracks[indices[0]], &tracks[indices[1]]
}

// centersByBucket groups a track's box centers by bucket index, preserving
// within-bucket time order.
func centersByBucket(track *timeline.Track, width float64) map[int][]timeline.Point {
	buckets := make(map[int][]timeline.Point)
	for _, e := range track.Events {
		var center timeline.Point
		switch {
		case e.Person != nil:
			center = e.Person.Center
		case e.Face != nil:
			center = e.Face.Center
		case e.Object != nil:
			center = e.Object.Center
		default:
			continue
		}
		idx := timeline.BucketIndex(e.Time, width)
		buckets[idx] = append(buckets[idx], center)
	}
	return buckets
}

func bucketRange(sets ...map[int][]timeline.Point) (lo, hi int, ok bool) {
	lo, hi = math.MaxInt32, math.MinInt32
	for _, set := range sets {
		for idx := range set {
			if idx < lo {
				lo = idx
			}
			if idx > hi {
				hi = idx
			}
		}
	}
	if lo > hi {
		return 0, 0, false
	}
	return lo, hi, true
}

func meanPoint(points []timeline.Point) timeline.Point {
	if len(points) == 0 {
		return timeline.Point{}
	}
	var sx, sy float64
	for _, p := range points {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(points))
	return timeline.Point{X: sx / n, Y: sy / n}
}

func distance(a, b timeline.Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// bucketSynchrony scores how similarly two persons moved within one bucket.
// Both need at least two positions in the bucket for a displacement vector;
// otherwise the bucket is invalid and contributes zero through the caller's
// denominator.
func bucketSynchrony(p1, p2 []timeline.Point) (float64, bool) {
	if len(p1) < 2 || len(p2) < 2 {
		return 0, false
	}

	d1x := p1[len(p1)-1].X - p1[0].X
	d1y := p1[len(p1)-1].Y - p1[0].Y
	d2x := p2[len(p2)-1].X - p2[0].X
	d2y := p2[len(p2)-1].Y - p2[0].Y

	m1 := math.Sqrt(d1x*d1x + d1y*d1y)
	m2 := math.Sqrt(d2x*d2x + d2y*d2y)

	if m1 < stillnessEpsilon && m2 < stillnessEpsilon {
		// Both stationary: co-regulated stillness is weak synchrony, not zero.
		return 0.5, true
	}
	if m1 < stillnessEpsilon || m2 < stillnessEpsilon {
		return 0, true
	}

	cos := (d1x*d2x + d1y*d2y) / (m1 * m2)
	directionScore := (cos + 1) / 2

	magnitudeScore := 1 - math.Abs(m1-m2)/math.Max(m1, m2)

	return 0.5*directionScore + 0.5*magnitudeScore, true
}

// activityLevels reports per-person average displacement and level windows.
func (a *ProximityAnalyzer) activityLevels(tracks []timeline.Track) []PersonActivity {
	levels := make([]PersonActivity, 0, len(tracks))

	for i := range tracks {
		track := &tracks[i]
		activity := PersonActivity{EntityID: track.EntityID, Role: track.Role, Level: "low"}

		var sum float64
		var steps int
		perBucket := map[int]float64{}
		perBucketSteps := map[int]int{}

		var prev *timeline.Point
		for _, e := range track.Events {
			if e.Person == nil {
				continue
			}
			center := e.Person.Center
			if prev != nil {
				d := distance(*prev, center)
				sum += d
				steps++
				idx := timeline.BucketIndex(e.Time, a.opts.BucketSeconds)
				perBucket[idx] += d
				perBucketSteps[idx]++
			}
			c := center
			prev = &c
		}

		if steps > 0 {
			activity.AverageDisplacement = sum / float64(steps)
		}
		activity.Level = classifyActivity(activity.AverageDisplacement)
		activity.Windows = activityWindows(perBucket, perBucketSteps, a.opts.BucketSeconds)
		levels = append(levels, activity)
	}

	return levels
}

func classifyActivity(avgDisplacement float64) string {
	switch {
	case avgDisplacement > highActivityThreshold:
		return "high"
	case avgDisplacement > mediumActivityThreshold:
		return "medium"
	default:
		return "low"
	}
}

// activityWindows run-length-encodes per-bucket activity into level windows.
func activityWindows(perBucket map[int]float64, perBucketSteps map[int]int, width float64) []ActivityWindow {
	if len(perBucket) == 0 {
		return nil
	}

	indices := make([]int, 0, len(perBucket))
	for idx := range perBucket {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	var windows []ActivityWindow
	for _, idx := range indices {
		avg := perBucket[idx] / float64(perBucketSteps[idx])
		level := classifyActivity(avg)
		start := float64(idx) * width
		end := start + width

		if n := len(windows); n > 0 && windows[n-1].Level == level && windows[n-1].End == start {
			windows[n-1].End = end
			continue
		}
		windows = append(windows, ActivityWindow{Start: start, End: end, Level: level})
	}
	return windows
}
