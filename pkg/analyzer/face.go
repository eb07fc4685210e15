package analyzer

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"interaction-analyzer/pkg/timeline"
)

const (
	// geomEpsilon absorbs float artifacts on threshold comparisons of
	// normalized coordinates.
	geomEpsilon = 1e-9

	gazeAlignmentMax   = 0.2
	gazeSeparationMin  = 0.1
	faceAlignmentMax   = 0.3
	faceDistanceMin    = 0.2
	faceDistanceMax    = 0.6
	proximityChangeMin = 0.05

	sizeVarianceMax = 0.01
	posVarianceMin  = 0.01
	posVarianceMax  = 0.5

	highEngagement   = 0.7
	mediumEngagement = 0.4
)

// FaceOptions tunes the face orientation analysis.
type FaceOptions struct {
	BucketSeconds float64
}

// DefaultFaceOptions returns the production defaults.
func DefaultFaceOptions() FaceOptions {
	return FaceOptions{BucketSeconds: 5}
}

// FaceResult is the output of the face orientation analysis. Ratio fields lie
// in [0,1].
type FaceResult struct {
	MutualGazeTime     float64                     `json:"mutualGazeTime"`
	FaceToFaceRatio    float64                     `json:"faceToFaceRatio"`
	EngagementScore    float64                     `json:"engagementScore"`
	EngagementPeriods  []timeline.EngagementPeriod `json:"engagementPeriods,omitempty"`
	EmotionalSynchrony float64                     `json:"emotionalSynchrony"`
	ValidBuckets       int                         `json:"validBuckets"`
	BucketCount        int                         `json:"bucketCount"`
	ProximityChanges   int                         `json:"proximityChanges"`
}

// FaceAnalyzer derives mutual-gaze and face-to-face heuristics from tracked
// faces. These are geometric proxies for engagement, not gaze estimation or
// emotion classification.
type FaceAnalyzer struct {
	logger *logrus.Entry
	opts   FaceOptions
}

// NewFaceAnalyzer constructs a FaceAnalyzer.
func NewFaceAnalyzer(logger *logrus.Logger, opts FaceOptions) *FaceAnalyzer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.BucketSeconds <= 0 {
		opts.BucketSeconds = 5
	}
	return &FaceAnalyzer{
		logger: logger.WithField("component", "face_analyzer"),
		opts:   opts,
	}
}

// bucketFaces is the per-bucket face geometry after spurious-face pruning.
type bucketFaces struct {
	index int
	a, b  *timeline.FacePayload
}

// Analyze computes gaze, engagement and synchrony signals from face tracks.
func (a *FaceAnalyzer) Analyze(faceTracks []timeline.Track) FaceResult {
	result := FaceResult{}

	buckets := a.collectBuckets(faceTracks)
	if len(buckets) == 0 {
		return result
	}

	lo := buckets[0].index
	hi := buckets[len(buckets)-1].index
	result.BucketCount = hi - lo + 1
	result.ValidBuckets = len(buckets)

	var gazeCount, faceToFaceCount, syncCount int
	var prevDistance float64
	var havePrev bool
	engagement := make(map[int]float64, len(buckets))

	for _, b := range buckets {
		ca := b.a.Center
		cb := b.b.Center
		dx := math.Abs(ca.X - cb.X)
		dy := math.Abs(ca.Y - cb.Y)

		// Horizontally aligned but not overlapping reads as "facing"; this is
		// a crude heuristic, not true gaze estimation.
		gaze := dy < gazeAlignmentMax && dx+geomEpsilon > gazeSeparationMin
		faceToFace := dy < faceAlignmentMax &&
			dx+geomEpsilon >= faceDistanceMin &&
			dx <= faceDistanceMax+geomEpsilon

		if gaze {
			gazeCount++
		}
		if faceToFace {
			faceToFaceCount++
		}

		dist := distance(ca, cb)
		changed := false
		if havePrev && math.Abs(dist-prevDistance) > proximityChangeMin {
			result.ProximityChanges++
			changed = true
		}
		prevDistance = dist
		havePrev = true

		score := 0.0
		if gaze {
			score += 0.4
		}
		if faceToFace {
			score += 0.4
		}
		if changed {
			score += 0.2
		}
		engagement[b.index] = score

		if emotionalSyncBucket(b.a, b.b) {
			syncCount++
		}
	}

	valid := float64(result.ValidBuckets)
	result.MutualGazeTime = float64(gazeCount) / valid
	result.FaceToFaceRatio = float64(faceToFaceCount) / valid
	result.EmotionalSynchrony = float64(syncCount) / valid
	result.EngagementScore = 0.4*result.MutualGazeTime +
		0.4*result.FaceToFaceRatio +
		0.2*math.Min(1, float64(result.ProximityChanges)/10)
	result.EngagementPeriods = engagementPeriods(engagement, a.opts.BucketSeconds)

	a.logger.WithFields(logrus.Fields{
		"valid_buckets": result.ValidBuckets,
		"gaze":          result.MutualGazeTime,
		"face_to_face":  result.FaceToFaceRatio,
		"engagement":    result.EngagementScore,
	}).Debug("Face orientation analysis complete")

	return result
}

// collectBuckets selects the two largest faces per bucket. Size is a proxy for
// "the two participants" when more than two faces are spuriously detected.
func (a *FaceAnalyzer) collectBuckets(faceTracks []timeline.Track) []bucketFaces {
	perBucket := map[int][]*timeline.FacePayload{}
	for i := range faceTracks {
		for j := range faceTracks[i].Events {
			e := &faceTracks[i].Events[j]
			if e.Face == nil {
				continue
			}
			idx := timeline.BucketIndex(e.Time, a.opts.BucketSeconds)
			perBucket[idx] = append(perBucket[idx], e.Face)
		}
	}

	buckets := make([]bucketFaces, 0, len(perBucket))
	for idx, faces := range perBucket {
		if len(faces) < 2 {
			continue
		}
		sort.SliceStable(faces, func(i, j int) bool { return faces[i].Size > faces[j].Size })
		buckets = append(buckets, bucketFaces{index: idx, a: faces[0], b: faces[1]})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].index < buckets[j].index })
	return buckets
}

// emotionalSyncBucket awards synchrony when face sizes are near-equal and
// positions are moderately but not excessively spread. A geometric proxy for
// engaged-together, not an emotion classifier.
func emotionalSyncBucket(a, b *timeline.FacePayload) bool {
	sizeVar := variance(a.Size, b.Size)
	posVar := variance(a.Center.X, b.Center.X) + variance(a.Center.Y, b.Center.Y)
	return sizeVar < sizeVarianceMax && posVar > posVarianceMin && posVar < posVarianceMax
}

func variance(values ...float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(values))
}

// engagementPeriods run-length-encodes per-bucket engagement into high, medium
// and low bands.
func engagementPeriods(engagement map[int]float64, width float64) []timeline.EngagementPeriod {
	if len(engagement) == 0 {
		return nil
	}

	indices := make([]int, 0, len(engagement))
	for idx := range engagement {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	var periods []timeline.EngagementPeriod
	for _, idx := range indices {
		level := engagementBand(engagement[idx])
		start := float64(idx) * width
		end := start + width

		if n := len(periods); n > 0 && periods[n-1].Level == level && periods[n-1].End == start {
			periods[n-1].End = end
			continue
		}
		periods = append(periods, timeline.EngagementPeriod{Start: start, End: end, Level: level})
	}
	return periods
}

func engagementBand(score float64) string {
	switch {
	case score > highEngagement:
		return "high"
	case score > mediumEngagement:
		return "medium"
	default:
		return "low"
	}
}
