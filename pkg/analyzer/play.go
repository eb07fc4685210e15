package analyzer

import (
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"interaction-analyzer/pkg/timeline"
)

// toyKeywords marks object names that read as play objects regardless of
// detection confidence.
var toyKeywords = []string{
	"ball", "block", "doll", "car", "truck", "book", "puzzle",
	"toy", "bear", "train", "lego", "crayon", "robot", "plush",
}

// PlayOptions tunes the play pattern analysis.
type PlayOptions struct {
	SharingBucketSeconds     float64
	CooperativeBucketSeconds float64
	MinCooperativeSeconds    float64
	DominanceSeconds         float64
	IntensityWindowSeconds   float64
	ToyConfidenceThreshold   float64
	InnovationBaseline       int
}

// DefaultPlayOptions returns the production defaults.
func DefaultPlayOptions() PlayOptions {
	return PlayOptions{
		SharingBucketSeconds:     5,
		CooperativeBucketSeconds: 10,
		MinCooperativeSeconds:    20,
		DominanceSeconds:         15,
		IntensityWindowSeconds:   30,
		ToyConfidenceThreshold:   0.7,
		InnovationBaseline:       3,
	}
}

// ToyUsage tracks one play object's observed lifetime.
type ToyUsage struct {
	Name       string  `json:"name"`
	FirstSeen  float64 `json:"firstSeen"`
	LastSeen   float64 `json:"lastSeen"`
	EventCount int     `json:"eventCount"`
	// Duration floors at EventCount*2 so sparsely-but-repeatedly-seen
	// objects are not scored as zero-duration.
	Duration float64 `json:"duration"`
}

// ActivityTransition marks a dominant-object change after a sustained run.
type ActivityTransition struct {
	Time       float64 `json:"time"`
	FromObject string  `json:"fromObject"`
	ToObject   string  `json:"toObject"`
	Type       string  `json:"type"`
}

// IntensityShift marks a sliding-window event-count change of at least 50%.
type IntensityShift struct {
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	Change    float64 `json:"change"`
	Direction string  `json:"direction"`
}

// CooperativePattern is a sustained window of joint object and person
// activity.
type CooperativePattern struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
}

// CreativityIndicators summarize play variety.
type CreativityIndicators struct {
	DiversityScore   float64 `json:"diversityScore"`
	InnovationEvents int     `json:"innovationEvents"`
	ExplorationRatio float64 `json:"explorationRatio"`
	UniqueObjects    int     `json:"uniqueObjects"`
}

// PlayResult is the output of the play pattern analysis.
type PlayResult struct {
	ToyUsage            map[string]ToyUsage  `json:"toyUsage,omitempty"`
	SharingRatio        float64              `json:"sharingRatio"`
	ActivityTransitions []ActivityTransition `json:"activityTransitions,omitempty"`
	IntensityShifts     []IntensityShift     `json:"intensityShifts,omitempty"`
	CooperativePatterns []CooperativePattern `json:"cooperativePatterns,omitempty"`
	Creativity          CreativityIndicators `json:"creativity"`
	TotalObjectEvents   int                  `json:"totalObjectEvents"`
}

// PlayAnalyzer derives object-usage, sharing, transition and cooperation
// signals from object and person tracks.
type PlayAnalyzer struct {
	logger *logrus.Entry
	opts   PlayOptions
}

// NewPlayAnalyzer constructs a PlayAnalyzer.
func NewPlayAnalyzer(logger *logrus.Logger, opts PlayOptions) *PlayAnalyzer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	def := DefaultPlayOptions()
	if opts.SharingBucketSeconds <= 0 {
		opts.SharingBucketSeconds = def.SharingBucketSeconds
	}
	if opts.CooperativeBucketSeconds <= 0 {
		opts.CooperativeBucketSeconds = def.CooperativeBucketSeconds
	}
	if opts.MinCooperativeSeconds <= 0 {
		opts.MinCooperativeSeconds = def.MinCooperativeSeconds
	}
	if opts.DominanceSeconds <= 0 {
		opts.DominanceSeconds = def.DominanceSeconds
	}
	if opts.IntensityWindowSeconds <= 0 {
		opts.IntensityWindowSeconds = def.IntensityWindowSeconds
	}
	if opts.ToyConfidenceThreshold <= 0 {
		opts.ToyConfidenceThreshold = def.ToyConfidenceThreshold
	}
	if opts.InnovationBaseline <= 0 {
		opts.InnovationBaseline = def.InnovationBaseline
	}
	return &PlayAnalyzer{
		logger: logger.WithField("component", "play_analyzer"),
		opts:   opts,
	}
}

// Analyze computes play pattern signals. Missing modalities yield empty
// sub-results, never an error.
func (a *PlayAnalyzer) Analyze(objectTracks, personTracks []timeline.Track) PlayResult {
	result := PlayResult{}

	objects := flattenObjectEvents(objectTracks)
	result.TotalObjectEvents = len(objects)
	if len(objects) == 0 && len(personTracks) == 0 {
		return result
	}

	result.ToyUsage = a.toyUsage(objects)
	result.SharingRatio = a.sharingRatio(objects)
	result.ActivityTransitions = a.activityTransitions(objects)
	result.IntensityShifts = a.intensityShifts(objects, personTracks)
	result.CooperativePatterns = a.cooperativePatterns(objects, personTracks)
	result.Creativity = a.creativity(objects)

	a.logger.WithFields(logrus.Fields{
		"object_events": result.TotalObjectEvents,
		"toys":          len(result.ToyUsage),
		"sharing":       result.SharingRatio,
		"cooperative":   len(result.CooperativePatterns),
	}).Debug("Play pattern analysis complete")

	return result
}

type objectEvent struct {
	time       float64
	name       string
	confidence float64
}

func flattenObjectEvents(tracks []timeline.Track) []objectEvent {
	var events []objectEvent
	for i := range tracks {
		for _, e := range tracks[i].Events {
			if e.Object == nil {
				continue
			}
			events = append(events, objectEvent{
				time:       e.Time,
				name:       e.Object.Name,
				confidence: e.Confidence,
			})
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].time < events[j].time })
	return events
}

func isToyName(name string) bool {
	for _, kw := range toyKeywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}

// toyUsage aggregates first/last-seen windows per play object. Objects
// qualify by toy keyword or by clearing the confidence threshold.
func (a *PlayAnalyzer) toyUsage(events []objectEvent) map[string]ToyUsage {
	usage := map[string]ToyUsage{}
	for _, e := range events {
		if !isToyName(e.name) && e.confidence <= a.opts.ToyConfidenceThreshold {
			continue
		}
		u, seen := usage[e.name]
		if !seen {
			u = ToyUsage{Name: e.name, FirstSeen: e.time, LastSeen: e.time}
		}
		if e.time < u.FirstSeen {
			u.FirstSeen = e.time
		}
		if e.time > u.LastSeen {
			u.LastSeen = e.time
		}
		u.EventCount++
		usage[e.name] = u
	}
	for name, u := range usage {
		u.Duration = math.Max(u.LastSeen-u.FirstSeen, float64(u.EventCount)*2)
		usage[name] = u
	}
	if len(usage) == 0 {
		return nil
	}
	return usage
}

// sharingRatio is the fraction of buckets holding at least two distinct
// objects, a proxy for shared or parallel play.
func (a *PlayAnalyzer) sharingRatio(events []objectEvent) float64 {
	if len(events) == 0 {
		return 0
	}

	perBucket := map[int]map[string]struct{}{}
	lo, hi := math.MaxInt32, math.MinInt32
	for _, e := range events {
		idx := timeline.BucketIndex(e.time, a.opts.SharingBucketSeconds)
		if perBucket[idx] == nil {
			perBucket[idx] = map[string]struct{}{}
		}
		perBucket[idx][e.name] = struct{}{}
		if idx < lo {
			lo = idx
		}
		if idx > hi {
			hi = idx
		}
	}

	total := hi - lo + 1
	shared := 0
	for _, names := range perBucket {
		if len(names) >= 2 {
			shared++
		}
	}
	return float64(shared) / float64(total)
}

// activityTransitions logs an object-introduction event whenever the dominant
// object changes after holding dominance for the configured minimum.
func (a *PlayAnalyzer) activityTransitions(events []objectEvent) []ActivityTransition {
	if len(events) == 0 {
		return nil
	}

	width := a.opts.SharingBucketSeconds
	counts := map[int]map[string]int{}
	lo, hi := math.MaxInt32, math.MinInt32
	for _, e := range events {
		idx := timeline.BucketIndex(e.time, width)
		if counts[idx] == nil {
			counts[idx] = map[string]int{}
		}
		counts[idx][e.name]++
		if idx < lo {
			lo = idx
		}
		if idx > hi {
			hi = idx
		}
	}

	var transitions []ActivityTransition
	var dominant string
	var dominantSince float64

	for idx := lo; idx <= hi; idx++ {
		bucket, ok := counts[idx]
		if !ok {
			continue
		}
		top := dominantName(bucket)
		bucketStart := float64(idx) * width

		if dominant == "" {
			dominant = top
			dominantSince = bucketStart
			continue
		}
		if top == dominant {
			continue
		}
		if bucketStart-dominantSince >= a.opts.DominanceSeconds {
			transitions = append(transitions, ActivityTransition{
				Time:       bucketStart,
				FromObject: dominant,
				ToObject:   top,
				Type:       "object_introduction",
			})
		}
		dominant = top
		dominantSince = bucketStart
	}
	return transitions
}

func dominantName(counts map[string]int) string {
	var best string
	bestCount := -1
	// Deterministic tie-break by name.
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if counts[name] > bestCount {
			best = name
			bestCount = counts[name]
		}
	}
	return best
}

// intensityShifts flags 50% event-count changes between a 30s window and the
// preceding window of the same width, sliding by one sharing bucket so shifts
// straddling a window boundary are not missed. Overlapping detections in the
// same direction merge into one shift.
func (a *PlayAnalyzer) intensityShifts(objects []objectEvent, personTracks []timeline.Track) []IntensityShift {
	var times []float64
	for _, e := range objects {
		times = append(times, e.time)
	}
	for i := range personTracks {
		for _, e := range personTracks[i].Events {
			times = append(times, e.Time)
		}
	}
	if len(times) == 0 {
		return nil
	}

	step := a.opts.SharingBucketSeconds
	width := a.opts.IntensityWindowSeconds
	stepsPerWindow := int(math.Round(width / step))
	if stepsPerWindow < 1 {
		stepsPerWindow = 1
	}

	counts := map[int]int{}
	lo, hi := math.MaxInt32, math.MinInt32
	for _, t := range times {
		idx := timeline.BucketIndex(t, step)
		counts[idx]++
		if idx < lo {
			lo = idx
		}
		if idx > hi {
			hi = idx
		}
	}

	windowCount := func(start int) int {
		total := 0
		for idx := start; idx < start+stepsPerWindow; idx++ {
			total += counts[idx]
		}
		return total
	}

	var shifts []IntensityShift
	// Both windows must lie fully inside the observed range; partial tail
	// windows would read as spurious decreases.
	for s := lo + stepsPerWindow; s+stepsPerWindow-1 <= hi; s++ {
		prev := windowCount(s - stepsPerWindow)
		if prev == 0 {
			continue
		}
		change := float64(windowCount(s)-prev) / float64(prev)

		var direction string
		switch {
		case change >= 0.5:
			direction = "increase"
		case change <= -0.5:
			direction = "decrease"
		default:
			continue
		}

		start := float64(s) * step
		if n := len(shifts); n > 0 && shifts[n-1].Direction == direction && start <= shifts[n-1].End {
			shifts[n-1].End = start + width
			if math.Abs(change) > math.Abs(shifts[n-1].Change) {
				shifts[n-1].Change = change
			}
			continue
		}
		shifts = append(shifts, IntensityShift{
			Start:     start,
			End:       start + width,
			Change:    change,
			Direction: direction,
		})
	}
	return shifts
}

// cooperativePatterns finds sustained windows where object activity and
// person presence overlap. With two or more tracked persons, a bucket needs
// both present; with one, a single person suffices.
func (a *PlayAnalyzer) cooperativePatterns(objects []objectEvent, personTracks []timeline.Track) []CooperativePattern {
	if len(objects) == 0 || len(personTracks) == 0 {
		return nil
	}

	width := a.opts.CooperativeBucketSeconds
	objCounts := map[int]int{}
	lo, hi := math.MaxInt32, math.MinInt32
	for _, e := range objects {
		idx := timeline.BucketIndex(e.time, width)
		objCounts[idx]++
		if idx < lo {
			lo = idx
		}
		if idx > hi {
			hi = idx
		}
	}

	personsPerBucket := map[int]map[string]struct{}{}
	for i := range personTracks {
		for _, e := range personTracks[i].Events {
			idx := timeline.BucketIndex(e.Time, width)
			if personsPerBucket[idx] == nil {
				personsPerBucket[idx] = map[string]struct{}{}
			}
			personsPerBucket[idx][personTracks[i].EntityID] = struct{}{}
		}
	}

	requiredPersons := 1
	if len(personTracks) >= 2 {
		requiredPersons = 2
	}

	var patterns []CooperativePattern
	var runStart float64
	var inRun bool

	endRun := func(endIdx int) {
		if !inRun {
			return
		}
		end := float64(endIdx) * width
		if end-runStart >= a.opts.MinCooperativeSeconds {
			patterns = append(patterns, CooperativePattern{
				Start:    runStart,
				End:      end,
				Duration: end - runStart,
			})
		}
		inRun = false
	}

	for idx := lo; idx <= hi; idx++ {
		cooperative := objCounts[idx] >= 2 && len(personsPerBucket[idx]) >= requiredPersons
		if cooperative && !inRun {
			inRun = true
			runStart = float64(idx) * width
		} else if !cooperative {
			endRun(idx)
		}
	}
	endRun(hi + 1)

	return patterns
}

// creativity derives diversity, innovation and exploration indicators from
// object variety and detection confidence.
func (a *PlayAnalyzer) creativity(events []objectEvent) CreativityIndicators {
	ind := CreativityIndicators{}
	if len(events) == 0 {
		return ind
	}

	unique := map[string]struct{}{}
	var confSum float64
	for _, e := range events {
		unique[e.name] = struct{}{}
		confSum += e.confidence
	}

	ind.UniqueObjects = len(unique)
	denom := math.Max(float64(len(events))/10, 1)
	ind.DiversityScore = math.Min(100, 100*float64(ind.UniqueObjects)/denom)
	ind.InnovationEvents = ind.UniqueObjects - a.opts.InnovationBaseline
	if ind.InnovationEvents < 0 {
		ind.InnovationEvents = 0
	}
	ind.ExplorationRatio = confSum / float64(len(events))
	return ind
}
