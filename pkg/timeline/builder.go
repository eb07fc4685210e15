package timeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	// defaultConfidence stands in for frames where the detector gave no
	// confidence signal at all. It is a "no signal" placeholder, not a 50%
	// certainty estimate, and quality grading keeps the distinction by
	// counting events rather than averaging defaults.
	defaultConfidence = 0.5

	// objectConfidenceFloor drops only the noisiest object-tracking frames.
	// Person and face frames are kept whenever a box exists; the filtering
	// policy deliberately favors downstream signal over precision.
	objectConfidenceFloor = 0.1
)

// BuilderOptions tunes the timeline construction policy.
type BuilderOptions struct {
	ObjectConfidenceFloor float64
	DefaultConfidence     float64
	Roles                 RoleClassifier
}

// DefaultBuilderOptions returns the production defaults.
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{
		ObjectConfidenceFloor: objectConfidenceFloor,
		DefaultConfidence:     defaultConfidence,
		Roles:                 NewFaceSizeRoleClassifier(),
	}
}

// SummaryStats holds per-modality counts used for confidence weighting.
type SummaryStats struct {
	ObjectEvents int     `json:"objectEvents"`
	PersonEvents int     `json:"personEvents"`
	FaceEvents   int     `json:"faceEvents"`
	SpeechWords  int     `json:"speechWords"`
	ShotCount    int     `json:"shotCount"`
	ObjectCount  int     `json:"objectCount"`
	PersonCount  int     `json:"personCount"`
	FaceCount    int     `json:"faceCount"`
	SpeakerCount int     `json:"speakerCount"`
	Duration     float64 `json:"duration"`

	MeanConfidence map[Modality]float64 `json:"meanConfidence,omitempty"`
}

// Timeline is the fused, immutable output consumed by all modality analyzers.
type Timeline struct {
	ObjectTracks []Track           `json:"objectTracks,omitempty"`
	PersonTracks []Track           `json:"personTracks,omitempty"`
	FaceTracks   []Track           `json:"faceTracks,omitempty"`
	Transcript   []TranscriptEntry `json:"transcript,omitempty"`
	ShotEvents   []TimedEvent      `json:"shotEvents,omitempty"`
	Merged       []TimelineEvent   `json:"merged,omitempty"`

	Stats             SummaryStats                  `json:"stats"`
	Quality           DataQualityGrade              `json:"quality"`
	ModalityQualities map[Modality]DataQualityGrade `json:"modalityQualities,omitempty"`
}

// Builder flattens raw annotation payloads into the fused timeline.
type Builder struct {
	logger *logrus.Entry
	opts   BuilderOptions
}

// NewBuilder constructs a Builder. A nil logger falls back to the standard
// logrus logger so library callers are not forced to wire logging.
func NewBuilder(logger *logrus.Logger, opts BuilderOptions) *Builder {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.ObjectConfidenceFloor <= 0 {
		opts.ObjectConfidenceFloor = objectConfidenceFloor
	}
	if opts.DefaultConfidence == 0 {
		opts.DefaultConfidence = defaultConfidence
	}
	if opts.Roles == nil {
		opts.Roles = NewFaceSizeRoleClassifier()
	}
	return &Builder{
		logger: logger.WithField("component", "timeline_builder"),
		opts:   opts,
	}
}

// Build produces the fused timeline. Missing modality arrays are treated as
// empty and propagate to a poor quality grade; Build never fails.
func (b *Builder) Build(payload *AnnotationPayload) *Timeline {
	if payload == nil {
		payload = &AnnotationPayload{}
	}

	tl := &Timeline{}
	tl.ObjectTracks = b.buildBoxTracks(payload.ObjectTracking, ModalityObject)
	tl.PersonTracks = b.buildBoxTracks(payload.PersonDetection, ModalityPerson)
	tl.FaceTracks = b.buildBoxTracks(payload.FaceDetection, ModalityFace)
	tl.Transcript = b.buildTranscript(payload.SpeechTranscription)
	tl.ShotEvents = b.buildShotEvents(payload.ShotChanges)

	for i := range tl.PersonTracks {
		tl.PersonTracks[i].Role = b.opts.Roles.Classify(&tl.PersonTracks[i])
	}
	for i := range tl.FaceTracks {
		tl.FaceTracks[i].Role = b.opts.Roles.Classify(&tl.FaceTracks[i])
	}

	tl.Merged = b.mergeEvents(tl)
	tl.Stats = b.summarize(tl)
	tl.ModalityQualities = gradeModalities(tl.Stats)
	tl.Quality = overallGrade(tl.ModalityQualities)

	b.logger.WithFields(logrus.Fields{
		"object_events": tl.Stats.ObjectEvents,
		"person_events": tl.Stats.PersonEvents,
		"face_events":   tl.Stats.FaceEvents,
		"speech_words":  tl.Stats.SpeechWords,
		"quality":       tl.Quality,
	}).Debug("Timeline built")

	return tl
}

// buildBoxTracks flattens nested track/frame structures for a box-bearing
// modality into per-entity tracks sorted by time.
func (b *Builder) buildBoxTracks(annotations []EntityAnnotation, modality Modality) []Track {
	tracks := make([]Track, 0, len(annotations))

	for ai := range annotations {
		ann := &annotations[ai]
		name := ann.Description()

		for ti := range ann.Tracks {
			raw := &ann.Tracks[ti]
			events := make([]TimedEvent, 0, len(raw.TimestampedObjects))

			for _, frame := range raw.TimestampedObjects {
				if frame.NormalizedBoundingBox == nil {
					continue
				}
				conf := b.frameConfidence(&frame, raw, ann)
				if modality == ModalityObject && conf < b.opts.ObjectConfidenceFloor {
					continue
				}

				box := BoundingBox{
					Left:   frame.NormalizedBoundingBox.Left,
					Top:    frame.NormalizedBoundingBox.Top,
					Right:  frame.NormalizedBoundingBox.Right,
					Bottom: frame.NormalizedBoundingBox.Bottom,
				}
				event := TimedEvent{
					Time:       NormalizeTimeOffset(frame.TimeOffset),
					Modality:   modality,
					Confidence: conf,
				}
				switch modality {
				case ModalityObject:
					event.Object = &ObjectPayload{Name: name, Box: box, Center: box.Center(), Size: box.Area()}
				case ModalityPerson:
					event.Person = &PersonPayload{Box: box, Center: box.Center(), Size: box.Area(), Attributes: attributeMap(frame.Attributes)}
				case ModalityFace:
					event.Face = &FacePayload{Box: box, Center: box.Center(), Size: box.Area()}
				}
				events = append(events, event)
			}

			if len(events) == 0 {
				continue
			}
			sort.SliceStable(events, func(i, j int) bool { return events[i].Time < events[j].Time })

			track := Track{
				EntityID: fmt.Sprintf("%s_%d_%d", modality, ai, ti),
				Role:     RoleUnknown,
				Events:   events,
			}
			if modality == ModalityObject {
				track.ObjectName = name
			}
			tracks = append(tracks, track)
		}
	}

	return tracks
}

// frameConfidence resolves the native confidence for a frame, falling back
// through track and annotation confidence before the "no signal" default.
func (b *Builder) frameConfidence(frame *TimestampedObject, track *DetectedTrack, ann *EntityAnnotation) float64 {
	if frame.Confidence != nil {
		return *frame.Confidence
	}
	if track.Confidence != nil {
		return *track.Confidence
	}
	if ann.Confidence != nil {
		return *ann.Confidence
	}
	return b.opts.DefaultConfidence
}

func attributeMap(attrs []DetectedAttribute) map[string]float64 {
	if len(attrs) == 0 {
		return nil
	}
	m := make(map[string]float64, len(attrs))
	for _, a := range attrs {
		if a.Name != "" {
			m[a.Name] = a.Confidence
		}
	}
	return m
}

// buildTranscript groups word-level tokens into utterances by contiguous
// speaker tag. Only the top-ranked alternative of each transcription result is
// used; entries whose joined text trims to empty are dropped.
func (b *Builder) buildTranscript(transcriptions []SpeechTranscription) []TranscriptEntry {
	type timedWord struct {
		word    string
		speaker string
		start   float64
		end     float64
		conf    float64
	}

	var words []timedWord
	for _, tr := range transcriptions {
		if len(tr.Alternatives) == 0 {
			continue
		}
		alt := tr.Alternatives[0]
		for _, w := range alt.Words {
			words = append(words, timedWord{
				word:    w.Word,
				speaker: speakerLabel(w.SpeakerTag),
				start:   NormalizeTimeOffset(w.StartTime),
				end:     NormalizeTimeOffset(w.EndTime),
				conf:    w.Confidence,
			})
		}
	}
	if len(words) == 0 {
		return nil
	}

	sort.SliceStable(words, func(i, j int) bool { return words[i].start < words[j].start })

	var entries []TranscriptEntry
	var current *TranscriptEntry
	var parts []string

	flush := func() {
		if current == nil {
			return
		}
		current.Text = strings.TrimSpace(strings.Join(parts, " "))
		if current.Text != "" {
			entries = append(entries, *current)
		}
		current = nil
		parts = nil
	}

	for _, w := range words {
		if current == nil || current.Speaker != w.speaker {
			flush()
			current = &TranscriptEntry{Speaker: w.speaker, Time: w.start}
		}
		current.EndTime = w.end
		current.WordConfidences = append(current.WordConfidences, w.conf)
		parts = append(parts, w.word)
	}
	flush()

	return entries
}

func speakerLabel(tag int) string {
	if tag == 0 {
		return "speaker_unknown"
	}
	return fmt.Sprintf("speaker_%d", tag)
}

func (b *Builder) buildShotEvents(shots []ShotChange) []TimedEvent {
	events := make([]TimedEvent, 0, len(shots))
	for _, s := range shots {
		start := NormalizeTimeOffset(s.StartTimeOffset)
		end := NormalizeTimeOffset(s.EndTimeOffset)
		events = append(events, TimedEvent{
			Time:       start,
			Modality:   ModalityShot,
			Confidence: 1,
			Shot:       &ShotPayload{Start: start, End: end},
		})
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Time < events[j].Time })
	return events
}

// mergeEvents produces the single time-sorted timeline across all modalities.
func (b *Builder) mergeEvents(tl *Timeline) []TimelineEvent {
	var merged []TimelineEvent

	addTracks := func(tracks []Track) {
		for i := range tracks {
			for _, e := range tracks[i].Events {
				merged = append(merged, TimelineEvent{
					Time:       e.Time,
					Modality:   e.Modality,
					Confidence: e.Confidence,
					Summary:    e.Summary(),
				})
			}
		}
	}
	addTracks(tl.ObjectTracks)
	addTracks(tl.PersonTracks)
	addTracks(tl.FaceTracks)

	for _, entry := range tl.Transcript {
		merged = append(merged, TimelineEvent{
			Time:       entry.Time,
			Modality:   ModalitySpeech,
			Confidence: meanConfidence(entry.WordConfidences),
			Summary:    fmt.Sprintf("%s: %q", entry.Speaker, entry.Text),
		})
	}
	for _, e := range tl.ShotEvents {
		merged = append(merged, TimelineEvent{
			Time:       e.Time,
			Modality:   ModalityShot,
			Confidence: e.Confidence,
			Summary:    e.Summary(),
		})
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Time < merged[j].Time })
	return merged
}

func meanConfidence(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func (b *Builder) summarize(tl *Timeline) SummaryStats {
	stats := SummaryStats{MeanConfidence: make(map[Modality]float64)}

	var confSum = map[Modality]float64{}
	var confN = map[Modality]int{}
	var maxTime float64

	countTracks := func(tracks []Track) int {
		total := 0
		for i := range tracks {
			total += len(tracks[i].Events)
			for _, e := range tracks[i].Events {
				confSum[e.Modality] += e.Confidence
				confN[e.Modality]++
				if e.Time > maxTime {
					maxTime = e.Time
				}
			}
		}
		return total
	}

	stats.ObjectEvents = countTracks(tl.ObjectTracks)
	stats.PersonEvents = countTracks(tl.PersonTracks)
	stats.FaceEvents = countTracks(tl.FaceTracks)
	stats.ObjectCount = len(distinctObjectNames(tl.ObjectTracks))
	stats.PersonCount = len(tl.PersonTracks)
	stats.FaceCount = len(tl.FaceTracks)
	stats.ShotCount = len(tl.ShotEvents)

	speakers := map[string]struct{}{}
	for _, entry := range tl.Transcript {
		stats.SpeechWords += entry.WordCount()
		speakers[entry.Speaker] = struct{}{}
		confSum[ModalitySpeech] += meanConfidence(entry.WordConfidences) * float64(entry.WordCount())
		confN[ModalitySpeech] += entry.WordCount()
		if entry.EndTime > maxTime {
			maxTime = entry.EndTime
		}
	}
	stats.SpeakerCount = len(speakers)

	for _, e := range tl.ShotEvents {
		if e.Shot != nil && e.Shot.End > maxTime {
			maxTime = e.Shot.End
		}
	}
	stats.Duration = maxTime

	for m, n := range confN {
		if n > 0 {
			stats.MeanConfidence[m] = confSum[m] / float64(n)
		}
	}
	return stats
}

func distinctObjectNames(tracks []Track) map[string]struct{} {
	names := map[string]struct{}{}
	for i := range tracks {
		if tracks[i].ObjectName != "" {
			names[tracks[i].ObjectName] = struct{}{}
		}
	}
	return names
}

// gradeModalities classifies each modality's coverage from event counts. The
// thresholds are intentionally coarse; the grade tempers scoring confidence
// and never gates computation.
func gradeModalities(stats SummaryStats) map[Modality]DataQualityGrade {
	grades := make(map[Modality]DataQualityGrade, 4)

	switch {
	case stats.PersonCount >= 2 && stats.PersonEvents > 100:
		grades[ModalityPerson] = QualityExcellent
	case stats.PersonCount >= 2 && stats.PersonEvents > 30:
		grades[ModalityPerson] = QualityGood
	case stats.PersonCount >= 1 && stats.PersonEvents > 10:
		grades[ModalityPerson] = QualityFair
	default:
		grades[ModalityPerson] = QualityPoor
	}

	switch {
	case stats.FaceCount >= 2 && stats.FaceEvents > 60:
		grades[ModalityFace] = QualityExcellent
	case stats.FaceCount >= 2 && stats.FaceEvents > 20:
		grades[ModalityFace] = QualityGood
	case stats.FaceEvents > 10:
		grades[ModalityFace] = QualityFair
	default:
		grades[ModalityFace] = QualityPoor
	}

	switch {
	case stats.ObjectCount >= 3 && stats.ObjectEvents > 100:
		grades[ModalityObject] = QualityExcellent
	case stats.ObjectCount >= 2 && stats.ObjectEvents > 30:
		grades[ModalityObject] = QualityGood
	case stats.ObjectEvents > 10:
		grades[ModalityObject] = QualityFair
	default:
		grades[ModalityObject] = QualityPoor
	}

	switch {
	case stats.SpeakerCount >= 2 && stats.SpeechWords > 200:
		grades[ModalitySpeech] = QualityExcellent
	case stats.SpeechWords > 80:
		grades[ModalitySpeech] = QualityGood
	case stats.SpeechWords > 20:
		grades[ModalitySpeech] = QualityFair
	default:
		grades[ModalitySpeech] = QualityPoor
	}

	return grades
}

var gradePoints = map[DataQualityGrade]int{
	QualityExcellent: 3,
	QualityGood:      2,
	QualityFair:      1,
	QualityPoor:      0,
}

// overallGrade averages the per-modality grades. Rounding is downward so a
// single strong modality cannot mask three absent ones.
func overallGrade(grades map[Modality]DataQualityGrade) DataQualityGrade {
	if len(grades) == 0 {
		return QualityPoor
	}
	total := 0
	for _, g := range grades {
		total += gradePoints[g]
	}
	switch total / len(grades) {
	case 3:
		return QualityExcellent
	case 2:
		return QualityGood
	case 1:
		return QualityFair
	default:
		return QualityPoor
	}
}
