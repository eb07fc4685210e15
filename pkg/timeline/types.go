package timeline

import (
	"fmt"
	"math"
)

// Modality identifies one independent detection stream.
type Modality string

const (
	ModalityObject Modality = "object"
	ModalityPerson Modality = "person"
	ModalityFace   Modality = "face"
	ModalitySpeech Modality = "speech"
	ModalityShot   Modality = "shot"
)

// Role is the inferred participant role for a tracked person or face.
type Role string

const (
	RoleParent  Role = "parent"
	RoleChild   Role = "child"
	RoleUnknown Role = "unknown"
)

// DataQualityGrade is a coarse classification of how much usable detection
// signal was present. It tempers confidence in the final score but never gates
// computation.
type DataQualityGrade string

const (
	QualityExcellent DataQualityGrade = "excellent"
	QualityGood      DataQualityGrade = "good"
	QualityFair      DataQualityGrade = "fair"
	QualityPoor      DataQualityGrade = "poor"
)

// Point is a position in normalized frame coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundingBox is a detection box in normalized [0,1] coordinates. Degenerate
// boxes (inverted edges) are tolerated; derived values use absolute extents.
type BoundingBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() Point {
	return Point{X: (b.Left + b.Right) / 2, Y: (b.Top + b.Bottom) / 2}
}

// Area returns the box area. Inverted boxes still yield a positive area.
func (b BoundingBox) Area() float64 {
	return math.Abs(b.Right-b.Left) * math.Abs(b.Bottom-b.Top)
}

// TimedEvent is a single detection placed on the fused timeline. Exactly one
// payload pointer is set, matching Modality; events are immutable once built.
type TimedEvent struct {
	Time       float64  `json:"time"`
	Modality   Modality `json:"modality"`
	Confidence float64  `json:"confidence"`

	Object *ObjectPayload `json:"object,omitempty"`
	Person *PersonPayload `json:"person,omitempty"`
	Face   *FacePayload   `json:"face,omitempty"`
	Speech *SpeechPayload `json:"speech,omitempty"`
	Shot   *ShotPayload   `json:"shot,omitempty"`
}

// Summary produces the short per-event description used on the merged timeline.
func (e TimedEvent) Summary() string {
	switch e.Modality {
	case ModalityObject:
		if e.Object != nil {
			return fmt.Sprintf("object %q", e.Object.Name)
		}
	case ModalityPerson:
		if e.Person != nil {
			c := e.Person.Center
			return fmt.Sprintf("person at (%.2f, %.2f)", c.X, c.Y)
		}
	case ModalityFace:
		if e.Face != nil {
			return fmt.Sprintf("face size %.3f", e.Face.Size)
		}
	case ModalitySpeech:
		if e.Speech != nil {
			return fmt.Sprintf("word %q speaker %s", e.Speech.Word, e.Speech.Speaker)
		}
	case ModalityShot:
		if e.Shot != nil {
			return fmt.Sprintf("shot %.1fs-%.1fs", e.Shot.Start, e.Shot.End)
		}
	}
	return string(e.Modality)
}

// ObjectPayload is a tracked-object detection frame.
type ObjectPayload struct {
	Name   string      `json:"name"`
	Box    BoundingBox `json:"box"`
	Center Point       `json:"center"`
	Size   float64     `json:"size"`
}

// PersonPayload is a tracked-person detection frame.
type PersonPayload struct {
	Box        BoundingBox        `json:"box"`
	Center     Point              `json:"center"`
	Size       float64            `json:"size"`
	Attributes map[string]float64 `json:"attributes,omitempty"`
}

// FacePayload is a tracked-face detection frame.
type FacePayload struct {
	Box    BoundingBox `json:"box"`
	Center Point       `json:"center"`
	Size   float64     `json:"size"`
}

// SpeechPayload is one recognized word.
type SpeechPayload struct {
	Word    string  `json:"word"`
	Speaker string  `json:"speaker"`
	EndTime float64 `json:"endTime"`
}

// ShotPayload is a camera shot boundary.
type ShotPayload struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Track is the time-ordered event sequence for one tracked entity. Events are
// strictly non-decreasing in Time.
type Track struct {
	EntityID   string       `json:"entityId"`
	Role       Role         `json:"role,omitempty"`
	ObjectName string       `json:"objectName,omitempty"`
	Events     []TimedEvent `json:"events"`
}

// Start returns the time of the first event, or 0 for an empty track.
func (t *Track) Start() float64 {
	if len(t.Events) == 0 {
		return 0
	}
	return t.Events[0].Time
}

// End returns the time of the last event, or 0 for an empty track.
func (t *Track) End() float64 {
	if len(t.Events) == 0 {
		return 0
	}
	return t.Events[len(t.Events)-1].Time
}

// AverageSize returns the mean box area across all events carrying a box.
func (t *Track) AverageSize() float64 {
	var sum float64
	var n int
	for _, e := range t.Events {
		switch {
		case e.Person != nil:
			sum += e.Person.Size
			n++
		case e.Face != nil:
			sum += e.Face.Size
			n++
		case e.Object != nil:
			sum += e.Object.Size
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// TranscriptEntry is an utterance grouped from contiguous same-speaker words.
type TranscriptEntry struct {
	Speaker         string    `json:"speaker"`
	Time            float64   `json:"time"`
	EndTime         float64   `json:"endTime"`
	Text            string    `json:"text"`
	WordConfidences []float64 `json:"wordConfidences,omitempty"`
}

// WordCount returns the number of words in the utterance.
func (t *TranscriptEntry) WordCount() int {
	return len(t.WordConfidences)
}

// EngagementPeriod is a run of buckets sharing an engagement level.
type EngagementPeriod struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Level string  `json:"level"`
}

// TimelineEvent is a merged-timeline entry tagging each detection with its
// originating modality and a short payload summary.
type TimelineEvent struct {
	Time       float64  `json:"time"`
	Modality   Modality `json:"modality"`
	Confidence float64  `json:"confidence"`
	Summary    string   `json:"summary"`
}

// BucketIndex maps a timestamp onto a fixed-width bucket index. Negative times
// (which only arise from malformed input normalized to 0) land in bucket 0.
func BucketIndex(t, width float64) int {
	if width <= 0 || t <= 0 {
		return 0
	}
	return int(t / width)
}
