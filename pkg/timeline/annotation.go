package timeline

import "strings"

// AnnotationPayload is the raw output of the upstream video/speech understanding
// service. Every time offset is kept loosely typed because the upstream encodes
// them inconsistently across detectors (float seconds, "12.5s" strings, or
// {seconds, nanos} pairs); NormalizeTimeOffset resolves them once at the
// builder boundary.
type AnnotationPayload struct {
	ObjectTracking      []EntityAnnotation    `json:"objectTracking,omitempty"`
	PersonDetection     []EntityAnnotation    `json:"personDetection,omitempty"`
	FaceDetection       []EntityAnnotation    `json:"faceDetection,omitempty"`
	SpeechTranscription []SpeechTranscription `json:"speechTranscription,omitempty"`
	ShotChanges         []ShotChange          `json:"shotChanges,omitempty"`
}

// IsEmpty reports whether every modality is simultaneously absent. This is the
// one catastrophic precondition the pipeline surfaces to callers.
func (p *AnnotationPayload) IsEmpty() bool {
	if p == nil {
		return true
	}
	return len(p.ObjectTracking) == 0 &&
		len(p.PersonDetection) == 0 &&
		len(p.FaceDetection) == 0 &&
		len(p.SpeechTranscription) == 0
}

// EntityAnnotation is one detected entity (object category, person, or face)
// with its tracked appearances.
type EntityAnnotation struct {
	Entity     *DetectedEntity `json:"entity,omitempty"`
	Category   *DetectedEntity `json:"category,omitempty"`
	Confidence *float64        `json:"confidence,omitempty"`
	Tracks     []DetectedTrack `json:"tracks,omitempty"`
}

// Description returns the best available human-readable name for the entity.
func (a *EntityAnnotation) Description() string {
	if a.Entity != nil && a.Entity.Description != "" {
		return strings.ToLower(a.Entity.Description)
	}
	if a.Category != nil && a.Category.Description != "" {
		return strings.ToLower(a.Category.Description)
	}
	return "unknown"
}

// DetectedEntity identifies what was detected.
type DetectedEntity struct {
	EntityID    string `json:"entityId,omitempty"`
	Description string `json:"description,omitempty"`
	Language    string `json:"languageCode,omitempty"`
}

// DetectedTrack is one contiguous appearance of an entity.
type DetectedTrack struct {
	Segment            *TrackSegment       `json:"segment,omitempty"`
	TimestampedObjects []TimestampedObject `json:"timestampedObjects,omitempty"`
	Confidence         *float64            `json:"confidence,omitempty"`
}

// TrackSegment bounds a track in time.
type TrackSegment struct {
	StartTimeOffset interface{} `json:"startTimeOffset,omitempty"`
	EndTimeOffset   interface{} `json:"endTimeOffset,omitempty"`
}

// TimestampedObject is a single detection frame within a track.
type TimestampedObject struct {
	TimeOffset            interface{}            `json:"timeOffset,omitempty"`
	NormalizedBoundingBox *NormalizedBoundingBox `json:"normalizedBoundingBox,omitempty"`
	Confidence            *float64               `json:"confidence,omitempty"`
	Attributes            []DetectedAttribute    `json:"attributes,omitempty"`
}

// DetectedAttribute is an upstream-provided attribute of a detection frame.
type DetectedAttribute struct {
	Name       string  `json:"name,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Value      string  `json:"value,omitempty"`
}

// NormalizedBoundingBox uses normalized [0,1] coordinates. Upstream does not
// guarantee left<right or top<bottom, so consumers must tolerate degenerate
// boxes.
type NormalizedBoundingBox struct {
	Left   float64 `json:"left,omitempty"`
	Top    float64 `json:"top,omitempty"`
	Right  float64 `json:"right,omitempty"`
	Bottom float64 `json:"bottom,omitempty"`
}

// SpeechTranscription is one transcription result with ranked alternatives.
type SpeechTranscription struct {
	Alternatives []SpeechAlternative `json:"alternatives,omitempty"`
	LanguageCode string              `json:"languageCode,omitempty"`
}

// SpeechAlternative is one transcription hypothesis with word-level timing.
type SpeechAlternative struct {
	Transcript string     `json:"transcript,omitempty"`
	Confidence float64    `json:"confidence,omitempty"`
	Words      []WordInfo `json:"words,omitempty"`
}

// WordInfo is a single recognized word with timing and speaker attribution.
type WordInfo struct {
	Word       string      `json:"word,omitempty"`
	StartTime  interface{} `json:"startTime,omitempty"`
	EndTime    interface{} `json:"endTime,omitempty"`
	Confidence float64     `json:"confidence,omitempty"`
	SpeakerTag int         `json:"speakerTag,omitempty"`
}

// ShotChange marks a camera shot boundary.
type ShotChange struct {
	StartTimeOffset interface{} `json:"startTimeOffset,omitempty"`
	EndTimeOffset   interface{} `json:"endTimeOffset,omitempty"`
}
