package analyzer

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"interaction-analyzer/pkg/timeline"
)

const (
	// quickResponseSeconds bounds the silence after a turn that still reads
	// as a responsive reply.
	quickResponseSeconds = 5.0
)

// ConversationOptions tunes the turn-taking analysis.
type ConversationOptions struct {
	// TurnGapSeconds is the maximum gap between utterance starts for a
	// speaker change to count as a turn transition.
	TurnGapSeconds float64
}

// DefaultConversationOptions returns the production defaults.
func DefaultConversationOptions() ConversationOptions {
	return ConversationOptions{TurnGapSeconds: 30}
}

// SpeakerProfile summarizes one speaker's participation.
type SpeakerProfile struct {
	Speaker           string        `json:"speaker"`
	WordCount         int           `json:"wordCount"`
	TurnCount         int           `json:"turnCount"`
	AverageConfidence float64       `json:"averageConfidence"`
	TurnShare         float64       `json:"turnShare"`
	Role              timeline.Role `json:"role"`
}

// TurnTaking captures the structural conversation signals.
type TurnTaking struct {
	TotalTurns        int                `json:"totalTurns"`
	Transitions       int                `json:"transitions"`
	Interruptions     int                `json:"interruptions"`
	AverageTurnLength float64            `json:"averageTurnLength"`
	Balance           map[string]float64 `json:"balance,omitempty"`
}

// SpeechTiming captures when and how densely speech occurred.
type SpeechTiming struct {
	FirstSpeech        float64 `json:"firstSpeech"`
	LastSpeech         float64 `json:"lastSpeech"`
	TotalDuration      float64 `json:"totalDuration"`
	AverageResponseGap float64 `json:"averageResponseGap"`
	Responsiveness     float64 `json:"responsiveness"`
}

// ConversationResult is the output of the conversation analysis.
type ConversationResult struct {
	TurnTaking                 TurnTaking                `json:"turnTaking"`
	SpeechTiming               SpeechTiming              `json:"speechTiming"`
	SpeakerProfiles            map[string]SpeakerProfile `json:"speakerProfiles,omitempty"`
	WordConfidenceDistribution [5]int                    `json:"wordConfidenceDistribution"`
	TotalWords                 int                       `json:"totalWords"`
	AverageWordConfidence      float64                   `json:"averageWordConfidence"`
}

// ConversationAnalyzer derives turn-taking, balance and responsiveness from
// speaker-tagged transcript entries.
type ConversationAnalyzer struct {
	logger *logrus.Entry
	opts   ConversationOptions
}

// NewConversationAnalyzer constructs a ConversationAnalyzer.
func NewConversationAnalyzer(logger *logrus.Logger, opts ConversationOptions) *ConversationAnalyzer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.TurnGapSeconds <= 0 {
		opts.TurnGapSeconds = 30
	}
	return &ConversationAnalyzer{
		logger: logger.WithField("component", "conversation_analyzer"),
		opts:   opts,
	}
}

// Analyze computes conversation signals. An empty transcript yields a zero
// result, never an error.
func (a *ConversationAnalyzer) Analyze(entries []timeline.TranscriptEntry) ConversationResult {
	result := ConversationResult{SpeakerProfiles: map[string]SpeakerProfile{}}
	if len(entries) == 0 {
		return result
	}

	result.TurnTaking.TotalTurns = len(entries)
	result.SpeechTiming.FirstSpeech = entries[0].Time
	result.SpeechTiming.LastSpeech = entries[len(entries)-1].EndTime

	var confSum float64
	var gapSum float64
	var gapCount, quickCount int

	for i := range entries {
		entry := &entries[i]

		profile := result.SpeakerProfiles[entry.Speaker]
		profile.Speaker = entry.Speaker
		profile.TurnCount++
		profile.WordCount += entry.WordCount()
		result.SpeakerProfiles[entry.Speaker] = profile

		for _, c := range entry.WordConfidences {
			result.TotalWords++
			confSum += c
			bin := int(c / 0.2)
			if bin > 4 {
				bin = 4
			}
			if bin < 0 {
				bin = 0
			}
			result.WordConfidenceDistribution[bin]++
		}

		result.SpeechTiming.TotalDuration += math.Max(0, entry.EndTime-entry.Time)

		if i == 0 {
			continue
		}
		prev := &entries[i-1]
		if entry.Speaker == prev.Speaker {
			continue
		}

		if entry.Time-prev.Time <= a.opts.TurnGapSeconds {
			result.TurnTaking.Transitions++
		}
		if entry.Time < prev.EndTime {
			result.TurnTaking.Interruptions++
		}

		gap := math.Max(0, entry.Time-prev.EndTime)
		gapSum += gap
		gapCount++
		if gap <= quickResponseSeconds {
			quickCount++
		}
	}

	if result.TotalWords > 0 {
		result.AverageWordConfidence = confSum / float64(result.TotalWords)
		result.TurnTaking.AverageTurnLength = float64(result.TotalWords) / float64(len(entries))
	}
	if gapCount > 0 {
		result.SpeechTiming.AverageResponseGap = gapSum / float64(gapCount)
		result.SpeechTiming.Responsiveness = float64(quickCount) / float64(gapCount)
	}

	result.TurnTaking.Balance = a.finishProfiles(result.SpeakerProfiles, entries, len(entries))

	a.logger.WithFields(logrus.Fields{
		"turns":       result.TurnTaking.TotalTurns,
		"transitions": result.TurnTaking.Transitions,
		"speakers":    len(result.SpeakerProfiles),
	}).Debug("Conversation analysis complete")

	return result
}

// finishProfiles fills per-speaker averages, turn shares and the inferred
// role. The speaker with the longer average turn is taken as the adult; a
// crude parallel to the face-size role policy.
func (a *ConversationAnalyzer) finishProfiles(profiles map[string]SpeakerProfile, entries []timeline.TranscriptEntry, totalTurns int) map[string]float64 {
	perSpeakerConf := map[string]float64{}
	perSpeakerWords := map[string]int{}
	for i := range entries {
		for _, c := range entries[i].WordConfidences {
			perSpeakerConf[entries[i].Speaker] += c
			perSpeakerWords[entries[i].Speaker]++
		}
	}

	// Deterministic speaker order so role assignment cannot flip between
	// runs on tied turn lengths.
	speakers := make([]string, 0, len(profiles))
	for speaker := range profiles {
		speakers = append(speakers, speaker)
	}
	sort.Strings(speakers)

	balance := make(map[string]float64, len(profiles))
	var longest string
	var longestAvg float64

	for _, speaker := range speakers {
		profile := profiles[speaker]
		if n := perSpeakerWords[speaker]; n > 0 {
			profile.AverageConfidence = perSpeakerConf[speaker] / float64(n)
		}
		profile.TurnShare = float64(profile.TurnCount) / float64(totalTurns)
		profile.Role = timeline.RoleUnknown
		profiles[speaker] = profile
		balance[speaker] = profile.TurnShare

		avgTurn := float64(profile.WordCount) / float64(profile.TurnCount)
		if avgTurn > longestAvg {
			longestAvg = avgTurn
			longest = speaker
		}
	}

	if len(profiles) >= 2 {
		for speaker, profile := range profiles {
			if speaker == longest {
				profile.Role = timeline.RoleParent
			} else {
				profile.Role = timeline.RoleChild
			}
			profiles[speaker] = profile
		}
	}

	return balance
}
