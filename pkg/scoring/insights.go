package scoring

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"interaction-analyzer/pkg/analyzer"
)

// Insights are the qualitative findings accompanying a score set.
type Insights struct {
	Strengths           []string `json:"strengths,omitempty"`
	AreasForImprovement []string `json:"areasForImprovement,omitempty"`
	Recommendations     []string `json:"recommendations,omitempty"`
	Summary             string   `json:"summary"`
}

// categoryInsight holds the per-category wording.
type categoryInsight struct {
	name           string
	strength       string
	improvement    string
	recommendation string
}

var categoryInsights = []categoryInsight{
	{
		name:           "physical engagement",
		strength:       "Strong physical engagement: participants stayed close and moved together throughout the session.",
		improvement:    "Physical engagement was limited; participants spent much of the session apart.",
		recommendation: "Try floor-level activities that bring both participants into a shared space, such as building or ball games.",
	},
	{
		name:           "communication quality",
		strength:       "Rich verbal exchange with frequent, balanced turn-taking.",
		improvement:    "Verbal exchange was sparse or one-sided during this session.",
		recommendation: "Narrate play aloud and leave pauses for responses to invite more back-and-forth conversation.",
	},
	{
		name:           "emotional connection",
		strength:       "Frequent face-to-face moments indicate a strong emotional connection.",
		improvement:    "Few face-to-face moments were detected between the participants.",
		recommendation: "Position activities so participants naturally face each other, and mirror expressions during play.",
	},
	{
		name:           "play creativity",
		strength:       "Varied, sustained play across multiple objects shows strong creative engagement.",
		improvement:    "Play stayed within a narrow range of objects and activities.",
		recommendation: "Rotate in a few new or open-ended toys and follow the child's lead when interest shifts.",
	},
}

// Relative thresholds against the session's own category average. Absolute
// cut points would over- or under-flag sessions with globally low or high
// detection quality.
const (
	strengthFactor    = 1.1
	improvementFactor = 0.9
)

// Generator converts score sets into human-readable findings.
type Generator struct {
	logger *logrus.Entry
}

// NewGenerator constructs an insight Generator.
func NewGenerator(logger *logrus.Logger) *Generator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Generator{logger: logger.WithField("component", "insight_generator")}
}

// Generate emits strengths, improvement areas with matching recommendations,
// and a narrative summary. Thresholds are always relative to the session's
// computed category average.
func (g *Generator) Generate(set ScoreSet, conv analyzer.ConversationResult, play analyzer.PlayResult) Insights {
	scores := []float64{
		set.Categories.PhysicalEngagement,
		set.Categories.CommunicationQuality,
		set.Categories.EmotionalConnection,
		set.Categories.PlayCreativity,
	}

	var avg float64
	for _, s := range scores {
		avg += s
	}
	avg /= float64(len(scores))

	insights := Insights{}
	for i, score := range scores {
		ci := categoryInsights[i]
		switch {
		case score >= avg*strengthFactor:
			insights.Strengths = append(insights.Strengths, ci.strength)
		case score <= avg*improvementFactor:
			insights.AreasForImprovement = append(insights.AreasForImprovement, ci.improvement)
			insights.Recommendations = append(insights.Recommendations, ci.recommendation)
		}
	}

	insights.Strengths = append(insights.Strengths, observationalStrengths(conv, play)...)
	insights.Summary = g.summary(set, avg)

	g.logger.WithFields(logrus.Fields{
		"strengths":    len(insights.Strengths),
		"improvements": len(insights.AreasForImprovement),
	}).Debug("Insights generated")

	return insights
}

// observationalStrengths adds findings tied to concrete analyzer observations
// rather than score deltas.
func observationalStrengths(conv analyzer.ConversationResult, play analyzer.PlayResult) []string {
	var found []string
	if conv.TurnTaking.Transitions >= 10 {
		found = append(found, fmt.Sprintf(
			"Lively dialogue: %d speaker transitions were observed.", conv.TurnTaking.Transitions))
	}
	if len(play.CooperativePatterns) > 0 {
		var total float64
		for _, p := range play.CooperativePatterns {
			total += p.Duration
		}
		found = append(found, fmt.Sprintf(
			"Cooperative play sustained for %.0f seconds across %d episodes.",
			total, len(play.CooperativePatterns)))
	}
	return found
}

func (g *Generator) summary(set ScoreSet, avg float64) string {
	var tone string
	switch {
	case set.OverallDevelopment >= 7.5:
		tone = "a highly engaged interaction"
	case set.OverallDevelopment >= 5:
		tone = "a moderately engaged interaction"
	default:
		tone = "a low-engagement interaction"
	}

	var caveat string
	if set.Quality == "poor" || set.Quality == "fair" {
		caveat = fmt.Sprintf(" Detection coverage was %s, so scores are conservative.", set.Quality)
	}

	return strings.TrimSpace(fmt.Sprintf(
		"This session shows %s with an overall score of %.1f (category average %.1f).%s",
		tone, set.OverallDevelopment, avg, caveat))
}
