package interaction

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"interaction-analyzer/pkg/analyzer"
	"interaction-analyzer/pkg/metrics"
	"interaction-analyzer/pkg/scoring"
	"interaction-analyzer/pkg/timeline"
)

// Options configures the pipeline. Zero-value fields fall back to the
// production defaults, so Options{} is a valid configuration.
type Options struct {
	Builder      timeline.BuilderOptions
	Proximity    analyzer.ProximityOptions
	Face         analyzer.FaceOptions
	Conversation analyzer.ConversationOptions
	Play         analyzer.PlayOptions

	// Weights overrides the score weight table; nil uses the defaults.
	Weights map[string]float64

	// Depth selects how much raw detail the result carries.
	Depth string

	// Sequential disables the concurrent analyzer fan-out. The analyzers
	// read only immutable timeline output, so this exists for debugging,
	// not correctness.
	Sequential bool
}

// Pipeline is the synchronous batch computation turning one annotation
// payload into one Result. It holds no per-invocation state and is safe for
// concurrent use.
type Pipeline struct {
	logger *logrus.Entry

	builder      *timeline.Builder
	proximity    *analyzer.ProximityAnalyzer
	face         *analyzer.FaceAnalyzer
	conversation *analyzer.ConversationAnalyzer
	play         *analyzer.PlayAnalyzer
	aggregator   *scoring.Aggregator
	insights     *scoring.Generator

	depth      string
	sequential bool
}

// NewPipeline wires the pipeline components. The only failure mode is an
// invalid weight table.
func NewPipeline(logger *logrus.Logger, opts Options) (*Pipeline, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.Depth == "" {
		opts.Depth = DepthStandard
	}

	aggregator, err := scoring.NewAggregator(logger, opts.Weights)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		logger:       logger.WithField("component", "interaction_pipeline"),
		builder:      timeline.NewBuilder(logger, opts.Builder),
		proximity:    analyzer.NewProximityAnalyzer(logger, opts.Proximity),
		face:         analyzer.NewFaceAnalyzer(logger, opts.Face),
		conversation: analyzer.NewConversationAnalyzer(logger, opts.Conversation),
		play:         analyzer.NewPlayAnalyzer(logger, opts.Play),
		aggregator:   aggregator,
		insights:     scoring.NewGenerator(logger),
		depth:        opts.Depth,
		sequential:   opts.Sequential,
	}, nil
}

// Analyze runs the full fusion and scoring pipeline over one payload. It
// degrades rather than fails: missing modalities lower the quality grade, and
// an all-empty payload yields the Empty sentinel result with floor scores.
// The only returned error is context cancellation.
func (p *Pipeline) Analyze(ctx context.Context, payload *timeline.AnnotationPayload) (*Result, error) {
	started := time.Now()

	if payload.IsEmpty() {
		p.logger.Warn("All modality inputs empty, returning sentinel result")
		result := p.emptyResult()
		p.stampMetadata(result, started)
		metrics.ObserveAnalysis("empty", p.depth, time.Since(started))
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buildStart := time.Now()
	tl := p.builder.Build(payload)
	metrics.ObserveStage("timeline", time.Since(buildStart))
	p.observeTimeline(tl)

	result := &Result{
		Stats:   tl.Stats,
		Quality: tl.Quality,
	}
	if p.depth == DepthComprehensive {
		result.Merged = tl.Merged
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.runAnalyzers(tl, result)

	aggStart := time.Now()
	result.Scores = p.aggregator.Aggregate(
		result.Proximity, result.Face, result.Conversation, result.Play, tl.Quality)
	result.Insights = p.insights.Generate(result.Scores, result.Conversation, result.Play)
	metrics.ObserveStage("scoring", time.Since(aggStart))

	p.stampMetadata(result, started)

	metrics.ObserveAnalysis("ok", p.depth, time.Since(started))
	metrics.ObserveQuality(string(tl.Quality))
	metrics.ObserveScore(result.Scores.OverallDevelopment)

	p.logger.WithFields(logrus.Fields{
		"analysis_id": result.Metadata.AnalysisID,
		"overall":     result.Scores.OverallDevelopment,
		"quality":     tl.Quality,
		"duration_ms": time.Since(started).Milliseconds(),
	}).Info("Analysis complete")

	return result, nil
}

// runAnalyzers fans the four analyzers out over the immutable timeline. They
// write disjoint result fields, so no locking is needed.
func (p *Pipeline) runAnalyzers(tl *timeline.Timeline, result *Result) {
	stages := []struct {
		name string
		run  func()
	}{
		{"proximity", func() { result.Proximity = p.proximity.Analyze(tl.PersonTracks) }},
		{"face", func() { result.Face = p.face.Analyze(tl.FaceTracks) }},
		{"conversation", func() { result.Conversation = p.conversation.Analyze(tl.Transcript) }},
		{"play", func() { result.Play = p.play.Analyze(tl.ObjectTracks, tl.PersonTracks) }},
	}

	if p.sequential {
		for _, stage := range stages {
			start := time.Now()
			stage.run()
			metrics.ObserveStage(stage.name, time.Since(start))
		}
		return
	}

	var wg sync.WaitGroup
	wg.Add(len(stages))
	for _, stage := range stages {
		stage := stage
		go func() {
			defer wg.Done()
			start := time.Now()
			stage.run()
			metrics.ObserveStage(stage.name, time.Since(start))
		}()
	}
	wg.Wait()
}

// emptyResult builds the documented all-empty sentinel: floor scores under a
// poor quality grade.
func (p *Pipeline) emptyResult() *Result {
	result := &Result{
		Empty:   true,
		Quality: timeline.QualityPoor,
	}
	result.Scores = p.aggregator.Aggregate(
		result.Proximity, result.Face, result.Conversation, result.Play, timeline.QualityPoor)
	result.Insights = p.insights.Generate(result.Scores, result.Conversation, result.Play)
	return result
}

func (p *Pipeline) stampMetadata(result *Result, started time.Time) {
	result.Metadata = Metadata{
		AnalysisID:      uuid.New().String(),
		ProcessedAt:     time.Now().UTC(),
		Duration:        time.Since(started).Seconds(),
		ConfidenceScore: confidenceScore(result),
		AnalysisDepth:   p.depth,
	}
}

// confidenceScore blends the quality multiplier with the mean detection
// confidence across modalities.
func confidenceScore(result *Result) float64 {
	if result.Empty {
		return 0
	}
	var sum float64
	var n int
	for _, c := range result.Stats.MeanConfidence {
		sum += c
		n++
	}
	if n == 0 {
		return 0
	}
	return result.Scores.ConfidenceMultiplier * (sum / float64(n))
}

func (p *Pipeline) observeTimeline(tl *timeline.Timeline) {
	metrics.ObserveTimeline(string(timeline.ModalityObject), tl.Stats.ObjectEvents)
	metrics.ObserveTimeline(string(timeline.ModalityPerson), tl.Stats.PersonEvents)
	metrics.ObserveTimeline(string(timeline.ModalityFace), tl.Stats.FaceEvents)
	metrics.ObserveTimeline(string(timeline.ModalitySpeech), tl.Stats.SpeechWords)
}
