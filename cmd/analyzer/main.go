package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"interaction-analyzer/pkg/analyzer"
	"interaction-analyzer/pkg/config"
	pkgerrors "interaction-analyzer/pkg/errors"
	"interaction-analyzer/pkg/interaction"
	"interaction-analyzer/pkg/messaging"
	"interaction-analyzer/pkg/metrics"
	"interaction-analyzer/pkg/timeline"
	"interaction-analyzer/pkg/version"
)

var logger = logrus.New()

func main() {
	inputPath := flag.String("input", "", "path to the annotation payload JSON")
	outputPath := flag.String("output", "", "path for the result JSON (default stdout)")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.UserAgent())
		return
	}
	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "usage: analyzer -input annotations.json [-output result.json]")
		os.Exit(2)
	}

	cfg, err := config.Load(logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	cfg.ApplyLogging(logger)

	metrics.Init(logger)
	metrics.SetEnabled(cfg.Metrics.Enabled)
	if cfg.Metrics.ListenAddr != "" {
		go serveMetrics(cfg.Metrics.ListenAddr)
	}

	payload, err := readPayload(*inputPath)
	if err != nil {
		logger.WithError(err).WithField("path", *inputPath).Fatal("Failed to read annotation payload")
	}

	pipeline, err := interaction.NewPipeline(logger, pipelineOptions(cfg))
	if err != nil {
		logger.WithError(err).Fatal("Failed to construct pipeline")
	}

	result, err := pipeline.Analyze(context.Background(), payload)
	if err != nil {
		logger.WithError(err).Fatal("Analysis failed")
	}
	if result.Empty {
		logger.WithError(pkgerrors.ErrNoAnnotationData).Warn("Emitting sentinel result")
	}

	if err := writeResult(result, *outputPath); err != nil {
		logger.WithError(err).Fatal("Failed to write result")
	}

	if cfg.Messaging.Enabled {
		publishResult(cfg, result)
	}
}

func pipelineOptions(cfg *config.Config) interaction.Options {
	builder := timeline.DefaultBuilderOptions()
	builder.Roles = &timeline.FaceSizeRoleClassifier{ParentThreshold: cfg.Analysis.ParentFaceSize}

	return interaction.Options{
		Builder: builder,
		Proximity: analyzer.ProximityOptions{
			BucketSeconds:      cfg.Analysis.BucketSeconds,
			ProximityThreshold: cfg.Analysis.ProximityThreshold,
		},
		Face: analyzer.FaceOptions{
			BucketSeconds: cfg.Analysis.BucketSeconds,
		},
		Conversation: analyzer.ConversationOptions{
			TurnGapSeconds: cfg.Analysis.TurnGapSeconds,
		},
		Play: func() analyzer.PlayOptions {
			opts := analyzer.DefaultPlayOptions()
			opts.ToyConfidenceThreshold = cfg.Analysis.ToyConfidenceThreshold
			return opts
		}(),
		Depth:      cfg.Analysis.Depth,
		Sequential: cfg.Analysis.Sequential,
	}
}

func readPayload(path string) (*timeline.AnnotationPayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	payload := &timeline.AnnotationPayload{}
	if err := json.Unmarshal(data, payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrInvalidAnnotation, "failed to decode annotation payload",
			map[string]interface{}{"cause": err.Error()})
	}
	return payload, nil
}

func writeResult(result *interaction.Result, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	if path == "" {
		_, err = os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func publishResult(cfg *config.Config, result *interaction.Result) {
	publisher := messaging.NewPublisher(logger, messaging.PublisherConfig{
		URL:          cfg.Messaging.URL,
		QueueName:    cfg.Messaging.QueueName,
		ExchangeName: cfg.Messaging.ExchangeName,
		Durable:      true,
	})
	if err := publisher.Connect(); err != nil {
		logger.WithError(err).Error("Failed to connect result publisher")
		return
	}
	defer publisher.Close()

	if err := publisher.Publish(result); err != nil {
		logger.WithError(err).Error("Failed to publish result")
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	logger.WithField("addr", addr).Info("Serving metrics")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.WithError(err).Warn("Metrics server stopped")
	}
}
