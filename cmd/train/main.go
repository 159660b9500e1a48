// Command train retrains the intent classifier from the knowledge
// documents and writes the artifact, optionally uploading a snapshot to
// object storage. Run it after editing the knowledge base to pay the
// training cost once instead of on the next server start.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/campusbot/campus-chatbot-go/internal/artifact"
	"github.com/campusbot/campus-chatbot-go/internal/classifier"
	"github.com/campusbot/campus-chatbot-go/internal/config"
	"github.com/campusbot/campus-chatbot-go/internal/knowledge"
	"github.com/campusbot/campus-chatbot-go/internal/logger"
	"github.com/campusbot/campus-chatbot-go/internal/nlp"
)

const artifactKey = "classifier.json"

func main() {
	force := flag.Bool("force", false, "retrain even when the artifact matches the knowledge base")
	upload := flag.Bool("upload", false, "upload the artifact snapshot to object storage")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)

	var (
		base  *knowledge.Base
		table *knowledge.RuleTable
	)
	var g errgroup.Group
	g.Go(func() error {
		var err error
		base, err = knowledge.LoadBase(cfg.KnowledgeBasePath)
		return err
	})
	g.Go(func() error {
		var err error
		table, err = knowledge.LoadRuleTable(cfg.RuleTablePath)
		return err
	})
	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Failed to load knowledge documents")
		os.Exit(1)
	}
	log.WithFields(map[string]any{
		"intents": base.Len(),
		"rules":   table.Len(),
	}).Info("Knowledge documents loaded")

	pre, err := nlp.NewPreprocessor()
	if err != nil {
		log.WithError(err).Error("Failed to create preprocessor")
		os.Exit(1)
	}

	var examples []classifier.Example
	for _, intent := range base.Intents() {
		for _, pattern := range intent.Patterns {
			examples = append(examples, classifier.Example{
				Text: pre.NormalizeJoined(pattern),
				Tag:  intent.Tag,
			})
		}
	}

	if err := classifier.ValidateCorpus(examples); err != nil {
		log.WithError(err).Error("Knowledge base has no usable training patterns")
		os.Exit(1)
	}

	if !*force {
		if _, err := classifier.Load(cfg.ModelArtifactPath(), base.Hash()); err == nil {
			log.Info("Artifact already matches the knowledge base, nothing to do")
			return
		}
	}

	opts := classifier.TrainOptions{
		Epochs:       cfg.TrainEpochs,
		LearningRate: cfg.TrainLearningRate,
		Threshold:    cfg.ConfidenceThreshold,
	}

	start := time.Now()
	model := classifier.Train(examples, opts)
	model.KBHash = base.Hash()
	log.WithFields(map[string]any{
		"examples":    len(examples),
		"classes":     len(model.Classes),
		"vocab":       len(model.Vocab),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Classifier trained")

	if err := classifier.Save(model, cfg.ModelArtifactPath()); err != nil {
		log.WithError(err).Error("Failed to write classifier artifact")
		os.Exit(1)
	}
	log.WithField("path", cfg.ModelArtifactPath()).Info("Classifier artifact written")

	if *upload {
		if !cfg.HasArtifactStore() {
			log.Error("Upload requested but object storage is not configured")
			os.Exit(1)
		}
		store, err := artifact.New(context.Background(), artifact.Config{
			Endpoint:    cfg.R2Endpoint,
			AccessKeyID: cfg.R2AccessKeyID,
			SecretKey:   cfg.R2SecretKey,
			BucketName:  cfg.R2Bucket,
		}, log)
		if err != nil {
			log.WithError(err).Error("Failed to create artifact store")
			os.Exit(1)
		}
		if err := store.Upload(context.Background(), cfg.ModelArtifactPath(), artifactKey); err != nil {
			log.WithError(err).Error("Failed to upload artifact snapshot")
			os.Exit(1)
		}
		log.Info("Artifact snapshot uploaded")
	}
}
