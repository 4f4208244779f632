package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/urfave/cli.v1"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/movie-search/pkg/kafka"
)

// sanityTerm is looked up after a build to show the index answers queries.
const sanityTerm = "merida"

var buildCommand = cli.Command{
	Name:  "build",
	Usage: "Index the dataset and save a snapshot",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "dataset, d", Usage: "dataset path, overrides dataset.moviesPath"},
	},
	Action: runBuild,
}

func runBuild(c *cli.Context) error {
	ctx := context.Background()
	e, err := setup(ctx, c, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer e.Close()

	path := e.cfg.Dataset.MoviesPath
	if c.IsSet("dataset") {
		path = c.String("dataset")
	}

	start := time.Now()
	engine := indexer.New(e.tok, e.store, e.metrics)
	if err := engine.BuildFromFile(ctx, path); err != nil {
		return fmt.Errorf("building index: %w", err)
	}
	if err := engine.Save(ctx); err != nil {
		return err
	}
	slog.Info("snapshot saved", "build_id", engine.BuildID(), "backend", e.cfg.Index.Backend)

	if e.cfg.Kafka.Enabled {
		publishBuild(ctx, e.cfg.Kafka, engine, time.Since(start))
	}
	printSanityCheck(c.App.Writer, engine, e.tok)
	return nil
}

func printSanityCheck(w io.Writer, engine *indexer.Engine, tok *tokenizer.Tokenizer) {
	terms := tok.Tokenize(sanityTerm)
	if len(terms) == 0 {
		fmt.Fprintf(w, "No documents found for %q\n", sanityTerm)
		return
	}
	ids := engine.GetDocuments(terms[0])
	if len(ids) == 0 {
		fmt.Fprintf(w, "No documents found for %q\n", sanityTerm)
		return
	}
	fmt.Fprintf(w, "Printing documents: %d\n", ids[0])
}

// publishBuild announces the build on the analytics topic. Failure is logged
// and does not fail the build.
func publishBuild(ctx context.Context, cfg config.KafkaConfig, engine *indexer.Engine, took time.Duration) {
	producer := kafka.NewProducer(cfg)
	defer producer.Close()

	event := analytics.BuildEvent{
		Type:       analytics.EventBuild,
		BuildID:    engine.BuildID(),
		Documents:  engine.Docs().Len(),
		Terms:      engine.Index().Terms(),
		DurationMs: took.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}
	if err := producer.Publish(ctx, kafka.Event{Key: event.BuildID, Value: event}); err != nil {
		slog.Warn("build event not published", "error", err)
	}
}
