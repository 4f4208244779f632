package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/urfave/cli.v1"

	"github.com/Adithya-Monish-Kumar-K/movie-search/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/movie-search/pkg/errors"
)

var searchCommand = cli.Command{
	Name:      "search",
	Usage:     "Search movie titles",
	ArgsUsage: "<query>",
	Flags: []cli.Flag{
		cli.IntFlag{Name: "limit, n", Value: 5, Usage: "maximum number of results"},
		cli.StringFlag{Name: "mode, m", Usage: "scan or bm25, overrides search.mode"},
	},
	Action: runSearch,
}

func runSearch(c *cli.Context) error {
	if c.NArg() == 0 {
		if err := cli.ShowCommandHelp(c, c.Command.Name); err != nil {
			return err
		}
		return fmt.Errorf("%w: search needs a query", apperrors.ErrInvalidInput)
	}
	ctx := context.Background()
	e, err := setup(ctx, c, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer e.Close()

	limit := e.cfg.Search.DefaultLimit
	if c.IsSet("limit") {
		limit = c.Int("limit")
	}
	mode := e.cfg.Search.Mode
	if c.IsSet("mode") {
		mode = c.String("mode")
	}

	engine, err := e.loadEngine(ctx)
	if err != nil {
		return err
	}
	exec := executor.New(e.tok, engine.Docs(), engine.Index(), executor.Options{
		Mode:        mode,
		MatchFields: e.cfg.Search.MatchFields,
	}, e.metrics)

	query := strings.Join(c.Args(), " ")
	fmt.Fprintf(c.App.Writer, "Searching for: %s\n", query)
	result, err := exec.Search(ctx, query, limit)
	if err != nil {
		return err
	}
	for i, hit := range result.Results {
		fmt.Fprintf(c.App.Writer, "%d. %s\n", i+1, hit.Document.Title)
	}
	return nil
}
