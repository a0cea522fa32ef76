package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"estimatex/internal"
	"estimatex/internal/config"
	"estimatex/internal/docconv"
	"estimatex/internal/dsr"
	"estimatex/internal/pipeline"
	"estimatex/internal/report"
	"estimatex/internal/server"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Debug)
	must(err)
	defer func() { _ = logger.Sync() }()

	vocab, err := config.LoadVocabulary(cfg.VocabPath)
	must(err)

	cmd := os.Args[1]
	switch cmd {
	case "serve":
		store := openStore(cfg)
		defer store.Close()
		svc := newService(cfg, vocab, store, logger)
		srv := server.NewServer(svc, store, vocab, cfg, logger)
		must(srv.Start())
	case "dsr:import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "rate schedule xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*file) == "" {
			must(fmt.Errorf("--file is required"))
		}
		items, err := dsr.ImportXLSX(*file)
		must(err)
		store := openStore(cfg)
		defer store.Close()
		must(store.UpsertItems(context.Background(), items))
		fmt.Printf("schedule import complete: %d items\n", len(items))
	case "estimate":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "intermediate document json path")
		owner := fs.String("owner", "", "owner user id recorded on the report")
		output := fs.String("output", "", "optional report xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}

		blob, err := os.ReadFile(*input)
		must(err)
		doc, err := docconv.ParseDocument(blob)
		must(err)

		store := openStore(cfg)
		defer store.Close()
		svc := newService(cfg, vocab, store, logger)
		outcome := svc.Estimate(context.Background(), doc, *owner)
		fmt.Printf("estimate done items=%d matched=%d total=%.2f report=%s\n",
			outcome.ExtractedItems,
			outcome.CostEstimate.MatchedItems,
			outcome.CostEstimate.TotalCost,
			outcome.ReportID)

		if strings.TrimSpace(*output) != "" && outcome.ReportID != "" {
			rep, err := svc.Reports().Get(outcome.ReportID, *owner)
			must(err)
			must(pipeline.ExportReportToXLSX(rep, *output))
			fmt.Printf("exported %d rows to %s\n", len(rep.CostEstimate.Breakdown), *output)
		}
	case "convert":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "pdf or html file path")
		output := fs.String("output", "", "output document json path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" || strings.TrimSpace(*output) == "" {
			must(fmt.Errorf("--input and --output are required"))
		}
		doc, err := convert(*input)
		must(err)
		blob, err := json.MarshalIndent(doc, "", "  ")
		must(err)
		must(os.MkdirAll(filepath.Dir(*output), 0o755))
		must(os.WriteFile(*output, blob, 0o644))
		fmt.Printf("converted %s: %d pages\n", *input, len(doc.Pages))
	default:
		usage()
		os.Exit(1)
	}
}

func convert(path string) (internal.Document, error) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		blob, err := os.ReadFile(path)
		if err != nil {
			return internal.Document{}, err
		}
		return docconv.FromPDF(blob)
	case strings.HasSuffix(lower, ".html"), strings.HasSuffix(lower, ".htm"):
		f, err := os.Open(path)
		if err != nil {
			return internal.Document{}, err
		}
		defer f.Close()
		return docconv.FromHTML(f)
	default:
		return internal.Document{}, fmt.Errorf("unsupported input type: %s", path)
	}
}

func newService(cfg config.Config, vocab config.Vocabulary, store *dsr.Store, logger *zap.Logger) *pipeline.Service {
	extractor := pipeline.NewExtractor(vocab)
	scorer := pipeline.NewScorer(vocab)
	matcher := pipeline.NewMatcher(store, scorer, cfg, logger)
	reports := report.NewStore(cfg.ReportCapacity)
	return pipeline.NewService(extractor, matcher, reports, cfg.BaseURL, logger)
}

func openStore(cfg config.Config) *dsr.Store {
	store, err := dsr.Open(cfg.DBPath)
	must(err)
	store.ExactLimit = cfg.ExactLimit
	store.FuzzyLimit = cfg.FuzzyLimit
	return store
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func usage() {
	fmt.Println("usage: estimatex <command>")
	fmt.Println("commands:")
	fmt.Println("  serve")
	fmt.Println("  dsr:import --file=./schedule.xlsx")
	fmt.Println("  estimate --input=./doc.json [--owner=user-1] [--output=./out/report.xlsx]")
	fmt.Println("  convert --input=./estimate.pdf --output=./doc.json")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
