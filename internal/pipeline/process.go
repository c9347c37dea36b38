package pipeline

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"d2stats/internal"
	"d2stats/internal/config"
	"d2stats/internal/feeds"
	"d2stats/internal/heroes"
	"d2stats/internal/items"
	"d2stats/internal/storage"
	"d2stats/internal/util"
	"d2stats/internal/viewer"
)

type ProcessingService struct {
	db    *storage.DB
	cfg   config.Config
	sync  *feeds.SyncService
	rules *items.RuleSet
}

func NewProcessingService(db *storage.DB, cfg config.Config) (*ProcessingService, error) {
	rules, err := items.LoadRuleSet(cfg.ItemRulesFile)
	if err != nil {
		return nil, err
	}
	return &ProcessingService{
		db:    db,
		cfg:   cfg,
		sync:  feeds.NewSyncService(db, cfg),
		rules: rules,
	}, nil
}

func (s *ProcessingService) Sync() *feeds.SyncService {
	return s.sync
}

type RunOptions struct {
	// Offline uses the stored snapshots instead of fetching.
	Offline     bool
	KeepUseless bool
	Output      string
	Open        bool
	Files       DocumentFiles
}

type RunResult struct {
	RunID       int
	TraceID     string
	ItemVersion string
	Items       int
	Heroes      int
	Resolved    int
	OutputPath  string
}

// Report is the normalized content of one set of feed documents.
type Report struct {
	ItemVersion string
	Items       []internal.NormalizedItem
	Heroes      []internal.HeroRecord
	Resolved    int
}

// Build runs the normalization stages over docs. It performs no I/O.
func Build(docs internal.FeedDocuments, rules *items.RuleSet, opts items.Options, log logrus.FieldLogger) (Report, error) {
	raw, version, err := items.ParseItemFeed(docs.Items)
	if err != nil {
		return Report{}, err
	}
	list, err := items.NewNormalizer(rules, opts, log).NormalizeDefinitions(raw)
	if err != nil {
		return Report{}, err
	}
	idx, err := items.ParseDisplayNameIndex(docs.ItemNames)
	if err != nil {
		return Report{}, err
	}
	resolved := items.ResolveDisplayNames(list, idx)

	heroList, err := heroes.Normalize(docs.Heroes)
	if err != nil {
		return Report{}, err
	}
	return Report{ItemVersion: version, Items: list, Heroes: heroList, Resolved: resolved}, nil
}

func (s *ProcessingService) Run(ctx context.Context, opts RunOptions) (RunResult, error) {
	docs, err := s.loadDocuments(ctx, opts)
	if err != nil {
		return RunResult{}, err
	}
	return s.RunDocuments(docs, opts)
}

// RunDocuments normalizes docs, exports the workbook and records the run.
func (s *ProcessingService) RunDocuments(docs internal.FeedDocuments, opts RunOptions) (RunResult, error) {
	start := time.Now()
	trace := traceID()
	log := util.Log.WithField("trace", trace)

	itemOpts := items.Options{
		DropUseless:       s.cfg.DropUselessItems && !opts.KeepUseless,
		StrictNeutralDrop: s.cfg.NeutralDropStrict,
	}
	report, err := Build(docs, s.rules, itemOpts, log)
	if err != nil {
		return RunResult{}, err
	}
	normalizedAt := time.Now()

	out := util.FirstNonEmpty(opts.Output, s.cfg.OutputPath())
	if err := ExportWorkbook(report.Items, report.Heroes, out); err != nil {
		return RunResult{}, fmt.Errorf("export %s: %w", out, err)
	}
	exportedAt := time.Now()

	timings := map[string]float64{
		"normalizeMs": float64(normalizedAt.Sub(start).Milliseconds()),
		"exportMs":    float64(exportedAt.Sub(normalizedAt).Milliseconds()),
		"totalMs":     float64(time.Since(start).Milliseconds()),
	}
	runID, err := s.db.InsertRun(trace, report.ItemVersion, report.Items, report.Heroes, out, timings)
	if err != nil {
		if rmErr := os.Remove(out); rmErr != nil {
			log.WithError(rmErr).Warn("unrecorded workbook left on disk")
		}
		return RunResult{}, fmt.Errorf("record run: %w", err)
	}

	log.WithFields(logrus.Fields{
		"run":      runID,
		"version":  report.ItemVersion,
		"items":    len(report.Items),
		"heroes":   len(report.Heroes),
		"resolved": report.Resolved,
		"out":      out,
	}).Info("run completed")

	if opts.Open || s.cfg.OpenAfterExport {
		if err := viewer.Open(s.cfg.ViewerPath, viewer.Target(s.cfg.ViewerTarget, out)); err != nil {
			log.WithError(err).Warn("viewer not started")
		}
	}

	return RunResult{
		RunID:       runID,
		TraceID:     trace,
		ItemVersion: report.ItemVersion,
		Items:       len(report.Items),
		Heroes:      len(report.Heroes),
		Resolved:    report.Resolved,
		OutputPath:  out,
	}, nil
}

func (s *ProcessingService) loadDocuments(ctx context.Context, opts RunOptions) (internal.FeedDocuments, error) {
	var docs internal.FeedDocuments
	switch {
	case opts.Files.Complete():
	case opts.Offline:
		stored, err := s.db.LatestDocuments()
		if err != nil {
			return internal.FeedDocuments{}, err
		}
		docs = stored
	default:
		res, err := s.sync.Sync(ctx)
		if err != nil {
			return internal.FeedDocuments{}, err
		}
		docs = res.Docs
	}
	if err := opts.Files.Apply(&docs); err != nil {
		return internal.FeedDocuments{}, err
	}
	return docs, nil
}

// ExportRun writes a stored run to outputPath again.
func (s *ProcessingService) ExportRun(runID int, outputPath string) error {
	list, err := s.db.GetRunItems(runID)
	if err != nil {
		return err
	}
	heroList, err := s.db.GetRunHeroes(runID)
	if err != nil {
		return err
	}
	if len(list) == 0 && len(heroList) == 0 {
		return fmt.Errorf("run %d not found or empty", runID)
	}
	return ExportWorkbook(list, heroList, outputPath)
}

func traceID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}
