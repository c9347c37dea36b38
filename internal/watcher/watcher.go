package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"d2stats/internal"
	"d2stats/internal/config"
	"d2stats/internal/feeds"
	"d2stats/internal/pipeline"
	"d2stats/internal/util"
)

type Syncer interface {
	Sync(ctx context.Context) (feeds.SyncResult, error)
}

type Runner interface {
	RunDocuments(docs internal.FeedDocuments, opts pipeline.RunOptions) (pipeline.RunResult, error)
}

type MetadataStore interface {
	GetMetadata(key string) (*string, error)
	SetMetadata(key, value string) error
}

// lastExportedKey holds the documents hash of the last successful export.
const lastExportedKey = "watch.last_exported_hash"

type Service struct {
	cfg    config.Config
	syncer Syncer
	runner Runner
	store  MetadataStore
	now    func() time.Time
	log    logrus.FieldLogger
}

func NewService(cfg config.Config, syncer Syncer, runner Runner, store MetadataStore) *Service {
	return &Service{
		cfg:    cfg,
		syncer: syncer,
		runner: runner,
		store:  store,
		now:    time.Now,
		log:    util.Log.WithField("component", "watcher"),
	}
}

// Run syncs the feeds every WatchIntervalSec until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.WatchIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Hour
	}
	for {
		if _, err := s.RunCycle(ctx); err != nil {
			s.log.WithError(err).Error("watch cycle failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

type CycleResult struct {
	Changed []internal.FeedName
	Run     *pipeline.RunResult
}

// RunCycle syncs once and exports a new workbook under OutputDir/watch
// unless the fetched documents were already exported. A failed export is
// retried on the next cycle.
func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	res, err := s.syncer.Sync(ctx)
	if err != nil {
		return CycleResult{}, err
	}
	out := CycleResult{Changed: res.Changed}

	last, err := s.store.GetMetadata(lastExportedKey)
	if err != nil {
		return out, err
	}
	if last != nil && *last == res.Hash {
		s.log.Debug("feeds unchanged")
		return out, nil
	}

	run, err := s.runner.RunDocuments(res.Docs, pipeline.RunOptions{Output: s.outputPath(res.ItemVersion)})
	if err != nil {
		return out, err
	}
	out.Run = &run
	if err := s.store.SetMetadata(lastExportedKey, res.Hash); err != nil {
		return out, fmt.Errorf("record exported feeds: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"changed": res.Changed,
		"run":     run.RunID,
		"out":     run.OutputPath,
	}).Info("watch cycle exported")
	return out, nil
}

func (s *Service) outputPath(version string) string {
	name := fmt.Sprintf("%s_%s.xlsx", util.SanitizeFileName(version), s.now().UTC().Format("20060102T150405Z"))
	return filepath.Join(s.cfg.OutputDir, "watch", name)
}
