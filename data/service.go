// Package data provides the cache service consumed by the application layer.
// It owns both datasets, their durable snapshots, the subscriber registry and
// the loader orchestrator, and exposes them through interfaces.CacheService.
package data

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/giygas/drugregistry/cache"
	"github.com/giygas/drugregistry/interfaces"
	"github.com/giygas/drugregistry/loader"
	"github.com/giygas/drugregistry/logging"
	"github.com/giygas/drugregistry/registryparser"
	"github.com/giygas/drugregistry/registryparser/entities"
	"github.com/giygas/drugregistry/storage"
	"github.com/giygas/drugregistry/subscription"
	"github.com/giygas/drugregistry/validation"
)

// Compile-time check to ensure Service implements CacheService
var _ interfaces.CacheService = (*Service)(nil)

// Options configures a Service.
type Options struct {
	Storage               storage.Storage
	DrugsFetcher          interfaces.Fetcher
	ClassificationFetcher interfaces.Fetcher
	DataSource            string
	FetchTimeout          time.Duration
	Now                   func() time.Time
	Validator             interfaces.DataValidator
}

// Service is the process-wide cache, constructed once by the composition root.
type Service struct {
	drugs           *cache.Dataset[entities.Drug]
	classifications *cache.Dataset[entities.Classification]
	store           *cache.Store
	subscribers     *subscription.Registry
	orchestrator    *loader.Orchestrator
	validator       interfaces.DataValidator
	now             func() time.Time

	index  atomic.Pointer[SearchIndex]
	report atomic.Pointer[interfaces.DataQualityReport]
}

// NewService wires datasets, store, loaders and subscribers.
func NewService(opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Storage == nil {
		opts.Storage = storage.NewMemoryStore(0)
	}
	if opts.Validator == nil {
		opts.Validator = validation.NewDataValidator()
	}

	s := &Service{
		drugs:           cache.NewDataset[entities.Drug](interfaces.DatasetDrugs),
		classifications: cache.NewDataset[entities.Classification](interfaces.DatasetClassifications),
		store:           cache.NewStore(opts.Storage, opts.Now, interfaces.DatasetDrugs, interfaces.DatasetClassifications),
		subscribers:     subscription.NewRegistry(),
		validator:       opts.Validator,
		now:             opts.Now,
	}
	s.index.Store(NewSearchIndex(nil, time.Time{}))

	drugsJob := loader.NewJob(s.drugs,
		registryparser.NewDrugsPipeline(opts.DrugsFetcher, opts.DataSource, opts.Now),
		s.store, s.subscribers,
		loader.WithFetchTimeout[entities.Drug](opts.FetchTimeout),
		loader.WithOnData(s.onDrugs),
	)
	classificationsJob := loader.NewJob(s.classifications,
		registryparser.NewClassificationPipeline(opts.ClassificationFetcher),
		s.store, s.subscribers,
		loader.WithFetchTimeout[entities.Classification](opts.FetchTimeout),
	)
	s.orchestrator = loader.NewOrchestrator(drugsJob, classificationsJob)

	return s
}

// Start hydrates fresh datasets and loads the others in the background.
func (s *Service) Start() {
	s.orchestrator.Start()
}

// LoadAll hydrates or loads both datasets and waits for them.
func (s *Service) LoadAll(ctx context.Context) error {
	return s.orchestrator.LoadAll(ctx)
}

// Orchestrator exposes the loader for scheduling.
func (s *Service) Orchestrator() *loader.Orchestrator {
	return s.orchestrator
}

// Wait blocks until background loads finish.
func (s *Service) Wait() {
	s.orchestrator.Wait()
}

// onDrugs rebuilds the search index and the data quality report.
func (s *Service) onDrugs(drugs []entities.Drug) {
	s.index.Store(NewSearchIndex(drugs, s.drugs.Snapshot().WrittenAt))

	report := s.validator.ReportDataQuality(drugs)
	s.report.Store(report)

	if len(report.DuplicateIDs) > 0 {
		logging.Warn("Duplicate drug ids detected",
			"total", len(report.DuplicateIDs),
			"id_list", report.DuplicateIDs,
		)
	}
	if report.DrugsWithoutPackages > 0 {
		logging.Warn("Drugs without packages", "count", report.DrugsWithoutPackages)
	}
	if report.DrugsWithoutATC > 0 {
		logging.Warn("Drugs without ATC code", "count", report.DrugsWithoutATC)
	}
}

// searchIndex returns an index over the current payload, rebuilding it when
// the dataset moved on since the index was built.
func (s *Service) searchIndex(snap cache.Snapshot[entities.Drug]) *SearchIndex {
	ix := s.index.Load()
	if ix.writtenAt.Equal(snap.WrittenAt) && ix.Len() == len(snap.Payload) {
		return ix
	}
	fresh := NewSearchIndex(snap.Payload, snap.WrittenAt)
	s.index.CompareAndSwap(ix, fresh)
	return fresh
}

func (s *Service) GetDrugsData() interfaces.DrugsData {
	snap := s.drugs.Snapshot()
	return interfaces.DrugsData{
		Entities:    snap.Payload,
		SearchIndex: s.searchIndex(snap),
		IsLoaded:    snap.IsLoaded,
		IsLoading:   snap.IsLoading,
		Error:       snap.Error,
	}
}

func (s *Service) GetClassificationData() interfaces.ClassificationData {
	snap := s.classifications.Snapshot()
	return interfaces.ClassificationData{
		Entities:  snap.Payload,
		IsLoaded:  snap.IsLoaded,
		IsLoading: snap.IsLoading,
		Error:     snap.Error,
	}
}

func (s *Service) ForceReload(dataset string) (bool, error) {
	return s.orchestrator.ForceReload(dataset)
}

func (s *Service) Subscribe(callback func()) interfaces.Unsubscriber {
	return s.subscribers.Subscribe(callback)
}

func (s *Service) GetCacheStatus() map[string]interfaces.DatasetStatus {
	return map[string]interfaces.DatasetStatus{
		interfaces.DatasetDrugs:           datasetStatus(s.drugs.Snapshot()),
		interfaces.DatasetClassifications: datasetStatus(s.classifications.Snapshot()),
	}
}

// GetLastReport returns the data quality report of the last drug load, or nil.
func (s *Service) GetLastReport() *interfaces.DataQualityReport {
	return s.report.Load()
}

func datasetStatus[T any](snap cache.Snapshot[T]) interfaces.DatasetStatus {
	return interfaces.DatasetStatus{
		Loaded:     snap.IsLoaded,
		Loading:    snap.IsLoading,
		Count:      len(snap.Payload),
		Error:      snap.Error,
		WrittenAt:  snap.WrittenAt,
		MemoryOnly: snap.MemoryOnly,
	}
}
