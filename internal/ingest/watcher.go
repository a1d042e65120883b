package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/lox/wattpipe/internal/metrics"
	"github.com/lox/wattpipe/internal/models"
	"github.com/lox/wattpipe/internal/pipeline"
	"github.com/lox/wattpipe/internal/source"
	"github.com/lox/wattpipe/internal/store"
)

// Watcher polls batch sources for newly arrived batch files and feeds them
// through the pipeline. Each object is handled once, tracked in the
// processed_objects table; reprocessing is safe regardless because record
// upserts are idempotent.
type Watcher struct {
	store     *store.Store
	processor *pipeline.Processor
	sources   []source.Source
	prefix    string
	interval  time.Duration
}

func NewWatcher(st *store.Store, processor *pipeline.Processor, sources []source.Source, prefix string, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Watcher{
		store:     st,
		processor: processor,
		sources:   sources,
		prefix:    prefix,
		interval:  interval,
	}
}

func (w *Watcher) Run(ctx context.Context) {
	w.Poll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("watcher: shutting down")
			return
		case <-ticker.C:
			w.Poll(ctx)
		}
	}
}

// Poll checks every source for unprocessed batch objects.
func (w *Watcher) Poll(ctx context.Context) {
	for _, src := range w.sources {
		keys, err := src.List(ctx, w.prefix)
		if err != nil {
			log.Printf("watcher: list %s: %v", src.Name(), err)
			continue
		}

		for _, key := range keys {
			done, err := w.store.ObjectProcessed(src.Name(), key)
			if err != nil {
				log.Printf("watcher: check %s/%s: %v", src.Name(), key, err)
				continue
			}
			if done {
				continue
			}

			if _, err := w.ProcessObject(ctx, src, key); err != nil {
				log.Printf("watcher: process %s/%s: %v", src.Name(), key, err)
			}
		}
	}
}

// ProcessObject fetches one batch object, decodes it and runs the pipeline,
// recording a batch run for auditing. A fetch or decode failure is fatal to
// that object only; record-level skips and gateway failures are reported in
// the result, not as an error.
func (w *Watcher) ProcessObject(ctx context.Context, src source.Source, key string) (models.BatchResult, error) {
	log.Printf("watcher: processing %s/%s", src.Name(), key)
	run, err := w.store.StartBatchRun(src.Name(), &key)
	if err != nil {
		log.Printf("watcher: start batch run: %v", err)
	}

	data, err := src.Get(ctx, key)
	if err != nil {
		w.failRun(run, err)
		metrics.BatchesProcessed.WithLabelValues(src.Name(), "error").Inc()
		return models.BatchResult{}, fmt.Errorf("fetch %s: %w", key, err)
	}

	readings, err := source.DecodeBatch(data)
	if err != nil {
		// A malformed file will not improve on retry; mark it handled so the
		// watcher does not spin on it.
		w.failRun(run, err)
		if err := w.store.MarkObjectProcessed(src.Name(), key); err != nil {
			log.Printf("watcher: mark processed %s/%s: %v", src.Name(), key, err)
		}
		metrics.BatchesProcessed.WithLabelValues(src.Name(), "decode_error").Inc()
		return models.BatchResult{}, err
	}

	result := w.processor.ProcessBatch(ctx, src.Name(), readings)

	if run != nil {
		run.Success = true
		run.RecordsTotal = sql.NullInt64{Int64: int64(result.Total), Valid: true}
		run.RecordsStored = sql.NullInt64{Int64: int64(result.Stored), Valid: true}
		run.RecordsSkipped = sql.NullInt64{Int64: int64(result.Skipped), Valid: true}
		run.RecordsFailed = sql.NullInt64{Int64: int64(len(result.Failed)), Valid: true}
		if len(result.Failed) > 0 {
			run.ErrorMessage = sql.NullString{
				String: fmt.Sprintf("%d records failed at a gateway", len(result.Failed)),
				Valid:  true,
			}
		}
		if err := w.store.CompleteBatchRun(run); err != nil {
			log.Printf("watcher: complete batch run: %v", err)
		}
	}

	if err := w.store.MarkObjectProcessed(src.Name(), key); err != nil {
		log.Printf("watcher: mark processed %s/%s: %v", src.Name(), key, err)
	}

	metrics.BatchesProcessed.WithLabelValues(src.Name(), "ok").Inc()
	return result, nil
}

func (w *Watcher) failRun(run *store.BatchRun, err error) {
	if run == nil {
		return
	}
	run.Success = false
	run.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
	if err := w.store.CompleteBatchRun(run); err != nil {
		log.Printf("watcher: complete batch run: %v", err)
	}
}
