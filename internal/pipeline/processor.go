package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lox/wattpipe/internal/metrics"
	"github.com/lox/wattpipe/internal/models"
)

const alertSubject = "Energy Anomaly Alert"

// RecordStore is the persistence gateway consumed by the processor.
// Upserts must be idempotent on (site_id, record_timestamp).
type RecordStore interface {
	UpsertRecord(rec models.SiteRecord) error
}

// Notifier is the alert gateway consumed by the processor.
type Notifier interface {
	Send(ctx context.Context, subject, body string) error
}

// Processor runs the validate -> derive -> persist -> alert pipeline over
// one batch of raw readings. Records are processed one at a time so a bad
// record never aborts its siblings.
type Processor struct {
	store    RecordStore
	notifier Notifier
}

func NewProcessor(store RecordStore, notifier Notifier) *Processor {
	return &Processor{store: store, notifier: notifier}
}

// ProcessBatch processes each reading independently and returns an outcome
// summary. Validation rejects are skipped and counted; persistence or alert
// failures are collected per record, never fatal to the batch. Because
// upserts are idempotent, redelivering a batch after partial failure is safe.
func (p *Processor) ProcessBatch(ctx context.Context, source string, readings []models.RawReading) models.BatchResult {
	result := models.BatchResult{Total: len(readings)}

	for i, raw := range readings {
		reading, err := Validate(raw)
		if err != nil {
			log.Printf("processor: %s: skipping record %d: %v", source, i, err)
			metrics.RecordsSkipped.WithLabelValues(source).Inc()
			result.Skipped++
			continue
		}

		net, anomaly := Derive(reading.EnergyGenerated, reading.EnergyConsumed)

		rec := models.SiteRecord{
			SiteID:          reading.SiteID,
			RecordTimestamp: reading.Timestamp,
			EnergyGenerated: reading.EnergyGenerated,
			EnergyConsumed:  reading.EnergyConsumed,
			NetEnergy:       net,
			Anomaly:         anomaly,
			CreatedAt:       time.Now().UTC(),
		}

		if err := p.store.UpsertRecord(rec); err != nil {
			log.Printf("processor: %s: upsert %s/%s: %v", source, rec.SiteID, rec.RecordTimestamp, err)
			metrics.RecordsFailed.WithLabelValues(source, "store").Inc()
			result.Failed = append(result.Failed, models.RecordError{
				Index: i, SiteID: rec.SiteID, Timestamp: rec.RecordTimestamp,
				Stage: "store", Err: err,
			})
			continue
		}
		metrics.RecordsStored.WithLabelValues(source).Inc()
		result.Stored++

		if !anomaly {
			continue
		}

		if err := p.notifier.Send(ctx, alertSubject, anomalyBody(rec)); err != nil {
			log.Printf("processor: %s: alert %s/%s: %v", source, rec.SiteID, rec.RecordTimestamp, err)
			metrics.RecordsFailed.WithLabelValues(source, "alert").Inc()
			result.Failed = append(result.Failed, models.RecordError{
				Index: i, SiteID: rec.SiteID, Timestamp: rec.RecordTimestamp,
				Stage: "alert", Err: err,
			})
			continue
		}
		metrics.AlertsSent.Inc()
		result.Alerts++
	}

	log.Printf("processor: %s: %d records, %d stored, %d skipped, %d failed, %d alerts",
		source, result.Total, result.Stored, result.Skipped, len(result.Failed), result.Alerts)
	return result
}

func anomalyBody(rec models.SiteRecord) string {
	return fmt.Sprintf(
		"Energy anomaly detected.\nSite ID: %s\nTimestamp: %s\nGenerated: %s kWh\nConsumed: %s kWh\nNet: %s kWh",
		rec.SiteID, rec.RecordTimestamp,
		rec.EnergyGenerated.String(), rec.EnergyConsumed.String(), rec.NetEnergy.String(),
	)
}
