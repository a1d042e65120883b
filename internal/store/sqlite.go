package store

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lox/wattpipe/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// UpsertRecord writes a site record keyed by (site_id, record_timestamp).
// A repeat write under the same key replaces the earlier row, so replaying
// a batch is safe. Energy values are stored as decimal strings to keep them
// exact end to end.
func (s *Store) UpsertRecord(rec models.SiteRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO site_records (site_id, record_timestamp, energy_generated_kwh, energy_consumed_kwh, net_energy_kwh, anomaly, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(site_id, record_timestamp) DO UPDATE SET
			energy_generated_kwh = excluded.energy_generated_kwh,
			energy_consumed_kwh = excluded.energy_consumed_kwh,
			net_energy_kwh = excluded.net_energy_kwh,
			anomaly = excluded.anomaly,
			created_at = excluded.created_at
	`, rec.SiteID, rec.RecordTimestamp,
		rec.EnergyGenerated.String(), rec.EnergyConsumed.String(), rec.NetEnergy.String(),
		rec.Anomaly, rec.CreatedAt)
	return err
}

// QueryBySite returns all records for a site in chronological key order.
func (s *Store) QueryBySite(siteID string) ([]models.SiteRecord, error) {
	rows, err := s.db.Query(`
		SELECT site_id, record_timestamp, energy_generated_kwh, energy_consumed_kwh, net_energy_kwh, anomaly, created_at
		FROM site_records
		WHERE site_id = ?
		ORDER BY record_timestamp ASC
	`, siteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.SiteRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetRecord fetches a single record by key, or nil if absent.
func (s *Store) GetRecord(siteID, recordTimestamp string) (*models.SiteRecord, error) {
	row := s.db.QueryRow(`
		SELECT site_id, record_timestamp, energy_generated_kwh, energy_consumed_kwh, net_energy_kwh, anomaly, created_at
		FROM site_records
		WHERE site_id = ? AND record_timestamp = ?
	`, siteID, recordTimestamp)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetAnomalousRecords returns recent anomalous records, newest first.
func (s *Store) GetAnomalousRecords(limit int) ([]models.SiteRecord, error) {
	rows, err := s.db.Query(`
		SELECT site_id, record_timestamp, energy_generated_kwh, energy_consumed_kwh, net_energy_kwh, anomaly, created_at
		FROM site_records
		WHERE anomaly = TRUE
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.SiteRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (models.SiteRecord, error) {
	var rec models.SiteRecord
	var generated, consumed, net string
	if err := row.Scan(&rec.SiteID, &rec.RecordTimestamp, &generated, &consumed, &net, &rec.Anomaly, &rec.CreatedAt); err != nil {
		return models.SiteRecord{}, err
	}

	var err error
	if rec.EnergyGenerated, err = decimal.NewFromString(generated); err != nil {
		return models.SiteRecord{}, fmt.Errorf("parse energy_generated_kwh: %w", err)
	}
	if rec.EnergyConsumed, err = decimal.NewFromString(consumed); err != nil {
		return models.SiteRecord{}, fmt.Errorf("parse energy_consumed_kwh: %w", err)
	}
	if rec.NetEnergy, err = decimal.NewFromString(net); err != nil {
		return models.SiteRecord{}, fmt.Errorf("parse net_energy_kwh: %w", err)
	}
	return rec, nil
}
