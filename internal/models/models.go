package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FlexString is a string that also accepts a JSON number, preserving the
// numeric literal verbatim. Upstream meters report timestamps as either
// ISO strings or epoch numbers; the value is kept opaque and never reparsed
// so it stays stable as a storage key.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("empty value")
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("timestamp must be a string or number: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

// RawReading is one untrusted reading as it arrives in a batch file.
// Energy fields are optional and default to zero when absent.
type RawReading struct {
	SiteID          string           `json:"site_id"`
	Timestamp       FlexString       `json:"timestamp"`
	EnergyGenerated *decimal.Decimal `json:"energy_generated_kwh"`
	EnergyConsumed  *decimal.Decimal `json:"energy_consumed_kwh"`
}

// Reading is a validated, normalized reading.
type Reading struct {
	SiteID          string
	Timestamp       string
	EnergyGenerated decimal.Decimal
	EnergyConsumed  decimal.Decimal
}

// SiteRecord is the canonical persisted form of one reading, keyed by
// (site_id, record_timestamp). Decimals marshal as JSON strings so transport
// never loses precision.
type SiteRecord struct {
	SiteID          string          `json:"site_id"`
	RecordTimestamp string          `json:"record_timestamp"`
	EnergyGenerated decimal.Decimal `json:"energy_generated_kwh"`
	EnergyConsumed  decimal.Decimal `json:"energy_consumed_kwh"`
	NetEnergy       decimal.Decimal `json:"net_energy_kwh"`
	Anomaly         bool            `json:"anomaly"`
	CreatedAt       time.Time       `json:"-"`
}

// RecordError is a per-record gateway failure surfaced from a batch.
type RecordError struct {
	Index     int    `json:"index"`
	SiteID    string `json:"site_id"`
	Timestamp string `json:"timestamp"`
	Stage     string `json:"stage"` // "store" or "alert"
	Err       error  `json:"-"`
}

func (e RecordError) Error() string {
	return fmt.Sprintf("record %d (%s/%s): %s: %v", e.Index, e.SiteID, e.Timestamp, e.Stage, e.Err)
}

func (e RecordError) Unwrap() error { return e.Err }

// BatchResult summarizes one batch invocation. Skipped counts validation
// rejects; Failed carries gateway errors for records that were attempted.
type BatchResult struct {
	Total   int           `json:"total"`
	Stored  int           `json:"stored"`
	Skipped int           `json:"skipped"`
	Alerts  int           `json:"alerts"`
	Failed  []RecordError `json:"failed,omitempty"`
}
