package pipeline

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/lox/wattpipe/internal/models"
)

// MissingFieldError marks a reading that lacks a required field. It is
// record-level: the batch processor skips the reading and continues.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// Validate checks one raw reading and returns its normalized form.
// Timestamps stay opaque strings (already stringified by decode); missing
// energy fields coerce to decimal zero and never fail validation.
func Validate(raw models.RawReading) (models.Reading, error) {
	if raw.SiteID == "" {
		return models.Reading{}, &MissingFieldError{Field: "site_id"}
	}
	if raw.Timestamp == "" {
		return models.Reading{}, &MissingFieldError{Field: "timestamp"}
	}

	generated := decimal.Zero
	if raw.EnergyGenerated != nil {
		generated = *raw.EnergyGenerated
	}
	consumed := decimal.Zero
	if raw.EnergyConsumed != nil {
		consumed = *raw.EnergyConsumed
	}

	return models.Reading{
		SiteID:          raw.SiteID,
		Timestamp:       string(raw.Timestamp),
		EnergyGenerated: generated,
		EnergyConsumed:  consumed,
	}, nil
}
