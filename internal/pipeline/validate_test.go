package pipeline

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/lox/wattpipe/internal/models"
)

func dec(s string) *decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name         string
		raw          models.RawReading
		wantErrField string
		wantSiteID   string
		wantTS       string
		wantGen      string
		wantCons     string
	}{
		{
			name: "complete reading",
			raw: models.RawReading{
				SiteID:          "s1",
				Timestamp:       "2026-08-30T10:00:00Z",
				EnergyGenerated: dec("120.5"),
				EnergyConsumed:  dec("80.25"),
			},
			wantSiteID: "s1",
			wantTS:     "2026-08-30T10:00:00Z",
			wantGen:    "120.5",
			wantCons:   "80.25",
		},
		{
			name:         "missing site_id",
			raw:          models.RawReading{Timestamp: "t1", EnergyGenerated: dec("5")},
			wantErrField: "site_id",
		},
		{
			name:         "missing timestamp",
			raw:          models.RawReading{SiteID: "s1", EnergyGenerated: dec("5")},
			wantErrField: "timestamp",
		},
		{
			name:       "missing energy fields default to zero",
			raw:        models.RawReading{SiteID: "s2", Timestamp: "t2"},
			wantSiteID: "s2",
			wantTS:     "t2",
			wantGen:    "0",
			wantCons:   "0",
		},
		{
			name: "negative values pass validation",
			raw: models.RawReading{
				SiteID:          "s3",
				Timestamp:       "t3",
				EnergyGenerated: dec("-10"),
				EnergyConsumed:  dec("5"),
			},
			wantSiteID: "s3",
			wantTS:     "t3",
			wantGen:    "-10",
			wantCons:   "5",
		},
		{
			name:       "numeric epoch timestamp preserved verbatim",
			raw:        models.RawReading{SiteID: "s4", Timestamp: "1756550400"},
			wantSiteID: "s4",
			wantTS:     "1756550400",
			wantGen:    "0",
			wantCons:   "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reading, err := Validate(tt.raw)

			if tt.wantErrField != "" {
				var mf *MissingFieldError
				if !errors.As(err, &mf) {
					t.Fatalf("Validate() error = %v, want MissingFieldError", err)
				}
				if mf.Field != tt.wantErrField {
					t.Errorf("Field = %q, want %q", mf.Field, tt.wantErrField)
				}
				return
			}

			if err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if reading.SiteID != tt.wantSiteID {
				t.Errorf("SiteID = %q, want %q", reading.SiteID, tt.wantSiteID)
			}
			if reading.Timestamp != tt.wantTS {
				t.Errorf("Timestamp = %q, want %q", reading.Timestamp, tt.wantTS)
			}
			if got := reading.EnergyGenerated.String(); got != tt.wantGen {
				t.Errorf("EnergyGenerated = %s, want %s", got, tt.wantGen)
			}
			if got := reading.EnergyConsumed.String(); got != tt.wantCons {
				t.Errorf("EnergyConsumed = %s, want %s", got, tt.wantCons)
			}
		})
	}
}
