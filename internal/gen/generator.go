package gen

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lox/wattpipe/internal/models"
)

// Uploader is the slice of the blob store the generator needs.
type Uploader interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// Generator produces synthetic site readings and uploads them as batch
// files, for exercising the pipeline without real meters. Site IDs are
// stable for the generator's lifetime so records accumulate per site.
type Generator struct {
	uploader    Uploader
	sites       []string
	anomalyRate float64 // probability a reading gets a negative value
	rng         *rand.Rand
}

func New(uploader Uploader, siteCount int, anomalyRate float64) *Generator {
	if siteCount <= 0 {
		siteCount = 5
	}
	sites := make([]string, siteCount)
	for i := range sites {
		sites[i] = uuid.NewString()
	}
	return &Generator{
		uploader:    uploader,
		sites:       sites,
		anomalyRate: anomalyRate,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// GenerateBatch builds one reading per site at the given instant.
func (g *Generator) GenerateBatch(now time.Time) []models.RawReading {
	readings := make([]models.RawReading, 0, len(g.sites))
	for _, site := range g.sites {
		generated := g.kwh()
		consumed := g.kwh()
		if g.anomalyRate > 0 && g.rng.Float64() < g.anomalyRate {
			generated = generated.Neg()
		}
		readings = append(readings, models.RawReading{
			SiteID:          site,
			Timestamp:       models.FlexString(now.Format(time.RFC3339)),
			EnergyGenerated: &generated,
			EnergyConsumed:  &consumed,
		})
	}
	return readings
}

// UploadBatch generates a batch and uploads it under the raw-data prefix.
// Returns the object key.
func (g *Generator) UploadBatch(ctx context.Context) (string, error) {
	now := time.Now().UTC()
	readings := g.GenerateBatch(now)

	data, err := json.MarshalIndent(readings, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal batch: %w", err)
	}

	key := fmt.Sprintf("raw-data/energy_data_%s.json", now.Format("20060102150405"))
	if err := g.uploader.Put(ctx, key, data, "application/json"); err != nil {
		return "", fmt.Errorf("upload batch: %w", err)
	}
	return key, nil
}

func (g *Generator) kwh() decimal.Decimal {
	return decimal.NewFromFloat(g.rng.Float64() * 500).Round(2)
}
