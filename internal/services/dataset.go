package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"sales-dashboard/internal/models"
)

var (
	defaultRegions  = []string{"Norte", "Sur", "Este", "Oeste"}
	defaultProducts = []string{"Producto A", "Producto B", "Producto C"}
)

const (
	minAmount = 200
	maxAmount = 2000
)

// DatasetSource produces the dataset a new session starts with. Returned
// slices are treated as read-only by every caller.
type DatasetSource func(ctx context.Context) ([]models.Sale, error)

type GeneratorConfig struct {
	Seed      uint64
	Size      int
	StartDate time.Time
}

// GenerateSales builds a deterministic synthetic dataset: one record per day
// from StartDate, with region, product and a whole amount in [200, 2000)
// drawn from a PCG stream seeded with Seed.
func GenerateSales(cfg GeneratorConfig) []models.Sale {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	start := models.Day(cfg.StartDate)

	sales := make([]models.Sale, cfg.Size)
	for i := range sales {
		sales[i] = models.Sale{
			Region:  defaultRegions[rng.IntN(len(defaultRegions))],
			Product: defaultProducts[rng.IntN(len(defaultProducts))],
			Amount:  float64(minAmount + rng.IntN(maxAmount-minAmount)),
			Date:    start.AddDate(0, 0, i),
		}
	}
	return sales
}

func GeneratorSource(cfg GeneratorConfig) DatasetSource {
	return func(ctx context.Context) ([]models.Sale, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return GenerateSales(cfg), nil
	}
}

// LoadSalesCSV reads a dataset in the export format.
func LoadSalesCSV(ctx context.Context, filename string, logger *slog.Logger) ([]models.Sale, error) {
	start := time.Now()
	logger.Info("loading sales CSV", "filename", filename)

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	sales, err := parseCSV(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	if len(sales) == 0 {
		return nil, fmt.Errorf("no valid records found")
	}

	duration := time.Since(start)
	logger.Info("sales CSV loaded",
		"records", len(sales),
		"duration", duration,
		"rate", fmt.Sprintf("%.0f records/sec", float64(len(sales))/duration.Seconds()))

	return sales, nil
}

// CSVSource loads filename once and hands the same read-only slice to every session.
func CSVSource(ctx context.Context, filename string, logger *slog.Logger) (DatasetSource, error) {
	sales, err := LoadSalesCSV(ctx, filename, logger)
	if err != nil {
		return nil, err
	}
	return func(context.Context) ([]models.Sale, error) {
		return sales, nil
	}, nil
}
