package services

import (
	"slices"
	"strings"
	"time"

	"sales-dashboard/internal/models"
)

// Bucket is one group of an AggregateBy rollup.
type Bucket[K comparable] struct {
	Key K
	Sum float64
}

// ApplyFilter returns the records whose region and product are both selected,
// in input order. Values that match nothing simply produce an empty view.
func ApplyFilter(dataset []models.Sale, regions, products []string) []models.Sale {
	regionSet := toSet(regions)
	productSet := toSet(products)

	view := make([]models.Sale, 0, len(dataset))
	for _, sale := range dataset {
		if _, ok := regionSet[sale.Region]; !ok {
			continue
		}
		if _, ok := productSet[sale.Product]; !ok {
			continue
		}
		view = append(view, sale)
	}
	return view
}

func ComputeKPIs(view []models.Sale) models.KPIs {
	kpis := models.KPIs{Count: len(view)}
	if len(view) == 0 {
		return kpis
	}

	maxAmount := view[0].Amount
	for _, sale := range view {
		kpis.Total += sale.Amount
		if sale.Amount > maxAmount {
			maxAmount = sale.Amount
		}
	}

	mean := kpis.Total / float64(len(view))
	kpis.Mean = &mean
	kpis.Max = &maxAmount
	return kpis
}

// AggregateBy sums Amount per key. Only keys present in the view appear, and
// buckets are ordered by compare so repeated calls yield identical ordering.
func AggregateBy[K comparable](view []models.Sale, key func(models.Sale) K, compare func(a, b K) int) []Bucket[K] {
	sums := make(map[K]float64)
	for _, sale := range view {
		sums[key(sale)] += sale.Amount
	}

	buckets := make([]Bucket[K], 0, len(sums))
	for k, sum := range sums {
		buckets = append(buckets, Bucket[K]{Key: k, Sum: sum})
	}
	slices.SortFunc(buckets, func(a, b Bucket[K]) int {
		return compare(a.Key, b.Key)
	})
	return buckets
}

func RegionSums(view []models.Sale) []models.RegionSales {
	buckets := AggregateBy(view, func(s models.Sale) string { return s.Region }, strings.Compare)

	result := make([]models.RegionSales, 0, len(buckets))
	for _, b := range buckets {
		result = append(result, models.RegionSales{Region: b.Key, Amount: b.Sum})
	}
	return result
}

func DailySums(view []models.Sale) []models.DailySales {
	buckets := AggregateBy(view, func(s models.Sale) time.Time { return models.Day(s.Date) }, time.Time.Compare)

	result := make([]models.DailySales, 0, len(buckets))
	for _, b := range buckets {
		result = append(result, models.DailySales{Date: b.Key.Format(models.DateLayout), Amount: b.Sum})
	}
	return result
}

// CrossTabulate groups by product then region. Each product row only carries
// the regions that occur with it in the view.
func CrossTabulate(view []models.Sale) models.CrossTab {
	cells := make(map[string]map[string]float64)
	regionSeen := make(map[string]struct{})

	for _, sale := range view {
		row, ok := cells[sale.Product]
		if !ok {
			row = make(map[string]float64)
			cells[sale.Product] = row
		}
		row[sale.Region] += sale.Amount
		regionSeen[sale.Region] = struct{}{}
	}

	products := make([]string, 0, len(cells))
	for product := range cells {
		products = append(products, product)
	}
	slices.Sort(products)

	regions := make([]string, 0, len(regionSeen))
	for region := range regionSeen {
		regions = append(regions, region)
	}
	slices.Sort(regions)

	return models.CrossTab{
		Products: products,
		Regions:  regions,
		Cells:    cells,
	}
}

// Options lists the distinct regions and products of a dataset in first-seen order.
func Options(dataset []models.Sale) models.FilterOptions {
	opts := models.FilterOptions{
		Regions:  make([]string, 0),
		Products: make([]string, 0),
	}
	seenRegion := make(map[string]struct{})
	seenProduct := make(map[string]struct{})

	for _, sale := range dataset {
		if _, ok := seenRegion[sale.Region]; !ok {
			seenRegion[sale.Region] = struct{}{}
			opts.Regions = append(opts.Regions, sale.Region)
		}
		if _, ok := seenProduct[sale.Product]; !ok {
			seenProduct[sale.Product] = struct{}{}
			opts.Products = append(opts.Products, sale.Product)
		}
	}
	return opts
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}
