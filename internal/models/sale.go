package models

import "time"

const DateLayout = "2006-01-02"

type Sale struct {
	Region  string    `json:"region"`
	Product string    `json:"product"`
	Amount  float64   `json:"amount"`
	Date    time.Time `json:"date"`
}

// Day truncates t to its calendar day in UTC so dates compare and group by day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type Selection struct {
	Regions  []string `json:"regions"`
	Products []string `json:"products"`
}

type FilterOptions struct {
	Regions  []string `json:"regions"`
	Products []string `json:"products"`
}

// KPIs summarises a view. Mean and Max are nil when the view is empty.
type KPIs struct {
	Count int      `json:"count"`
	Total float64  `json:"total"`
	Mean  *float64 `json:"mean"`
	Max   *float64 `json:"max"`
}

func (k KPIs) Empty() bool {
	return k.Count == 0
}

type RegionSales struct {
	Region string  `json:"region"`
	Amount float64 `json:"amount"`
}

type DailySales struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// CrossTab holds product×region sums. Cells only contains combinations
// present in the data; use Value to tell an absent cell from a zero sum.
type CrossTab struct {
	Products []string                      `json:"products"`
	Regions  []string                      `json:"regions"`
	Cells    map[string]map[string]float64 `json:"cells"`
}

func (c CrossTab) Value(product, region string) (float64, bool) {
	row, ok := c.Cells[product]
	if !ok {
		return 0, false
	}
	v, ok := row[region]
	return v, ok
}

// Total sums every present cell.
func (c CrossTab) Total() float64 {
	var total float64
	for _, row := range c.Cells {
		for _, v := range row {
			total += v
		}
	}
	return total
}
