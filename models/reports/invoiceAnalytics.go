package reports

import (
	"fmt"
	"sort"
	"time"

	"github.com/mmdatafocus/autoservice_backend/models"
	"github.com/shopspring/decimal"
)

// rankedItemLimit caps mostSoldItems and leastSoldItems.
const rankedItemLimit = 5

type DateRange struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// DefaultDateRange is the month leading up to now.
func DefaultDateRange(now time.Time) DateRange {
	return DateRange{StartDate: now.AddDate(0, -1, 0), EndDate: now}
}

// EndOfDay is the last instant of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location()).Add(-time.Nanosecond)
}

// Contains is inclusive at both ends.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.StartDate) && !t.After(r.EndDate)
}

type ItemSales struct {
	ItemType models.ItemType `json:"item_type"`
	ItemId   string          `json:"item_id"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

type SalesTrend struct {
	Month int             `json:"month"`
	Year  int             `json:"year"`
	Label string          `json:"label"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

type InvoiceAnalytics struct {
	DateRange           DateRange       `json:"date_range"`
	TotalInvoices       int             `json:"total_invoices"`
	TotalSales          decimal.Decimal `json:"total_sales"`
	OutstandingAmount   decimal.Decimal `json:"outstanding_amount"`
	OutstandingInvoices int             `json:"outstanding_invoices"`
	MostSoldItems       []ItemSales     `json:"most_sold_items"`
	LeastSoldItems      []ItemSales     `json:"least_sold_items"`
	SalesTrends         []SalesTrend    `json:"sales_trends"`
}

type itemKey struct {
	itemType models.ItemType
	itemId   string
}

type monthKey struct {
	year  int
	month time.Month
}

// ComputeInvoiceAnalytics aggregates invoices that are already filtered by owner and date.
// Invoices are walked in creation order so first-seen order decides ties.
func ComputeInvoiceAnalytics(dateRange DateRange, invoices []*models.Invoice) *InvoiceAnalytics {
	ordered := append([]*models.Invoice(nil), invoices...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	result := &InvoiceAnalytics{
		DateRange:         dateRange,
		TotalSales:        decimal.Zero,
		OutstandingAmount: decimal.Zero,
		MostSoldItems:     []ItemSales{},
		LeastSoldItems:    []ItemSales{},
		SalesTrends:       []SalesTrend{},
	}

	itemIndex := make(map[itemKey]int)
	items := make([]ItemSales, 0)
	monthIndex := make(map[monthKey]int)

	for _, inv := range ordered {
		result.TotalInvoices++
		result.TotalSales = result.TotalSales.Add(inv.Total)
		if inv.IsOutstanding() {
			result.OutstandingInvoices++
			result.OutstandingAmount = result.OutstandingAmount.Add(inv.Total)
		}

		for _, line := range inv.Items {
			key := itemKey{itemType: line.ItemType, itemId: line.ItemId}
			if i, ok := itemIndex[key]; ok {
				items[i].Quantity += line.Quantity
				items[i].Total = items[i].Total.Add(line.Total)
				continue
			}
			itemIndex[key] = len(items)
			items = append(items, ItemSales{
				ItemType: line.ItemType,
				ItemId:   line.ItemId,
				Name:     line.Name,
				Quantity: line.Quantity,
				Total:    line.Total,
			})
		}

		date := inv.Date.UTC()
		mk := monthKey{year: date.Year(), month: date.Month()}
		i, ok := monthIndex[mk]
		if !ok {
			i = len(result.SalesTrends)
			monthIndex[mk] = i
			result.SalesTrends = append(result.SalesTrends, SalesTrend{
				Month: int(mk.month),
				Year:  mk.year,
				Label: fmt.Sprintf("%d/%d", int(mk.month), mk.year),
				Total: decimal.Zero,
			})
		}
		result.SalesTrends[i].Total = result.SalesTrends[i].Total.Add(inv.Total)
		result.SalesTrends[i].Count++
	}

	result.MostSoldItems, result.LeastSoldItems = rankItems(items)

	sort.SliceStable(result.SalesTrends, func(i, j int) bool {
		a, b := result.SalesTrends[i], result.SalesTrends[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Month < b.Month
	})
	return result
}

// rankItems sorts by total descending (stable), takes the first five as most sold and
// the last five, lowest first, as least sold.
func rankItems(items []ItemSales) ([]ItemSales, []ItemSales) {
	ranked := append([]ItemSales(nil), items...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Total.GreaterThan(ranked[j].Total)
	})

	most := append([]ItemSales{}, ranked[:min(rankedItemLimit, len(ranked))]...)

	tail := ranked[max(0, len(ranked)-rankedItemLimit):]
	least := make([]ItemSales, 0, len(tail))
	for i := len(tail) - 1; i >= 0; i-- {
		least = append(least, tail[i])
	}
	return most, least
}
