package pages

import (
	"fmt"

	"github.com/Rhymond/go-money"

	"github.com/signalist/signalist/internal/domain"
)

// WatchlistRow is a display-ready watchlist item
type WatchlistRow struct {
	Symbol    string
	Company   string
	Price     string
	Change    string
	MarketCap string
	PERatio   string
	Negative  bool
}

// FormatPrice renders a USD amount, e.g. "$1,234.50"
func FormatPrice(v float64) string {
	return money.NewFromFloat(v, money.USD).Display()
}

// FormatMarketCap renders a USD amount with a T/B/M suffix, e.g. "$1.23T"
func FormatMarketCap(v float64) string {
	switch {
	case v >= 1e12:
		return FormatPrice(v/1e12) + "T"
	case v >= 1e9:
		return FormatPrice(v/1e9) + "B"
	case v >= 1e6:
		return FormatPrice(v/1e6) + "M"
	default:
		return FormatPrice(v)
	}
}

// FormatChange renders a signed percentage, e.g. "+1.25%"
func FormatChange(v float64) string {
	return fmt.Sprintf("%+.2f%%", v)
}

// NewWatchlistRow formats item; missing metrics render as "-"
func NewWatchlistRow(item domain.WatchlistItem) WatchlistRow {
	row := WatchlistRow{
		Symbol:    item.Symbol,
		Company:   item.Company,
		Price:     "-",
		Change:    "-",
		MarketCap: "-",
		PERatio:   "-",
	}
	if row.Company == "" {
		row.Company = item.Symbol
	}
	if item.Price != nil {
		row.Price = FormatPrice(*item.Price)
	}
	if item.ChangePercent != nil {
		row.Change = FormatChange(*item.ChangePercent)
		row.Negative = *item.ChangePercent < 0
	}
	if item.MarketCap != nil {
		row.MarketCap = FormatMarketCap(*item.MarketCap)
	}
	if item.PERatio != nil {
		row.PERatio = fmt.Sprintf("%.1f", *item.PERatio)
	}
	return row
}
