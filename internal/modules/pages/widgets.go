package pages

import "strings"

// tvScriptBase prefixes every TradingView embed script
const tvScriptBase = "https://s3.tradingview.com/external-embedding/embed-widget"

// Widget is one embedded TradingView widget. Config is rendered as the script body JSON.
type Widget struct {
	Title  string
	Script string
	Height int
	Config map[string]interface{}
}

type tvSymbol struct {
	Symbol string
	Name   string
}

var widgetTabs = []struct {
	Title   string
	Symbols []tvSymbol
}{
	{"Financial", []tvSymbol{
		{"NYSE:JPM", "JPMorgan Chase"}, {"NYSE:WFC", "Wells Fargo Co New"}, {"NYSE:BAC", "Bank Amer Corp"},
		{"NYSE:HSBC", "Hsbc Hldgs Plc"}, {"NYSE:C", "Citigroup Inc"}, {"NYSE:MA", "Mastercard Incorporated"},
	}},
	{"Technology", []tvSymbol{
		{"NASDAQ:AAPL", "Apple"}, {"NASDAQ:GOOGL", "Alphabet"}, {"NASDAQ:MSFT", "Microsoft"},
		{"NASDAQ:META", "Meta Platforms"}, {"NYSE:ORCL", "Oracle Corp"}, {"NASDAQ:INTC", "Intel Corp"},
	}},
	{"Services", []tvSymbol{
		{"NASDAQ:AMZN", "Amazon"}, {"NYSE:BABA", "Alibaba Group Hldg Ltd"}, {"NYSE:T", "At&t Inc"},
		{"NYSE:WMT", "Walmart"}, {"NYSE:V", "Visa"},
	}},
}

func script(name string) string {
	return tvScriptBase + "-" + name + ".js"
}

// DashboardWidgets returns the left and right columns of the dashboard
func DashboardWidgets() (left, right []Widget) {
	overviewTabs := make([]map[string]interface{}, 0, len(widgetTabs))
	quoteGroups := make([]map[string]interface{}, 0, len(widgetTabs))
	for _, tab := range widgetTabs {
		symbols := make([]map[string]string, 0, len(tab.Symbols))
		quotes := make([]map[string]string, 0, len(tab.Symbols))
		for _, s := range tab.Symbols {
			symbols = append(symbols, map[string]string{"s": s.Symbol, "d": s.Name})
			quotes = append(quotes, map[string]string{"name": s.Symbol, "displayName": s.Name})
		}
		overviewTabs = append(overviewTabs, map[string]interface{}{"title": tab.Title, "symbols": symbols})
		quoteGroups = append(quoteGroups, map[string]interface{}{"name": tab.Title, "symbols": quotes})
	}

	left = []Widget{
		{
			Title:  "Market Overview",
			Script: script("market-overview"),
			Height: 600,
			Config: map[string]interface{}{
				"colorTheme":                      "dark",
				"dateRange":                       "12M",
				"locale":                          "en",
				"isTransparent":                   true,
				"showFloatingTooltip":             true,
				"plotLineColorGrowing":            "#0FEDBE",
				"plotLineColorFalling":            "#0FEDBE",
				"gridLineColor":                   "rgba(240, 243, 250, 0)",
				"scaleFontColor":                  "#DBDBDB",
				"belowLineFillColorGrowing":       "rgba(41, 98, 255, 0.12)",
				"belowLineFillColorFalling":       "rgba(41, 98, 255, 0.12)",
				"belowLineFillColorGrowingBottom": "rgba(41, 98, 255, 0)",
				"belowLineFillColorFallingBottom": "rgba(41, 98, 255, 0)",
				"symbolActiveColor":               "rgba(15, 237, 190, 0.05)",
				"tabs":                            overviewTabs,
				"support_host":                    "https://www.tradingview.com",
				"backgroundColor":                 "#141414",
				"width":                           "100%",
				"height":                          600,
				"showSymbolLogo":                  true,
				"showChart":                       true,
			},
		},
		{
			Title:  "Stock Heatmap",
			Script: script("stock-heatmap"),
			Height: 600,
			Config: map[string]interface{}{
				"dataSource":       "SPX500",
				"blockSize":        "market_cap_basic",
				"blockColor":       "change",
				"grouping":         "sector",
				"isTransparent":    true,
				"locale":           "en",
				"colorTheme":       "dark",
				"exchanges":        []string{},
				"hasTopBar":        false,
				"isDataSetEnabled": false,
				"isZoomEnabled":    true,
				"hasSymbolTooltip": true,
				"isMonoSize":       false,
				"width":            "100%",
				"height":           "600",
			},
		},
	}

	right = []Widget{
		{
			Script: script("timeline"),
			Height: 600,
			Config: map[string]interface{}{
				"displayMode":   "regular",
				"feedMode":      "market",
				"colorTheme":    "dark",
				"isTransparent": true,
				"locale":        "en",
				"market":        "stock",
				"width":         "100%",
				"height":        "600",
			},
		},
		{
			Script: script("market-quotes"),
			Height: 600,
			Config: map[string]interface{}{
				"title":           "Stocks",
				"width":           "100%",
				"height":          600,
				"locale":          "en",
				"showSymbolLogo":  true,
				"colorTheme":      "dark",
				"isTransparent":   false,
				"backgroundColor": "#0F0F0F",
				"symbolsGroups":   quoteGroups,
			},
		},
	}
	return left, right
}

func chartConfig(symbol, style string) map[string]interface{} {
	return map[string]interface{}{
		"allow_symbol_change": false,
		"calendar":            false,
		"details":             true,
		"hide_side_toolbar":   true,
		"hide_top_toolbar":    false,
		"hide_legend":         false,
		"hide_volume":         false,
		"interval":            "D",
		"save_image":          false,
		"style":               style,
		"symbol":              symbol,
		"theme":               "dark",
		"timezone":            "Etc/UTC",
		"backgroundColor":     "#141414",
		"gridColor":           "#141414",
		"locale":              "en",
		"width":               "100%",
		"height":              600,
	}
}

// StockWidgets returns the left and right columns of a stock details page
func StockWidgets(symbol string) (left, right []Widget) {
	symbol = strings.ToUpper(symbol)
	base := func(height int) map[string]interface{} {
		return map[string]interface{}{
			"symbol":        symbol,
			"colorTheme":    "dark",
			"isTransparent": true,
			"locale":        "en",
			"width":         "100%",
			"height":        height,
		}
	}

	left = []Widget{
		{Script: script("symbol-info"), Height: 170, Config: base(170)},
		{Script: script("advanced-chart"), Height: 600, Config: chartConfig(symbol, "1")},
		{Script: script("advanced-chart"), Height: 600, Config: chartConfig(symbol, "10")},
	}

	technical := base(400)
	technical["interval"] = "1h"
	technical["largeChartUrl"] = ""
	technical["showIntervalTabs"] = true
	technical["displayMode"] = "single"

	financials := base(464)
	financials["displayMode"] = "regular"

	right = []Widget{
		{Script: script("technical-analysis"), Height: 400, Config: technical},
		{Script: script("symbol-profile"), Height: 440, Config: base(440)},
		{Script: script("financials"), Height: 464, Config: financials},
	}
	return left, right
}
