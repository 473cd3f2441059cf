package reconcile

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/iwvelando/bigmac-dashboard/pkg/constants"
	"github.com/iwvelando/bigmac-dashboard/pkg/datetime"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Accepted header names for each price column; the first present wins.
var (
	priceDateColumns     = []string{"date"}
	priceCountryColumns  = []string{"iso_a3", "iso_country_code"}
	priceLocalColumns    = []string{"local_price"}
	priceExchangeColumns = []string{"dollar_ex", "dollar_exchange"}
	priceDollarColumns   = []string{"dollar_price"}
	priceNameColumns     = []string{"name"}
	priceCurrencyColumns = []string{"currency_code"}
	priceUSDRawColumns   = []string{"USD_raw"}
)

// LoadPriceSeries parses a delimited Big Mac index table and returns the
// date-ordered observations of one country. An empty country selects
// constants.DefaultCountry. When a date repeats, the last row wins.
func LoadPriceSeries(logger *zap.Logger, r io.Reader, country string) (*PriceSeries, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	country = strings.ToUpper(strings.TrimSpace(country))
	if country == "" {
		country = constants.DefaultCountry
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read price data: %v", ErrParse, err)
	}
	t, err := readDelimited(data)
	if err != nil {
		return nil, err
	}

	cols := map[string]int{
		"date":         t.column(priceDateColumns...),
		"iso_a3":       t.column(priceCountryColumns...),
		"local_price":  t.column(priceLocalColumns...),
		"dollar_ex":    t.column(priceExchangeColumns...),
		"dollar_price": t.column(priceDollarColumns...),
	}
	var missing []string
	for _, name := range []string{"date", "iso_a3", "local_price", "dollar_ex", "dollar_price"} {
		if cols[name] < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: price table is missing required column(s) %s", ErrParse, strings.Join(missing, ", "))
	}
	nameIdx := t.column(priceNameColumns...)
	currencyIdx := t.column(priceCurrencyColumns...)
	usdRawIdx := t.column(priceUSDRawColumns...)

	var observations []PriceObservation
	for i, row := range t.rows {
		if !strings.EqualFold(cell(row, cols["iso_a3"]), country) {
			continue
		}
		line := i + 2 // 1-based, after the header

		date, err := datetime.ParseDate(cell(row, cols["date"]))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrParse, line, err)
		}
		local, err := parseDecimal(row, cols["local_price"], "local_price", line)
		if err != nil {
			return nil, err
		}
		exchange, err := parseDecimal(row, cols["dollar_ex"], "dollar_ex", line)
		if err != nil {
			return nil, err
		}
		dollar, err := parseDecimal(row, cols["dollar_price"], "dollar_price", line)
		if err != nil {
			return nil, err
		}
		if !local.IsPositive() {
			return nil, fmt.Errorf("%w: row %d: local_price must be positive, got %s", ErrParse, line, local)
		}
		if !dollar.IsPositive() {
			return nil, fmt.Errorf("%w: row %d: dollar_price must be positive, got %s", ErrParse, line, dollar)
		}

		obs := PriceObservation{
			Date:           date,
			Name:           cell(row, nameIdx),
			CountryCode:    country,
			CurrencyCode:   cell(row, currencyIdx),
			LocalPrice:     local,
			DollarExchange: exchange,
			DollarPrice:    dollar,
		}
		if raw := cell(row, usdRawIdx); raw != "" {
			v, err := decimal.NewFromString(normalizeNumber(raw))
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: invalid USD_raw %q", ErrParse, line, raw)
			}
			obs.USDRaw = &v
		}
		observations = append(observations, obs)
	}

	if len(observations) == 0 {
		return nil, fmt.Errorf("%w: no price rows for country %s", ErrEmptyResult, country)
	}

	deduped := sortPrices(observations)

	logger.Info("price series loaded",
		zap.String("op", "reconcile.LoadPriceSeries"),
		zap.String("country", country),
		zap.Int("observations", len(deduped)),
		zap.String("start", datetime.Format(deduped[0].Date)),
		zap.String("end", datetime.Format(deduped[len(deduped)-1].Date)),
	)

	return &PriceSeries{Country: country, Observations: deduped}, nil
}

func parseDecimal(row []string, idx int, column string, line int) (decimal.Decimal, error) {
	raw := cell(row, idx)
	if raw == "" {
		return decimal.Decimal{}, fmt.Errorf("%w: row %d: %s is empty", ErrParse, line, column)
	}
	v, err := decimal.NewFromString(normalizeNumber(raw))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: row %d: invalid %s %q", ErrParse, line, column, raw)
	}
	return v, nil
}

// normalizeNumber drops thousands separators and surrounding spaces.
func normalizeNumber(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ",", "")
}

// sortPrices returns a date-ordered copy of observations with one entry per
// date. When a date repeats, the later entry wins.
func sortPrices(observations []PriceObservation) []PriceObservation {
	sorted := append([]PriceObservation(nil), observations...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	deduped := sorted[:0]
	for _, obs := range sorted {
		if n := len(deduped); n > 0 && deduped[n-1].Date.Equal(obs.Date) {
			deduped[n-1] = obs
			continue
		}
		deduped = append(deduped, obs)
	}
	return deduped
}
