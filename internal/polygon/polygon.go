// Package polygon serves daily aggregate bars from Polygon.io as series.
//
// Supported fields (case-insensitive):
//
//	open, high, low, close, volume, vwap, transactions
//	PX_OPEN, PX_HIGH, PX_LOW, PX_LAST, PX_VOLUME
//
// Unknown fields are left out of the response.
package polygon

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/rickgao/spreadcache/internal/dates"
	"github.com/rickgao/spreadcache/internal/model"
)

// maxAggs is the largest page ListAggs accepts.
const maxAggs = 50000

type extractor func(a models.Agg) float64

var extractors = map[string]extractor{
	"open":         func(a models.Agg) float64 { return a.Open },
	"high":         func(a models.Agg) float64 { return a.High },
	"low":          func(a models.Agg) float64 { return a.Low },
	"close":        func(a models.Agg) float64 { return a.Close },
	"volume":       func(a models.Agg) float64 { return a.Volume },
	"vwap":         func(a models.Agg) float64 { return a.VWAP },
	"transactions": func(a models.Agg) float64 { return float64(a.Transactions) },
}

var aliases = map[string]string{
	"px_open":   "open",
	"px_high":   "high",
	"px_low":    "low",
	"px_last":   "close",
	"px_volume": "volume",
}

// lookup resolves a requested field name to its extractor.
func lookup(field string) (extractor, bool) {
	name := strings.ToLower(strings.TrimSpace(field))
	if canon, ok := aliases[name]; ok {
		name = canon
	}
	ex, ok := extractors[name]
	return ex, ok
}

// aggSource lists daily bars for ticker between from and to inclusive.
type aggSource func(ctx context.Context, ticker string, from, to time.Time) ([]models.Agg, error)

// Provider fetches daily bars from Polygon.
type Provider struct {
	list   aggSource
	logger *slog.Logger
}

// New creates a Provider using apiKey. adjusted selects split-adjusted bars.
func New(apiKey string, adjusted bool, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.Default()
	}
	client := polygon.New(apiKey)

	return &Provider{
		logger: logger,
		list: func(ctx context.Context, ticker string, from, to time.Time) ([]models.Agg, error) {
			params := models.ListAggsParams{
				Ticker:     ticker,
				Multiplier: 1,
				Timespan:   models.Day,
				From:       models.Millis(from),
				To:         models.Millis(to),
			}.WithAdjusted(adjusted).WithOrder(models.Asc).WithLimit(maxAggs)

			var aggs []models.Agg
			iter := client.ListAggs(ctx, params)
			for iter.Next() {
				aggs = append(aggs, iter.Item())
			}
			if err := iter.Err(); err != nil {
				return nil, err
			}
			return aggs, nil
		},
	}
}

// FetchRange returns the requested bar fields for ticker over [start, end].
// One aggregates request serves every field.
func (p *Provider) FetchRange(ctx context.Context, ticker string, fields []string, start, end time.Time) (map[string]model.Series, error) {
	wanted := make(map[string]extractor, len(fields))
	for _, f := range fields {
		if ex, ok := lookup(f); ok {
			wanted[f] = ex
		} else {
			p.logger.Debug("field not served by polygon", "field", f)
		}
	}
	if len(wanted) == 0 {
		return map[string]model.Series{}, nil
	}

	aggs, err := p.list(ctx, ticker, start, end)
	if err != nil {
		return nil, fmt.Errorf("list aggs %s: %w", ticker, err)
	}

	out := make(map[string]model.Series, len(wanted))
	for _, a := range aggs {
		d := dates.FromMillis(time.Time(a.Timestamp).UnixMilli())
		for f, ex := range wanted {
			out[f] = append(out[f], model.Point{Date: d, Value: model.FloatValue(ex(a))})
		}
	}
	return out, nil
}
