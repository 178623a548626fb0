package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"github.com/tidwall/gjson"

	"github.com/rickgao/spreadcache/internal/dates"
	"github.com/rickgao/spreadcache/internal/model"
)

// ErrTooManyPages is returned when a response keeps returning cursors past
// the client's page limit.
var ErrTooManyPages = errors.New("too many pages")

// FetchRange fetches fields for ticker over [start, end], following cursors
// until the last page. Fields the gateway has no data for are absent from
// the result.
func (c *Client) FetchRange(ctx context.Context, ticker string, fields []string, start, end time.Time) (map[string]model.Series, error) {
	want := make(map[string]bool, len(fields))
	for _, f := range fields {
		want[f] = true
	}

	query := url.Values{}
	query.Set("ticker", ticker)
	query.Set("fields", strings.Join(fields, ","))
	query.Set("start", start.Format(model.DateLayout))
	query.Set("end", end.Format(model.DateLayout))

	out := make(map[string]model.Series)
	for page := 1; ; page++ {
		if page > c.maxPages {
			return nil, fmt.Errorf("get series %s: %w", ticker, ErrTooManyPages)
		}

		body, err := c.doWithRetry(ctx, http.MethodGet, "/series", query)
		if err != nil {
			return nil, fmt.Errorf("get series %s: %w", ticker, err)
		}
		if !gjson.ValidBytes(body) {
			return nil, fmt.Errorf("get series %s: invalid JSON response", ticker)
		}
		doc := gjson.ParseBytes(body)

		var perr error
		doc.Get("fields").ForEach(func(name, points gjson.Result) bool {
			field := name.String()
			if !want[field] {
				return true
			}
			s, err := parsePoints(points)
			if err != nil {
				perr = fmt.Errorf("field %s: %w", field, err)
				return false
			}
			out[field] = append(out[field], s...)
			return true
		})
		if perr != nil {
			return nil, fmt.Errorf("get series %s: %w", ticker, perr)
		}

		cursor := doc.Get("cursor").String()
		if cursor == "" {
			break
		}
		query.Set("cursor", cursor)
	}

	c.logger.Debug("series fetched",
		"ticker", ticker,
		"fields", len(out),
		"start", start.Format(model.DateLayout),
		"end", end.Format(model.DateLayout),
	)
	return out, nil
}

// parsePoints reads an array of {"date", "value"} objects. Dates may be
// strings or Unix milliseconds; values may be numbers, numeric strings or
// null.
func parsePoints(points gjson.Result) (model.Series, error) {
	if !points.IsArray() {
		return nil, fmt.Errorf("expected array, got %s", points.Type)
	}

	var s model.Series
	var err error
	points.ForEach(func(_, p gjson.Result) bool {
		var pt model.Point
		pt, err = parsePoint(p)
		if err != nil {
			return false
		}
		s = append(s, pt)
		return true
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func parsePoint(p gjson.Result) (model.Point, error) {
	var pt model.Point

	d := p.Get("date")
	switch d.Type {
	case gjson.Number:
		pt.Date = dates.FromMillis(d.Int())
	case gjson.String:
		t, err := dates.Parse(d.Str)
		if err != nil {
			return pt, err
		}
		pt.Date = t
	default:
		return pt, fmt.Errorf("point %s: missing date", p.Raw)
	}

	v := p.Get("value")
	switch v.Type {
	case gjson.Null:
		pt.Value = null.Float{}
	case gjson.Number:
		pt.Value = model.FloatValue(v.Float())
	case gjson.String:
		if v.Str == "" {
			break
		}
		f, err := strconv.ParseFloat(v.Str, 64)
		if err != nil {
			return pt, fmt.Errorf("point %s: bad value: %w", d.String(), err)
		}
		pt.Value = model.FloatValue(f)
	default:
		return pt, fmt.Errorf("point %s: unexpected value %s", d.String(), v.Raw)
	}
	return pt, nil
}
