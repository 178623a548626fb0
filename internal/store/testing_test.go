package store

import (
	"time"

	"github.com/guregu/null/v6"

	"github.com/rickgao/spreadcache/internal/model"
)

func day(s string) time.Time {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// sampleSeries covers plain, fractional, negative and missing values.
func sampleSeries() model.Series {
	return model.Series{
		{Date: day("2024-01-01"), Value: null.FloatFrom(4.125)},
		{Date: day("2024-01-02"), Value: null.FloatFrom(0.1)},
		{Date: day("2024-01-03"), Value: null.Float{}},
		{Date: day("2024-01-04"), Value: null.FloatFrom(-12.5)},
		{Date: day("2024-01-05"), Value: null.FloatFrom(1e-9)},
	}
}

func equalSeries(a, b model.Series) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Date.Equal(b[i].Date) || a[i].Value != b[i].Value {
			return false
		}
	}
	return true
}
