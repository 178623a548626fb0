package model

import (
	"sort"
	"time"

	"github.com/guregu/null/v6"
)

// Column holds one field's values aligned to a Table's index.
type Column struct {
	Field  string
	Values []null.Float
}

// Table is a multi-field result keyed by date. It is assembled per request
// and never persisted.
type Table struct {
	Index   []time.Time // Ascending union of every column's dates
	Columns []Column    // One per field that produced data, in request order

	// Missing lists requested fields that produced no data for the window.
	Missing []string
}

// NewTable aligns the given series on the union of their dates. Fields are
// kept in the order of fields; fields whose series is empty are recorded
// as missing.
func NewTable(fields []string, series map[string]Series) *Table {
	t := &Table{}

	seen := make(map[time.Time]struct{})
	for _, f := range fields {
		s := series[f]
		if len(s) == 0 {
			t.Missing = append(t.Missing, f)
			continue
		}
		for _, p := range s {
			if _, ok := seen[p.Date]; !ok {
				seen[p.Date] = struct{}{}
				t.Index = append(t.Index, p.Date)
			}
		}
	}
	sort.Slice(t.Index, func(i, j int) bool { return t.Index[i].Before(t.Index[j]) })

	row := make(map[time.Time]int, len(t.Index))
	for i, d := range t.Index {
		row[d] = i
	}

	for _, f := range fields {
		s := series[f]
		if len(s) == 0 {
			continue
		}
		col := Column{Field: f, Values: make([]null.Float, len(t.Index))}
		for _, p := range s {
			col.Values[row[p.Date]] = p.Value
		}
		t.Columns = append(t.Columns, col)
	}

	return t
}

// Empty reports whether no field produced data.
func (t *Table) Empty() bool {
	return t == nil || len(t.Columns) == 0
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Index)
}

// Fields returns the column names in order.
func (t *Table) Fields() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Field
	}
	return out
}

// Column returns the column for field.
func (t *Table) Column(field string) (Column, bool) {
	if t == nil {
		return Column{}, false
	}
	for _, c := range t.Columns {
		if c.Field == field {
			return c, true
		}
	}
	return Column{}, false
}

// Value returns the cell at row for field. Unknown fields read as missing.
func (t *Table) Value(row int, field string) null.Float {
	c, ok := t.Column(field)
	if !ok || row < 0 || row >= len(c.Values) {
		return null.Float{}
	}
	return c.Values[row]
}

// Series extracts a single column as a series, skipping rows where the
// field has no value.
func (t *Table) Series(field string) Series {
	c, ok := t.Column(field)
	if !ok {
		return nil
	}
	var out Series
	for i, v := range c.Values {
		if !v.Valid {
			continue
		}
		out = append(out, Point{Date: t.Index[i], Value: v})
	}
	return out
}
