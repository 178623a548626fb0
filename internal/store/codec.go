package store

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/guregu/null/v6"

	"github.com/rickgao/spreadcache/internal/model"
)

// dateColumn is the header of the first CSV column.
const dateColumn = "date"

// EncodeCSV writes s as a two-column CSV: a "date,<field>" header followed
// by one row per point. Missing values are written as empty cells.
func EncodeCSV(w io.Writer, field string, s model.Series) error {
	bw := bufio.NewWriter(w)
	cw := csv.NewWriter(bw)

	if err := cw.Write([]string{dateColumn, field}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, 2)
	for _, p := range s {
		row[0] = p.Date.Format(model.DateLayout)
		row[1] = ""
		if p.Value.Valid {
			row[1] = strconv.FormatFloat(p.Value.Float64, 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return bw.Flush()
}

// DecodeCSV parses the output of EncodeCSV. The header must name field and
// the dates must be strictly increasing.
func DecodeCSV(r io.Reader, field string) (model.Series, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = 2
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("missing header")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if header[0] != dateColumn || header[1] != field {
		return nil, fmt.Errorf("header %q,%q does not match field %q", header[0], header[1], field)
	}

	var s model.Series
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		d, err := time.Parse(model.DateLayout, rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: parse date: %w", line, err)
		}

		var v null.Float
		if rec[1] != "" {
			f, err := strconv.ParseFloat(rec[1], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: parse value: %w", line, err)
			}
			v = model.FloatValue(f)
		}

		s = append(s, model.Point{Date: d, Value: v})
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
