// Command spreadcache serves one time-series request through the cache and
// prints the result as CSV.
//
//	spreadcache -ticker BOND_A -fields YIELD,YAS_ASW_SPREAD -start 2024-01-01 -end 2024-03-31
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rickgao/spreadcache/internal/app"
	"github.com/rickgao/spreadcache/internal/config"
	"github.com/rickgao/spreadcache/internal/dates"
	"github.com/rickgao/spreadcache/internal/logging"
	"github.com/rickgao/spreadcache/internal/model"
	"github.com/rickgao/spreadcache/internal/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "spreadcache:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("spreadcache", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file (defaults apply when empty)")
	ticker := fs.String("ticker", "", "instrument ticker")
	fields := fs.String("fields", "", "comma-separated field names")
	start := fs.String("start", "", "first day (inclusive)")
	end := fs.String("end", "", "last day (inclusive)")
	root := fs.String("root", "", "override the file store root")
	showVersion := fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Fprintln(stdout, version.String())
		return nil
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *root != "" {
		cfg.Store.File.Root = *root
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, stderr)
	if err != nil {
		return err
	}

	window, err := dates.ParseRange(*start, *end)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	tbl, err := a.Cache.GetTimeSeries(ctx, *ticker, strings.Split(*fields, ","), window.Start, window.End)
	if err != nil {
		return err
	}

	if len(tbl.Missing) > 0 {
		fmt.Fprintf(stderr, "no data for: %s\n", strings.Join(tbl.Missing, ", "))
	}
	return writeCSV(stdout, tbl)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadAndValidate(path)
}

// writeCSV prints tbl as "date,<fields...>" rows. Missing cells are empty.
func writeCSV(w io.Writer, tbl *model.Table) error {
	cw := csv.NewWriter(w)

	header := append([]string{"date"}, tbl.Fields()...)
	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for i, d := range tbl.Index {
		row[0] = d.Format(model.DateLayout)
		for j, col := range tbl.Columns {
			row[j+1] = ""
			if v := col.Values[i]; v.Valid {
				row[j+1] = strconv.FormatFloat(v.Float64, 'g', -1, 64)
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
