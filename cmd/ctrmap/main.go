// Command ctrmap runs the report engines on local workbooks without the
// HTTP server.
//
//	ctrmap maturity -in schedule.xlsx -out maturity.xlsx -year 2022 -month 12 -currency USD
//	ctrmap poliza -in ledger.xlsx -out poliza.xlsx -company 1000
//	ctrmap company-codes -in ledger.xlsx
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/warp/ctr-mapper/factory"
	"github.com/warp/ctr-mapper/logger"
	"github.com/warp/ctr-mapper/maturity"
	"github.com/warp/ctr-mapper/poliza"
	"github.com/warp/ctr-mapper/store/xlsx"
	"github.com/warp/ctr-mapper/table"
)

func main() {
	log := logger.New(os.Getenv("LOG_LEVEL"), logger.FormatConsole)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "maturity":
		runMaturity(log)
	case "poliza":
		runPoliza(log)
	case "company-codes":
		runCompanyCodes(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("CTR report mapper")
	fmt.Println("\nUsage:")
	fmt.Println("  ctrmap <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  maturity       Build the lease maturity analysis from a schedule export")
	fmt.Println("  poliza         Map a GL export into poliza journal sheets")
	fmt.Println("  company-codes  List the company codes of an export")
	fmt.Println("  help           Show this help message")
	fmt.Println("\nRun 'ctrmap <command> -h' for more information on a command.")
}

func runMaturity(log zerolog.Logger) {
	fs := flag.NewFlagSet("maturity", flag.ExitOnError)
	in := fs.String("in", "", "schedule workbook (.xlsx or .xls)")
	out := fs.String("out", "maturity_analysis.xlsx", "output workbook")
	sheet := fs.String("sheet", "", "input worksheet (default: first)")
	configPath := fs.String("config", "", "JSON run configuration; replaces the run flags below")
	year := fs.Int("year", 0, "report year (required)")
	month := fs.Int("month", 0, "report month, 1-12 (required)")
	currency := fs.String("currency", "", "target currency (default: each row's company currency)")
	rate := fs.String("rate", "", "exchange rate for currencies without an entry in -rates")
	rates := fs.String("rates", "", `per-currency rates as JSON, e.g. {"EUR":1.08}`)
	years := fs.Int("years", maturity.DefaultYears, "number of yearly buckets before Thereafter")
	header := fs.Int("header", maturity.DefaultLayout.HeaderRow, "header row (1-based)")
	data := fs.Int("data", 0, "first data row (default: header+1)")
	company := fs.String("company", "", "keep only this company code")
	statuses := fs.String("statuses", "", "keep only these activation group statuses (comma separated)")
	fs.Parse(os.Args[2:])

	if *in == "" {
		log.Fatal().Msg("Error: -in is required")
	}

	f := factory.NewConfigFactory()
	var params maturity.Params
	var err error
	if *configPath != "" {
		params, err = parseConfigFile(*configPath, f.ParseMaturity)
	} else {
		mj := factory.MaturityJSON{
			ReportYear:     given(fs, "year", year),
			ReportMonth:    given(fs, "month", month),
			TargetCurrency: *currency,
			BucketYears:    given(fs, "years", years),
			HeaderRow:      given(fs, "header", header),
			DataRow:        given(fs, "data", data),
			CompanyCode:    *company,
			Statuses:       splitList(*statuses),
		}
		if mj.Rates, err = parseRates(*rates); err == nil && *rate != "" {
			var r decimal.Decimal
			if r, err = decimal.NewFromString(*rate); err == nil {
				mj.ExchangeRate = &r
			}
		}
		if err == nil {
			params, err = f.MaturityFromJSON(mj)
		}
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid run configuration")
	}

	ctx := logger.WithContext(context.Background(), log)
	log.Info().Str("in", *in).Str("out", *out).Str("params", params.String()).Msg("Running maturity analysis")

	result, err := maturity.Run(ctx, source(*in, *sheet), xlsx.NewSink(*out), params)
	if err != nil {
		log.Fatal().Err(err).Msg("Maturity analysis failed")
	}
	printResult(result)
}

func runPoliza(log zerolog.Logger) {
	fs := flag.NewFlagSet("poliza", flag.ExitOnError)
	in := fs.String("in", "", "GL export workbook (.xlsx or .xls)")
	out := fs.String("out", "poliza_ledger.xlsx", "output workbook")
	sheet := fs.String("sheet", "", "input worksheet (default: first)")
	configPath := fs.String("config", "", "JSON run configuration; replaces the run flags below")
	header := fs.Int("header", poliza.DefaultLayout.HeaderRow, "header row (1-based)")
	data := fs.Int("data", 0, "first data row (default: header+1)")
	company := fs.String("company", "", "keep only this company code")
	rates := fs.String("rates", "", `TC prefill by contract currency as JSON, e.g. {"USD":17.1}`)
	fs.Parse(os.Args[2:])

	if *in == "" {
		log.Fatal().Msg("Error: -in is required")
	}

	f := factory.NewConfigFactory()
	var params poliza.Params
	var err error
	if *configPath != "" {
		params, err = parseConfigFile(*configPath, f.ParsePoliza)
	} else {
		pj := factory.PolizaJSON{HeaderRow: given(fs, "header", header), DataRow: given(fs, "data", data), CompanyCode: *company}
		if pj.Rates, err = parseRates(*rates); err == nil {
			params, err = f.PolizaFromJSON(pj)
		}
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid run configuration")
	}

	ctx := logger.WithContext(context.Background(), log)
	log.Info().Str("in", *in).Str("out", *out).Msg("Running poliza mapping")

	result, err := poliza.Run(ctx, source(*in, *sheet), xlsx.NewSink(*out), params)
	if err != nil {
		log.Fatal().Err(err).Msg("Poliza mapping failed")
	}
	printResult(result)
}

func runCompanyCodes(log zerolog.Logger) {
	fs := flag.NewFlagSet("company-codes", flag.ExitOnError)
	in := fs.String("in", "", "export workbook (.xlsx or .xls)")
	sheet := fs.String("sheet", "", "input worksheet (default: first)")
	header := fs.Int("header", poliza.DefaultLayout.HeaderRow, "header row (1-based)")
	fs.Parse(os.Args[2:])

	if *in == "" {
		log.Fatal().Msg("Error: -in is required")
	}

	codes, err := table.DistinctValues(source(*in, *sheet), *header, table.CompanyCodeColumn)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to extract company codes")
	}
	for _, c := range codes {
		fmt.Println(c)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func source(path, sheet string) table.Source {
	if src, ok := xlsx.SourceFor(path).(*xlsx.LegacySource); ok {
		src.Sheet = sheet
		return src
	}
	src := xlsx.NewSource(path)
	src.Sheet = sheet
	return src
}

func parseConfigFile[P any](path string, parse func(string) (P, error)) (P, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		var zero P
		return zero, fmt.Errorf("read config: %w", err)
	}
	return parse(string(raw))
}

// given returns v only when the flag was set on the command line, so unset
// flags take the factory defaults and an explicit 0 is still validated.
func given(fs *flag.FlagSet, name string, v *int) *int {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	if !set {
		return nil
	}
	return v
}

func parseRates(raw string) (map[string]decimal.Decimal, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var rates map[string]decimal.Decimal
	if err := json.Unmarshal([]byte(raw), &rates); err != nil {
		return nil, fmt.Errorf("-rates: %w", err)
	}
	return rates, nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func printResult(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
