package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"HealthMetricsETL/internal/app"
	"HealthMetricsETL/internal/config"
	"HealthMetricsETL/internal/domain"
	"HealthMetricsETL/internal/logging"
	"HealthMetricsETL/internal/query"
	"HealthMetricsETL/internal/render"
)

const dateLayout = "2006-01-02"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx := context.Background()
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		fail(err)
	}
	defer application.Close()

	if err := dispatch(ctx, application, os.Args[1], os.Args[2:]); err != nil {
		fail(err)
	}
}

func dispatch(ctx context.Context, application *app.Application, command string, args []string) error {
	switch command {
	case "fetch_data":
		return runFetch(ctx, application, args, false)
	case "fetch_vaccine_data":
		return runFetch(ctx, application, args, true)
	case "list_tables":
		return runListTables(ctx, application)
	case "drop_table":
		return runDropTable(ctx, application, args)
	case "drop_tables":
		return runDropAllTables(ctx, application)
	case "query_data":
		return runQuery(ctx, application, args, query.ScopeCovid)
	case "query_data_vaccine":
		return runQuery(ctx, application, args, query.ScopeVaccine)
	case "help", "-h", "--help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// runFetch ingests one or more comma-separated countries over a date range.
func runFetch(ctx context.Context, application *app.Application, args []string, vaccine bool) error {
	if len(args) != 3 {
		return errors.New("usage: fetch_data <country[,country...]> <start YYYY-MM-DD> <end YYYY-MM-DD>")
	}

	countries := splitCountries(args[0])
	start, err := parseDate(args[1])
	if err != nil {
		return err
	}
	end, err := parseDate(args[2])
	if err != nil {
		return err
	}

	var summaries []domain.IngestSummary
	if vaccine {
		summaries, err = application.Pipeline().IngestManyVaccinations(ctx, countries, start, end)
	} else {
		summaries, err = application.Pipeline().IngestManyCases(ctx, countries, start, end)
	}

	render.IngestSummaries(os.Stdout, summaries)
	return err
}

func runListTables(ctx context.Context, application *app.Application) error {
	tables, err := application.Repository().ListTables(ctx)
	if err != nil {
		return err
	}

	fmt.Println("Available tables:")
	if len(tables) == 0 {
		fmt.Println("  (none)")
		return nil
	}
	for _, name := range tables {
		fmt.Printf("  - %s\n", name)
	}
	return nil
}

func runDropTable(ctx context.Context, application *app.Application, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: drop_table <name>")
	}
	if err := application.Repository().DropTable(ctx, args[0]); err != nil {
		return err
	}
	fmt.Printf("Table %q dropped.\n", args[0])
	return nil
}

func runDropAllTables(ctx context.Context, application *app.Application) error {
	dropped, err := application.Repository().DropAllTables(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%d table(s) dropped.\n", dropped)
	return nil
}

func runQuery(ctx context.Context, application *app.Application, args []string, scope query.Scope) error {
	if len(args) < 1 || strings.HasPrefix(args[0], "-") {
		return fmt.Errorf("usage: query_data <query_type> [--country NAME] [--metric cases|deaths|recovered] [--n N]")
	}
	name := args[0]

	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	country := flags.String("country", "", "country name")
	metric := flags.String("metric", "", "metric: cases, deaths, recovered")
	n := flags.Int("n", 0, "number of top countries")
	if err := flags.Parse(args[1:]); err != nil {
		return err
	}

	params := domain.QueryParams{Country: *country, Metric: *metric, N: *n}
	result, err := application.Pipeline().Query(ctx, scope, name, params)
	if err != nil {
		return err
	}

	render.ResultSet(os.Stdout, result)
	return nil
}

func splitCountries(value string) []string {
	parts := strings.Split(value, ",")
	countries := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			countries = append(countries, trimmed)
		}
	}
	return countries
}

func parseDate(value string) (time.Time, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, &domain.ValidationError{
			Kind: domain.ValidationInvalidDateRange,
			Msg:  fmt.Sprintf("date %q is not in YYYY-MM-DD form", value),
		}
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// fail prints the typed failure and exits; no command terminates with a raw
// panic.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func usage() {
	fmt.Println(`Global healthcare data ETL & analysis tool

Commands:
  fetch_data <country[,..]> <start> <end>          ingest COVID stats
  fetch_vaccine_data <country[,..]> <start> <end>  ingest vaccination data
  list_tables                                      list persisted tables
  drop_table <name>                                drop one table
  drop_tables                                      drop all tables
  query_data <query_type> [flags]                  run a COVID query
  query_data_vaccine <query_type> [flags]          run a vaccination query

Query flags: --country NAME  --metric cases|deaths|recovered  --n N

COVID queries: ` + strings.Join(query.NewCatalog().Names(query.ScopeCovid), ", ") + `
Vaccine queries: ` + strings.Join(query.NewCatalog().Names(query.ScopeVaccine), ", "))
}
