package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"HealthMetricsETL/internal/domain"
	"HealthMetricsETL/internal/normalize"
	"HealthMetricsETL/internal/ports"
	"HealthMetricsETL/internal/query"
)

// PipelineDeps wires the driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.SeriesSource
	Repository ports.StatsRepository
	Catalog    *query.Catalog
	Logger     *slog.Logger
}

// Pipeline drives the ingest path (fetch → normalize → upsert) and the read
// path (catalog validation → repository query).
type Pipeline struct {
	source     ports.SeriesSource
	repository ports.StatsRepository
	catalog    *query.Catalog
	logger     *slog.Logger
}

// IngestRequest identifies one country and an inclusive date range.
type IngestRequest struct {
	Country string
	Start   time.Time
	End     time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		source:     deps.Source,
		repository: deps.Repository,
		catalog:    deps.Catalog,
		logger:     deps.Logger,
	}
}

// IngestCases runs the full case pipeline for one country. A fetch failure
// short-circuits before normalization and persistence; the summary always
// reflects what actually happened, including partial upserts.
func (p *Pipeline) IngestCases(ctx context.Context, req IngestRequest) (domain.IngestSummary, error) {
	summary := domain.IngestSummary{Country: req.Country}

	raw, err := p.source.FetchCases(ctx, req.Country, req.Start, req.End)
	if err != nil {
		summary.Errors = append(summary.Errors, err.Error())
		return summary, err
	}

	records, report := normalize.Cases(raw, req.Start, req.End, p.logger)
	summary.RecordsSeen = report.Seen
	summary.Skipped = report.Skipped()

	return p.persist(ctx, summary, func() (domain.UpsertResult, error) {
		return p.repository.UpsertCases(ctx, records)
	})
}

// IngestVaccinations runs the vaccination pipeline for one country.
func (p *Pipeline) IngestVaccinations(ctx context.Context, req IngestRequest) (domain.IngestSummary, error) {
	summary := domain.IngestSummary{Country: req.Country}

	raw, err := p.source.FetchVaccinations(ctx, req.Country, req.Start, req.End)
	if err != nil {
		summary.Errors = append(summary.Errors, err.Error())
		return summary, err
	}

	records, report := normalize.Vaccinations(raw, req.Start, req.End, p.logger)
	summary.RecordsSeen = report.Seen
	summary.Skipped = report.Skipped()

	return p.persist(ctx, summary, func() (domain.UpsertResult, error) {
		return p.repository.UpsertVaccinations(ctx, records)
	})
}

func (p *Pipeline) persist(ctx context.Context, summary domain.IngestSummary, upsert func() (domain.UpsertResult, error)) (domain.IngestSummary, error) {
	if err := p.repository.EnsureSchema(ctx); err != nil {
		summary.Errors = append(summary.Errors, err.Error())
		return summary, err
	}

	result, err := upsert()
	summary.Inserted = result.Inserted
	summary.Updated = result.Updated
	if err != nil {
		summary.Errors = append(summary.Errors, err.Error())
		return summary, err
	}

	p.info("ingest complete", "country", summary.Country,
		"seen", summary.RecordsSeen, "inserted", summary.Inserted,
		"updated", summary.Updated, "skipped", summary.Skipped)
	return summary, nil
}

// IngestManyCases ingests several countries in sequence. Permanent per-country
// failures (no data, bad payload, unknown country) are recorded and the run
// moves on; a transient network failure aborts the remainder since the next
// countries would hit the same outage.
func (p *Pipeline) IngestManyCases(ctx context.Context, countries []string, start, end time.Time) ([]domain.IngestSummary, error) {
	summaries := make([]domain.IngestSummary, 0, len(countries))
	for _, country := range countries {
		summary, err := p.IngestCases(ctx, IngestRequest{Country: country, Start: start, End: end})
		summaries = append(summaries, summary)
		if err != nil && abortsRun(err) {
			return summaries, err
		}
	}
	return summaries, nil
}

// IngestManyVaccinations mirrors IngestManyCases for vaccination data.
func (p *Pipeline) IngestManyVaccinations(ctx context.Context, countries []string, start, end time.Time) ([]domain.IngestSummary, error) {
	summaries := make([]domain.IngestSummary, 0, len(countries))
	for _, country := range countries {
		summary, err := p.IngestVaccinations(ctx, IngestRequest{Country: country, Start: start, End: end})
		summaries = append(summaries, summary)
		if err != nil && abortsRun(err) {
			return summaries, err
		}
	}
	return summaries, nil
}

func abortsRun(err error) bool {
	var fetchErr *domain.FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Transient()
	}
	var storageErr *domain.StorageError
	return errors.As(err, &storageErr)
}

// Query validates the request against the catalog before any storage work.
func (p *Pipeline) Query(ctx context.Context, scope query.Scope, name string, params domain.QueryParams) (*domain.ResultSet, error) {
	if _, err := p.catalog.Validate(scope, name, params); err != nil {
		return nil, err
	}

	// A fresh store has no tables yet; querying it should yield empty
	// results, not a missing-relation error.
	if err := p.repository.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	result, err := p.repository.RunQuery(ctx, name, params)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", name, err)
	}
	return result, nil
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}
