package service

import (
	"context"
	"log/slog"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/sync/errgroup"

	"github.com/mmcdole/importwatch/internal/domain"
)

const lookupConcurrency = 4

// ImportSummary is one row of the jobs listing
type ImportSummary struct {
	Job            domain.Job
	Resource       domain.ResourceRef
	CollectionName string
}

// Label returns the collection name, falling back to the raw reference
func (s ImportSummary) Label() string {
	if s.CollectionName != "" {
		return s.CollectionName
	}
	if !s.Resource.IsZero() {
		return s.Resource.String()
	}
	return s.Job.ResourceID
}

// ImportService lists CSV imports outside the live tracker
type ImportService struct {
	jobs      domain.JobLister
	directory domain.CollectionDirectory
	logger    *slog.Logger
}

// NewImportService creates a new import service
func NewImportService(jobs domain.JobLister, directory domain.CollectionDirectory, logger *slog.Logger) *ImportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportService{jobs: jobs, directory: directory, logger: logger}
}

// List returns the CSV imports matching filter with collection names resolved.
// Name lookups that fail leave the name empty.
func (s *ImportService) List(ctx context.Context, filter domain.JobFilter) ([]ImportSummary, error) {
	jobs, err := s.jobs.ListJobs(ctx, filter)
	if err != nil {
		return nil, err
	}

	summaries := make([]ImportSummary, 0, len(jobs))
	for _, job := range jobs {
		if !job.IsCSV() {
			continue
		}
		summaries = append(summaries, ImportSummary{Job: job, Resource: domain.ParseResourceRef(job.ResourceID)})
	}

	if s.directory == nil {
		return summaries, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)
	for i := range summaries {
		ref := summaries[i].Resource
		if ref.CollectionID == "" {
			continue
		}
		g.Go(func() error {
			name, err := s.directory.CollectionName(gctx, ref.DatabaseID, ref.CollectionID)
			if err != nil {
				s.logger.Debug("collection name unavailable", "resource", ref.String(), "error", err)
				return nil
			}
			summaries[i].CollectionName = name
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Debug("listed imports", "count", len(summaries))
	return summaries, nil
}

// Rank filters summaries by a fuzzy match on their label, best match first.
// An empty query returns the input unchanged.
func Rank(summaries []ImportSummary, query string) []ImportSummary {
	if query == "" {
		return summaries
	}

	labels := make([]string, len(summaries))
	for i, s := range summaries {
		labels[i] = s.Label()
	}

	ranks := fuzzy.RankFindFold(query, labels)
	sort.Stable(ranks)

	out := make([]ImportSummary, 0, len(ranks))
	for _, r := range ranks {
		out = append(out, summaries[r.OriginalIndex])
	}
	return out
}
