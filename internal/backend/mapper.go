package backend

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/mmcdole/importwatch/internal/domain"
)

// MapJobs converts wire migrations to domain jobs
func MapJobs(migrations []Migration) []domain.Job {
	jobs := make([]domain.Job, 0, len(migrations))
	for _, m := range migrations {
		jobs = append(jobs, MapJob(m))
	}
	return jobs
}

// MapJob converts a single wire migration to a domain job
func MapJob(m Migration) domain.Job {
	job := domain.Job{
		ID:           m.ID,
		Source:       m.Source,
		Status:       domain.ParseStatus(m.Status),
		Stage:        m.Stage,
		ResourceID:   m.ResourceID,
		ResourceType: m.ResourceType,
		Errors:       mapErrors(m.Errors),
	}
	if t, err := time.Parse(time.RFC3339Nano, m.UpdatedAt); err == nil {
		job.UpdatedAt = t
	}
	return job
}

// mapErrors flattens error entries to strings. Entries are usually JSON
// strings holding an encoded object; bare objects are kept as raw JSON.
func mapErrors(raw []json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		text := strings.TrimSpace(string(r))
		if text == "" || text == "null" {
			continue
		}
		if strings.HasPrefix(text, `"`) {
			var s string
			if err := sonic.UnmarshalString(text, &s); err == nil {
				text = s
			}
		}
		out = append(out, text)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// FilterQueries encodes a job filter as queries[] values
func FilterQueries(filter domain.JobFilter) ([]string, error) {
	var queries []Query
	if filter.Source != "" {
		queries = append(queries, Query{Method: "equal", Attribute: "source", Values: []any{filter.Source}})
	}
	if len(filter.Statuses) > 0 {
		values := make([]any, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			values = append(values, string(s))
		}
		queries = append(queries, Query{Method: "equal", Attribute: "status", Values: values})
	}
	return encodeQueries(queries...)
}

func encodeQueries(queries ...Query) ([]string, error) {
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		s, err := sonic.MarshalString(q)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
