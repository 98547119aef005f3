package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/mmcdole/importwatch/internal/domain"
	"github.com/mmcdole/importwatch/internal/service"
	"github.com/mmcdole/importwatch/internal/tui/styles"
)

type jobsOptions struct {
	statuses []string
	query    string
	json     bool
	refresh  bool
}

// jobRecord is the JSON shape of one listed import
type jobRecord struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	Progress   int       `json:"progress"`
	Database   string    `json:"databaseId"`
	Collection string    `json:"collectionId"`
	Name       string    `json:"collectionName,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Errors     []string  `json:"errors,omitempty"`
}

func newJobsCmd(root *rootOptions) *cobra.Command {
	opts := jobsOptions{
		statuses: []string{string(domain.StatusPending), string(domain.StatusProcessing)},
	}

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List CSV imports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJobs(cmd.Context(), cmd.OutOrStdout(), root, opts)
		},
	}

	cmd.Flags().StringSliceVar(&opts.statuses, "status", opts.statuses, "Statuses to list (empty lists every status)")
	cmd.Flags().StringVarP(&opts.query, "query", "q", "", "Rank imports by fuzzy collection name match")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print JSON instead of a table")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "Drop cached collection names first")
	return cmd
}

func runJobs(ctx context.Context, w io.Writer, root *rootOptions, opts jobsOptions) error {
	a, err := buildApp(root, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.refresh {
		a.store.InvalidateAll()
	}

	filter := domain.JobFilter{Source: domain.SourceCSV}
	for _, s := range opts.statuses {
		filter.Statuses = append(filter.Statuses, domain.ParseStatus(s))
	}

	timeout := a.cfg.Server.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	imports := service.NewImportService(a.client, a.directory, a.logger)
	summaries, err := imports.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list imports: %w", err)
	}
	if opts.query != "" {
		summaries = service.Rank(summaries, opts.query)
	}

	if opts.json {
		return writeJobsJSON(w, summaries)
	}
	return writeJobsTable(w, summaries)
}

func writeJobsJSON(w io.Writer, summaries []service.ImportSummary) error {
	records := make([]jobRecord, 0, len(summaries))
	for _, s := range summaries {
		records = append(records, jobRecord{
			ID:         s.Job.ID,
			Status:     string(s.Job.Status),
			Progress:   domain.ProgressPercent(s.Job.Status),
			Database:   s.Resource.DatabaseID,
			Collection: s.Resource.CollectionID,
			Name:       s.CollectionName,
			UpdatedAt:  s.Job.UpdatedAt,
			Errors:     s.Job.Errors,
		})
	}
	out, err := sonic.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode imports: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func writeJobsTable(w io.Writer, summaries []service.ImportSummary) error {
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(w, styles.DimStyle.Render("No matching imports"))
		return err
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styles.DimStyle).
		Headers("ID", "COLLECTION", "STATUS", "PROGRESS", "UPDATED")
	for _, s := range summaries {
		updated := ""
		if !s.Job.UpdatedAt.IsZero() {
			updated = s.Job.UpdatedAt.Local().Format("2006-01-02 15:04:05")
		}
		t.Row(
			s.Job.ID,
			s.Label(),
			string(s.Job.Status),
			strconv.Itoa(domain.ProgressPercent(s.Job.Status))+"%",
			updated,
		)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
