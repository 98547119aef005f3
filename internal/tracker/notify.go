package tracker

import (
	"html"

	"github.com/bytedance/sonic"

	"github.com/mmcdole/importwatch/internal/domain"
)

const (
	successMessage = "CSV import finished successfully."
	failureMessage = "Import failed. Check your CSV file and try again."
	viewDocuments  = "View documents"
)

// NotifyCompletion raises the toast for a finished import.
// Success is status completed; failure is any other status carrying at least
// one error, even while the job is still in progress. Anything else is silent.
func (t *Tracker) NotifyCompletion(databaseID, collectionID string, job domain.Job) {
	success := job.Status == domain.StatusCompleted
	failure := !success && len(job.Errors) > 0
	if !success && !failure {
		return
	}

	n := domain.Notification{IsHTML: true}
	if success {
		n.Severity = domain.SeveritySuccess
		n.Message = successMessage
	} else {
		n.Severity = domain.SeverityError
		n.Message = html.EscapeString(errorMessage(job.Errors[0]))
	}

	ref := domain.ResourceRef{DatabaseID: databaseID, CollectionID: collectionID}
	if success && collectionID != "" && t.deps.Router != nil &&
		t.deps.Router.CurrentCollection() != ref {
		router := t.deps.Router
		url := router.CollectionURL(ref)
		n.Buttons = []domain.Button{{
			Name:   viewDocuments,
			Action: func() error { return router.NavigateTo(url) },
		}}
	}

	t.logger.Info("import finished", "id", job.ID, "status", job.Status, "resource", ref.String())

	if t.deps.Notifier != nil {
		t.deps.Notifier.Notify(n)
	}
	if success && t.deps.Invalidator != nil {
		t.deps.Invalidator.Invalidate(domain.DependencyDocuments)
	}
}

// errorMessage extracts the message of a structured error entry
func errorMessage(raw string) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := sonic.UnmarshalString(raw, &payload); err != nil || payload.Message == "" {
		return failureMessage
	}
	return payload.Message
}
