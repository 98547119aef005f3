package tracker

import (
	"html"

	"github.com/mmcdole/importwatch/internal/domain"
)

// Label is the text of one panel row. Collection is the only externally
// supplied part; every renderer decides how to emphasize and escape it.
type Label struct {
	Lead       string
	Collection string
	Trail      string
}

// Describe builds the row label for an import
func Describe(status domain.Status, collectionName string) Label {
	switch status.Phase() {
	case domain.PhaseCompleted, domain.PhaseFailed:
		if collectionName == "" {
			return Label{Lead: "Import " + string(status)}
		}
		return Label{Lead: "Import to ", Collection: collectionName, Trail: " " + string(status)}
	case domain.PhaseProcessing:
		if collectionName == "" {
			return Label{Lead: "Importing CSV file"}
		}
		return Label{Lead: "Importing CSV file to ", Collection: collectionName}
	default:
		return Label{Lead: "Preparing CSV for import..."}
	}
}

// String renders the label with the collection in markdown bold
func (l Label) String() string {
	if l.Collection == "" {
		return l.Lead + l.Trail
	}
	return l.Lead + "**" + l.Collection + "**" + l.Trail
}

// Plain renders the label without emphasis
func (l Label) Plain() string {
	return l.Lead + l.Collection + l.Trail
}

// HTML renders the label as markup; the collection name is escaped
func (l Label) HTML() string {
	if l.Collection == "" {
		return html.EscapeString(l.Lead + l.Trail)
	}
	return html.EscapeString(l.Lead) + "<b>" + html.EscapeString(l.Collection) + "</b>" + html.EscapeString(l.Trail)
}
