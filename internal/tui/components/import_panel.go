package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/mmcdole/importwatch/internal/domain"
	"github.com/mmcdole/importwatch/internal/tracker"
	"github.com/mmcdole/importwatch/internal/tui/styles"
)

// ImportPanel is the floating progress panel. It renders whatever snapshot
// it was last given and never mutates it.
type ImportPanel struct {
	snapshot  *tracker.Snapshot
	collapsed bool

	spinner spinner.Model
	bar     progress.Model

	// Filter state
	filterActive bool
	filterInput  textinput.Model
	filteredIdx  []int // indices into snapshot.Jobs()
}

// NewImportPanel creates an empty panel
func NewImportPanel(collapsed bool) *ImportPanel {
	ti := textinput.New()
	ti.Placeholder = "filter by collection..."
	ti.Prompt = "/ "
	ti.PromptStyle = styles.FilterPromptStyle
	ti.TextStyle = styles.FilterStyle

	return &ImportPanel{
		collapsed:   collapsed,
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.AccentStyle)),
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithWidth(styles.ProgressBar), progress.WithoutPercentage()),
		filterInput: ti,
	}
}

// SetSnapshot replaces the rendered snapshot
func (p *ImportPanel) SetSnapshot(s *tracker.Snapshot) {
	p.snapshot = s
	if p.filterActive {
		p.applyFilter()
	}
}

// Snapshot returns the rendered snapshot (nil before the first one)
func (p *ImportPanel) Snapshot() *tracker.Snapshot {
	return p.snapshot
}

// Visible reports whether there is anything to show
func (p *ImportPanel) Visible() bool {
	return p.snapshot != nil && p.snapshot.Visible()
}

// Collapsed reports whether only the header is shown
func (p *ImportPanel) Collapsed() bool {
	return p.collapsed
}

// ToggleCollapsed flips between header-only and full view
func (p *ImportPanel) ToggleCollapsed() {
	p.collapsed = !p.collapsed
}

// ToggleFilter activates the filter input
func (p *ImportPanel) ToggleFilter() {
	p.filterActive = true
	p.collapsed = false
	p.filterInput.Focus()
}

// IsFiltering returns true if filter mode is active
func (p *ImportPanel) IsFiltering() bool {
	return p.filterActive
}

// IsFilterTyping returns true if filter is active AND input is focused
func (p *ImportPanel) IsFilterTyping() bool {
	return p.filterActive && p.filterInput.Focused()
}

// ClearFilter deactivates the filter and shows all rows
func (p *ImportPanel) ClearFilter() {
	p.filterActive = false
	p.filteredIdx = nil
	p.filterInput.SetValue("")
	p.filterInput.Blur()
}

// Tick starts the spinner
func (p *ImportPanel) Tick() tea.Cmd {
	return p.spinner.Tick
}

// Update handles filter typing and spinner frames
func (p *ImportPanel) Update(msg tea.Msg) (*ImportPanel, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd
	case tea.KeyMsg:
		if !p.IsFilterTyping() {
			return p, nil
		}
		switch msg.String() {
		case "esc":
			p.ClearFilter()
			return p, nil
		case "enter":
			// Accept filter, keep results
			p.filterInput.Blur()
			return p, nil
		case "backspace":
			if p.filterInput.Value() == "" {
				p.ClearFilter()
				return p, nil
			}
		}
		var cmd tea.Cmd
		p.filterInput, cmd = p.filterInput.Update(msg)
		p.applyFilter()
		return p, cmd
	}
	return p, nil
}

// Rows returns the imports currently listed, honoring the filter
func (p *ImportPanel) Rows() []domain.ImportJob {
	if p.snapshot == nil {
		return nil
	}
	jobs := p.snapshot.Jobs()
	if p.filteredIdx == nil {
		return jobs
	}
	out := make([]domain.ImportJob, 0, len(p.filteredIdx))
	for _, i := range p.filteredIdx {
		if i < len(jobs) {
			out = append(out, jobs[i])
		}
	}
	return out
}

// Header returns the panel title
func (p *ImportPanel) Header() string {
	if p.snapshot == nil {
		return ""
	}
	total := p.snapshot.Len()
	active := 0
	for _, job := range p.snapshot.Jobs() {
		if !job.Status.IsTerminal() {
			active++
		}
	}
	if active == 0 {
		return fmt.Sprintf("Imported %d %s", total, plural(total))
	}
	return fmt.Sprintf("Importing %d %s", active, plural(active))
}

// View renders the panel, or nothing when the registry is empty
func (p *ImportPanel) View() string {
	if !p.Visible() {
		return ""
	}

	var b strings.Builder
	arrow := "▾"
	if p.collapsed {
		arrow = "▸"
	}
	b.WriteString(styles.TitleStyle.Render(p.Header()))
	b.WriteString(" ")
	b.WriteString(styles.DimStyle.Render(arrow))

	if !p.collapsed {
		if p.filterActive {
			b.WriteString("\n")
			b.WriteString(p.filterInput.View())
		}
		rows := p.Rows()
		if len(rows) == 0 {
			b.WriteString("\n")
			b.WriteString(styles.DimStyle.Render("No matches"))
		}
		for _, job := range rows {
			b.WriteString("\n")
			b.WriteString(p.renderRow(job))
		}
	}

	return styles.PanelBorder.Width(styles.PanelWidth).Render(b.String())
}

func (p *ImportPanel) renderRow(job domain.ImportJob) string {
	var icon string
	switch job.Status.Phase() {
	case domain.PhaseCompleted:
		icon = styles.CompletedCheck
	case domain.PhaseFailed:
		icon = styles.FailedCross
	default:
		icon = p.spinner.View()
	}

	label := tracker.Describe(job.Status, job.CollectionName)
	text := label.Lead
	if label.Collection != "" {
		text += styles.CollectionStyle.Render(label.Collection)
	}
	text += label.Trail

	pct := job.Progress()
	bar := p.bar.ViewAs(float64(pct) / 100)
	percent := styles.DimStyle.Render(fmt.Sprintf("%3d%%", pct))

	line := lipgloss.JoinHorizontal(lipgloss.Top, icon, " ", text)
	return line + "\n  " + bar + " " + percent
}

func (p *ImportPanel) applyFilter() {
	query := p.filterInput.Value()
	if query == "" || p.snapshot == nil {
		p.filteredIdx = nil
		return
	}

	jobs := p.snapshot.Jobs()
	titles := make([]string, len(jobs))
	for i, job := range jobs {
		titles[i] = strings.ToLower(tracker.Describe(job.Status, job.CollectionName).Plain())
	}

	matches := fuzzy.Find(strings.ToLower(query), titles)
	p.filteredIdx = make([]int, len(matches))
	for i, match := range matches {
		p.filteredIdx[i] = match.Index
	}
}

func plural(n int) string {
	if n == 1 {
		return "file"
	}
	return "files"
}
