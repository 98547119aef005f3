package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/microcosm-cc/bluemonday"

	"github.com/mmcdole/importwatch/internal/domain"
	"github.com/mmcdole/importwatch/internal/notify"
	"github.com/mmcdole/importwatch/internal/tui/styles"
)

// ToastStack renders active notifications, oldest on top
type ToastStack struct {
	toasts []domain.Notification
	policy *bluemonday.Policy
}

// NewToastStack creates an empty stack
func NewToastStack() *ToastStack {
	return &ToastStack{policy: bluemonday.StrictPolicy()}
}

// SetToasts replaces the rendered notifications
func (s *ToastStack) SetToasts(toasts []domain.Notification) {
	s.toasts = toasts
}

// Len returns the number of rendered notifications
func (s *ToastStack) Len() int {
	return len(s.toasts)
}

// View renders the stack
func (s *ToastStack) View() string {
	if len(s.toasts) == 0 {
		return ""
	}

	boxes := make([]string, 0, len(s.toasts))
	for i, n := range s.toasts {
		boxes = append(boxes, s.renderToast(n, i == len(s.toasts)-1))
	}
	return lipgloss.JoinVertical(lipgloss.Right, boxes...)
}

func (s *ToastStack) renderToast(n domain.Notification, newest bool) string {
	var b strings.Builder

	msgStyle := styles.TitleStyle
	border := styles.ToastBorder
	if n.Severity == domain.SeverityError {
		msgStyle = styles.ErrorStyle
		border = border.BorderForeground(styles.Red)
	}
	b.WriteString(msgStyle.Render(notify.PlainText(s.policy, n)))

	// Only the newest toast answers to the keys
	if newest {
		hints := make([]string, 0, len(n.Buttons)+1)
		if len(n.Buttons) > 0 {
			hints = append(hints, styles.ButtonStyle.Render("[v] "+n.Buttons[0].Name))
		}
		hints = append(hints, styles.DimStyle.Render("[x] dismiss"))
		b.WriteString("\n")
		b.WriteString(strings.Join(hints, "  "))
	}

	return border.Width(styles.PanelWidth).Render(b.String())
}
