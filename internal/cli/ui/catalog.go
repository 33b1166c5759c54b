package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"craftcloud/internal/catalog"
	"craftcloud/internal/deploy"
	"craftcloud/pkg/sdk"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type deployForm struct {
	template catalog.Template
	inputs   []textinput.Model
	focus    int
	err      string
}

func newDeployForm(t catalog.Template) *deployForm {
	inputs := make([]textinput.Model, len(t.Fields))
	for i, f := range t.Fields {
		ti := textinput.New()
		ti.Placeholder = f.Default
		ti.SetValue(f.Default)
		ti.CharLimit = 64
		ti.Width = 30
		if f.Secret {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		inputs[i] = ti
	}
	if len(inputs) > 0 {
		inputs[0].Focus()
	}
	return &deployForm{template: t, inputs: inputs}
}

func (f *deployForm) values() map[string]string {
	out := make(map[string]string, len(f.inputs))
	for i, field := range f.template.Fields {
		out[field.Key] = f.inputs[i].Value()
	}
	return out
}

func (f *deployForm) move(delta int) tea.Cmd {
	if len(f.inputs) == 0 {
		return nil
	}
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	return f.inputs[f.focus].Focus()
}

func (f *deployForm) update(msg tea.Msg) tea.Cmd {
	if len(f.inputs) == 0 {
		return nil
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f *deployForm) view() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s %s configuration", f.template.Icon, f.template.Name)))
	b.WriteString("\n\n")
	for i, field := range f.template.Fields {
		label := field.Label
		if field.Required {
			label += " *"
		}
		if i == f.focus {
			label = selectedStyle.Render(label)
		}
		fmt.Fprintf(&b, "%-22s %s\n", label, f.inputs[i].View())
	}
	if f.err != "" {
		b.WriteString("\n" + failStyle.Render(f.err))
	}
	return b.String()
}

func (m model) updateCatalog(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	templates := m.catalog.All()

	switch msg.String() {
	case "esc", "q":
		m.screen = screenServers
	case "up", "k":
		if m.catalogCursor > 0 {
			m.catalogCursor--
		}
	case "down", "j":
		if m.catalogCursor < len(templates)-1 {
			m.catalogCursor++
		}
	case "enter":
		if len(templates) == 0 {
			return m, nil
		}
		t := templates[m.catalogCursor]
		if m.tracker.State(t.ID) == deploy.Submitting {
			return m, nil
		}
		if t.Configurable() {
			m.form = newDeployForm(t)
			m.screen = screenDeployForm
			return m, textinput.Blink
		}
		return m, deployCmd(m.ctx, m.tracker, t.ID, nil)
	}
	return m, nil
}

func (m model) updateDeployForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.form = nil
		m.screen = screenCatalog
		return m, nil
	case "tab", "down":
		return m, m.form.move(1)
	case "shift+tab", "up":
		return m, m.form.move(-1)
	case "enter":
		if m.form.focus < len(m.form.inputs)-1 {
			return m, m.form.move(1)
		}
		values := m.form.values()
		if _, _, err := m.form.template.Normalize(values); err != nil {
			var missing *catalog.MissingConfigError
			if errors.As(err, &missing) {
				m.form.err = "Required: " + strings.Join(missing.Keys, ", ")
				return m, nil
			}
			m.form.err = err.Error()
			return m, nil
		}
		id := m.form.template.ID
		m.form = nil
		m.screen = screenCatalog
		return m, deployCmd(m.ctx, m.tracker, id, values)
	}
	return m, m.form.update(msg)
}

func (m model) handleDeployDone(msg deployDoneMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.err == nil:
		m.message = fmt.Sprintf("%s deployed! Container: %s", msg.templateID, msg.attempt.Ack.ContainerID)
	case errors.Is(msg.err, deploy.ErrInFlight), errors.Is(msg.err, sdk.ErrInvalidated):
		return m, nil
	default:
		m.message = fmt.Sprintf("Deploy of %s failed: %s", msg.templateID, sdk.Message(msg.err))
	}
	return m, clearMessageAfter()
}

func (m model) catalogView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Game catalog"))
	b.WriteString("\n\n")
	for i, t := range m.catalog.All() {
		cursor := "  "
		if i == m.catalogCursor {
			cursor = "> "
		}
		line := fmt.Sprintf("%s%s %-12s %s", cursor, t.Icon, t.Name, descStyle.Render(t.Version))
		if i == m.catalogCursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "  " + m.deployLabel(t.ID) + "\n")
	}
	return b.String()
}

func (m model) deployLabel(templateID string) string {
	switch m.deployStates[templateID] {
	case deploy.Submitting:
		return m.spinner.View() + " Deploying..."
	case deploy.Succeeded:
		return okStyle.Render("✓ Deployed")
	case deploy.Failed:
		return failStyle.Render("✗ " + m.deployErrors[templateID])
	}
	return ""
}

func deployCmd(ctx context.Context, tracker *deploy.Tracker, templateID string, config map[string]string) tea.Cmd {
	return func() tea.Msg {
		attempt, err := tracker.Trigger(ctx, templateID, config)
		return deployDoneMsg{templateID: templateID, attempt: attempt, err: err}
	}
}
