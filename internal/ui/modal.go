package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Modal is the interface for modal dialogs.
// Update returns the updated modal, a command, and whether the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

type formField struct {
	label string
	input textinput.Model
}

// formModal collects one or more text values. A single-field form is a prompt.
type formModal struct {
	title    string
	hint     string
	fields   []formField
	focus    int
	onSubmit func(values []string) tea.Cmd
}

func newField(label, value, placeholder string, limit int) formField {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = limit
	in.Width = 34
	in.SetValue(value)
	return formField{label: label, input: in}
}

func newForm(title, hint string, fields []formField, onSubmit func([]string) tea.Cmd) *formModal {
	f := &formModal{title: title, hint: hint, fields: fields, onSubmit: onSubmit}
	if len(f.fields) > 0 {
		f.fields[0].input.Focus()
	}
	return f
}

func newPrompt(title, hint, value, placeholder string, onSubmit func(string) tea.Cmd) *formModal {
	return newForm(title, hint,
		[]formField{newField("", value, placeholder, 256)},
		func(values []string) tea.Cmd { return onSubmit(values[0]) })
}

func (f *formModal) values() []string {
	out := make([]string, len(f.fields))
	for i, field := range f.fields {
		out[i] = strings.TrimSpace(field.input.Value())
	}
	return out
}

func (f *formModal) move(delta int) {
	if len(f.fields) == 0 {
		return
	}
	f.fields[f.focus].input.Blur()
	f.focus = (f.focus + delta + len(f.fields)) % len(f.fields)
	f.fields[f.focus].input.Focus()
}

func (f *formModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return f, nil, false
	}
	switch {
	case key.Matches(keyMsg, keys.Escape), keyMsg.String() == "ctrl+c":
		return f, nil, true
	case key.Matches(keyMsg, keys.Confirm):
		// Enter walks the fields and submits from the last one.
		if f.focus < len(f.fields)-1 {
			f.move(1)
			return f, nil, false
		}
		var cmd tea.Cmd
		if f.onSubmit != nil {
			cmd = f.onSubmit(f.values())
		}
		return f, cmd, true
	case len(f.fields) > 1 && key.Matches(keyMsg, keys.NextField):
		f.move(1)
		return f, nil, false
	case len(f.fields) > 1 && key.Matches(keyMsg, keys.PrevField):
		f.move(-1)
		return f, nil, false
	}

	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(keyMsg)
	return f, cmd, false
}

func (f *formModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(f.title))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 40)))
	b.WriteString("\n\n")
	if f.hint != "" {
		b.WriteString(styles.MutedText.Render(f.hint))
		b.WriteString("\n\n")
	}
	for i, field := range f.fields {
		if field.label != "" {
			label := padRight(field.label+":", 10)
			if i == f.focus {
				label = styles.AccentText.Render(label)
			} else {
				label = styles.MutedText.Render(label)
			}
			b.WriteString(label)
		}
		b.WriteString(field.input.View())
		b.WriteString("\n")
		if i < len(f.fields)-1 {
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("enter confirm  esc cancel"))

	return placeModal(theme, width, height, b.String(), 50)
}

// confirmModal asks a yes/no question.
type confirmModal struct {
	question string
	onYes    tea.Cmd
}

func (c confirmModal) Update(msg tea.Msg, _ keyMap) (Modal, tea.Cmd, bool) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return c, nil, false
	}
	switch keyMsg.String() {
	case "y", "Y":
		return c, c.onYes, true
	case "n", "N", "esc", "ctrl+c":
		return c, nil, true
	}
	return c, nil, false
}

func (c confirmModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	body := styles.Text.Render(c.question) + "\n\n" +
		styles.WarningText.Render("y") + styles.MutedText.Render(" yes   ") +
		styles.WarningText.Render("n") + styles.MutedText.Render(" no")
	return placeModal(theme, width, height, body, 50)
}

// messageModal shows text until any key is pressed.
type messageModal struct {
	title string
	body  string
}

func (m messageModal) Update(msg tea.Msg, _ keyMap) (Modal, tea.Cmd, bool) {
	_, ok := msg.(tea.KeyMsg)
	return m, nil, ok
}

func (m messageModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(m.title))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 40)))
	b.WriteString("\n\n")
	b.WriteString(styles.Text.Render(m.body))
	b.WriteString("\n\n")
	b.WriteString(styles.FaintText.Render("press any key"))
	return placeModal(theme, width, height, b.String(), 50)
}

func placeModal(theme Theme, width, height int, content string, modalWidth int) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2).
		Width(modalWidth).
		Render(content)
	if width <= 0 || height <= 0 {
		return box
	}
	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		box,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}
