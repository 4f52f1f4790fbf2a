package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"voicebridge/workflow"
)

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return MutedStyle.Render("Goodbye!\n")
	}

	var b strings.Builder

	// Header
	b.WriteString(GetHeader())
	b.WriteString("\n")

	// Step indicator
	b.WriteString(m.renderStepIndicator())
	b.WriteString("\n")

	// Main content based on phase
	switch {
	case m.editing:
		b.WriteString(m.renderEditor())
	case m.session.Phase.Busy():
		b.WriteString(m.renderLoading(m.session.Loading))
	case m.session.Phase == workflow.PhaseIdle:
		b.WriteString(m.renderCapture())
	case m.session.Phase == workflow.PhaseCaptured:
		b.WriteString(m.renderReview())
	case m.session.Phase == workflow.PhaseTranslated:
		b.WriteString(m.renderTranslations())
	}

	if m.hasError() {
		b.WriteString("\n")
		b.WriteString(m.renderError())
	}
	if m.notice != "" {
		b.WriteString("\n")
		b.WriteString(InfoStyle.Render(m.notice))
	}

	// Activity feed
	b.WriteString("\n")
	b.WriteString(RenderFeedBox(m.feed, "AI activity", max(m.width-6, 20)))

	// Help footer
	b.WriteString("\n")
	b.WriteString(m.renderHelp())

	return b.String()
}

func (m Model) renderStepIndicator() string {
	phase := m.session.Phase
	hasAudio := false
	for _, t := range m.session.Translations {
		if t.Audio != nil {
			hasAudio = true
			break
		}
	}

	steps := []struct {
		name   string
		active bool
		done   bool
	}{
		{"Capture", true, phase >= workflow.PhaseCaptured},
		{"Review", phase >= workflow.PhaseCaptured, phase >= workflow.PhaseTranslating},
		{"Translate", phase >= workflow.PhaseTranslating, phase == workflow.PhaseTranslated},
		{"Listen", phase == workflow.PhaseTranslated, hasAudio},
	}

	var parts []string
	for i, s := range steps {
		var style lipgloss.Style
		var icon string

		if s.done {
			icon = "[x]"
			style = lipgloss.NewStyle().Foreground(ColorSuccess)
		} else if s.active {
			icon = "[>]"
			style = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
		} else {
			icon = "[ ]"
			style = lipgloss.NewStyle().Foreground(ColorMuted)
		}

		parts = append(parts, style.Render(icon+" "+s.name))

		if i < len(steps)-1 {
			connector := "---"
			if s.done {
				parts = append(parts, lipgloss.NewStyle().Foreground(ColorSuccess).Render(connector))
			} else {
				parts = append(parts, lipgloss.NewStyle().Foreground(ColorBorder).Render(connector))
			}
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Center, parts...)
}

func (m Model) renderModeTabs() string {
	var tabs []string
	for _, mode := range []inputMode{modeText, modeFile, modeRecord} {
		if mode == m.mode {
			tabs = append(tabs, ActiveTabStyle.Render(mode.String()))
		} else {
			tabs = append(tabs, TabStyle.Render(mode.String()))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)
}

// renderCapture renders the input step
func (m Model) renderCapture() string {
	title := TitleStyle.Render("What do you want to translate?")

	var body string
	switch m.mode {
	case modeText:
		body = m.input.View()
	case modeFile:
		body = BodyStyle.Render("Path to an audio file or a .txt file:") + "\n\n" + m.fileInput.View()
	case modeRecord:
		body = m.renderRecorder()
	}

	return FocusedBoxStyle.Render(title + "\n" + m.renderModeTabs() + "\n\n" + body)
}

func (m Model) renderRecorder() string {
	switch {
	case m.recorder == nil:
		return WarningStyle.Render("Microphone recording is not available on this system")
	case m.stopping:
		return m.spinner.View() + " " + BodyStyle.Render("Finishing recording...")
	case m.recording:
		return BadgeErrorStyle.Render("REC") + " " + BodyStyle.Render("Recording, press r to stop")
	default:
		return BodyStyle.Render("Press r to start recording")
	}
}

func (m Model) renderLoading(message string) string {
	if message == "" {
		message = "Working..."
	}
	return BoxStyle.Render(
		m.spinner.View() + " " + BodyStyle.Render(message),
	)
}

func (m Model) renderTranscript() string {
	var b strings.Builder
	if d := m.session.Detected; d != nil {
		b.WriteString(BadgeStyle.Render(d.Name))
		b.WriteString(" ")
		b.WriteString(MutedStyle.Render("detected"))
		b.WriteString("\n\n")
	}
	b.WriteString(BodyStyle.Render(m.session.Transcript))
	return b.String()
}

// renderReview renders the transcript and the target language picker
func (m Model) renderReview() string {
	title := TitleStyle.Render("Review")

	transcript := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1).
		Width(max(m.width-12, 20)).
		Render(m.renderTranscript())

	selected := MutedStyle.Render(fmt.Sprintf("%d selected", len(m.session.Targets)))

	return BoxStyle.Render(
		title + "\n" + transcript + "\n\n" +
			SubtitleStyle.Render("Translate into") + " " + selected + "\n" +
			m.renderLanguageList(),
	)
}

func (m Model) renderLanguageList() string {
	// Keep the cursor in view on short terminals
	visible := max(m.height-24, 5)
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	end := min(start+visible, len(m.langs))

	var b strings.Builder
	for i := start; i < end; i++ {
		lang := m.langs[i]

		cursor := "  "
		if i == m.cursor {
			cursor = CursorStyle.Render("> ")
		}

		check := "[ ]"
		style := BodyStyle
		if m.session.HasTarget(lang.Code) {
			check = "[x]"
			style = SuccessStyle
		}
		if i == m.cursor {
			style = CursorStyle
		}

		b.WriteString(cursor + style.Render(fmt.Sprintf("%s %s", check, lang.Name)) + " " + MutedStyle.Render(lang.Code) + "\n")
	}
	if end < len(m.langs) {
		b.WriteString(MutedStyle.Render(fmt.Sprintf("  ... %d more", len(m.langs)-end)))
	}
	return b.String()
}

func (m Model) renderEditor() string {
	title := TitleStyle.Render("Edit transcript")
	hint := MutedStyle.Render("Saving discards existing translations")
	return FocusedBoxStyle.Render(title + "\n" + m.editor.View() + "\n" + hint)
}

func (m Model) renderTabs() string {
	var tabs []string
	for i, t := range m.session.Translations {
		label := fmt.Sprintf("%d %s", i+1, t.LanguageName)
		switch {
		case t.Generating:
			label += " ..."
		case t.Err != nil:
			label += " !"
		case t.Audio != nil:
			label += " *"
		}

		if t.LanguageCode == m.session.ActiveTab {
			tabs = append(tabs, ActiveTabStyle.Render(label))
		} else {
			tabs = append(tabs, TabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)
}

// renderTranslations renders the tabbed translation results
func (m Model) renderTranslations() string {
	title := TitleStyle.Render("Translations")

	t, ok := m.session.Active()
	if !ok {
		return BoxStyle.Render(title + "\n" + MutedStyle.Render("Nothing translated"))
	}

	text := lipgloss.NewStyle().
		Padding(1, 1).
		Width(max(m.width-12, 20)).
		Render(BodyStyle.Render(t.Text))

	var status string
	switch {
	case t.Generating:
		status = m.spinner.View() + " " + BodyStyle.Render("Generating voiceover...")
	case m.playing == t.LanguageCode:
		status = BadgeSuccessStyle.Render("PLAYING") + " " + MutedStyle.Render("press p to stop")
	case t.Audio != nil:
		status = SuccessStyle.Render("Voiceover ready") + " " +
			MutedStyle.Render(humanize.Bytes(uint64(len(t.Audio.Data))))
	default:
		status = MutedStyle.Render("No voiceover yet")
	}
	if t.Err != nil {
		status += "\n" + ErrorStyle.Render(t.Err.Error())
	}

	source := ""
	if d := m.session.Detected; d != nil {
		source = MutedStyle.Render("from " + d.Name + "\n")
	}

	return BoxStyle.Render(title + "\n" + source + m.renderTabs() + "\n" + text + "\n" + status)
}

func (m Model) renderError() string {
	err := m.uiErr
	if err == nil {
		err = m.session.Err
	}
	return ErrorBoxStyle.Render(ErrorStyle.Render("Error: ") + BodyStyle.Render(err.Error()) + MutedStyle.Render("  (esc to dismiss)"))
}

// renderHelp renders context-sensitive help
func (m Model) renderHelp() string {
	var bindings []key.Binding

	switch {
	case m.session.Phase.Busy():
		bindings = append(bindings, m.keys.ForceQuit)
	case m.editing:
		bindings = append(bindings, m.keys.Save, m.keys.Cancel)
	case m.session.Phase == workflow.PhaseIdle:
		switch m.mode {
		case modeText:
			bindings = append(bindings, m.keys.Submit)
		case modeFile:
			bindings = append(bindings, m.keys.Load)
		case modeRecord:
			bindings = append(bindings, m.keys.Record)
		}
		bindings = append(bindings, m.keys.SwitchMode, m.keys.ForceQuit)
	case m.session.Phase == workflow.PhaseCaptured:
		bindings = append(bindings, m.keys.Up, m.keys.Toggle, m.keys.Translate, m.keys.Edit, m.keys.New, m.keys.Quit)
	case m.session.Phase == workflow.PhaseTranslated:
		bindings = append(bindings, m.keys.NextTab, m.keys.PrevTab, m.keys.Voice, m.keys.Play,
			m.keys.Download, m.keys.Share, m.keys.Edit, m.keys.New, m.keys.Quit)
	}

	if m.hasError() {
		bindings = append([]key.Binding{m.keys.Dismiss}, bindings...)
	}

	return lipgloss.NewStyle().MarginTop(1).Render(m.help.ShortHelpView(bindings))
}
