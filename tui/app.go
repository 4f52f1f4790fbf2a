package tui

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"voicebridge/capture"
	"voicebridge/gemini"
	"voicebridge/languages"
	"voicebridge/playback"
	"voicebridge/share"
	"voicebridge/workflow"
)

// inputMode selects how the user captures input while idle
type inputMode int

const (
	modeText inputMode = iota
	modeFile
	modeRecord
)

func (m inputMode) String() string {
	switch m {
	case modeText:
		return "Type"
	case modeFile:
		return "File"
	case modeRecord:
		return "Microphone"
	default:
		return "?"
	}
}

// Options wires the UI to its collaborators
type Options struct {
	Gateway     workflow.Gateway
	Recorder    capture.Recorder
	Player      playback.Player
	OutputDir   string
	CallTimeout time.Duration
	Logger      *zap.Logger
}

// Model is the Bubble Tea model for the capture, translate and listen flow
type Model struct {
	session    workflow.Session
	dispatcher *workflow.Dispatcher
	recorder   capture.Recorder
	player     playback.Player
	outputDir  string
	logger     *zap.Logger

	// UI Components
	input     textarea.Model
	fileInput textinput.Model
	editor    textarea.Model
	spinner   spinner.Model
	help      help.Model
	keys      keyMap
	feed      *ActivityFeed

	// Capture state
	mode      inputMode
	recording bool
	stopping  bool

	// Review state
	langs   []languages.Language
	cursor  int
	editing bool

	// Result state
	playing string
	notice  string
	uiErr   error

	// Dimensions
	width  int
	height int

	quitting bool

	ctx    context.Context
	cancel context.CancelFunc
}

// resultMsg carries a gateway result event back into the reducer
type resultMsg struct {
	event workflow.Event
}

// inputMsg is sent when a file was loaded or a recording finalized
type inputMsg struct {
	input capture.Input
	err   error
}

// playDoneMsg is sent when a clip finished or failed
type playDoneMsg struct {
	code string
	err  error
}

// downloadedMsg is sent when a voiceover was written to disk
type downloadedMsg struct {
	code   string
	result *share.Result
	err    error
}

// callMsg reports a finished gateway call for the activity feed
type callMsg gemini.CallInfo

// New creates the UI model
func New(opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.CallTimeout
	if timeout <= 0 {
		timeout = workflow.DefaultCallTimeout
	}
	outputDir := opts.OutputDir
	if outputDir == "" {
		outputDir = "."
	}

	in := textarea.New()
	in.Placeholder = "Type or paste the text you want to translate..."
	in.ShowLineNumbers = false
	in.CharLimit = 10000
	in.SetWidth(70)
	in.SetHeight(5)
	in.Focus()

	fi := textinput.New()
	fi.Placeholder = "./recording.wav or ./notes.txt"
	fi.CharLimit = 512
	fi.Width = 60

	ed := textarea.New()
	ed.ShowLineNumbers = false
	ed.CharLimit = 10000
	ed.SetWidth(70)
	ed.SetHeight(5)

	s := spinner.New()
	s.Spinner = spinner.Spinner{Frames: SpinnerFrames, FPS: time.Second / 8}
	s.Style = lipgloss.NewStyle().Foreground(ColorAccent)

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		session:    workflow.NewSession(uuid.NewString()),
		dispatcher: workflow.NewDispatcher(opts.Gateway, workflow.WithLogger(logger), workflow.WithCallTimeout(timeout)),
		recorder:   opts.Recorder,
		player:     opts.Player,
		outputDir:  outputDir,
		logger:     logger,
		input:      in,
		fileInput:  fi,
		editor:     ed,
		spinner:    s,
		help:       help.New(),
		keys:       defaultKeyMap(),
		feed:       NewActivityFeed(76, 5),
		langs:      languages.All(),
		width:      80,
		height:     24,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Init starts the spinner and cursor blink
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textarea.Blink)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		inner := max(msg.Width-8, 20)
		m.input.SetWidth(inner)
		m.editor.SetWidth(inner)
		m.fileInput.Width = inner - 4
		m.help.Width = msg.Width
		m.feed.SetSize(max(msg.Width-6, 20), m.feedHeight())
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case resultMsg:
		return m.apply(msg.event)

	case inputMsg:
		m.stopping = false
		if msg.err != nil {
			m.uiErr = msg.err
			m.feed.AddError(msg.err.Error())
			return m, nil
		}
		ev, err := msg.input.Event()
		if err != nil {
			m.uiErr = err
			return m, nil
		}
		return m.apply(ev)

	case playDoneMsg:
		if m.playing == msg.code {
			m.playing = ""
		}
		if msg.err != nil {
			return m.apply(workflow.ItemFailed{Code: msg.code, Err: fmt.Errorf("playback failed: %w", msg.err)})
		}
		return m, nil

	case downloadedMsg:
		if msg.err != nil {
			return m.apply(workflow.ItemFailed{Code: msg.code, Err: fmt.Errorf("download failed: %w", msg.err)})
		}
		m.notice = fmt.Sprintf("Saved %s (%s)", msg.result.Path, msg.result.HumanSize())
		m.feed.AddComplete(m.notice)
		return m, nil

	case callMsg:
		m.feed.AddCall(gemini.CallInfo(msg))
		return m, nil
	}

	// Cursor blink
	var cmd tea.Cmd
	switch {
	case m.editing:
		m.editor, cmd = m.editor.Update(msg)
	case m.mode == modeText:
		m.input, cmd = m.input.Update(msg)
	case m.mode == modeFile:
		m.fileInput, cmd = m.fileInput.Update(msg)
	}
	return m, cmd
}

// apply runs ev through the reducer and schedules any resulting gateway call
func (m Model) apply(ev workflow.Event) (Model, tea.Cmd) {
	prev := m.session
	next, cmd := workflow.Reduce(prev, ev)
	m.session = next

	if next.Phase != prev.Phase {
		m.logger.Debug("phase changed",
			zap.String("from", prev.Phase.String()),
			zap.String("to", next.Phase.String()),
		)
	}

	// The player belongs to the active tab
	if m.playing != "" && (next.ActiveTab != m.playing || len(next.Translations) == 0) {
		m.stopPlayback()
	}

	if next.Phase == workflow.PhaseCaptured && prev.Phase != workflow.PhaseCaptured {
		m.cursor = 0
	}

	if next.Err != nil && (prev.Err == nil || next.Err.Error() != prev.Err.Error()) {
		m.logger.Debug("session error", zap.Error(next.Err))
	}

	if cmd == nil {
		return m, nil
	}
	m.feed.AddRequest(commandTitle(cmd))
	return m, m.run(cmd)
}

// run executes a workflow command off the UI goroutine
func (m Model) run(cmd workflow.Command) tea.Cmd {
	d, ctx := m.dispatcher, m.ctx
	return func() tea.Msg {
		return resultMsg{event: d.Run(ctx, cmd)}
	}
}

func commandTitle(cmd workflow.Command) string {
	switch c := cmd.(type) {
	case workflow.DetectCommand:
		return "Detecting language"
	case workflow.TranscribeCommand:
		return "Transcribing audio"
	case workflow.TranslateCommand:
		return fmt.Sprintf("Translating to %d languages", len(c.Targets))
	case workflow.SynthesizeCommand:
		return "Generating " + languages.Name(c.Code) + " voiceover"
	default:
		return fmt.Sprintf("%T", cmd)
	}
}

// handleKey routes key presses by phase
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m.quit()
	}

	m.notice = ""
	if m.hasError() && key.Matches(msg, m.keys.Dismiss) {
		m.uiErr = nil
		if m.session.Err != nil {
			return m.apply(workflow.DismissError{})
		}
		return m, nil
	}

	// Busy phases ignore everything but quit
	if m.session.Phase.Busy() {
		return m, nil
	}

	if m.editing {
		return m.handleEditorKey(msg)
	}

	switch m.session.Phase {
	case workflow.PhaseIdle:
		return m.handleCaptureKey(msg)
	case workflow.PhaseCaptured:
		return m.handleCapturedKey(msg)
	case workflow.PhaseTranslated:
		return m.handleTranslatedKey(msg)
	}
	return m, nil
}

func (m Model) handleCaptureKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.SwitchMode) && !m.recording && !m.stopping {
		return m.switchMode()
	}

	switch m.mode {
	case modeText:
		if key.Matches(msg, m.keys.Submit) {
			return m.apply(workflow.SubmitText{Text: m.input.Value()})
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case modeFile:
		if key.Matches(msg, m.keys.Load) {
			path := m.fileInput.Value()
			return m, func() tea.Msg {
				in, err := capture.FromFile(path)
				return inputMsg{input: in, err: err}
			}
		}
		var cmd tea.Cmd
		m.fileInput, cmd = m.fileInput.Update(msg)
		return m, cmd

	case modeRecord:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m.quit()
		case key.Matches(msg, m.keys.Record):
			return m.toggleRecording()
		}
	}
	return m, nil
}

func (m Model) switchMode() (tea.Model, tea.Cmd) {
	m.uiErr = nil
	m.mode = (m.mode + 1) % 3
	m.input.Blur()
	m.fileInput.Blur()
	var cmd tea.Cmd
	switch m.mode {
	case modeText:
		cmd = m.input.Focus()
	case modeFile:
		cmd = m.fileInput.Focus()
	}
	return m, cmd
}

func (m Model) toggleRecording() (tea.Model, tea.Cmd) {
	if m.recorder == nil {
		m.uiErr = capture.ErrNoBackendAvailable
		return m, nil
	}
	if m.stopping {
		return m, nil
	}

	if !m.recording {
		if err := m.recorder.Start(m.ctx); err != nil {
			m.uiErr = err
			return m, nil
		}
		m.uiErr = nil
		m.recording = true
		m.feed.AddStatus("Recording started")
		return m, nil
	}

	m.recording = false
	m.stopping = true
	rec := m.recorder
	return m, func() tea.Msg {
		in, err := capture.FromRecording(rec)
		return inputMsg{input: in, err: err}
	}
}

func (m Model) handleCapturedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.langs)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Toggle):
		return m.apply(workflow.ToggleTarget{Code: m.langs[m.cursor].Code})
	case key.Matches(msg, m.keys.Translate):
		return m.apply(workflow.RequestTranslate{})
	case key.Matches(msg, m.keys.Edit):
		return m.startEditing()
	case key.Matches(msg, m.keys.New):
		return m.reset()
	}
	return m, nil
}

func (m Model) handleTranslatedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.NextTab):
		return m.apply(workflow.NextTab{})
	case key.Matches(msg, m.keys.PrevTab):
		return m.apply(workflow.PrevTab{})
	case key.Matches(msg, m.keys.Voice):
		return m.apply(workflow.RequestVoiceover{Code: m.session.ActiveTab})
	case key.Matches(msg, m.keys.Play):
		return m.togglePlayback()
	case key.Matches(msg, m.keys.Download):
		return m.download()
	case key.Matches(msg, m.keys.Share):
		return m.shareActive()
	case key.Matches(msg, m.keys.Edit):
		return m.startEditing()
	case key.Matches(msg, m.keys.New):
		return m.reset()
	}

	// 1-9 jump straight to a tab
	if n, err := strconv.Atoi(msg.String()); err == nil && n >= 1 && n <= len(m.session.Translations) {
		return m.apply(workflow.SelectTab{Code: m.session.Translations[n-1].LanguageCode})
	}
	return m, nil
}

func (m Model) startEditing() (tea.Model, tea.Cmd) {
	m.editing = true
	m.editor.SetValue(m.session.Transcript)
	cmd := m.editor.Focus()
	return m, cmd
}

func (m Model) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Save):
		m.editing = false
		m.editor.Blur()
		return m.apply(workflow.SaveTranscript{Text: m.editor.Value()})
	case key.Matches(msg, m.keys.Cancel):
		m.editing = false
		m.editor.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m Model) togglePlayback() (tea.Model, tea.Cmd) {
	t, ok := m.session.Active()
	if !ok {
		return m, nil
	}
	if m.playing == t.LanguageCode {
		m.stopPlayback()
		return m, nil
	}
	if t.Audio == nil {
		m.notice = "No voiceover yet, press v to generate one"
		return m, nil
	}
	if m.player == nil {
		return m.apply(workflow.ItemFailed{Code: t.LanguageCode, Err: playback.ErrNoPlayerAvailable})
	}

	m.stopPlayback()
	m.playing = t.LanguageCode
	player, ctx, audio, code := m.player, m.ctx, *t.Audio, t.LanguageCode
	return m, func() tea.Msg {
		return playDoneMsg{code: code, err: player.Play(ctx, audio)}
	}
}

func (m *Model) stopPlayback() {
	if m.player != nil && m.playing != "" {
		if err := m.player.Stop(); err != nil {
			m.logger.Debug("stop playback", zap.Error(err))
		}
	}
	m.playing = ""
}

func (m Model) download() (tea.Model, tea.Cmd) {
	t, ok := m.session.Active()
	if !ok {
		return m, nil
	}
	if t.Audio == nil {
		m.notice = "No voiceover yet, press v to generate one"
		return m, nil
	}
	dir := m.outputDir
	return m, func() tea.Msg {
		res, err := share.Download(t, share.Options{Dir: dir, Overwrite: true})
		return downloadedMsg{code: t.LanguageCode, result: res, err: err}
	}
}

func (m Model) shareActive() (tea.Model, tea.Cmd) {
	t, ok := m.session.Active()
	if !ok {
		return m, nil
	}
	if err := share.Share(t); err != nil {
		return m.apply(workflow.ItemFailed{Code: t.LanguageCode, Err: fmt.Errorf("share failed: %w", err)})
	}
	m.notice = fmt.Sprintf("Copied %s translation to clipboard", t.LanguageName)
	return m, nil
}

func (m Model) reset() (tea.Model, tea.Cmd) {
	m.stopPlayback()
	if m.recorder != nil && m.recording {
		m.recorder.Cancel()
	}
	m.recording = false
	m.editing = false
	m.uiErr = nil
	m.cursor = 0
	m.mode = modeText
	m.input.Reset()
	m.fileInput.SetValue("")
	m.editor.Reset()
	m.feed.AddStatus("Started over")
	m.input.Blur()
	m.fileInput.Blur()
	focus := m.input.Focus()
	next, cmd := m.apply(workflow.Reset{})
	return next, tea.Batch(cmd, focus)
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.stopPlayback()
	if m.recorder != nil && m.recorder.State() == capture.StateRecording {
		m.recorder.Cancel()
	}
	m.cancel()
	return m, tea.Quit
}

func (m Model) hasError() bool {
	return m.uiErr != nil || m.session.Err != nil
}

func (m Model) feedHeight() int {
	return max(min(m.height/5, 8), 3)
}

// Getter methods for external access
func (m Model) IsQuitting() bool          { return m.quitting }
func (m Model) Session() workflow.Session { return m.session }
func (m Model) Playing() string           { return m.playing }
func (m Model) Notice() string            { return m.notice }
func (m Model) Feed() *ActivityFeed       { return m.feed }
func (m Model) Err() error                { return m.uiErr }

// observable is implemented by gateways that report their calls
type observable interface {
	Observe(gemini.Observer)
}

// Run starts the full screen UI and blocks until the user quits
func Run(opts Options) error {
	model := New(opts)
	p := tea.NewProgram(model, tea.WithAltScreen())

	if obs, ok := opts.Gateway.(observable); ok {
		obs.Observe(func(info gemini.CallInfo) {
			p.Send(callMsg(info))
		})
		defer obs.Observe(nil)
	}

	_, err := p.Run()
	return err
}
