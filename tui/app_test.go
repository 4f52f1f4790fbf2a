package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"voicebridge/capture"
	"voicebridge/gemini"
	"voicebridge/workflow"
	"voicebridge/workflow/workflowtest"
)

type fakePlayer struct {
	mu    sync.Mutex
	plays []string
	stops int
	err   error
}

func (p *fakePlayer) Play(ctx context.Context, audio workflow.Audio) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plays = append(p.plays, string(audio.Data))
	return p.err
}

func (p *fakePlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stops++
	return nil
}

func (p *fakePlayer) Playing() bool { return false }

type fakeRecorder struct {
	state capture.State
	audio workflow.Audio
}

func (r *fakeRecorder) Start(ctx context.Context) error {
	r.state = capture.StateRecording
	return nil
}

func (r *fakeRecorder) Stop() (workflow.Audio, error) {
	r.state = capture.StateIdle
	return r.audio, nil
}

func (r *fakeRecorder) Cancel()              { r.state = capture.StateIdle }
func (r *fakeRecorder) State() capture.State { return r.state }

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

var (
	ctrlS = tea.KeyMsg{Type: tea.KeyCtrlS}
	ctrlC = tea.KeyMsg{Type: tea.KeyCtrlC}
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEscape}
	tab   = tea.KeyMsg{Type: tea.KeyTab}
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
)

func press(m Model, msg tea.Msg) (Model, tea.Cmd) {
	newModel, cmd := m.Update(msg)
	return newModel.(Model), cmd
}

// drain runs cmd and feeds every workflow result back into the model
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for i := 0; cmd != nil; i++ {
		if i > 10 {
			t.Fatal("command chain did not settle")
		}
		msg := cmd()
		switch msg.(type) {
		case resultMsg, inputMsg, playDoneMsg, downloadedMsg:
		default:
			return m
		}
		m, cmd = press(m, msg)
	}
	return m
}

func newTestGateway() *workflowtest.Gateway {
	gw := workflowtest.NewGateway()
	gw.Translations = []workflow.TranslatedText{
		{Code: "fr", Text: "Bonjour mon ami"},
		{Code: "de", Text: "Hallo mein Freund"},
	}
	gw.Voices = map[string]workflow.Audio{
		"Bonjour mon ami": {Data: []byte("french-voice"), MIMEType: "audio/wav"},
	}
	return gw
}

func (m Model) languageIndex(code string) int {
	for i, l := range m.langs {
		if l.Code == code {
			return i
		}
	}
	return -1
}

// captured submits text and waits for detection
func captured(t *testing.T, m Model) Model {
	t.Helper()
	m.input.SetValue("Hola mi amigo")
	m, cmd := press(m, ctrlS)
	return drain(t, m, cmd)
}

// translated selects French and German and translates
func translated(t *testing.T, m Model) Model {
	t.Helper()
	m = captured(t, m)
	for _, code := range []string{"fr", "de"} {
		m.cursor = m.languageIndex(code)
		m, _ = press(m, space)
	}
	m, cmd := press(m, enter)
	return drain(t, m, cmd)
}

func TestNew(t *testing.T) {
	m := New(Options{Gateway: workflowtest.NewGateway()})

	if m.width != 80 {
		t.Errorf("Expected default width to be 80, got %d", m.width)
	}
	if m.height != 24 {
		t.Errorf("Expected default height to be 24, got %d", m.height)
	}
	if m.session.Phase != workflow.PhaseIdle {
		t.Errorf("Expected idle phase, got %v", m.session.Phase)
	}
	if m.mode != modeText {
		t.Errorf("Expected text mode, got %v", m.mode)
	}
	if m.session.ID == "" {
		t.Error("Expected session ID to be set")
	}
	if m.outputDir != "." {
		t.Errorf("Expected output dir '.', got %q", m.outputDir)
	}
	if len(m.langs) == 0 {
		t.Error("Expected supported languages to be listed")
	}
}

func TestModelInit(t *testing.T) {
	m := New(Options{Gateway: workflowtest.NewGateway()})
	if m.Init() == nil {
		t.Error("Expected Init to return a non-nil command")
	}
}

func TestModelView(t *testing.T) {
	m := New(Options{Gateway: workflowtest.NewGateway()})
	view := m.View()

	for _, want := range []string{"Capture", "Review", "Translate", "Listen", "No AI activity yet"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected view to contain %q", want)
		}
	}
}

func TestWindowResize(t *testing.T) {
	m := New(Options{Gateway: workflowtest.NewGateway()})
	m, _ = press(m, tea.WindowSizeMsg{Width: 120, Height: 40})

	if m.width != 120 || m.height != 40 {
		t.Errorf("Expected 120x40, got %dx%d", m.width, m.height)
	}
	if m.feed.Width != 114 {
		t.Errorf("Expected feed width 114, got %d", m.feed.Width)
	}
}

func TestSubmitTextDetectsLanguage(t *testing.T) {
	gw := newTestGateway()
	m := New(Options{Gateway: gw})
	m.input.SetValue("Hola mi amigo")

	m, cmd := press(m, ctrlS)
	if m.session.Phase != workflow.PhaseCapturing {
		t.Fatalf("Expected capturing phase, got %v", m.session.Phase)
	}
	if cmd == nil {
		t.Fatal("Expected a gateway command")
	}

	// Keys are ignored while a call is in flight
	m, _ = press(m, runeKey('n'))
	if m.session.Phase != workflow.PhaseCapturing {
		t.Errorf("Expected key to be ignored while busy, got %v", m.session.Phase)
	}

	m = drain(t, m, cmd)
	if m.session.Phase != workflow.PhaseCaptured {
		t.Fatalf("Expected captured phase, got %v (err: %v)", m.session.Phase, m.session.Err)
	}
	if m.session.Transcript != "Hola mi amigo" {
		t.Errorf("Unexpected transcript %q", m.session.Transcript)
	}
	if m.session.Detected == nil || m.session.Detected.Code != "es" {
		t.Errorf("Expected Spanish to be detected, got %+v", m.session.Detected)
	}
	if gw.CallCount("detect") != 1 {
		t.Errorf("Expected one detect call, got %d", gw.CallCount("detect"))
	}
	if !strings.Contains(m.View(), "Spanish") {
		t.Error("Expected view to show the detected language")
	}
}

func TestSubmitEmptyText(t *testing.T) {
	gw := newTestGateway()
	m := New(Options{Gateway: gw})

	m, cmd := press(m, ctrlS)
	if cmd != nil {
		t.Error("Expected no command for empty text")
	}
	if !errors.Is(m.session.Err, workflow.ErrEmptyText) {
		t.Errorf("Expected ErrEmptyText, got %v", m.session.Err)
	}
	if !strings.Contains(m.View(), workflow.ErrEmptyText.Error()) {
		t.Error("Expected the error to be shown")
	}

	m, _ = press(m, esc)
	if m.session.Err != nil {
		t.Errorf("Expected esc to dismiss the error, got %v", m.session.Err)
	}
	if len(gw.Calls()) != 0 {
		t.Errorf("Expected no gateway calls, got %d", len(gw.Calls()))
	}
}

func TestTranslateRequiresSelection(t *testing.T) {
	gw := newTestGateway()
	m := captured(t, New(Options{Gateway: gw}))

	m, cmd := press(m, enter)
	if cmd != nil {
		t.Error("Expected no command without targets")
	}
	if !errors.Is(m.session.Err, workflow.ErrEmptySelection) {
		t.Errorf("Expected ErrEmptySelection, got %v", m.session.Err)
	}
	if gw.CallCount("translate") != 0 {
		t.Error("Expected translate not to be called")
	}
}

func TestLanguageCursor(t *testing.T) {
	m := captured(t, New(Options{Gateway: newTestGateway()}))

	m, _ = press(m, runeKey('j'))
	if m.cursor != 1 {
		t.Errorf("Expected cursor 1 after j, got %d", m.cursor)
	}
	m, _ = press(m, runeKey('k'))
	m, _ = press(m, runeKey('k'))
	if m.cursor != 0 {
		t.Errorf("Expected cursor to stop at 0, got %d", m.cursor)
	}

	m, _ = press(m, space)
	if !m.session.HasTarget(m.langs[0].Code) {
		t.Error("Expected space to select the language under the cursor")
	}
	m, _ = press(m, space)
	if len(m.session.Targets) != 0 {
		t.Errorf("Expected space to deselect, got %v", m.session.Targets)
	}
}

func TestTranslateAndTabs(t *testing.T) {
	gw := newTestGateway()
	m := translated(t, New(Options{Gateway: gw}))

	if m.session.Phase != workflow.PhaseTranslated {
		t.Fatalf("Expected translated phase, got %v (err: %v)", m.session.Phase, m.session.Err)
	}
	if len(m.session.Translations) != 2 {
		t.Fatalf("Expected 2 translations, got %d", len(m.session.Translations))
	}
	if m.session.ActiveTab != "fr" {
		t.Errorf("Expected first tab to be active, got %q", m.session.ActiveTab)
	}
	calls := gw.Calls()
	last := calls[len(calls)-1]
	if last.Op != "translate" || last.Source != "Spanish" || len(last.Targets) != 2 {
		t.Errorf("Unexpected translate call %+v", last)
	}

	m, _ = press(m, tab)
	if m.session.ActiveTab != "de" {
		t.Errorf("Expected tab to move to de, got %q", m.session.ActiveTab)
	}
	m, _ = press(m, tab)
	if m.session.ActiveTab != "fr" {
		t.Errorf("Expected tab to wrap to fr, got %q", m.session.ActiveTab)
	}
	m, _ = press(m, runeKey('2'))
	if m.session.ActiveTab != "de" {
		t.Errorf("Expected 2 to select de, got %q", m.session.ActiveTab)
	}
	m, _ = press(m, runeKey('h'))
	if m.session.ActiveTab != "fr" {
		t.Errorf("Expected h to move back to fr, got %q", m.session.ActiveTab)
	}

	if !strings.Contains(m.View(), "Bonjour mon ami") {
		t.Error("Expected view to show the active translation")
	}
}

func TestVoiceover(t *testing.T) {
	gw := newTestGateway()
	m := translated(t, New(Options{Gateway: gw}))

	m, cmd := press(m, runeKey('v'))
	active, _ := m.session.Active()
	if !active.Generating {
		t.Error("Expected voiceover to be generating")
	}

	m = drain(t, m, cmd)
	active, _ = m.session.Active()
	if active.Generating || active.Audio == nil {
		t.Fatalf("Expected voiceover to be ready, got %+v", active)
	}
	if string(active.Audio.Data) != "french-voice" {
		t.Errorf("Unexpected audio %q", active.Audio.Data)
	}
	if other, _ := m.session.Translation("de"); other.Audio != nil {
		t.Error("Expected only the active tab to get audio")
	}
}

func TestPlayback(t *testing.T) {
	player := &fakePlayer{}
	m := translated(t, New(Options{Gateway: newTestGateway(), Player: player}))

	// Nothing to play yet
	m, cmd := press(m, runeKey('p'))
	if cmd != nil || m.notice == "" {
		t.Error("Expected a notice when no voiceover exists")
	}

	m, cmd = press(m, runeKey('v'))
	m = drain(t, m, cmd)

	m, cmd = press(m, runeKey('p'))
	if m.Playing() != "fr" {
		t.Fatalf("Expected fr to be playing, got %q", m.Playing())
	}

	// Switching tabs stops the clip
	m, _ = press(m, tab)
	if m.Playing() != "" {
		t.Error("Expected playback to stop on tab change")
	}
	if player.stops == 0 {
		t.Error("Expected player Stop to be called")
	}

	m = drain(t, m, cmd)
	if len(player.plays) != 1 || player.plays[0] != "french-voice" {
		t.Errorf("Unexpected plays %v", player.plays)
	}
}

func TestPlaybackFailureIsPerItem(t *testing.T) {
	player := &fakePlayer{err: errors.New("no audio device")}
	m := translated(t, New(Options{Gateway: newTestGateway(), Player: player}))

	m, cmd := press(m, runeKey('v'))
	m = drain(t, m, cmd)
	m, cmd = press(m, runeKey('p'))
	m = drain(t, m, cmd)

	active, _ := m.session.Active()
	if active.Err == nil || !strings.Contains(active.Err.Error(), "no audio device") {
		t.Errorf("Expected playback error on the item, got %v", active.Err)
	}
	if m.session.Err != nil {
		t.Errorf("Expected no session error, got %v", m.session.Err)
	}
	if m.session.Phase != workflow.PhaseTranslated {
		t.Errorf("Expected to stay translated, got %v", m.session.Phase)
	}
}

func TestDownload(t *testing.T) {
	dir := t.TempDir()
	m := translated(t, New(Options{Gateway: newTestGateway(), OutputDir: dir}))

	m, cmd := press(m, runeKey('d'))
	if cmd != nil {
		t.Error("Expected no download without a voiceover")
	}

	m, cmd = press(m, runeKey('v'))
	m = drain(t, m, cmd)
	m, cmd = press(m, runeKey('d'))
	m = drain(t, m, cmd)

	path := filepath.Join(dir, "fr_french.wav")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected downloaded file: %v", err)
	}
	if string(data) != "french-voice" {
		t.Errorf("Unexpected file content %q", data)
	}
	if !strings.Contains(m.Notice(), path) {
		t.Errorf("Expected notice to name the file, got %q", m.Notice())
	}
}

func TestEditTranscriptDiscardsTranslations(t *testing.T) {
	gw := newTestGateway()
	m := translated(t, New(Options{Gateway: gw}))

	m, _ = press(m, runeKey('e'))
	if !m.editing {
		t.Fatal("Expected editing mode")
	}
	if m.editor.Value() != "Hola mi amigo" {
		t.Errorf("Expected editor to hold the transcript, got %q", m.editor.Value())
	}

	m.editor.SetValue("Hola de nuevo")
	m, _ = press(m, ctrlS)

	if m.editing {
		t.Error("Expected editing to end on save")
	}
	if m.session.Phase != workflow.PhaseCaptured {
		t.Errorf("Expected captured phase, got %v", m.session.Phase)
	}
	if m.session.Transcript != "Hola de nuevo" {
		t.Errorf("Unexpected transcript %q", m.session.Transcript)
	}
	if len(m.session.Translations) != 0 {
		t.Error("Expected translations to be discarded")
	}
	if m.session.Detected == nil || m.session.Detected.Code != "es" {
		t.Error("Expected detected language to be kept")
	}
}

func TestEditCancel(t *testing.T) {
	m := captured(t, New(Options{Gateway: newTestGateway()}))

	m, _ = press(m, runeKey('e'))
	m.editor.SetValue("something else")
	m, _ = press(m, esc)

	if m.editing {
		t.Error("Expected esc to leave the editor")
	}
	if m.session.Transcript != "Hola mi amigo" {
		t.Errorf("Expected transcript to be unchanged, got %q", m.session.Transcript)
	}
}

func TestStaleResultIgnored(t *testing.T) {
	m := New(Options{Gateway: newTestGateway()})
	m.input.SetValue("Hola")
	m, _ = press(m, ctrlS)

	m, _ = press(m, resultMsg{event: workflow.CaptureSucceeded{
		Gen:     m.session.Generation + 5,
		Capture: workflow.Capture{Transcript: "late", Language: workflow.Language{Code: "it"}},
	}})
	if m.session.Phase != workflow.PhaseCapturing {
		t.Errorf("Expected stale result to be dropped, got %v", m.session.Phase)
	}
}

func TestStartOver(t *testing.T) {
	m := translated(t, New(Options{Gateway: newTestGateway()}))
	gen := m.session.Generation

	m, _ = press(m, runeKey('n'))
	if m.session.Phase != workflow.PhaseIdle {
		t.Errorf("Expected idle phase, got %v", m.session.Phase)
	}
	if m.session.Transcript != "" || len(m.session.Translations) != 0 || len(m.session.Targets) != 0 {
		t.Error("Expected session to be cleared")
	}
	if m.session.Generation <= gen {
		t.Error("Expected generation to advance")
	}
	if m.input.Value() != "" {
		t.Error("Expected input to be cleared")
	}
}

func TestFileMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("Hola desde un archivo"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := New(Options{Gateway: newTestGateway()})
	m, _ = press(m, tab)
	if m.mode != modeFile {
		t.Fatalf("Expected file mode, got %v", m.mode)
	}

	m.fileInput.SetValue(path)
	m, cmd := press(m, enter)
	m = drain(t, m, cmd)

	if m.session.Phase != workflow.PhaseCaptured {
		t.Fatalf("Expected captured phase, got %v (err: %v)", m.session.Phase, m.session.Err)
	}
	if m.session.Transcript != "Hola desde un archivo" {
		t.Errorf("Unexpected transcript %q", m.session.Transcript)
	}
}

func TestFileModeMissingFile(t *testing.T) {
	m := New(Options{Gateway: newTestGateway()})
	m, _ = press(m, tab)
	m.fileInput.SetValue(filepath.Join(t.TempDir(), "missing.wav"))

	m, cmd := press(m, enter)
	m = drain(t, m, cmd)

	if m.Err() == nil {
		t.Error("Expected an error for a missing file")
	}
	if m.session.Phase != workflow.PhaseIdle {
		t.Errorf("Expected to stay idle, got %v", m.session.Phase)
	}

	m, _ = press(m, esc)
	if m.Err() != nil {
		t.Error("Expected esc to clear the error")
	}
}

func TestRecordMode(t *testing.T) {
	gw := newTestGateway()
	gw.Capture = workflow.Capture{Transcript: "Hola grabado", Language: workflow.Language{Name: "Spanish", Code: "es"}}
	rec := &fakeRecorder{audio: workflow.Audio{Data: []byte("RIFF"), MIMEType: "audio/wav"}}

	m := New(Options{Gateway: gw, Recorder: rec})
	m, _ = press(m, tab)
	m, _ = press(m, tab)
	if m.mode != modeRecord {
		t.Fatalf("Expected record mode, got %v", m.mode)
	}

	m, _ = press(m, runeKey('r'))
	if !m.recording || rec.State() != capture.StateRecording {
		t.Fatal("Expected recording to start")
	}

	// Mode is locked while recording
	m, _ = press(m, tab)
	if m.mode != modeRecord {
		t.Error("Expected mode switch to be ignored while recording")
	}

	m, cmd := press(m, runeKey('r'))
	if !m.stopping {
		t.Error("Expected stopping state")
	}
	m = drain(t, m, cmd)

	if m.session.Phase != workflow.PhaseCaptured {
		t.Fatalf("Expected captured phase, got %v (err: %v)", m.session.Phase, m.session.Err)
	}
	if m.session.Transcript != "Hola grabado" {
		t.Errorf("Unexpected transcript %q", m.session.Transcript)
	}
	if gw.CallCount("transcribe") != 1 {
		t.Errorf("Expected one transcribe call, got %d", gw.CallCount("transcribe"))
	}
}

func TestRecordModeWithoutRecorder(t *testing.T) {
	m := New(Options{Gateway: newTestGateway()})
	m.mode = modeRecord

	m, _ = press(m, runeKey('r'))
	if !errors.Is(m.Err(), capture.ErrNoBackendAvailable) {
		t.Errorf("Expected ErrNoBackendAvailable, got %v", m.Err())
	}
}

func TestCaptureFailureReturnsToIdle(t *testing.T) {
	gw := newTestGateway()
	gw.DetectErr = errors.New("quota exceeded")
	m := New(Options{Gateway: gw})

	m = captured(t, m)
	if m.session.Phase != workflow.PhaseIdle {
		t.Errorf("Expected idle phase, got %v", m.session.Phase)
	}
	if m.session.Err == nil || !strings.Contains(m.session.Err.Error(), "quota exceeded") {
		t.Errorf("Expected gateway error, got %v", m.session.Err)
	}
}

func TestQuit(t *testing.T) {
	rec := &fakeRecorder{}
	m := New(Options{Gateway: newTestGateway(), Recorder: rec})
	m.mode = modeRecord
	m, _ = press(m, runeKey('r'))

	m, cmd := press(m, ctrlC)
	if !m.IsQuitting() {
		t.Error("Expected model to be quitting")
	}
	if cmd == nil {
		t.Error("Expected quit command")
	}
	if rec.State() != capture.StateIdle {
		t.Error("Expected recording to be cancelled")
	}
	if m.ctx.Err() == nil {
		t.Error("Expected context to be cancelled")
	}
	if m.View() != MutedStyle.Render("Goodbye!\n") {
		t.Error("Expected goodbye view")
	}
}

func TestCallMsgFeedsActivity(t *testing.T) {
	m := New(Options{Gateway: newTestGateway()})

	m, _ = press(m, callMsg(gemini.CallInfo{
		Operation:   gemini.OpTranslate,
		Model:       gemini.ModelGemini25Flash,
		Latency:     1500 * time.Millisecond,
		TokensTotal: 42,
	}))

	entries := m.Feed().Entries
	if len(entries) != 1 {
		t.Fatalf("Expected 1 feed entry, got %d", len(entries))
	}
	if entries[0].Type != EntryResponse {
		t.Errorf("Expected response entry, got %v", entries[0].Type)
	}
	out := m.Feed().Render()
	for _, want := range []string{"Translation", "1.5s", "42 tokens"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected feed to contain %q, got %q", want, out)
		}
	}
}
