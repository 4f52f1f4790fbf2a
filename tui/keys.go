package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	ForceQuit key.Binding
	Quit      key.Binding
	Dismiss   key.Binding

	// capture
	Submit     key.Binding
	SwitchMode key.Binding
	Load       key.Binding
	Record     key.Binding

	// captured
	Up        key.Binding
	Down      key.Binding
	Toggle    key.Binding
	Translate key.Binding
	Edit      key.Binding
	Save      key.Binding
	Cancel    key.Binding
	New       key.Binding

	// translated
	NextTab  key.Binding
	PrevTab  key.Binding
	Voice    key.Binding
	Play     key.Binding
	Download key.Binding
	Share    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		ForceQuit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		Dismiss:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "dismiss")),

		Submit:     key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "submit")),
		SwitchMode: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "text/file/mic")),
		Load:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "load file")),
		Record:     key.NewBinding(key.WithKeys("r", "enter", " "), key.WithHelp("r", "start/stop recording")),

		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("j/k", "navigate")),
		Down:      key.NewBinding(key.WithKeys("down", "j")),
		Toggle:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle language")),
		Translate: key.NewBinding(key.WithKeys("enter", "t"), key.WithHelp("enter", "translate")),
		Edit:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit transcript")),
		Save:      key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		New:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "start over")),

		NextTab:  key.NewBinding(key.WithKeys("tab", "right", "l"), key.WithHelp("tab/l", "next")),
		PrevTab:  key.NewBinding(key.WithKeys("shift+tab", "left", "h"), key.WithHelp("h", "prev")),
		Voice:    key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "voiceover")),
		Play:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "play/stop")),
		Download: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "download")),
		Share:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "copy text")),
	}
}
