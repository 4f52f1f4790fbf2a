package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"voicebridge/gemini"
)

// FeedEntryType represents the type of activity feed entry
type FeedEntryType string

const (
	// EntryRequest is a gateway call that is in flight
	EntryRequest FeedEntryType = "request"
	// EntryResponse is a finished gateway call
	EntryResponse FeedEntryType = "response"
	// EntryStatus is a local status update
	EntryStatus FeedEntryType = "status"
	// EntryError is a failed call or action
	EntryError FeedEntryType = "error"
	// EntryComplete is a successful user-visible result
	EntryComplete FeedEntryType = "complete"
)

// FeedEntry is a single line in the activity feed
type FeedEntry struct {
	Timestamp time.Time
	Type      FeedEntryType
	Title     string

	// Call is set for gateway calls
	Call *gemini.CallInfo
}

// ActivityFeed lists what the app asked the AI gateway to do, with a scrolling viewport
type ActivityFeed struct {
	Entries  []FeedEntry
	Viewport viewport.Model

	Width  int
	Height int

	// MaxEntries limits the number of entries kept (0 = unlimited)
	MaxEntries int
}

// NewActivityFeed creates a feed with the given dimensions
func NewActivityFeed(width, height int) *ActivityFeed {
	f := &ActivityFeed{
		Viewport:   viewport.New(width, height),
		Width:      width,
		Height:     height,
		MaxEntries: 100,
	}
	f.Viewport.SetContent(f.Render())
	return f
}

// Add appends an entry and scrolls to it
func (f *ActivityFeed) Add(entry FeedEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	f.Entries = append(f.Entries, entry)
	if f.MaxEntries > 0 && len(f.Entries) > f.MaxEntries {
		f.Entries = f.Entries[len(f.Entries)-f.MaxEntries:]
	}

	f.Viewport.SetContent(f.Render())
	f.Viewport.GotoBottom()
}

// AddCall records a finished gateway call
func (f *ActivityFeed) AddCall(info gemini.CallInfo) {
	entryType := EntryResponse
	if info.Err != nil {
		entryType = EntryError
	}
	f.Add(FeedEntry{
		Type:  entryType,
		Title: fmt.Sprintf("%s via %s", callTitle(info.Operation), info.Model),
		Call:  &info,
	})
}

// AddStatus adds a local status line
func (f *ActivityFeed) AddStatus(title string) {
	f.Add(FeedEntry{Type: EntryStatus, Title: title})
}

// AddRequest notes that a gateway call was started
func (f *ActivityFeed) AddRequest(title string) {
	f.Add(FeedEntry{Type: EntryRequest, Title: title})
}

// AddError adds a failure line
func (f *ActivityFeed) AddError(title string) {
	f.Add(FeedEntry{Type: EntryError, Title: title})
}

// AddComplete adds a success line
func (f *ActivityFeed) AddComplete(title string) {
	f.Add(FeedEntry{Type: EntryComplete, Title: title})
}

// SetSize updates the feed dimensions
func (f *ActivityFeed) SetSize(width, height int) {
	f.Width = width
	f.Height = height
	f.Viewport.Width = width
	f.Viewport.Height = height
	f.Viewport.SetContent(f.Render())
	f.Viewport.GotoBottom()
}

// Clear removes all entries
func (f *ActivityFeed) Clear() {
	f.Entries = nil
	f.Viewport.SetContent(f.Render())
}

// View returns the viewport view
func (f *ActivityFeed) View() string {
	return f.Viewport.View()
}

// Render renders all entries to a string
func (f *ActivityFeed) Render() string {
	if len(f.Entries) == 0 {
		return MutedStyle.Render("  No AI activity yet")
	}

	lines := make([]string, 0, len(f.Entries))
	for _, e := range f.Entries {
		lines = append(lines, f.renderEntry(e))
	}
	return strings.Join(lines, "\n")
}

func (f *ActivityFeed) renderEntry(e FeedEntry) string {
	icon, style := entryStyle(e.Type)
	timestamp := MutedStyle.Render(e.Timestamp.Format("15:04:05"))

	var suffix string
	if e.Call != nil {
		var parts []string
		if e.Call.Latency > 0 {
			parts = append(parts, formatDuration(e.Call.Latency))
		}
		if e.Call.RequestBytes > 0 {
			parts = append(parts, humanize.Bytes(uint64(e.Call.RequestBytes))+" sent")
		}
		if e.Call.TokensTotal > 0 {
			parts = append(parts, fmt.Sprintf("%d tokens", e.Call.TokensTotal))
		}
		if len(parts) > 0 {
			suffix = " " + MutedStyle.Render("("+strings.Join(parts, ", ")+")")
		}
		if e.Call.Err != nil {
			suffix += " " + lipgloss.NewStyle().Foreground(ColorError).Render("- "+truncateString(e.Call.Err.Error(), 80))
		}
	}

	return fmt.Sprintf("%s %s %s%s", timestamp, style.Render(icon), style.Render(e.Title), suffix)
}

func entryStyle(t FeedEntryType) (string, lipgloss.Style) {
	switch t {
	case EntryRequest:
		return "[>]", lipgloss.NewStyle().Foreground(ColorSecondary)
	case EntryResponse:
		return "[<]", lipgloss.NewStyle().Foreground(ColorSuccess)
	case EntryError:
		return "[!]", lipgloss.NewStyle().Foreground(ColorError)
	case EntryComplete:
		return "[x]", lipgloss.NewStyle().Foreground(ColorSuccess)
	default:
		return "[-]", lipgloss.NewStyle().Foreground(ColorPrimary)
	}
}

func callTitle(op string) string {
	switch op {
	case gemini.OpDetect:
		return "Language detection"
	case gemini.OpTranscribe:
		return "Transcription"
	case gemini.OpTranslate:
		return "Translation"
	case gemini.OpSynthesize:
		return "Voiceover"
	default:
		return op
	}
}

func truncateString(s string, maxLen int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")

	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}

// RenderFeedBox renders the feed in a titled box
func RenderFeedBox(feed *ActivityFeed, title string, width int) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(width).
		Padding(0, 1)

	return SubtitleStyle.Render(title) + "\n" + boxStyle.Render(feed.View())
}
