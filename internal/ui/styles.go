package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in the application.
var (
	colorPrimary   = lipgloss.Color("212") // Pink
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorAccent    = lipgloss.Color("62")  // Purple
	colorLiked     = lipgloss.Color("204") // Warm pink
	colorError     = lipgloss.Color("203") // Red
)

// AuthorLine style for the item author header.
var AuthorLine = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255"))

// CaptionText style for the item caption.
var CaptionText = lipgloss.NewStyle().
	Foreground(lipgloss.Color("252"))

// HashtagText style for hashtags under the caption.
var HashtagText = lipgloss.NewStyle().
	Foreground(colorAccent)

// TagMarker style for shoppable product tag markers.
var TagMarker = lipgloss.NewStyle().
	Foreground(colorPrimary).
	Bold(true)

// CounterRow style for the engagement counter line.
var CounterRow = lipgloss.NewStyle().
	Foreground(colorSecondary)

// CounterActive style for counters the viewer has toggled on.
var CounterActive = lipgloss.NewStyle().
	Foreground(colorLiked).
	Bold(true)

// NavDots style for the navigation dot strip.
var NavDots = lipgloss.NewStyle().
	Foreground(colorMuted)

// NavDotCurrent style for the current item's dot.
var NavDotCurrent = lipgloss.NewStyle().
	Foreground(colorPrimary).
	Bold(true)

// PlaybackBar style for the progress/mute line.
var PlaybackBar = lipgloss.NewStyle().
	Foreground(colorSecondary)

// ErrorNotice style for load errors.
var ErrorNotice = lipgloss.NewStyle().
	Foreground(colorError).
	Bold(true)

// EmptyState style for the terminal empty-feed message.
var EmptyState = lipgloss.NewStyle().
	Foreground(colorSecondary).
	Italic(true)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// VideoFrame style for the simulated video area.
var VideoFrame = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorMuted)
