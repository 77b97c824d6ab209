package ui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/openscroll/reels/internal/api"
	"github.com/openscroll/reels/internal/engage"
	"github.com/openscroll/reels/internal/feed"
	"github.com/openscroll/reels/internal/gesture"
	"github.com/openscroll/reels/internal/logging"
	"github.com/openscroll/reels/internal/playback"
	"github.com/openscroll/reels/internal/session"
)

// rowPixels maps one terminal row to logical pixels so the gesture
// thresholds (tuned in px) behave sensibly on coarse cell grids.
const rowPixels = 20.0

// tickInterval drives the playhead and the snap-back spring.
const tickInterval = 100 * time.Millisecond

// FeedAPI is the transport surface the model needs. Satisfied by
// *api.Client; faked in tests.
type FeedAPI interface {
	FetchPage(ctx context.Context, f api.Filter, cursor string, pageSize int) (feed.Page, error)
	RecordInteraction(ctx context.Context, itemID string, kind engage.Kind) (api.InteractionResult, error)
}

// Model is the root Bubble Tea model. It owns the feed session and
// translates terminal input into gesture events.
type Model struct {
	sess   *session.Session
	interp *gesture.Interpreter
	client FeedAPI
	filter api.Filter

	// Live counter stream; nil when disabled.
	counters <-chan api.CounterUpdate

	// Navigation-out callbacks. The core performs no routing itself.
	openProduct func(feed.ProductTag)
	openAuthor  func(author string)

	ctx    context.Context
	cancel context.CancelFunc

	spinner spinner.Model

	// Rubber-band drag offset in rows, animated back to rest with a
	// spring when the drag releases without navigating.
	spring  harmonica.Spring
	dragPos float64
	dragVel float64

	// Playhead position for the simulated player.
	playhead time.Duration

	width  int
	height int
	ready  bool
}

// Options configures optional model collaborators.
type Options struct {
	Counters    <-chan api.CounterUpdate
	OpenProduct func(feed.ProductTag)
	OpenAuthor  func(author string)
}

// NewModel assembles the TUI around an existing session and transport.
func NewModel(sess *session.Session, client FeedAPI, filter api.Filter, opts Options) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorPrimary)

	ctx, cancel := context.WithCancel(context.Background())

	m := &Model{
		sess:     sess,
		interp:   gesture.New(),
		client:   client,
		filter:   filter,
		counters: opts.Counters,
		ctx:      ctx,
		cancel:   cancel,
		spinner:  s,
		spring:   harmonica.NewSpring(harmonica.FPS(60), 6.0, 0.8),
	}

	m.openProduct = opts.OpenProduct
	if m.openProduct == nil {
		m.openProduct = func(t feed.ProductTag) {
			logging.Info("open product", "product", t.ProductID)
		}
	}
	m.openAuthor = opts.OpenAuthor
	if m.openAuthor == nil {
		m.openAuthor = func(author string) {
			logging.Info("open author", "author", author)
		}
	}

	sess.Attach(m.interp)
	return m
}

// Init starts the initial page load, the playhead ticker, and the
// counter stream reader.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.tick()}
	if cmd := m.maybeLoad(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if m.counters != nil {
		cmds = append(cmds, m.waitCounter())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and returns the updated model and commands.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.interp.SetViewportHeight(float64(msg.Height) * rowPixels)
		return m, nil

	case tea.FocusMsg:
		m.sess.Playback().VisibilityChanged(m.visibility())
		return m, nil

	case tea.BlurMsg:
		// Backgrounded: force a pause without clearing the play intent.
		m.sess.Playback().VisibilityChanged(0)
		return m, nil

	case PageLoaded:
		before := m.sess.Index()
		m.sess.CompleteLoad(msg.Page, msg.Err)
		cmds := []tea.Cmd{}
		if cmd := m.markViewed(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		if cmd := m.maybeLoad(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		if before != m.sess.Index() {
			m.playhead = 0
		}
		return m, tea.Batch(cmds...)

	case InteractionDone:
		if msg.Err != nil {
			logging.Debug("interaction failed", "kind", msg.Receipt.Kind.String(), "error", msg.Err)
			m.sess.ResolveInteraction(msg.Receipt, false)
		} else {
			m.sess.ResolveInteraction(msg.Receipt, msg.Ok)
		}
		return m, nil

	case CounterSync:
		m.sess.SyncCounters(msg.Update.ItemID, msg.Update.Counters)
		return m, m.waitCounter()

	case StreamClosed:
		m.counters = nil
		return m, nil

	case PlayTick:
		return m.handleTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	before := m.sess.Index()

	switch msg.String() {
	case "q", "ctrl+c":
		m.cancel()
		return m, tea.Quit

	case "j", "down":
		m.interp.KeyAdvance()
	case "k", "up":
		m.interp.KeyRetreat()

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		m.interp.JumpTo(int(msg.String()[0]-'0') - 1)

	case " ":
		m.sess.Playback().TogglePlay()
		return m, nil

	case "m":
		m.sess.Playback().ToggleMute()
		return m, nil

	case "l":
		return m, m.dispatch(engage.Like)
	case "b":
		return m, m.dispatch(engage.Bookmark)
	case "s":
		return m, m.dispatch(engage.Share)

	case "o", "enter":
		if it, ok := m.sess.Current(); ok && len(it.Tags) > 0 {
			m.openProduct(it.Tags[0])
		}
		return m, nil

	case "a":
		if it, ok := m.sess.Current(); ok {
			m.openAuthor(it.Author)
		}
		return m, nil

	case "r":
		m.sess.Retry()
		return m, m.maybeLoad()
	}

	return m, m.afterNavigation(before)
}

func (m *Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	before := m.sess.Index()

	switch msg.Button {
	case tea.MouseButtonWheelDown:
		// Scrolling down moves the feed forward.
		m.interp.Wheel(-15)
	case tea.MouseButtonWheelUp:
		m.interp.Wheel(15)

	case tea.MouseButtonLeft:
		y := float64(msg.Y) * rowPixels
		switch msg.Action {
		case tea.MouseActionPress:
			m.interp.DragStart(y, time.Now())
		case tea.MouseActionMotion:
			m.interp.DragMove(y)
			m.dragPos = m.interp.DragOffset() / rowPixels
			m.sess.Playback().VisibilityChanged(m.visibility())
		case tea.MouseActionRelease:
			m.interp.DragEnd(y, time.Now())
		}
	}

	return m, m.afterNavigation(before)
}

// afterNavigation runs the side effects that follow any intent: playhead
// reset, view recording, and prefetch.
func (m *Model) afterNavigation(beforeIndex int) tea.Cmd {
	if m.sess.Index() != beforeIndex {
		m.playhead = 0
	}
	m.sess.Playback().VisibilityChanged(m.visibility())

	cmds := []tea.Cmd{}
	if cmd := m.markViewed(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if cmd := m.maybeLoad(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

func (m *Model) handleTick() (tea.Model, tea.Cmd) {
	if !m.interp.Dragging() && m.dragPos != 0 {
		m.dragPos, m.dragVel = m.spring.Update(m.dragPos, m.dragVel, 0)
		if math.Abs(m.dragPos) < 0.05 {
			m.dragPos, m.dragVel = 0, 0
		}
		m.sess.Playback().VisibilityChanged(m.visibility())
	}

	if it, ok := m.sess.Current(); ok {
		pb := m.sess.Playback()
		if pb.StateOf(it.ID) == playback.Playing {
			m.playhead += time.Duration(float64(tickInterval) * pb.Rate())
			if d := time.Duration(it.Media.DurationMs) * time.Millisecond; d > 0 && m.playhead >= d {
				m.playhead = m.playhead % d // loop
			}
		}
	}

	return m, m.tick()
}

// visibility derives the current item's intersection ratio from the
// drag displacement: a half-screen drag leaves half the item visible.
func (m *Model) visibility() float64 {
	if m.height <= 0 {
		return 1
	}
	ratio := 1 - math.Abs(m.dragPos)/float64(m.height)
	if ratio < 0 {
		return 0
	}
	return ratio
}

// --- commands ---

func (m *Model) tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return PlayTick{At: t}
	})
}

func (m *Model) maybeLoad() tea.Cmd {
	cursor, ok := m.sess.BeginLoad()
	if !ok {
		return nil
	}
	return func() tea.Msg {
		page, err := m.sess.Pager().RequestPage(m.ctx, cursor)
		return PageLoaded{Page: page, Err: err}
	}
}

func (m *Model) dispatch(kind engage.Kind) tea.Cmd {
	receipt, ok := m.sess.Dispatch(kind)
	if !ok {
		return nil
	}
	return m.post(receipt)
}

func (m *Model) markViewed() tea.Cmd {
	receipt, ok := m.sess.MarkViewed()
	if !ok {
		return nil
	}
	return m.post(receipt)
}

func (m *Model) post(receipt session.Receipt) tea.Cmd {
	return func() tea.Msg {
		res, err := m.client.RecordInteraction(m.ctx, receipt.ItemID, receipt.Kind)
		return InteractionDone{Receipt: receipt, Ok: res.Ok, Err: err}
	}
}

func (m *Model) waitCounter() tea.Cmd {
	ch := m.counters
	return func() tea.Msg {
		upd, open := <-ch
		if !open {
			return StreamClosed{}
		}
		return CounterSync{Update: upd}
	}
}

// --- view ---

// View renders the current item as a full-screen card.
func (m *Model) View() string {
	if !m.ready {
		return ""
	}

	switch m.sess.State() {
	case session.StateIdle, session.StateLoading:
		return fmt.Sprintf("\n  %s Loading reels...\n", m.spinner.View())
	case session.StateError:
		if len(m.sess.Items()) == 0 {
			return fmt.Sprintf("\n  %s\n\n  %s\n",
				ErrorNotice.Render("Couldn't load the feed: "+m.errText()),
				"press r to retry, q to quit")
		}
	}

	if m.sess.Empty() {
		return "\n  " + EmptyState.Render("Nothing here yet. Check back later.") + "\n"
	}

	it, ok := m.sess.Current()
	if !ok {
		return ""
	}

	var b strings.Builder

	// Vertical displacement from an in-progress or settling drag.
	offset := int(math.Round(m.dragPos))
	for i := 0; i < offset; i++ {
		b.WriteString("\n")
	}

	b.WriteString(m.renderCard(it))
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	return b.String()
}

func (m *Model) renderCard(it *feed.Item) string {
	innerW := m.width - 4
	if innerW < 20 {
		innerW = 20
	}
	frameH := m.height - 8
	if frameH < 5 {
		frameH = 5
	}

	var b strings.Builder

	b.WriteString("  " + AuthorLine.Render("@"+it.Author))
	b.WriteString("  " + CounterRow.Render(formatAge(it.Published)) + "\n")

	b.WriteString(m.renderFrame(it, innerW, frameH))

	caption := runewidth.Truncate(it.Caption, innerW, "…")
	b.WriteString("  " + CaptionText.Render(caption) + "\n")
	if len(it.Hashtags) > 0 {
		tags := "#" + strings.Join(it.Hashtags, " #")
		b.WriteString("  " + HashtagText.Render(runewidth.Truncate(tags, innerW, "…")) + "\n")
	}

	b.WriteString("  " + m.renderCounters(it) + "\n")
	b.WriteString("  " + m.renderPlayback(it) + "\n")
	b.WriteString("  " + m.renderDots() + "\n")

	return b.String()
}

// renderFrame draws the simulated video area with product tag markers
// placed at their normalized positions scaled to the frame size.
func (m *Model) renderFrame(it *feed.Item, w, h int) string {
	rows := make([]string, h)
	for i := range rows {
		rows[i] = strings.Repeat(" ", w)
	}

	for _, t := range it.Tags {
		row := int(t.Y * float64(h-1))
		col := int(t.X * float64(w-1))
		label := "◉ " + t.Label
		if t.Label == "" {
			label = "◉"
		}
		dw := runewidth.StringWidth(label)
		if col+dw > w {
			col = w - dw
			if col < 0 {
				col = 0
			}
		}
		// Rows start as plain spaces, so byte offsets equal columns.
		line := rows[row]
		rows[row] = line[:col] + TagMarker.Render(label) + line[col+dw:]
	}

	frame := VideoFrame.Width(w).Render(strings.Join(rows, "\n"))

	var b strings.Builder
	for _, line := range strings.Split(frame, "\n") {
		b.WriteString("  " + line + "\n")
	}
	return b.String()
}

func (m *Model) renderCounters(it *feed.Item) string {
	like := fmt.Sprintf("♥ %s", formatCount(it.Counters.Likes))
	if it.Viewer.Liked {
		like = CounterActive.Render(like)
	} else {
		like = CounterRow.Render(like)
	}

	bookmark := fmt.Sprintf("⚑ %s", formatCount(it.Counters.Bookmarks))
	if it.Viewer.Bookmarked {
		bookmark = CounterActive.Render(bookmark)
	} else {
		bookmark = CounterRow.Render(bookmark)
	}

	rest := CounterRow.Render(fmt.Sprintf("💬 %s  ↗ %s  ▶ %s",
		formatCount(it.Counters.Comments),
		formatCount(it.Counters.Shares),
		formatCount(it.Counters.Views)))

	return like + "  " + bookmark + "  " + rest
}

func (m *Model) renderPlayback(it *feed.Item) string {
	pb := m.sess.Playback()

	icon := "⏸"
	if pb.StateOf(it.ID).String() == "playing" {
		icon = "▶"
	}
	mute := ""
	if pb.Muted() {
		mute = "  🔇"
	}

	total := time.Duration(it.Media.DurationMs) * time.Millisecond
	return PlaybackBar.Render(fmt.Sprintf("%s %s / %s%s", icon,
		formatClock(m.playhead), formatClock(total), mute))
}

func (m *Model) renderDots() string {
	items := m.sess.Items()
	cur := m.sess.Index()

	// Only a window of dots fits; center on the current item.
	const maxDots = 15
	start := 0
	if len(items) > maxDots {
		start = cur - maxDots/2
		if start < 0 {
			start = 0
		}
		if start > len(items)-maxDots {
			start = len(items) - maxDots
		}
	}
	end := start + maxDots
	if end > len(items) {
		end = len(items)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		if i == cur {
			b.WriteString(NavDotCurrent.Render("●"))
		} else {
			b.WriteString(NavDots.Render("○"))
		}
	}
	b.WriteString(NavDots.Render(fmt.Sprintf("  %d/%d", cur+1, len(items))))
	return b.String()
}

func (m *Model) renderStatus() string {
	var parts []string
	parts = append(parts, "j/k navigate", "space play", "l like", "b save", "s share", "o shop", "q quit")

	line := StatusBar.Render(strings.Join(parts, " · "))

	if m.sess.State() == session.StateLoadingMore {
		line += " " + m.spinner.View()
	}
	if m.sess.State() == session.StateError && len(m.sess.Items()) > 0 {
		line += " " + ErrorNotice.Render("load failed (r to retry)")
	}
	return "  " + line
}

func (m *Model) errText() string {
	if err := m.sess.Err(); err != nil {
		return err.Error()
	}
	return "unknown error"
}

func formatAge(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%.1fh", d.Hours())
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

func formatCount(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

func formatClock(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
