package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/vitrinapp/vitrin/internal/config"
	"github.com/vitrinapp/vitrin/internal/content"
	"github.com/vitrinapp/vitrin/internal/discovery"
	"github.com/vitrinapp/vitrin/internal/mutate"
	"github.com/vitrinapp/vitrin/internal/player"
	"github.com/vitrinapp/vitrin/internal/search"
)

type App struct {
	config *config.Config
	engine *discovery.Engine

	feedList    list.Model
	railList    list.Model
	searchList  list.Model
	searchInput textinput.Model
	viewport    viewport.Model

	view         View
	previousView View

	items       []*content.Item
	rail        []railEntry
	hits        []*search.Hit
	currentItem *content.Item

	ctrl        *player.Controller
	playerCh    chan player.Change
	playerState player.Change
	playerTotal int

	noticeCh chan mutate.Notice

	width  int
	height int
	err    error
	status string

	glamourRenderer *glamour.TermRenderer
	rendererWidth   int
}

func NewApp(engine *discovery.Engine, cfg *config.Config) *App {
	ApplyColors(cfg.UI.Colors)

	feedList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	feedList.Title = "› feed"
	feedList.SetShowStatusBar(false)
	feedList.SetFilteringEnabled(true)
	feedList.SetShowHelp(true)

	railList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	railList.Title = "› stories"
	railList.SetShowStatusBar(false)
	railList.SetFilteringEnabled(false)
	railList.SetShowHelp(true)

	searchList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	searchList.Title = "› search results"
	searchList.SetShowStatusBar(false)
	searchList.SetShowHelp(false)
	searchList.SetFilteringEnabled(false)

	si := textinput.New()
	si.Placeholder = "Search listings…"

	app := &App{
		config:      cfg,
		engine:      engine,
		feedList:    feedList,
		railList:    railList,
		searchList:  searchList,
		searchInput: si,
		viewport:    viewport.New(0, 0),
		view:        ViewFeed,
		playerCh:    make(chan player.Change, 16),
		noticeCh:    make(chan mutate.Notice, 8),
	}

	engine.OnNotice = func(n mutate.Notice) {
		select {
		case app.noticeCh <- n:
		default:
		}
	}

	return app
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.loadFeed(""),
		a.loadRail(),
		a.waitForNotice(),
		tea.EnterAltScreen,
	)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.feedList.SetSize(msg.Width, msg.Height-3)
		a.railList.SetSize(msg.Width, msg.Height-3)
		searchListHeight := msg.Height - 10
		if searchListHeight < 5 {
			searchListHeight = 5
		}
		a.searchList.SetSize(msg.Width, searchListHeight)
		a.viewport.Width = msg.Width
		a.viewport.Height = msg.Height - 3

	case tea.KeyMsg:
		return a.handleKey(msg)

	case feedLoadedMsg:
		a.items = msg.items
		items := make([]list.Item, len(msg.items))
		for i, it := range msg.items {
			items[i] = listingItem{item: it}
		}
		a.feedList.SetItems(items)
		a.status = fmt.Sprintf("%d listings", len(msg.items))
		if a.view == ViewDetail && a.currentItem != nil {
			if updated := a.listingByID(a.currentItem.ID); updated != nil {
				a.currentItem = updated
				cmds = append(cmds, a.renderDetail(updated))
			}
		}

	case railLoadedMsg:
		a.rail = msg.entries
		items := make([]list.Item, len(msg.entries))
		for i, entry := range msg.entries {
			items[i] = entry
		}
		a.railList.SetItems(items)

	case detailRenderedMsg:
		if a.view == ViewDetail {
			a.viewport.SetContent(msg.content)
			a.viewport.GotoTop()
		}

	case searchResultsMsg:
		if a.view == ViewSearch {
			a.hits = msg.hits
			items := make([]list.Item, len(msg.hits))
			for i, h := range msg.hits {
				items[i] = hitItem{hit: h}
			}
			a.searchList.SetItems(items)
		}

	case playerOpenedMsg:
		if msg.err != nil {
			a.err = msg.err
			break
		}
		a.ctrl = msg.ctrl
		a.playerTotal = msg.total
		a.previousView = a.view
		a.view = ViewPlayer
		cmds = append(cmds, a.waitForPlayer())

	case playerChangeMsg:
		a.playerState = msg.change
		if msg.change.State == player.StateExiting {
			a.ctrl = nil
			a.view = ViewRail
		} else {
			cmds = append(cmds, a.waitForPlayer())
		}

	case engagementAppliedMsg:
		// Optimistic patch already landed in the cache; re-read it.
		cmds = append(cmds, a.reloadCached())

	case noticeMsg:
		if msg.notice.Evicted {
			a.status = fmt.Sprintf("listing %s is gone, removed", msg.notice.ItemID)
		} else {
			a.status = fmt.Sprintf("%s failed, reverted", msg.notice.Kind)
		}
		cmds = append(cmds, a.reloadCached(), a.waitForNotice())

	case errorMsg:
		a.err = msg.err
	}

	switch a.view {
	case ViewFeed:
		newList, cmd := a.feedList.Update(msg)
		a.feedList = newList
		cmds = append(cmds, cmd)
	case ViewRail:
		newList, cmd := a.railList.Update(msg)
		a.railList = newList
		cmds = append(cmds, cmd)
	case ViewDetail:
		switch msg.(type) {
		case tea.KeyMsg, tea.WindowSizeMsg, tea.MouseMsg:
			newViewport, cmd := a.viewport.Update(msg)
			a.viewport = newViewport
			cmds = append(cmds, cmd)
		}
	case ViewSearch:
		newInput, cmd := a.searchInput.Update(msg)
		a.searchInput = newInput
		cmds = append(cmds, cmd)

		newList, listCmd := a.searchList.Update(msg)
		a.searchList = newList
		cmds = append(cmds, listCmd)

		if query := a.searchInput.Value(); len(query) > 1 {
			cmds = append(cmds, a.performSearch(query))
		}
	}

	return a, tea.Batch(cmds...)
}

func (a *App) View() string {
	var content string

	switch a.view {
	case ViewFeed:
		if len(a.items) == 0 {
			content = lipgloss.NewStyle().
				Width(a.width).
				Height(a.height-3).
				Align(lipgloss.Center, lipgloss.Center).
				Render(GetWelcomeMessage())
		} else {
			content = a.feedList.View()
		}
	case ViewRail:
		if len(a.rail) == 0 {
			content = lipgloss.NewStyle().
				Width(a.width).
				Height(a.height-3).
				Align(lipgloss.Center, lipgloss.Center).
				Render(HelpStyle.Render("No live stories right now"))
		} else {
			content = a.railList.View()
		}
	case ViewPlayer:
		content = a.playerView()
	case ViewDetail:
		content = a.viewport.View()
	case ViewSearch:
		content = a.searchView()
	}

	statusBar := a.statusBar()
	if statusBar != "" {
		separatorWidth := a.width - 2
		if separatorWidth < 0 {
			separatorWidth = 0
		}
		separator := SeparatorStyle.Render("─" + strings.Repeat("─", separatorWidth))
		return lipgloss.JoinVertical(lipgloss.Top, content, separator, statusBar)
	}
	return content
}

// playerView renders the story viewer: position, media, remaining time. A
// muted looped video and a static image get the same visual timer.
func (a *App) playerView() string {
	state := a.playerState
	if state.Item == nil {
		return lipgloss.NewStyle().
			Width(a.width).
			Height(a.height-3).
			Align(lipgloss.Center, lipgloss.Center).
			Render(HelpStyle.Render("Loading stories…"))
	}

	position := fmt.Sprintf("%d / %d", state.Index+1, a.playerTotal)

	marker := ""
	if state.State == player.StatePaused {
		marker = LikedStyle.Render(" ⏸ paused")
	}

	media := string(state.Item.MediaType)
	if len(state.Item.MediaRefs) > 0 {
		media += " • " + state.Item.MediaRefs[0]
	}

	engagement := fmt.Sprintf("♥ %d", state.Item.Engage.LikeCount)
	if state.Item.Viewer.Liked {
		engagement = LikedStyle.Render(engagement)
	}
	if state.Item.Viewer.Saved {
		engagement += "  " + SavedStyle.Render("⚑ saved")
	}

	body := lipgloss.JoinVertical(
		lipgloss.Center,
		HeaderStyle.Render("› "+state.Item.SellerID),
		TimeStyle.Render(position)+marker,
		"",
		TitleStyle.Render(state.Item.Title),
		HelpStyle.Render(media),
		"",
		engagement,
		"",
		HelpStyle.Render("←/→: navigate • space: pause • l: like • b: save • esc: close"),
	)

	return lipgloss.NewStyle().
		Width(a.width).
		Height(a.height - 3).
		Align(lipgloss.Center, lipgloss.Center).
		Render(body)
}

func (a *App) searchView() string {
	inputWidth := a.width - 8
	if inputWidth < 10 {
		inputWidth = a.width - 4
	}
	a.searchInput.Width = inputWidth

	borderColor := MutedColor
	if a.searchInput.Focused() {
		borderColor = AccentColor
	}

	input := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(inputWidth + 4).
		Render(a.searchInput.View())

	helpText := "Type to search • Tab/↓: results • Esc: back"
	if !a.searchInput.Focused() {
		if len(a.searchList.Items()) > 0 {
			helpText = "↑↓: navigate • Enter: open • Tab/↑: search box • Esc: back"
		} else {
			helpText = "No results • Tab/↑: search box • Esc: back"
		}
	}

	body := lipgloss.JoinVertical(
		lipgloss.Top,
		HeaderStyle.Render("› search"),
		"",
		input,
		HelpStyle.Render(helpText),
		"",
		a.searchList.View(),
	)

	return lipgloss.NewStyle().
		Width(a.width).
		Height(a.height - 3).
		MaxHeight(a.height - 3).
		Render(body)
}

func (a *App) statusBar() string {
	if a.err != nil {
		return StatusStyle.Width(a.width).Render(ErrorStyle.Render("✗ " + friendly(a.err)))
	}
	if a.status != "" {
		return StatusStyle.Width(a.width).Render(a.status)
	}
	return ""
}

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	wordWrapWidth := (a.width * 9) / 10
	if wordWrapWidth > 120 {
		wordWrapWidth = 120
	}
	if wordWrapWidth < 40 {
		wordWrapWidth = 40
	}

	if a.glamourRenderer == nil || abs(a.rendererWidth-wordWrapWidth) > 10 {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wordWrapWidth),
		)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = wordWrapWidth
	}

	return a.glamourRenderer, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

type listingItem struct {
	item *content.Item
}

func (i listingItem) Title() string {
	title := i.item.Title
	if title == "" {
		title = i.item.ID
	}
	if i.item.Viewer.Liked {
		return LikedStyle.Render("♥ " + title)
	}
	return title
}

func (i listingItem) Description() string {
	parts := []string{i.item.SellerID}
	if i.item.Category != "" {
		parts = append(parts, i.item.Category)
	}
	parts = append(parts, fmt.Sprintf("♥ %d", i.item.Engage.LikeCount))
	if i.item.Viewer.Saved {
		parts = append(parts, "⚑ saved")
	}
	return lipgloss.NewStyle().Foreground(MutedColor).Render(strings.Join(parts, " • "))
}

func (i listingItem) FilterValue() string { return i.item.Title + " " + i.item.SellerID }

// railEntry groups one seller's live stories in the rail.
type railEntry struct {
	sellerID string
	count    int
	latest   *content.Item
}

func (e railEntry) Title() string {
	return HeaderStyle.Render("◉ " + e.sellerID)
}

func (e railEntry) Description() string {
	desc := fmt.Sprintf("%d stories", e.count)
	if e.count == 1 {
		desc = "1 story"
	}
	if e.latest != nil && e.latest.Title != "" {
		desc += " • " + e.latest.Title
	}
	return lipgloss.NewStyle().Foreground(MutedColor).Render(desc)
}

func (e railEntry) FilterValue() string { return e.sellerID }

type hitItem struct {
	hit *search.Hit
}

func (i hitItem) Title() string {
	if i.hit.Title != "" {
		return i.hit.Title
	}
	return i.hit.ItemID
}

func (i hitItem) Description() string {
	parts := []string{i.hit.SellerID}
	if i.hit.Category != "" {
		parts = append(parts, i.hit.Category)
	}
	return lipgloss.NewStyle().Foreground(MutedColor).Render(strings.Join(parts, " • "))
}

func (i hitItem) FilterValue() string { return i.hit.Title + " " + i.hit.SellerID }

type feedLoadedMsg struct {
	items []*content.Item
}

type railLoadedMsg struct {
	entries []railEntry
}

type detailRenderedMsg struct {
	content string
}

type searchResultsMsg struct {
	hits []*search.Hit
}

type playerOpenedMsg struct {
	ctrl  *player.Controller
	total int
	err   error
}

type playerChangeMsg struct {
	change player.Change
}

type engagementAppliedMsg struct{}

type noticeMsg struct {
	notice mutate.Notice
}

type errorMsg struct {
	err error
}
