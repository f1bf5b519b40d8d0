package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vitrinapp/vitrin/internal/content"
	"github.com/vitrinapp/vitrin/internal/player"
	"github.com/vitrinapp/vitrin/internal/remote"
)

func (a *App) loadFeed(category string) tea.Cmd {
	return func() tea.Msg {
		items, err := a.engine.Feed(context.Background(), remote.FeedFilters{Category: category})
		if err != nil {
			return errorMsg{err: wrapErr("loading feed", err)}
		}
		return feedLoadedMsg{items: items}
	}
}

func (a *App) loadRail() tea.Cmd {
	return func() tea.Msg {
		stories, err := a.engine.Stories(context.Background())
		if err != nil {
			return errorMsg{err: wrapErr("loading stories", err)}
		}
		return railLoadedMsg{entries: groupRail(stories)}
	}
}

// groupRail collapses the ranked story list into one rail entry per seller,
// keeping rail order.
func groupRail(stories []*content.Item) []railEntry {
	index := make(map[string]int)
	var entries []railEntry
	for _, it := range stories {
		if pos, ok := index[it.SellerID]; ok {
			entries[pos].count++
			continue
		}
		index[it.SellerID] = len(entries)
		entries = append(entries, railEntry{sellerID: it.SellerID, count: 1, latest: it})
	}
	return entries
}

// reloadCached re-reads the current views from the cache, picking up
// optimistic patches and rollbacks without another network fetch.
func (a *App) reloadCached() tea.Cmd {
	return func() tea.Msg {
		items, err := a.engine.Feed(context.Background(), remote.FeedFilters{})
		if err != nil {
			return errorMsg{err: wrapErr("refreshing view", err)}
		}
		return feedLoadedMsg{items: items}
	}
}

func (a *App) refresh() tea.Cmd {
	return func() tea.Msg {
		a.engine.InvalidateAll()
		items, err := a.engine.Feed(context.Background(), remote.FeedFilters{})
		if err != nil {
			return errorMsg{err: wrapErr("refreshing", err)}
		}
		return feedLoadedMsg{items: items}
	}
}

func (a *App) toggleLike(itemID string) tea.Cmd {
	return func() tea.Msg {
		if err := a.engine.ToggleLike(context.Background(), itemID); err != nil {
			return errorMsg{err: wrapErr("liking", err)}
		}
		return engagementAppliedMsg{}
	}
}

func (a *App) toggleSave(itemID string) tea.Cmd {
	return func() tea.Msg {
		if err := a.engine.ToggleSave(context.Background(), itemID); err != nil {
			return errorMsg{err: wrapErr("saving", err)}
		}
		return engagementAppliedMsg{}
	}
}

func (a *App) openStories(sellerID, startItemID string) tea.Cmd {
	return func() tea.Msg {
		queue, err := a.engine.StoryQueue(context.Background(), sellerID)
		if err != nil {
			return playerOpenedMsg{err: wrapErr("opening stories", err)}
		}

		ctrl, err := a.engine.OpenStories(context.Background(), sellerID, startItemID, func(ch player.Change) {
			select {
			case a.playerCh <- ch:
			default:
			}
		})
		if err != nil {
			return playerOpenedMsg{err: wrapErr("opening stories", err)}
		}
		return playerOpenedMsg{ctrl: ctrl, total: len(queue)}
	}
}

// waitForPlayer is the subscription glue: each delivered change re-arms the
// next receive, so the render loop follows the controller without owning it.
func (a *App) waitForPlayer() tea.Cmd {
	return func() tea.Msg {
		return playerChangeMsg{change: <-a.playerCh}
	}
}

func (a *App) waitForNotice() tea.Cmd {
	return func() tea.Msg {
		return noticeMsg{notice: <-a.noticeCh}
	}
}

func (a *App) performSearch(query string) tea.Cmd {
	return func() tea.Msg {
		hits, err := a.engine.SearchCached(query, 20)
		if err != nil {
			return errorMsg{err: wrapErr("searching", err)}
		}
		return searchResultsMsg{hits: hits}
	}
}

func (a *App) renderDetail(it *content.Item) tea.Cmd {
	return func() tea.Msg {
		var body strings.Builder
		body.WriteString(fmt.Sprintf("# %s\n\n", it.Title))
		body.WriteString(fmt.Sprintf("*%s*", it.SellerID))
		if it.Category != "" {
			label := a.engine.Categories().Label(it.Category)
			body.WriteString(fmt.Sprintf(" • %s", label))
		}
		body.WriteString("\n\n")

		likeState := fmt.Sprintf("♥ %d", it.Engage.LikeCount)
		if it.Viewer.Liked {
			likeState += " (liked)"
		}
		if it.Viewer.Saved {
			likeState += " • ⚑ saved"
		}
		body.WriteString(likeState + "\n\n---\n\n")

		if it.Caption != "" {
			body.WriteString(it.Caption + "\n\n")
		}

		if len(it.MediaRefs) > 0 {
			body.WriteString("**Media:**\n")
			for _, ref := range it.MediaRefs {
				body.WriteString(fmt.Sprintf("- %s\n", ref))
			}
		}

		r, err := a.getRenderer()
		if err != nil {
			return detailRenderedMsg{content: "Error initializing renderer: " + err.Error()}
		}

		rendered, err := r.Render(body.String())
		if err != nil {
			return detailRenderedMsg{content: fmt.Sprintf("# Error\n\nFailed to render listing: %s", err.Error())}
		}
		return detailRenderedMsg{content: rendered}
	}
}
