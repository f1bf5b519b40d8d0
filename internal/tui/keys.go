package tui

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vitrinapp/vitrin/internal/config"
	"github.com/vitrinapp/vitrin/internal/content"
	"github.com/vitrinapp/vitrin/internal/player"
)

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a.quit()
	}

	switch a.view {
	case ViewFeed:
		return a.handleFeedKey(msg)
	case ViewRail:
		return a.handleRailKey(msg)
	case ViewPlayer:
		return a.handlePlayerKey(msg)
	case ViewDetail:
		return a.handleDetailKey(msg)
	case ViewSearch:
		return a.handleSearchKey(msg)
	}
	return a, nil
}

func (a *App) quit() (tea.Model, tea.Cmd) {
	if a.ctrl != nil {
		a.ctrl.Exit()
		a.ctrl = nil
	}
	return a, tea.Quit
}

func (a *App) bindings() config.KeyBindings {
	return a.config.Keys.Bindings
}

func (a *App) handleFeedKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Native list filtering gets every key while active
	if a.feedList.FilterState() == list.Filtering {
		return a.forwardToFeedList(msg)
	}

	keys := a.bindings()
	switch msg.String() {
	case keys.Quit:
		return a.quit()
	case keys.Search:
		a.previousView = ViewFeed
		a.view = ViewSearch
		a.searchInput.Focus()
		return a, nil
	case keys.Stories:
		a.view = ViewRail
		return a, a.loadRail()
	case keys.Refresh:
		a.status = "Refreshing…"
		return a, a.refresh()
	case keys.Like:
		if it := a.selectedListing(); it != nil {
			return a, a.toggleLike(it.ID)
		}
	case keys.Save:
		if it := a.selectedListing(); it != nil {
			return a, a.toggleSave(it.ID)
		}
	case "enter":
		if it := a.selectedListing(); it != nil {
			a.currentItem = it
			a.previousView = ViewFeed
			a.view = ViewDetail
			return a, a.renderDetail(it)
		}
	}
	return a.forwardToFeedList(msg)
}

func (a *App) handleRailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := a.bindings()
	switch msg.String() {
	case keys.Quit:
		return a.quit()
	case keys.Back, keys.Stories:
		a.view = ViewFeed
		return a, nil
	case "enter":
		if entry, ok := a.railList.SelectedItem().(railEntry); ok {
			return a, a.openStories(entry.sellerID, "")
		}
	}
	newList, cmd := a.railList.Update(msg)
	a.railList = newList
	return a, cmd
}

func (a *App) handlePlayerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.ctrl == nil {
		a.view = ViewRail
		return a, nil
	}

	keys := a.bindings()
	switch msg.String() {
	case keys.Quit:
		return a.quit()
	case keys.Back:
		a.ctrl.Exit()
		return a, nil
	case " ", "space":
		if a.ctrl.State() == player.StatePaused {
			_ = a.ctrl.Resume()
		} else {
			_ = a.ctrl.Pause()
		}
		return a, nil
	case "right":
		_ = a.ctrl.Forward()
		return a, nil
	case "left":
		_ = a.ctrl.Backward()
		return a, nil
	case keys.Like:
		if a.playerState.Item != nil {
			return a, a.toggleLike(a.playerState.Item.ID)
		}
	case keys.Save:
		if a.playerState.Item != nil {
			return a, a.toggleSave(a.playerState.Item.ID)
		}
	}
	return a, nil
}

func (a *App) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := a.bindings()
	switch msg.String() {
	case keys.Quit:
		return a.quit()
	case keys.Back:
		a.view = a.previousView
		a.currentItem = nil
		return a, nil
	case keys.Like:
		if a.currentItem != nil {
			return a, a.toggleLike(a.currentItem.ID)
		}
	case keys.Save:
		if a.currentItem != nil {
			return a, a.toggleSave(a.currentItem.ID)
		}
	}
	newViewport, cmd := a.viewport.Update(msg)
	a.viewport = newViewport
	return a, cmd
}

func (a *App) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := a.bindings()

	if a.searchInput.Focused() {
		switch msg.String() {
		case keys.Back:
			a.closeSearch()
			return a, nil
		case "tab", "down", "enter":
			a.searchInput.Blur()
			return a, nil
		}
		newInput, cmd := a.searchInput.Update(msg)
		a.searchInput = newInput
		if query := a.searchInput.Value(); len(query) > 1 {
			return a, tea.Batch(cmd, a.performSearch(query))
		}
		return a, cmd
	}

	switch msg.String() {
	case keys.Quit:
		return a.quit()
	case keys.Back:
		a.closeSearch()
		return a, nil
	case "tab", "up":
		a.searchInput.Focus()
		return a, nil
	case "enter":
		if hit, ok := a.searchList.SelectedItem().(hitItem); ok {
			it := a.listingByID(hit.hit.ItemID)
			if it == nil {
				// Hit survives in the index after its cache entries lapsed;
				// render what the index stored.
				it = &content.Item{
					ID:       hit.hit.ItemID,
					SellerID: hit.hit.SellerID,
					Title:    hit.hit.Title,
					Category: hit.hit.Category,
				}
			}
			a.currentItem = it
			a.previousView = ViewSearch
			a.view = ViewDetail
			return a, a.renderDetail(it)
		}
	}
	newList, cmd := a.searchList.Update(msg)
	a.searchList = newList
	return a, cmd
}

func (a *App) closeSearch() {
	a.searchInput.SetValue("")
	a.searchInput.Blur()
	a.hits = nil
	a.searchList.SetItems([]list.Item{})
	a.view = ViewFeed
}

func (a *App) forwardToFeedList(msg tea.Msg) (tea.Model, tea.Cmd) {
	newList, cmd := a.feedList.Update(msg)
	a.feedList = newList
	return a, cmd
}

func (a *App) selectedListing() *content.Item {
	if item, ok := a.feedList.SelectedItem().(listingItem); ok {
		return item.item
	}
	return nil
}

func (a *App) listingByID(id string) *content.Item {
	for _, it := range a.items {
		if it.ID == id {
			return it
		}
	}
	return nil
}
