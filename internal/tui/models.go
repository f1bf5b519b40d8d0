package tui

type View int

const (
	ViewFeed View = iota
	ViewRail
	ViewPlayer
	ViewDetail
	ViewSearch
)
