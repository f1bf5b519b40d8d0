package content

// ActionKind names a viewer engagement action.
type ActionKind string

const (
	ActionLike ActionKind = "like"
	ActionSave ActionKind = "save"
)

// Valid reports whether the kind is one the backend understands.
func (k ActionKind) Valid() bool {
	return k == ActionLike || k == ActionSave
}
