package engine

// Action is what the current pointer drag is doing.
type Action int

const (
	ActionNone Action = iota
	ActionDrawing
	ActionMoving
	ActionSelecting
	ActionPanning
	ActionErasing
	ActionResizing
	ActionRotating
	ActionLineEditingStart
	ActionLineEditingEnd
	ActionLineSegmentEditing
)

var actionNames = [...]string{
	ActionNone:               "none",
	ActionDrawing:            "drawing",
	ActionMoving:             "moving",
	ActionSelecting:          "selecting",
	ActionPanning:            "panning",
	ActionErasing:            "erasing",
	ActionResizing:           "resizing",
	ActionRotating:           "rotating",
	ActionLineEditingStart:   "line-editing-start",
	ActionLineEditingEnd:     "line-editing-end",
	ActionLineSegmentEditing: "line-segment-editing",
}

func (a Action) String() string {
	if a < 0 || int(a) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[a]
}

// inPlace reports whether the action edits the board continuously and is
// recorded as one undo step when the pointer is released.
func (a Action) inPlace() bool {
	switch a {
	case ActionMoving, ActionResizing, ActionRotating, ActionErasing,
		ActionLineEditingStart, ActionLineEditingEnd, ActionLineSegmentEditing:
		return true
	}
	return false
}
