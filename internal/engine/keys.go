package engine

import (
	"strings"

	"CollabBoard/internal/state"
)

// Key is a keyboard event. Name is the key as typed, such as "a", "[",
// "delete" or "alt".
type Key struct {
	Name  string
	Shift bool
	Ctrl  bool
}

const zoomStep = 1.2

var toolKeys = map[string][2]state.Tool{
	"s": {state.ToolSelection, state.ToolSelection},
	"p": {state.ToolPen, state.ToolPen},
	"e": {state.ToolEraser, state.ToolEraser},
	"b": {state.ToolRectangle, state.ToolRectangleDashed},
	"o": {state.ToolRoundedRectangle, state.ToolRoundedRectangleDashed},
	"c": {state.ToolEllipse, state.ToolEllipseDashed},
	"a": {state.ToolArrow, state.ToolArrow},
	"t": {state.ToolText, state.ToolText},
}

// KeyDown runs the shortcut bound to k and reports whether one matched.
// Shortcuts are ignored while a label is being edited.
func (e *Engine) KeyDown(k Key) bool {
	name := strings.ToLower(k.Name)
	if _, editing := e.Editing(); editing {
		return false
	}

	if k.Ctrl {
		switch name {
		case "+", "=":
			e.Zoom(e.Viewport().Zoom * zoomStep)
		case "-", "_":
			e.Zoom(e.Viewport().Zoom / zoomStep)
		case "0":
			e.Zoom(1)
		case "z":
			if k.Shift {
				e.Redo()
			} else {
				e.Undo()
			}
		default:
			return false
		}
		return true
	}

	switch name {
	case "alt":
		e.update(func() {
			if e.tool != state.ToolPan && e.action == ActionNone {
				e.prevTool = e.tool
				e.tool = state.ToolPan
			}
		})
	case "backspace", "delete":
		if k.Shift {
			e.Clear()
		} else {
			e.Delete()
		}
	case "g":
		if k.Shift {
			e.Ungroup()
		} else {
			e.Group()
		}
	case "[":
		if k.Shift {
			e.Reorder(ToBack)
		} else {
			e.Reorder(Backward)
		}
	case "]":
		if k.Shift {
			e.Reorder(ToFront)
		} else {
			e.Reorder(Forward)
		}
	case "u":
		e.Undo()
	case "r":
		e.Redo()
	case "l":
		if k.Shift {
			e.ToggleLock()
			return true
		}
		e.SetTool(state.ToolLine)
	default:
		tools, ok := toolKeys[name]
		if !ok {
			return false
		}
		t := tools[0]
		if k.Shift {
			t = tools[1]
		}
		e.SetTool(t)
	}
	return true
}

// KeyUp restores the tool that was active before alt switched to panning.
func (e *Engine) KeyUp(k Key) {
	if strings.ToLower(k.Name) != "alt" {
		return
	}
	e.update(func() {
		if e.tool == state.ToolPan && e.prevTool != "" {
			e.tool = e.prevTool
			e.prevTool = ""
		}
	})
}
