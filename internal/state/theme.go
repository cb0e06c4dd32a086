package state

type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"

	// DefaultColorName resolves to the theme's draw colour.
	DefaultColorName = "default"
)

// DrawColor is the default ink for t.
func (t Theme) DrawColor() string {
	if t == Dark {
		return "#e2e8f0"
	}
	return "#18181b"
}

// Other returns the opposite theme.
func (t Theme) Other() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

// ResolveColor maps "default" and empty colours to the theme ink.
func (t Theme) ResolveColor(c string) string {
	if c == "" || c == DefaultColorName {
		return t.DrawColor()
	}
	return c
}

// Recolor swaps the ink of elements drawn in from's default colour to to's.
// Elements with any other colour are kept as is.
func Recolor(els Elements, from, to Theme) Elements {
	old, next := from.DrawColor(), to.DrawColor()
	return els.Map(func(el Element) Element {
		if ColorOf(el) == old {
			return WithColor(el, next)
		}
		return el
	})
}
