// Package preview renders generated markdown for the terminal.
package preview

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

// DefaultWidth is the wrap width used when none is given.
const DefaultWidth = 100

// Renderer wraps a glamour renderer with a fixed style.
type Renderer struct {
	renderer *glamour.TermRenderer
}

// New returns a renderer using the dark style, wrapping at width columns.
// A width of zero or less uses DefaultWidth.
func New(width int) (*Renderer, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}
	return &Renderer{renderer: r}, nil
}

// Render styles md for terminal output. Empty input renders as empty.
func (r *Renderer) Render(md string) (string, error) {
	if md == "" {
		return "", nil
	}
	if r == nil || r.renderer == nil {
		return md, nil
	}
	return r.renderer.Render(md)
}
