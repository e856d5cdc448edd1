// Package styles holds the palette and lipgloss styles of the chat TUI.
package styles

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Palette names the colours by the role they play in a conversation.
type Palette struct {
	Accent   lipgloss.Color
	User     lipgloss.Color
	Text     lipgloss.Color
	Dim      lipgloss.Color
	Alert    lipgloss.Color
	Frame    lipgloss.Color
	BarShade lipgloss.Color
}

// DarkPalette is the palette used unless another is given.
func DarkPalette() Palette {
	return Palette{
		Accent:   "#7C3AED",
		User:     "#06B6D4",
		Text:     "#CDD6F4",
		Dim:      "#6C7086",
		Alert:    "#F38BA8",
		Frame:    "#45475A",
		BarShade: "#181825",
	}
}

// Styles are the rendered styles of each transcript element.
type Styles struct {
	palette Palette

	Title      lipgloss.Style
	Question   lipgloss.Style
	Answer     lipgloss.Style
	Source     lipgloss.Style
	Muted      lipgloss.Style
	Error      lipgloss.Style
	InputField lipgloss.Style
	StatusBar  lipgloss.Style
}

// New derives the styles from p.
func New(p Palette) *Styles {
	return &Styles{
		palette:  p,
		Title:    lipgloss.NewStyle().Bold(true).Foreground(p.Accent),
		Question: lipgloss.NewStyle().Bold(true).Foreground(p.User),
		Answer:   lipgloss.NewStyle().Foreground(p.Text).PaddingLeft(2),
		Source:   lipgloss.NewStyle().Foreground(p.Dim).Italic(true).PaddingLeft(4),
		Muted:    lipgloss.NewStyle().Foreground(p.Dim),
		Error:    lipgloss.NewStyle().Foreground(p.Alert),
		InputField: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(p.Frame).
			Padding(0, 1),
		StatusBar: lipgloss.NewStyle().
			Foreground(p.Dim).
			Background(p.BarShade).
			Padding(0, 1),
	}
}

// DefaultStyles returns the styles of the dark palette.
func DefaultStyles() *Styles {
	return New(DarkPalette())
}

// Palette returns the colours the styles were built from.
func (s *Styles) Palette() Palette {
	return s.palette
}

// Citation renders a numbered source line under an answer.
func (s *Styles) Citation(n int, label string) string {
	return s.Source.Render(fmt.Sprintf("[%d] %s", n, label))
}
