// Package console renders store feedback and navigation on a terminal.
package console

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"ideaclient/application/ports"
)

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

var (
	colorSuccess = ac("28", "42")
	colorError   = ac("160", "203")
	colorMuted   = ac("240", "245")
)

// Theme holds the styles used for console output
type Theme struct {
	Success lipgloss.Style
	Error   lipgloss.Style
	Scope   lipgloss.Style
	Route   lipgloss.Style
}

// NewTheme builds styles for w. Color is dropped when w is not a terminal.
func NewTheme(w io.Writer) Theme {
	r := lipgloss.NewRenderer(w)
	return Theme{
		Success: r.NewStyle().Foreground(colorSuccess).Bold(true),
		Error:   r.NewStyle().Foreground(colorError).Bold(true),
		Scope:   r.NewStyle().Foreground(colorMuted),
		Route:   r.NewStyle().Foreground(colorMuted).Italic(true),
	}
}

// Notifier prints notifications, one per line
type Notifier struct {
	mu    sync.Mutex
	out   io.Writer
	theme Theme
}

// NewNotifier creates a notifier writing to out
func NewNotifier(out io.Writer) *Notifier {
	return &Notifier{out: out, theme: NewTheme(out)}
}

// Notify implements ports.Notifier. Empty texts are the auto-clear signal
// and print nothing.
func (n *Notifier) Notify(note ports.Notification) {
	if note.Text == "" {
		return
	}

	style := n.theme.Success
	mark := "✓"
	if note.Level == ports.LevelError {
		style = n.theme.Error
		mark = "✗"
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.out, "%s %s %s\n",
		style.Render(mark),
		n.theme.Scope.Render("["+note.Scope+"]"),
		style.Render(note.Text))
}

// Navigator records the route the client was sent to. A CLI has no pages,
// so navigation is printed and remembered for the next prompt.
type Navigator struct {
	mu    sync.Mutex
	out   io.Writer
	theme Theme
	route string
}

// NewNavigator creates a navigator writing to out
func NewNavigator(out io.Writer) *Navigator {
	return &Navigator{out: out, theme: NewTheme(out)}
}

// Navigate implements ports.Navigator
func (n *Navigator) Navigate(route string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.route = route
	fmt.Fprintln(n.out, n.theme.Route.Render("→ "+route))
}

// Route returns the last route navigated to
func (n *Navigator) Route() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.route
}
