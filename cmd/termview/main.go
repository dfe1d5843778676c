// Command termview is a terminal client for termwired: it subscribes to the
// WebSocket frame stream, paints the spans, and forwards keystrokes back.
package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	termwire "github.com/danielgatis/go-termwire"
	"github.com/gorilla/websocket"
)

type frameMsg struct {
	frame *termwire.TerminalData
}

type errMsg struct {
	err error
}

type clientMessage struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
	Cols int    `json:"cols,omitempty"`
	Rows int    `json:"rows,omitempty"`
}

// listen reads frames off the connection into the message channel until the
// stream breaks.
func listen(conn *websocket.Conn, ch chan<- tea.Msg) {
	defer close(ch)
	for {
		var frame termwire.TerminalData
		if err := conn.ReadJSON(&frame); err != nil {
			ch <- errMsg{err}
			return
		}
		ch <- frameMsg{&frame}
	}
}

func waitForFrame(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return errMsg{fmt.Errorf("stream closed")}
		}
		return msg
	}
}

type model struct {
	addr   string
	conn   *websocket.Conn
	msgs   <-chan tea.Msg
	frame  *termwire.TerminalData
	err    error
	status lipgloss.Style
}

func newModel(addr string, conn *websocket.Conn, msgs <-chan tea.Msg) model {
	return model{
		addr:   addr,
		conn:   conn,
		msgs:   msgs,
		status: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

func (m model) Init() tea.Cmd {
	return waitForFrame(m.msgs)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlQ {
			return m, tea.Quit
		}
		if data := keyToBytes(msg); data != nil {
			// Update runs on a single goroutine, so writing here keeps
			// the connection's one-writer contract.
			if err := m.conn.WriteJSON(clientMessage{Type: "input", Data: string(data)}); err != nil {
				m.err = err
				return m, tea.Quit
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		// Reserve the bottom row for the status line.
		if msg.Width > 0 && msg.Height > 1 {
			m.conn.WriteJSON(clientMessage{Type: "resize", Cols: msg.Width, Rows: msg.Height - 1})
		}
		return m, nil

	case frameMsg:
		m.frame = msg.frame
		return m, waitForFrame(m.msgs)

	case errMsg:
		m.err = msg.err
		return m, tea.Quit
	}

	return m, nil
}

func (m model) View() string {
	if m.err != nil {
		return "stream error: " + m.err.Error() + "\n"
	}
	if m.frame == nil {
		return "connecting to " + m.addr + "...\n"
	}

	var b strings.Builder
	for _, line := range m.frame.Lines {
		for _, span := range line {
			b.WriteString(spanStyle(span).Render(span.Text))
		}
		b.WriteByte('\n')
	}

	b.WriteString(m.status.Render(fmt.Sprintf(
		" %dx%d  cursor (%d,%d)  %d lines  ctrl+q quits",
		m.frame.Cols, m.frame.Rows,
		m.frame.Cursor[0], m.frame.Cursor[1],
		m.frame.TotalLines,
	)))

	return b.String()
}

// spanStyle maps wire span attributes onto a lipgloss style.
func spanStyle(span termwire.Span) lipgloss.Style {
	style := lipgloss.NewStyle()

	if span.Fg != "" {
		style = style.Foreground(lipgloss.Color(span.Fg))
	}
	if span.Bg != "" {
		style = style.Background(lipgloss.Color(span.Bg))
	}
	if span.Flags&termwire.FlagBold != 0 {
		style = style.Bold(true)
	}
	if span.Flags&termwire.FlagItalic != 0 {
		style = style.Italic(true)
	}
	if span.Flags&termwire.FlagUnderline != 0 {
		style = style.Underline(true)
	}
	if span.Flags&termwire.FlagStrikethrough != 0 {
		style = style.Strikethrough(true)
	}
	if span.Flags&termwire.FlagInverse != 0 {
		style = style.Reverse(true)
	}
	if span.Flags&termwire.FlagFaint != 0 {
		style = style.Faint(true)
	}

	return style
}

// keyToBytes translates a key press into the bytes the remote shell expects.
func keyToBytes(msg tea.KeyMsg) []byte {
	switch msg.Type {
	case tea.KeyRunes:
		return []byte(string(msg.Runes))
	case tea.KeyEnter:
		return []byte("\r")
	case tea.KeyBackspace:
		return []byte{0x7f}
	case tea.KeyTab:
		return []byte("\t")
	case tea.KeySpace:
		return []byte(" ")
	case tea.KeyEsc:
		return []byte{0x1b}
	case tea.KeyUp:
		return []byte("\x1b[A")
	case tea.KeyDown:
		return []byte("\x1b[B")
	case tea.KeyRight:
		return []byte("\x1b[C")
	case tea.KeyLeft:
		return []byte("\x1b[D")
	case tea.KeyCtrlC:
		return []byte{0x03}
	case tea.KeyCtrlD:
		return []byte{0x04}
	}
	return nil
}

func main() {
	addr := flag.String("addr", "localhost:8080", "termwired host:port")
	query := flag.String("q", "", "highlight every match of this text")
	flag.Parse()

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws"}
	if *query != "" {
		u.RawQuery = url.Values{"q": {*query}}.Encode()
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dial:", err)
		os.Exit(1)
	}
	defer conn.Close()

	msgs := make(chan tea.Msg, 8)
	go listen(conn, msgs)

	p := tea.NewProgram(newModel(*addr, conn, msgs), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "ui error:", err)
		os.Exit(1)
	}
}
