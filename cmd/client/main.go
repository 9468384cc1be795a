// Terminal chat client.
//
// Screens
// -------
//   stateUsername – centered username prompt with an ASCII banner
//   stateChat     – full-screen chat with a scrollable message viewport
//
// Concurrency
// -----------
//   A single goroutine reads JSON frames from the WebSocket and forwards
//   raw bytes to the frames channel. The Bubbletea event loop consumes one
//   frame at a time via waitForFrame (a tea.Cmd), immediately queuing the
//   next read after each frame is processed.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	figure "github.com/common-nighthawk/go-figure"
	"github.com/gorilla/websocket"

	"github.com/TorVallin/WebSockets-Workshop-Backend/internal/server"
)

// ---------------------------------------------------------------------------
// Styles
// ---------------------------------------------------------------------------

var (
	purple = lipgloss.Color("99")
	cyan   = lipgloss.Color("86")
	green  = lipgloss.Color("82")
	red    = lipgloss.Color("196")
	yellow = lipgloss.Color("220")
	gray   = lipgloss.Color("241")
	white  = lipgloss.Color("255")
	orange = lipgloss.Color("214")
	blue   = lipgloss.Color("75")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Background(purple).
			Foreground(white).
			Padding(0, 1)

	footerBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.NormalBorder(), true, false, false, false).
				BorderForeground(gray).
				Padding(0, 1)

	bannerStyle = lipgloss.NewStyle().Foreground(cyan)

	hintStyle = lipgloss.NewStyle().
			Foreground(gray).
			Italic(true)

	successStyle = lipgloss.NewStyle().Foreground(green)
	errorStyle   = lipgloss.NewStyle().Foreground(red)
	sysStyle     = lipgloss.NewStyle().Foreground(yellow).Italic(true)
	tsStyle      = lipgloss.NewStyle().Foreground(gray)
	myNameStyle  = lipgloss.NewStyle().Bold(true).Foreground(orange)
	peerStyle    = lipgloss.NewStyle().Bold(true).Foreground(blue)
	typingStyle  = lipgloss.NewStyle().Foreground(gray).Italic(true)
)

// ---------------------------------------------------------------------------
// Bubbletea message types
// ---------------------------------------------------------------------------

type serverFrameMsg []byte    // a raw frame arrived from the server
type disconnectedMsg struct{} // server closed the connection

// ---------------------------------------------------------------------------
// Application state
// ---------------------------------------------------------------------------

type appState int

const (
	stateUsername appState = iota
	stateChat
)

// ---------------------------------------------------------------------------
// Model
// ---------------------------------------------------------------------------

type model struct {
	conn   *websocket.Conn
	frames chan []byte // goroutine → bubbletea bridge

	state appState
	me    string // confirmed username
	room  string // current room

	// Username prompt
	nameInput textinput.Model
	statusMsg string

	// Chat
	ready     bool
	viewport  viewport.Model
	chatInput textinput.Model
	chatLines []string // rendered lines shown in the viewport
	online    []string // usernames currently online in the room
	rooms     []string // known room names, directory order
	typing    map[string]bool
	wasTyping bool // whether we last announced is_typing=true

	width, height int
}

func newModel(conn *websocket.Conn, frames chan []byte, username string) model {
	ni := textinput.New()
	ni.Placeholder = "username"
	ni.CharLimit = server.MaxNameLength
	ni.Width = 32
	ni.Focus()
	ni.SetValue(username)

	ci := textinput.New()
	ci.Placeholder = "Type a message, or /help"
	ci.CharLimit = server.MaxMessageLength

	return model{
		conn:      conn,
		frames:    frames,
		state:     stateUsername,
		nameInput: ni,
		chatInput: ci,
		typing:    make(map[string]bool),
	}
}

// ---------------------------------------------------------------------------
// Tea interface – Init
// ---------------------------------------------------------------------------

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForFrame(m.frames))
}

// ---------------------------------------------------------------------------
// Tea interface – Update
// ---------------------------------------------------------------------------

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, m.vpHeight())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = m.vpHeight()
		}
		m.chatInput.Width = msg.Width - 4
		return m, nil

	case serverFrameMsg:
		next := m.handleServerFrame([]byte(msg))
		return next, waitForFrame(next.frames)

	case disconnectedMsg:
		m.statusMsg = "disconnected from server"
		return m, tea.Quit

	case tea.KeyMsg:
		switch m.state {
		case stateUsername:
			return m.handleUsernameKey(msg)
		case stateChat:
			return m.handleChatKey(msg)
		}
	}
	return m, nil
}

// vpHeight returns the number of lines available for the chat viewport.
func (m model) vpHeight() int {
	// header (1) + typing line (1) + footer border (1) + input (1)
	h := m.height - 4
	if h < 1 {
		h = 1
	}
	return h
}

// ---------------------------------------------------------------------------
// Key handlers
// ---------------------------------------------------------------------------

func (m model) handleUsernameKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit

	case tea.KeyEnter:
		name := strings.TrimSpace(m.nameInput.Value())
		if name == "" {
			m.statusMsg = "a username is required"
			return m, nil
		}
		if reason := server.ValidateUsername(name); reason != "" {
			m.statusMsg = reason
			return m, nil
		}
		m.sendEvent(server.NewConnectionRequest(name))
		m.statusMsg = "Connecting..."
		return m, nil
	}

	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return m, cmd
}

func (m model) handleChatKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyCtrlQ:
		m.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return m, tea.Quit

	case tea.KeyEnter:
		line := strings.TrimSpace(m.chatInput.Value())
		m.chatInput.Reset()
		if m.wasTyping {
			m.wasTyping = false
			m.sendEvent(server.NewTypingEvent(m.me, false))
		}
		if line == "" {
			return m, nil
		}
		if strings.HasPrefix(line, "/") {
			return m.handleCommand(line)
		}
		m.sendEvent(server.NewChatMessage(m.me, line))
		return m, nil

	case tea.KeyPgUp:
		m.viewport.HalfViewUp()
		return m, nil

	case tea.KeyPgDown:
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.chatInput, cmd = m.chatInput.Update(msg)

	// Announce typing on the first character, withdraw when cleared.
	nowTyping := strings.TrimSpace(m.chatInput.Value()) != ""
	if nowTyping != m.wasTyping {
		m.wasTyping = nowTyping
		m.sendEvent(server.NewTypingEvent(m.me, nowTyping))
	}
	return m, cmd
}

// handleCommand interprets a slash command typed into the chat input.
func (m model) handleCommand(line string) (model, tea.Cmd) {
	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])
	arg := strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch cmd {
	case "/help":
		m.appendChat(hintStyle.Render("Commands: /create <room>  /switch <room>  /rooms  /users  /clear  /quit"))

	case "/create":
		if arg == "" {
			m.appendChat(errorStyle.Render("usage: /create <room>"))
			return m, nil
		}
		m.sendEvent(server.NewRoomCreate(server.RoomInfo{RoomName: arg}))

	case "/switch":
		if arg == "" {
			m.appendChat(errorStyle.Render("usage: /switch <room>"))
			return m, nil
		}
		m.sendEvent(server.NewRoomSwitchRequest(arg))

	case "/rooms":
		if len(m.rooms) == 0 {
			m.appendChat(hintStyle.Render("no rooms known yet"))
		} else {
			m.appendChat(hintStyle.Render("Rooms: " + strings.Join(m.rooms, ", ")))
		}

	case "/users":
		if len(m.online) == 0 {
			m.appendChat(hintStyle.Render("nobody here but you"))
		} else {
			m.appendChat(hintStyle.Render("Online: " + strings.Join(m.online, ", ")))
		}

	case "/clear":
		m.sendEvent(server.NewRoomChatClear(m.me, m.room))

	case "/quit":
		m.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return m, tea.Quit

	default:
		m.appendChat(errorStyle.Render("unknown command " + cmd))
	}
	return m, nil
}

// ---------------------------------------------------------------------------
// Server frame handler
// ---------------------------------------------------------------------------

func (m model) handleServerFrame(data []byte) model {
	ev, err := server.DecodeEvent(data)
	if err != nil {
		return m
	}

	switch ev := ev.(type) {

	case server.ConnectionResponse:
		m.me = ev.Username
		m.state = stateChat
		m.chatInput.Focus()
		if m.room == "" {
			m.room = server.GlobalRoomName
		}

	case server.ConnectionReject:
		m.statusMsg = ev.Response

	case server.SystemMessage:
		style := sysStyle
		switch ev.Severity {
		case server.SeverityError:
			style = errorStyle
		case server.SeveritySuccess:
			style = successStyle
		}
		m.appendChat(style.Render("* " + ev.Message))

	case server.MessageHistory:
		m.chatLines = nil
		for _, entry := range ev.Messages {
			m.appendChat(m.renderChatLine(entry.Username, entry.Message, entry.Timestamp))
		}

	case server.ChatMessage:
		m.appendChat(m.renderChatLine(ev.Username, ev.Message, time.Now()))

	case server.TypingEvent:
		if ev.Username == m.me {
			break
		}
		if ev.IsTyping {
			m.typing[ev.Username] = true
		} else {
			delete(m.typing, ev.Username)
		}

	case server.UsersOnline:
		names := make([]string, 0, len(ev.Users)+1)
		if m.me != "" {
			names = append(names, m.me)
		}
		for _, u := range ev.Users {
			names = append(names, u.Username)
		}
		m.online = names

	case server.UserJoin:
		m.appendChat(sysStyle.Render("* " + ev.Username + " joined"))
		m.addOnline(ev.Username)

	case server.UserLeave:
		m.appendChat(sysStyle.Render("* " + ev.Username + " left"))
		m.removeOnline(ev.Username)
		delete(m.typing, ev.Username)

	case server.AllRooms:
		m.rooms = m.rooms[:0]
		for _, room := range ev.Rooms {
			m.rooms = append(m.rooms, room.RoomName)
		}

	case server.RoomCreate:
		m.addRoom(ev.Room.RoomName)
		m.appendChat(hintStyle.Render("* room " + ev.Room.RoomName + " created by " + ev.Room.RoomCreator))

	case server.RoomCreateReject:
		m.appendChat(errorStyle.Render("* " + ev.Response))

	case server.RoomChatClear:
		m.chatLines = nil
		m.viewport.SetContent("")
		m.appendChat(sysStyle.Render("* chat cleared by " + ev.Username))

	case server.RoomSwitchResponse:
		m.room = ev.RoomName
		m.chatLines = nil
		m.viewport.SetContent("")
		m.online = nil
		m.typing = make(map[string]bool)
		m.appendChat(successStyle.Render("* switched to " + ev.RoomName))

	case server.RoomSwitchReject:
		m.appendChat(errorStyle.Render("* " + ev.Response))
	}
	return m
}

func (m model) renderChatLine(username, message string, ts time.Time) string {
	stamp := tsStyle.Render("[" + ts.Local().Format("15:04:05") + "]")
	var name string
	if username == m.me {
		name = myNameStyle.Render(username)
	} else {
		name = peerStyle.Render(username)
	}
	return stamp + " " + name + ": " + message
}

// appendChat adds a rendered line and scrolls the viewport to the bottom.
func (m *model) appendChat(line string) {
	m.chatLines = append(m.chatLines, line)
	m.viewport.SetContent(strings.Join(m.chatLines, "\n"))
	m.viewport.GotoBottom()
}

func (m *model) addOnline(username string) {
	for _, name := range m.online {
		if name == username {
			return
		}
	}
	m.online = append(m.online, username)
}

func (m *model) removeOnline(username string) {
	for i, name := range m.online {
		if name == username {
			m.online = append(m.online[:i], m.online[i+1:]...)
			return
		}
	}
}

func (m *model) addRoom(name string) {
	for _, existing := range m.rooms {
		if existing == name {
			return
		}
	}
	m.rooms = append(m.rooms, name)
}

// ---------------------------------------------------------------------------
// Tea interface – View
// ---------------------------------------------------------------------------

func (m model) View() string {
	switch m.state {
	case stateUsername:
		return m.viewUsername()
	case stateChat:
		return m.viewChat()
	}
	return ""
}

func (m model) viewUsername() string {
	if m.width == 0 {
		return "\n  Connecting to server..."
	}

	fig := figure.NewFigure("chat", "standard", true)
	banner := bannerStyle.Render(strings.TrimRight(fig.String(), "\n"))

	form := lipgloss.JoinVertical(lipgloss.Left,
		banner,
		"",
		"Username  "+m.nameInput.View(),
		"",
		hintStyle.Render("Enter: connect   Ctrl+C: quit"),
		"",
		m.renderStatus(),
	)

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, form)
}

func (m model) viewChat() string {
	if !m.ready {
		return "\n  Connecting..."
	}

	hdr := headerStyle.
		Width(m.width).
		Render(fmt.Sprintf(" %s  ·  %s  ·  %d online  ·  PgUp/Dn: Scroll  Ctrl+C: Quit",
			m.room, m.me, len(m.online)))

	footer := footerBorderStyle.
		Width(m.width - 2).
		Render(m.chatInput.View())

	return lipgloss.JoinVertical(lipgloss.Left, hdr, m.viewport.View(), m.typingLine(), footer)
}

func (m model) typingLine() string {
	if len(m.typing) == 0 {
		return ""
	}
	names := make([]string, 0, len(m.typing))
	for name := range m.typing {
		names = append(names, name)
	}
	sort.Strings(names)
	suffix := " is typing..."
	if len(names) > 1 {
		suffix = " are typing..."
	}
	return typingStyle.Render("  " + strings.Join(names, ", ") + suffix)
}

// renderStatus renders the prompt status line with appropriate colour.
func (m model) renderStatus() string {
	if m.statusMsg == "" {
		return ""
	}
	if strings.HasPrefix(m.statusMsg, "Connecting") {
		return hintStyle.Render(m.statusMsg)
	}
	return errorStyle.Render(m.statusMsg)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// waitForFrame returns a tea.Cmd that blocks until the next frame arrives on
// ch. When ch is closed (server disconnected), it returns disconnectedMsg.
func waitForFrame(ch <-chan []byte) tea.Cmd {
	return func() tea.Msg {
		data, ok := <-ch
		if !ok {
			return disconnectedMsg{}
		}
		return serverFrameMsg(data)
	}
}

func (m model) sendEvent(ev server.Event) {
	data, err := server.EncodeEvent(ev)
	if err != nil {
		return
	}
	m.conn.WriteMessage(websocket.TextMessage, data)
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	addr := flag.String("addr", "localhost:5000", "server address")
	room := flag.String("room", "", "room to join (defaults to the global room)")
	username := flag.String("username", "", "prefill the username prompt")
	flag.Parse()

	url := "ws://" + *addr + "/ws"
	if *room != "" {
		url += "/" + *room
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	// frames bridges the WebSocket reader goroutine and the Bubbletea loop.
	frames := make(chan []byte, 64)

	// Reader goroutine: WebSocket → frames channel.
	go func() {
		defer close(frames)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			frames <- data
		}
	}()

	p := tea.NewProgram(
		newModel(conn, frames, *username),
		tea.WithAltScreen(),       // use the alternate screen buffer
		tea.WithMouseCellMotion(), // enable mouse wheel scrolling
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
