package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"companion/config"
	"companion/gateway"
	"companion/model"
)

type screen int

const (
	screenLogin screen = iota
	screenResuming
	screenChat
)

// App is the root bubbletea model. It owns the login flow and creates a fresh
// model.Session for every login; logging out closes it.
type App struct {
	cfg       *config.Config
	client    *gateway.Client
	tokens    *config.TokenStore
	placement model.Placement

	screen screen
	login  LoginView
	chat   AppView

	width  int
	height int
}

// NewApp starts at the login screen, or verifies a saved token first when
// tokens already holds one.
func NewApp(cfg *config.Config, client *gateway.Client, tokens *config.TokenStore, placement model.Placement) App {
	start := screenLogin
	if tokens.Token() != "" {
		start = screenResuming
	}
	return App{
		cfg:       cfg,
		client:    client,
		tokens:    tokens,
		placement: placement,
		screen:    start,
		login:     NewLoginView(client, tokens, cfg.RememberLogin),
	}
}

func (m App) Init() tea.Cmd {
	if m.screen == screenResuming {
		return gateway.ResumeCmd(m.client, m.tokens)
	}
	return m.login.Init()
}

func (m App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.login, _ = m.login.Update(msg)
		if m.screen == screenChat {
			var cmd tea.Cmd
			m.chat, cmd = m.chat.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.closeSession()
			return m, tea.Quit
		}

	case loggedInMsg:
		if msg.Err != nil {
			m.screen = screenLogin
			var cmd tea.Cmd
			m.login, cmd = m.login.Update(msg)
			return m, cmd
		}
		return m.startChat(msg.User)

	case loggedOutMsg:
		return m.logout(msg.reason)
	}

	switch m.screen {
	case screenChat:
		var cmd tea.Cmd
		m.chat, cmd = m.chat.Update(msg)
		return m, cmd
	case screenLogin:
		var cmd tea.Cmd
		m.login, cmd = m.login.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m App) startChat(user gateway.User) (tea.Model, tea.Cmd) {
	m.closeSession()

	if remember := m.login.remember; remember != m.cfg.RememberLogin {
		if err := config.SaveRememberLogin(m.cfg.DataDir(), remember); err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("[UI] Could not save remember_login: %v", err)
		}
		m.cfg.RememberLogin = remember
	}
	if m.cfg.RememberLogin {
		if err := m.tokens.Save(m.cfg.DataDir()); err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("[UI] Could not save credentials: %v", err)
		}
	}

	session := model.NewSession(m.client, model.WithPlacement(m.placement))
	m.chat = NewAppView(session, m.client, user)
	m.screen = screenChat

	var sizeCmd tea.Cmd
	if m.width > 0 {
		m.chat, sizeCmd = m.chat.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
	}
	return m, tea.Batch(m.chat.Init(), sizeCmd)
}

func (m App) logout(reason string) (tea.Model, tea.Cmd) {
	m.closeSession()
	m.tokens.Clear()
	if err := m.tokens.Save(m.cfg.DataDir()); err != nil && config.DebugLog != nil {
		config.DebugLog.Printf("[UI] Could not remove credentials: %v", err)
	}

	m.chat = AppView{}
	m.screen = screenLogin
	m.login = NewLoginView(m.client, m.tokens, m.cfg.RememberLogin).WithNotice(reason)
	m.login, _ = m.login.Update(tea.WindowSizeMsg{Width: m.width, Height: m.height})
	return m, m.login.Init()
}

func (m *App) closeSession() {
	if m.chat.session != nil {
		m.chat.session.Close()
	}
}

func (m App) View() string {
	switch m.screen {
	case screenChat:
		return m.chat.View()
	case screenResuming:
		return "Restoring your session..."
	default:
		return m.login.View()
	}
}
