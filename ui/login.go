package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"companion/config"
	"companion/gateway"
)

type loginMode int

const (
	modeLogin loginMode = iota
	modeRegister
)

const (
	fieldEmail = iota
	fieldPassword
	fieldFullName
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)

	focusedInputStyle = inputStyle.
				BorderForeground(lipgloss.Color("6"))
)

// LoginView collects credentials and runs login or registration against the
// gateway. A successful login surfaces as a LoggedInMsg for the root model.
type LoginView struct {
	client *gateway.Client
	tokens *config.TokenStore

	mode    loginMode
	inputs  []textinput.Model
	focused int

	// remember keeps the token on disk after a successful login.
	remember bool

	spinner spinner.Model
	loading bool
	err     string
	notice  string

	width  int
	height int
}

func NewLoginView(client *gateway.Client, tokens *config.TokenStore, remember bool) LoginView {
	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.CharLimit = 200
	email.Width = 40
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 200
	password.Width = 40

	fullName := textinput.New()
	fullName.Placeholder = "Full name (optional)"
	fullName.CharLimit = 200
	fullName.Width = 40

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return LoginView{
		client:  client,
		tokens:  tokens,
		mode:    modeLogin,
		inputs:  []textinput.Model{email, password, fullName},
		focused:  fieldEmail,
		remember: remember,
		spinner:  sp,
	}
}

// WithNotice returns the view with a message shown above the form.
func (m LoginView) WithNotice(notice string) LoginView {
	m.notice = notice
	return m
}

func (m LoginView) Init() tea.Cmd {
	return textinput.Blink
}

func (m LoginView) fieldCount() int {
	if m.mode == modeRegister {
		return 3
	}
	return 2
}

func (m LoginView) Update(msg tea.Msg) (LoginView, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loggedInMsg:
		m.loading = false
		if msg.Err != nil {
			m.err = "Login failed: " + describeError(msg.Err)
		}
		return m, nil

	case registeredMsg:
		if msg.Err != nil {
			m.loading = false
			m.err = "Registration failed: " + describeError(msg.Err)
			return m, nil
		}
		return m, gateway.LoginCmd(m.client, m.tokens, m.email(), m.inputs[fieldPassword].Value())

	case tea.KeyMsg:
		if m.loading {
			return m, nil
		}
		return m.handleKey(msg)
	}

	return m, nil
}

func (m LoginView) handleKey(msg tea.KeyMsg) (LoginView, tea.Cmd) {
	switch msg.String() {
	case "tab", "down":
		return m, m.focusField((m.focused + 1) % m.fieldCount())

	case "shift+tab", "up":
		return m, m.focusField((m.focused + m.fieldCount() - 1) % m.fieldCount())

	case "ctrl+r":
		if m.mode == modeLogin {
			m.mode = modeRegister
		} else {
			m.mode = modeLogin
			if m.focused == fieldFullName {
				return m, m.focusField(fieldEmail)
			}
		}
		m.err = ""
		return m, nil

	case "ctrl+s":
		m.remember = !m.remember
		return m, nil

	case "alt+u":
		m.inputs[m.focused].SetValue("")
		return m, nil

	case "enter":
		if m.focused < m.fieldCount()-1 {
			return m, m.focusField(m.focused + 1)
		}
		return m.submit()
	}

	var cmd tea.Cmd
	m.inputs[m.focused], cmd = m.inputs[m.focused].Update(msg)
	return m, cmd
}

func (m *LoginView) focusField(idx int) tea.Cmd {
	m.inputs[m.focused].Blur()
	m.focused = idx
	return m.inputs[idx].Focus()
}

func (m LoginView) email() string {
	return strings.TrimSpace(m.inputs[fieldEmail].Value())
}

func (m LoginView) submit() (LoginView, tea.Cmd) {
	email := m.email()
	password := m.inputs[fieldPassword].Value()

	if email == "" || password == "" {
		m.err = "Email and password are required"
		return m, nil
	}

	m.err = ""
	m.notice = ""
	m.loading = true

	if m.mode == modeRegister {
		reg := gateway.Registration{
			Email:    email,
			Password: password,
			FullName: strings.TrimSpace(m.inputs[fieldFullName].Value()),
		}
		return m, tea.Batch(gateway.RegisterCmd(m.client, reg), m.spinner.Tick)
	}
	return m, tea.Batch(gateway.LoginCmd(m.client, m.tokens, email, password), m.spinner.Tick)
}

func (m LoginView) View() string {
	title := "Log in to Companion"
	toggle := FormatFooter("Ctrl+R", "Create an account")
	if m.mode == modeRegister {
		title = "Create a Companion account"
		toggle = FormatFooter("Ctrl+R", "Back to login")
	}

	labels := []string{"Email", "Password", "Full name"}
	var fields []string
	for i := 0; i < m.fieldCount(); i++ {
		style := inputStyle
		if i == m.focused {
			style = focusedInputStyle
		}
		fields = append(fields, DimStyle.Render(labels[i]), style.Render(m.inputs[i].View()))
	}

	check := "[ ]"
	if m.remember {
		check = "[x]"
	}
	fields = append(fields, "", DimStyle.Render(check+" Remember me"))

	var status string
	switch {
	case m.loading:
		status = m.spinner.View() + " Contacting " + m.client.BaseURL() + "..."
	case m.err != "":
		status = errorStyle.Render(m.err)
	case m.notice != "":
		status = StatusStyle.Render(m.notice)
	}

	sections := []string{titleStyle.Render(title), ""}
	sections = append(sections, fields...)
	sections = append(sections, "", status, "", FormatFooter("Tab", "Next field", "Enter", "Submit", "Ctrl+S", "Remember", "Ctrl+C", "Quit"), toggle)

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}
