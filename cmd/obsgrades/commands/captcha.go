package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	BLUE = lipgloss.Color("#0043a8")
	GREY = lipgloss.Color("#626262")
	RED  = lipgloss.Color("#FF5555")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(BLUE)
	pathStyle  = lipgloss.NewStyle().Underline(true)
	inputStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(BLUE).Padding(0, 1)
	helpStyle  = lipgloss.NewStyle().Foreground(GREY)
	errStyle   = lipgloss.NewStyle().Foreground(RED)
)

var errCaptchaCancelled = errors.New("captcha prompt cancelled")

// captchaPrompt asks for the code shown in the captcha image at `path`.
type captchaPrompt struct {
	path      string
	input     []rune
	empty     bool
	submitted bool
	cancelled bool
}

func (m captchaPrompt) Init() tea.Cmd {
	return nil
}

func (m captchaPrompt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.Type {
	case tea.KeyEnter:
		if len(m.input) == 0 {
			m.empty = true
			return m, nil
		}
		m.submitted = true
		return m, tea.Quit
	case tea.KeyCtrlC, tea.KeyEsc:
		m.cancelled = true
		return m, tea.Quit
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case tea.KeyRunes:
		m.input = append(m.input, key.Runes...)
		m.empty = false
	}
	return m, nil
}

func (m captchaPrompt) View() string {
	if m.submitted || m.cancelled {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("OBS security code"))
	b.WriteString("\n\nOpen the image at ")
	b.WriteString(pathStyle.Render(m.path))
	b.WriteString(" and type the code.\n\n")
	b.WriteString(inputStyle.Render(string(m.input) + "_"))
	b.WriteString("\n")
	if m.empty {
		b.WriteString(errStyle.Render("the code cannot be empty"))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("enter: submit • esc: cancel"))
	b.WriteString("\n")
	return b.String()
}

func (m captchaPrompt) code() string {
	return strings.TrimSpace(string(m.input))
}

// captchaExtension picks a file extension the image viewer will recognize.
func captchaExtension(image []byte) string {
	switch http.DetectContentType(image) {
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/bmp":
		return ".bmp"
	default:
		return ".png"
	}
}

// terminalSolver implements obs.CaptchaSolver by asking the user in the terminal.
// options are appended to the program options, ex. to swap out stdin.
type terminalSolver struct {
	options []tea.ProgramOption
}

func (s terminalSolver) SolveCaptcha(ctx context.Context, image []byte) (string, error) {
	f, err := os.CreateTemp("", "obs-captcha-*"+captchaExtension(image))
	if err != nil {
		return "", err
	}
	defer os.Remove(f.Name())

	_, err = f.Write(image)
	closeErr := f.Close()
	if err != nil {
		return "", err
	}
	if closeErr != nil {
		return "", closeErr
	}

	options := append([]tea.ProgramOption{
		tea.WithContext(ctx),
		tea.WithOutput(os.Stderr),
	}, s.options...)
	program := tea.NewProgram(captchaPrompt{path: f.Name()}, options...)
	final, err := program.Run()
	if err != nil {
		return "", err
	}
	prompt := final.(captchaPrompt)
	if prompt.cancelled {
		return "", errCaptchaCancelled
	}
	return prompt.code(), nil
}
