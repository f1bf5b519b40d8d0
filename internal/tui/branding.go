package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/vitrinapp/vitrin/internal/config"
)

const AppName = "vitrin"

var LogoLines = []string{
	"        o8   o8                 ",
	"o88  o8 oo o8P oo oo d8b oo  oo ",
	" 88 88  88  88 88  88   8 88  88",
	"  888   88  88 88  88     88  88",
	"   8    88  88 88  88     88  88",
}

const CompactLogo = `vitrin ›`

// Shop-window palette: warm glass against a dark street.
var (
	PrimaryColor   = lipgloss.Color("#F4A261")
	SecondaryColor = lipgloss.Color("#2A9D8F")
	AccentColor    = lipgloss.Color("#E9C46A")

	TextColor  = lipgloss.Color("#EAEAEA")
	MutedColor = lipgloss.Color("#94A3B8")

	LikedColor   = lipgloss.Color("#E76F51")
	SavedColor   = lipgloss.Color("#E9C46A")
	ErrorColor   = lipgloss.Color("#EF4444")
	SuccessColor = lipgloss.Color("#10B981")
)

// ApplyColors overrides the palette with configured values. Empty entries
// keep the defaults.
func ApplyColors(colors config.UIColors) {
	if colors.Primary != "" {
		PrimaryColor = lipgloss.Color(colors.Primary)
	}
	if colors.Accent != "" {
		AccentColor = lipgloss.Color(colors.Accent)
	}
	if colors.Text != "" {
		TextColor = lipgloss.Color(colors.Text)
	}
	if colors.Muted != "" {
		MutedColor = lipgloss.Color(colors.Muted)
	}
	if colors.Error != "" {
		ErrorColor = lipgloss.Color(colors.Error)
	}
	rebuildStyles()
}

var (
	LogoStyle      lipgloss.Style
	TitleStyle     lipgloss.Style
	HeaderStyle    lipgloss.Style
	HelpStyle      lipgloss.Style
	TimeStyle      lipgloss.Style
	LikedStyle     lipgloss.Style
	SavedStyle     lipgloss.Style
	ErrorStyle     lipgloss.Style
	SeparatorStyle lipgloss.Style
	StatusStyle    lipgloss.Style
)

func rebuildStyles() {
	LogoStyle = lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true)
	TitleStyle = lipgloss.NewStyle().Foreground(TextColor).Bold(true).Padding(0, 2)
	HeaderStyle = lipgloss.NewStyle().Foreground(SecondaryColor).Bold(true)
	HelpStyle = lipgloss.NewStyle().Foreground(MutedColor).Italic(true)
	TimeStyle = lipgloss.NewStyle().Foreground(MutedColor).Faint(true)
	LikedStyle = lipgloss.NewStyle().Foreground(LikedColor).Bold(true)
	SavedStyle = lipgloss.NewStyle().Foreground(SavedColor)
	ErrorStyle = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)
	SeparatorStyle = lipgloss.NewStyle().Foreground(MutedColor)
	StatusStyle = lipgloss.NewStyle().Foreground(MutedColor).Padding(0, 1)
}

func init() {
	rebuildStyles()
}

func GetWelcomeMessage() string {
	return GetCompactBanner("Loading your feed…")
}

func GetCompactBanner(message string) string {
	var coloredLines []string
	for _, line := range LogoLines {
		coloredLines = append(coloredLines, LogoStyle.Render(line))
	}

	logo := lipgloss.JoinVertical(lipgloss.Center, coloredLines...)

	return lipgloss.JoinVertical(
		lipgloss.Center,
		logo,
		"",
		HelpStyle.Render(message),
	)
}

func ShowBanner(version string) {
	lines := make([]string, len(LogoLines)+1)
	copy(lines, LogoLines)
	lines[len(LogoLines)] = ""

	versionTag := version
	if versionTag != "" && versionTag != "dev" {
		if versionTag[0] != 'v' && versionTag[0] != 'V' {
			versionTag = "v" + versionTag
		}
		lines = append(lines, fmt.Sprintf("    Marketplace Browser %s", versionTag))
	} else {
		lines = append(lines, "    Marketplace Browser")
	}

	var coloredLines []string
	for i, line := range lines {
		if line == "" {
			coloredLines = append(coloredLines, line)
			continue
		}
		style := lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(i < len(LogoLines))
		coloredLines = append(coloredLines, style.Render(line))
	}

	banner := lipgloss.JoinVertical(lipgloss.Center, coloredLines...)
	output := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(SecondaryColor).
		Padding(1, 3).
		MarginTop(1).
		Render(banner)

	fmt.Println(lipgloss.NewStyle().
		Width(70).
		Align(lipgloss.Center).
		Render(output))
}
