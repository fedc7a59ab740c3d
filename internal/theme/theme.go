package theme

import "github.com/charmbracelet/lipgloss"

// Palette is a full set of colours for one theme.
type Palette struct {
	Background    lipgloss.Color
	Surface       lipgloss.Color
	Primary       lipgloss.Color
	PrimaryDark   lipgloss.Color
	Text          lipgloss.Color
	TextSecondary lipgloss.Color
	Border        lipgloss.Color
	Success       lipgloss.Color
	Error         lipgloss.Color
	Card          lipgloss.Color
}

var Light = Palette{
	Background:    "#FFFFFF",
	Surface:       "#F8F9FA",
	Primary:       "#6366F1",
	PrimaryDark:   "#4F46E5",
	Text:          "#1F2937",
	TextSecondary: "#6B7280",
	Border:        "#E5E7EB",
	Success:       "#10B981",
	Error:         "#EF4444",
	Card:          "#FFFFFF",
}

var Dark = Palette{
	Background:    "#111827",
	Surface:       "#1F2937",
	Primary:       "#818CF8",
	PrimaryDark:   "#6366F1",
	Text:          "#F9FAFB",
	TextSecondary: "#9CA3AF",
	Border:        "#374151",
	Success:       "#34D399",
	Error:         "#F87171",
	Card:          "#374151",
}

// PaletteFor returns Dark or Light.
func PaletteFor(isDark bool) Palette {
	if isDark {
		return Dark
	}
	return Light
}

// Styles are the lipgloss styles the UI renders with, derived from a
// Palette. Rebuild them with NewStyles whenever the theme flips.
type Styles struct {
	Palette Palette

	// Header is used for the application title bar.
	Header lipgloss.Style

	// StatusBar is used for the bottom status bar.
	StatusBar lipgloss.Style

	// Alert shows the last store error in the status bar.
	Alert lipgloss.Style

	// Panel wraps modal content such as the create form.
	Panel lipgloss.Style

	ListItem     lipgloss.Style
	SelectedItem lipgloss.Style
	Completed    lipgloss.Style
	Checkbox     lipgloss.Style
	CheckboxDone lipgloss.Style
	Meta         lipgloss.Style
	Editing      lipgloss.Style

	// Help is used for keyboard shortcut hints and help text.
	Help lipgloss.Style

	FilterTab       lipgloss.Style
	FilterTabActive lipgloss.Style

	// Empty renders the loading and empty-list messages.
	Empty lipgloss.Style
}

// NewStyles builds the style set for the light or dark palette.
func NewStyles(isDark bool) Styles {
	p := PaletteFor(isDark)

	return Styles{
		Palette: p,

		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(p.Primary).
			Padding(0, 1),

		StatusBar: lipgloss.NewStyle().
			Foreground(p.TextSecondary).
			Background(p.Surface).
			Padding(0, 1),

		Alert: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Error).
			Background(p.Surface).
			Padding(0, 1),

		Panel: lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Border),

		ListItem: lipgloss.NewStyle().
			PaddingLeft(2).
			Foreground(p.Text),

		SelectedItem: lipgloss.NewStyle().
			PaddingLeft(1).
			Bold(true).
			Foreground(p.Primary).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(p.Primary),

		Completed: lipgloss.NewStyle().
			Foreground(p.TextSecondary).
			Strikethrough(true),

		Checkbox: lipgloss.NewStyle().
			Foreground(p.TextSecondary),

		CheckboxDone: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Success),

		Meta: lipgloss.NewStyle().
			Foreground(p.TextSecondary),

		Editing: lipgloss.NewStyle().
			Foreground(p.Text).
			Underline(true),

		Help: lipgloss.NewStyle().
			Foreground(p.TextSecondary).
			Italic(true),

		FilterTab: lipgloss.NewStyle().
			Foreground(p.TextSecondary).
			Padding(0, 1),

		FilterTabActive: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Primary).
			Underline(true).
			Padding(0, 1),

		Empty: lipgloss.NewStyle().
			Foreground(p.TextSecondary).
			Italic(true).
			Padding(1, 2),
	}
}
