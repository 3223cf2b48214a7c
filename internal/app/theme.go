package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// SiteplanTheme tints the default theme with the accent blue and widens
// scrollbars for touch screens.
type SiteplanTheme struct{}

var _ fyne.Theme = (*SiteplanTheme)(nil)

func (t *SiteplanTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary:
		return color.NRGBA{R: 0x31, G: 0x82, B: 0xCE, A: 0xFF}
	case theme.ColorNameSelection:
		return color.NRGBA{R: 0x31, G: 0x82, B: 0xCE, A: 0x40}
	case theme.ColorNameError:
		return color.NRGBA{R: 0xE5, G: 0x3E, B: 0x3E, A: 0xFF}
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *SiteplanTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *SiteplanTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *SiteplanTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameScrollBar:
		return 14
	case theme.SizeNameScrollBarSmall:
		return 10
	default:
		return theme.DefaultTheme().Size(name)
	}
}
