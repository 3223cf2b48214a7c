package task

import (
	"image/color"

	"siteplan/pkg/colorutil"
)

var statusHex = map[Status]string{
	StatusNotStarted:         "#cfcfcf",
	StatusInProgress:         "#ffbe3f",
	StatusBlocked:            "#ff5252",
	StatusFinalCheckAwaiting: "#3faeff",
	StatusDone:               "#58e766",
}

// Color returns the fill color used for status icons.
func (s Status) Color() color.RGBA {
	return colorutil.ParseHexOr(statusHex[s], colorutil.ParseHexOr(statusHex[StatusNotStarted], colorutil.Black))
}

// StrokeColor returns the icon outline: the fill darkened by 20%.
func (s Status) StrokeColor() color.RGBA {
	return colorutil.Darken(s.Color(), 20)
}
