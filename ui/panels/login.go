package panels

import (
	"context"
	"errors"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"siteplan/internal/auth"
	"siteplan/pkg/colorutil"
)

// LoginPanel signs an existing user in or enrolls a new one. Joining needs
// a color from auth.Palette.
type LoginPanel struct {
	service   *auth.Service
	container fyne.CanvasObject

	username *widget.Entry
	message  *widget.Label
	joinBox  *fyne.Container
	colors   *widget.RadioGroup
	joinBtn  *widget.Button
}

// NewLoginPanel creates the sign-in screen. The username entry is
// pre-filled with lastUser.
func NewLoginPanel(service *auth.Service, lastUser string) *LoginPanel {
	p := &LoginPanel{service: service}

	p.username = widget.NewEntry()
	p.username.SetPlaceHolder("Username")
	p.username.SetText(lastUser)
	p.username.OnSubmitted = func(string) { p.login() }

	p.message = widget.NewLabel("")
	p.message.Wrapping = fyne.TextWrapWord
	p.message.Importance = widget.DangerImportance
	p.message.Hide()

	swatches := container.NewHBox()
	for _, hex := range auth.Palette {
		r := fynecanvas.NewRectangle(colorutil.ParseHexOr(hex, colorutil.Black))
		r.CornerRadius = 4
		swatches.Add(container.NewGridWrap(fyne.NewSize(24, 24), r))
	}
	p.colors = widget.NewRadioGroup(auth.Palette, nil)
	p.colors.Horizontal = true
	p.joinBtn = widget.NewButton("Join", p.join)
	p.joinBox = container.NewVBox(
		widget.NewLabel("Pick your pin color:"),
		swatches,
		p.colors,
		p.joinBtn,
	)
	p.joinBox.Hide()

	signIn := widget.NewButton("Sign In", p.login)
	signIn.Importance = widget.HighImportance
	showJoin := widget.NewButton("New here? Join", func() {
		p.message.Hide()
		p.joinBox.Show()
	})

	card := widget.NewCard("Site Plan", "Sign in with your username",
		container.NewVBox(
			p.username,
			container.NewGridWithColumns(2, signIn, showJoin),
			p.message,
			p.joinBox,
		),
	)
	p.container = container.NewCenter(container.NewGridWrap(fyne.NewSize(380, 360), card))
	return p
}

// Container returns the panel container.
func (p *LoginPanel) Container() fyne.CanvasObject {
	return p.container
}

func (p *LoginPanel) login() {
	_, err := p.service.Login(context.Background(), p.username.Text)
	if err != nil {
		p.showError(err)
		if errors.Is(err, auth.ErrUserNotFound) {
			p.joinBox.Show()
		}
		return
	}
	p.message.Hide()
}

func (p *LoginPanel) join() {
	_, err := p.service.Enroll(context.Background(), p.username.Text, p.colors.Selected)
	if err != nil {
		p.showError(err)
		return
	}
	p.message.Hide()
	p.joinBox.Hide()
}

func (p *LoginPanel) showError(err error) {
	p.message.SetText(auth.Message(err))
	p.message.Show()
}
