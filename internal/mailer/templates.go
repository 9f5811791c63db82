package mailer

import (
	"bytes"
	htmltemplate "html/template"
	"text/template"
	"time"
)

var resetText = template.Must(template.New("reset.txt").Parse(
	`Hello {{.Name}},

Your password reset code is {{.Code}}.
It expires in {{.Minutes}} minutes. If you did not ask for a reset you can ignore this email.
`))

var resetHTML = htmltemplate.Must(htmltemplate.New("reset.html").Parse(
	`<p>Hello {{.Name}},</p>
<p>Your password reset code is <strong>{{.Code}}</strong>.</p>
<p>It expires in {{.Minutes}} minutes. If you did not ask for a reset you can ignore this email.</p>
`))

// ResetCodeData feeds the password reset email.
type ResetCodeData struct {
	Name string
	Code string
	TTL  time.Duration
}

// ResetCodeMessage renders the password reset email for to.
func ResetCodeMessage(to string, data ResetCodeData) (Message, error) {
	minutes := int(data.TTL.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	view := struct {
		Name    string
		Code    string
		Minutes int
	}{Name: data.Name, Code: data.Code, Minutes: minutes}

	var text, html bytes.Buffer
	if err := resetText.Execute(&text, view); err != nil {
		return Message{}, err
	}
	if err := resetHTML.Execute(&html, view); err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Your password reset code",
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
