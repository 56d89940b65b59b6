package core

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/mikey/contact-guard/internal/content"
)

const timestampLayout = "Jan 2, 2006 15:04:05 MST"

var templateFuncs = map[string]any{
	"lines": func(s string) []string { return strings.Split(s, "\n") },
}

var htmlBody = htmltemplate.Must(htmltemplate.New("html").Funcs(templateFuncs).Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #333; border-bottom: 2px solid #0070f3; padding-bottom: 10px;">New Contact Form Submission</h2>
  <div style="background-color: #f8f9fa; padding: 20px; border-radius: 8px; margin: 20px 0;">
    <h3 style="color: #0070f3; margin-top: 0;">Contact Details</h3>
    <p><strong>Name:</strong> {{.Name}}</p>
    <p><strong>Email:</strong> {{.Email}}</p>
    <p><strong>Subject:</strong> {{.Subject}}</p>
  </div>
  <div style="background-color: #ffffff; padding: 20px; border: 1px solid #e9ecef; border-radius: 8px;">
    <h3 style="color: #333; margin-top: 0;">Message</h3>
    <p style="line-height: 1.6; color: #555;">{{range $i, $l := lines .Message}}{{if $i}}<br>{{end}}{{$l}}{{end}}</p>
  </div>
  <div style="margin-top: 20px; padding: 15px; background-color: #e7f3ff; border-radius: 8px;">
    <p style="margin: 0; font-size: 14px; color: #666;">This message was sent from your website contact form at {{.Timestamp}}.</p>
  </div>
</div>
`))

var textBody = texttemplate.Must(texttemplate.New("text").Parse(`New Contact Form Submission

Contact Details:
Name: {{.Name}}
Email: {{.Email}}
Subject: {{.Subject}}

Message:
{{.Message}}

---
This message was sent from your website contact form at {{.Timestamp}}.
`))

type messageView struct {
	content.SanitizedData
	Timestamp string
}

// ComposeMessage renders the notification email for a validated submission
func ComposeMessage(data *content.SanitizedData, from, to string, at time.Time) (*OutboundMessage, error) {
	view := messageView{SanitizedData: *data, Timestamp: at.Format(timestampLayout)}

	var html, text bytes.Buffer
	if err := htmlBody.Execute(&html, view); err != nil {
		return nil, err
	}
	if err := textBody.Execute(&text, view); err != nil {
		return nil, err
	}

	return &OutboundMessage{
		From:    from,
		To:      to,
		ReplyTo: data.Email,
		Subject: "Contact Form: " + data.Subject,
		HTML:    html.String(),
		Text:    text.String(),
		Date:    at,
	}, nil
}
