// Package mailer renders notification templates and delivers them by email.
package mailer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/model"
)

// Message is a rendered email.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

type tmpl struct {
	subject string
	html    *htmltemplate.Template
	text    *texttemplate.Template
}

const layoutHead = `<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<style>
		body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
		.container { max-width: 600px; margin: 0 auto; padding: 20px; }
		.header { background-color: #3b7d6e; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
		.content { background-color: #f9f9f9; padding: 30px; border-radius: 0 0 5px 5px; }
		.code { font-size: 32px; letter-spacing: 8px; font-weight: bold; text-align: center; margin: 20px 0; }
		.button { display: inline-block; padding: 12px 30px; background-color: #3b7d6e; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
		.footer { text-align: center; margin-top: 20px; font-size: 12px; color: #666; }
	</style>
</head>
<body>
	<div class="container">`

const layoutFoot = `
		<div class="footer">
			<p>This is an automated email from HomeHuddle. Please do not reply.</p>
		</div>
	</div>
</body>
</html>`

var templates = map[model.NotificationKind]tmpl{
	model.NotifyOTPCode: {
		subject: "Your HomeHuddle verification code",
		html: htmltemplate.Must(htmltemplate.New("otp-code").Option("missingkey=zero").Parse(layoutHead + `
		<div class="header"><h1>Verification code</h1></div>
		<div class="content">
			<p>Hi {{.name}},</p>
			<p>Use this code to continue:</p>
			<p class="code">{{.code}}</p>
			<p><strong>The code expires in {{or .minutes "10"}} minutes.</strong></p>
			<p>If you did not request it, you can safely ignore this email.</p>
		</div>` + layoutFoot)),
		text: texttemplate.Must(texttemplate.New("otp-code").Option("missingkey=zero").Parse(`Hi {{.name}},

Use this code to continue: {{.code}}

The code expires in {{or .minutes "10"}} minutes.

If you did not request it, you can safely ignore this email.
`)),
	},
	model.NotifyInvitation: {
		subject: "You're invited to join a family on HomeHuddle",
		html: htmltemplate.Must(htmltemplate.New("invitation").Option("missingkey=zero").Parse(layoutHead + `
		<div class="header"><h1>Family invitation</h1></div>
		<div class="content">
			<p>Hi {{.name}},</p>
			<p>{{or .inviterName "A family member"}} invited you to join <strong>{{.familyName}}</strong> as {{.role}}.</p>
			<p style="text-align: center;"><a href="{{.link}}" class="button">Join the family</a></p>
			<p>Your invitation code:</p>
			<p class="code">{{.code}}</p>
			<p><strong>The invitation expires in {{or .hours "24"}} hours.</strong></p>
		</div>` + layoutFoot)),
		text: texttemplate.Must(texttemplate.New("invitation").Option("missingkey=zero").Parse(`Hi {{.name}},

{{or .inviterName "A family member"}} invited you to join {{.familyName}} as {{.role}}.

Open this link to join:
{{.link}}

Your invitation code: {{.code}}

The invitation expires in {{or .hours "24"}} hours.
`)),
	},
}

// Render produces the message for kind.  Missing data keys render empty.
func Render(kind model.NotificationKind, data map[string]string) (Message, error) {
	t, ok := templates[kind]
	if !ok {
		return Message{}, fmt.Errorf("unknown notification kind %q", kind)
	}
	var html, text bytes.Buffer
	if err := t.html.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", kind, err)
	}
	if err := t.text.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", kind, err)
	}
	return Message{
		Subject: t.subject,
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}
