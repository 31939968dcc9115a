// Package mailer sends templated transactional email.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
)

// TemplateFileShare is sent to restricted recipients of a new share link.
const TemplateFileShare = "file-share"

var ErrUnknownTemplate = errors.New("unknown email template")

type Message struct {
	To       []string
	Subject  string
	Template string
	Data     map[string]any
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var templates = template.Must(template.New(TemplateFileShare).Parse(
	`<p>{{if .senderName}}{{.senderName}}{{else}}Someone{{end}} shared <b>{{.fileName}}</b> with you.</p>
<p><a href="{{.shareUrl}}">Open file</a></p>
{{if .expiresAt}}<p>The link expires at {{.expiresAt}}.</p>{{end}}`))

// Render executes the named template with msg.Data.
func Render(msg Message) (string, error) {
	t := templates.Lookup(msg.Template)
	if t == nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownTemplate, msg.Template)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, msg.Data); err != nil {
		return "", fmt.Errorf("render %s: %w", msg.Template, err)
	}
	return buf.String(), nil
}
