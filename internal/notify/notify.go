// Package notify delivers verification-link emails. Delivery failure is
// reported in the Result, never as an error, so callers can degrade.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
)

// Message is one verification invitation.
type Message struct {
	To               string `json:"to"`
	VerifyLink       string `json:"verify_link"`
	StudentName      string `json:"student_name"`
	AchievementTitle string `json:"achievement_title"`
}

// Result reports whether the message left the process.
type Result struct {
	Delivered bool
	Error     string
}

// Dispatcher sends verification emails.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) Result
}

func failed(format string, args ...any) Result {
	return Result{Error: fmt.Sprintf(format, args...)}
}

// Disabled is used when no delivery channel is configured.
type Disabled struct{}

func (Disabled) Send(context.Context, Message) Result {
	return Result{Error: "email_not_configured"}
}

// Chain tries each dispatcher in order until one delivers.
type Chain []Dispatcher

func (c Chain) Send(ctx context.Context, msg Message) Result {
	if len(c) == 0 {
		return Disabled{}.Send(ctx, msg)
	}
	var errs []string
	for _, d := range c {
		res := d.Send(ctx, msg)
		if res.Delivered {
			return res
		}
		errs = append(errs, res.Error)
	}
	return Result{Error: strings.Join(errs, "; ")}
}

const subject = "Please confirm a student achievement"

var bodyTemplate = template.Must(template.New("verification").Parse(`<p>Hello,</p>
<p>{{if .StudentName}}{{.StudentName}}{{else}}A student{{end}} asked you to confirm the achievement
<strong>{{.AchievementTitle}}</strong> on their portfolio.</p>
<p><a href="{{.VerifyLink}}">Review and confirm</a></p>
<p>If you did not expect this email you can ignore it.</p>
`))

// RenderBody returns the HTML body of the invitation.
func RenderBody(msg Message) (string, error) {
	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, msg); err != nil {
		return "", err
	}
	return buf.String(), nil
}
