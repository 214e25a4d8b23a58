package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// SMTPSettings configures MailNotifier.
type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// AdminEmail receives activity notifications.
	AdminEmail string
	// AppURL is used to build password reset links.
	AppURL string
}

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// MailNotifier renders events to HTML e-mail and sends them over SMTP.
// Activity events go to the admin address; password resets go to the user.
type MailNotifier struct {
	settings SMTPSettings
	send     SendFunc
}

// NewMailNotifier validates settings and reports whether mail can be sent.
func NewMailNotifier(s SMTPSettings) (*MailNotifier, Readiness) {
	n := &MailNotifier{settings: s, send: smtp.SendMail}
	switch {
	case strings.TrimSpace(s.Host) == "":
		return n, NotReady("SMTP_HOST is not set")
	case strings.TrimSpace(s.From) == "":
		return n, NotReady("SMTP_FROM is not set")
	case s.Port <= 0:
		return n, NotReady("SMTP_PORT is invalid")
	}
	return n, Ready()
}

// WithSender swaps the transport, for tests.
func (m *MailNotifier) WithSender(send SendFunc) *MailNotifier {
	m.send = send
	return m
}

func (m *MailNotifier) Notify(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to := m.recipient(ev)
	if to == "" {
		return nil
	}
	subject, body, err := Render(ev, m.settings.AppURL)
	if err != nil {
		return err
	}
	msg := buildMessage(m.settings.From, to, subject, body)
	addr := net.JoinHostPort(m.settings.Host, strconv.Itoa(m.settings.Port))
	var auth smtp.Auth
	if m.settings.Username != "" {
		auth = smtp.PlainAuth("", m.settings.Username, m.settings.Password, m.settings.Host)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- m.send(addr, auth, m.settings.From, []string{to}, msg) }()
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("smtp send %s: %w", ev.Kind, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MailNotifier) recipient(ev Event) string {
	if ev.Kind == KindPasswordReset {
		return strings.TrimSpace(ev.UserEmail)
	}
	return strings.TrimSpace(m.settings.AdminEmail)
}

type mailView struct {
	Heading string
	Color   template.CSS
	Rows    [][2]string
	Link    string
}

var mailTemplate = template.Must(template.New("mail").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: {{.Color}};">{{.Heading}}</h2>
  <div style="background-color: #f3f4f6; padding: 20px; border-radius: 8px;">
{{- range .Rows}}
    <p><strong>{{index . 0}}:</strong> {{index . 1}}</p>
{{- end}}
{{- if .Link}}
    <p><a href="{{.Link}}">{{.Link}}</a></p>
{{- end}}
  </div>
  <p style="color: #6b7280; font-size: 12px; margin-top: 20px;">This is an automated notification from Resume Builder.</p>
</div>
`))

// Render returns the subject and HTML body for ev.
func Render(ev Event, appURL string) (string, string, error) {
	at := ev.OccurredAt.UTC().Format(time.RFC1123)
	user := [][2]string{{"Name", ev.UserName}, {"Email", ev.UserEmail}}
	var subject string
	var view mailView
	switch ev.Kind {
	case KindUserRegistered:
		subject = "New User Registration - Resume Builder"
		view = mailView{Heading: "New User Registration", Color: "#2563eb", Rows: append(user, [2]string{"Registered At", at})}
	case KindUserLogin:
		subject = "User Login - Resume Builder"
		view = mailView{Heading: "User Login Detected", Color: "#059669", Rows: append(user, [2]string{"Login Time", at})}
	case KindProfileUpdated, KindPasswordChanged:
		subject = "Profile Update - Resume Builder"
		view = mailView{Heading: "User Profile Updated", Color: "#d97706", Rows: append(user,
			[2]string{"Updated Fields", strings.Join(ev.Fields, ", ")},
			[2]string{"Updated At", at})}
	case KindResumeCreated:
		subject = "New Resume Created - Resume Builder"
		view = mailView{Heading: "New Resume Created", Color: "#7c3aed", Rows: append(user,
			[2]string{"Resume Title", ev.ResumeTitle},
			[2]string{"Created At", at})}
	case KindResumeUpdated:
		subject = "Resume Updated - Resume Builder"
		rows := append(user, [2]string{"Resume Title", ev.ResumeTitle})
		if len(ev.Fields) > 0 {
			rows = append(rows, [2]string{"Updated Sections", strings.Join(ev.Fields, ", ")})
		}
		view = mailView{Heading: "Resume Updated", Color: "#dc2626", Rows: append(rows, [2]string{"Updated At", at})}
	case KindResumeDeleted:
		subject = "Resume Deleted - Resume Builder"
		view = mailView{Heading: "Resume Deleted", Color: "#991b1b", Rows: append(user,
			[2]string{"Deleted Resume", ev.ResumeTitle},
			[2]string{"Deleted At", at})}
	case KindPasswordReset:
		if ev.ResetToken == "" {
			return "", "", errors.New("password reset event without token")
		}
		subject = "Reset your Resume Builder password"
		view = mailView{
			Heading: "Password Reset Requested",
			Color:   "#2563eb",
			Rows:    [][2]string{{"Account", ev.UserEmail}, {"Valid For", "10 minutes"}},
			Link:    strings.TrimRight(appURL, "/") + "/reset-password/" + ev.ResetToken,
		}
	default:
		return "", "", fmt.Errorf("unknown event kind %q", ev.Kind)
	}
	var buf bytes.Buffer
	if err := mailTemplate.Execute(&buf, view); err != nil {
		return "", "", fmt.Errorf("render mail: %w", err)
	}
	return subject, buf.String(), nil
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString("From: \"Resume Builder\" <" + from + ">\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}
