package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	gomail "gopkg.in/gomail.v2"
)

var emailBody = template.Must(template.New("notification").Parse(`<html>
<body>
  <h2>{{.Subject}}</h2>
  <p>Outcome: <b>{{.Kind}}</b> ({{.Severity}})</p>
  <table border="0" cellpadding="4">
  {{- range $k, $v := .Details}}
    <tr><td><b>{{$k}}</b></td><td>{{$v}}</td></tr>
  {{- end}}
  </table>
</body>
</html>
`))

// EmailNotifier sends the notification over SMTP. The diagnostic screenshot,
// when present, is attached.
type EmailNotifier struct {
	Host string
	Port int
	User string
	Pass string
	From string
	To   string
}

// Notify sends one message per notification.
func (e *EmailNotifier) Notify(ctx context.Context, n Notification) error {
	var body bytes.Buffer
	if err := emailBody.Execute(&body, n); err != nil {
		return fmt.Errorf("cannot render notification body: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", e.From)
	msg.SetHeader("To", e.To)
	msg.SetHeader("Subject", fmt.Sprintf("[permit-buyer] %s", n.Subject))
	msg.SetBody("text/html", body.String())
	if n.Screenshot != "" {
		msg.Attach(n.Screenshot)
	}

	dialer := gomail.NewDialer(e.Host, e.Port, e.User, e.Pass)
	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("cannot send notification email: %w", err)
	}
	return nil
}
