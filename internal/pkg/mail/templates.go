package mail

import (
	"bytes"
	"html/template"
	"time"
)

const siteName = "Him Learning"

const verifyEmailTpl = `<!DOCTYPE html>
<html lang="en">
<body style="font-family:'Segoe UI',Tahoma,Geneva,Verdana,sans-serif;background:#f4f7fa;margin:0;padding:20px">
<div style="max-width:600px;margin:0 auto;background:#fff;border-radius:12px;padding:32px">
  <h2 style="color:#059669;margin-top:0">Welcome, {{.Username}}!</h2>
  <p style="color:#374151;line-height:1.6">Thanks for joining {{.SiteName}}. Please confirm your email address to activate your account.</p>
  <p style="text-align:center;margin:32px 0">
    <a href="{{.URL}}" style="background:#10b981;color:#fff;padding:14px 32px;text-decoration:none;border-radius:8px;font-weight:600">Verify My Email Address</a>
  </p>
  <p style="color:#6b7280;font-size:13px">This link expires in {{.ValidFor}}. If you did not create an account, you can ignore this email.</p>
  <p style="color:#9ca3af;font-size:12px;text-align:center">&copy; {{year}} {{.SiteName}}</p>
</div>
</body>
</html>`

const resetPasswordTpl = `<!DOCTYPE html>
<html lang="en">
<body style="font-family:'Segoe UI',Tahoma,Geneva,Verdana,sans-serif;background:#f4f7fa;margin:0;padding:20px">
<div style="max-width:600px;margin:0 auto;background:#fff;border-radius:12px;padding:32px">
  <h2 style="color:#7c3aed;margin-top:0">Reset your password</h2>
  <p style="color:#374151;line-height:1.6">Hi {{.Username}}, we received a request to reset the password for your {{.SiteName}} account.</p>
  <p style="text-align:center;margin:32px 0">
    <a href="{{.URL}}" style="background:#7c3aed;color:#fff;padding:14px 32px;text-decoration:none;border-radius:8px;font-weight:600">Reset My Password</a>
  </p>
  <p style="color:#6b7280;font-size:13px">This link expires in {{.ValidFor}}. If you did not ask for a reset, no action is needed.</p>
  <p style="color:#9ca3af;font-size:12px;text-align:center">&copy; {{year}} {{.SiteName}}</p>
</div>
</body>
</html>`

// LinkData is the data for emails carrying a single action link.
type LinkData struct {
	Username string
	URL      string
	ValidFor string
	SiteName string
}

func renderTemplate(tpl string, data interface{}) (string, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"year": func() int {
			return time.Now().Year()
		},
	}).Parse(tpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func plainLink(action string, data LinkData) string {
	return action + ": " + data.URL + "\n\nThis link expires in " + data.ValidFor + ".\n"
}

// SendVerification sends the account verification link.
func (s *Sender) SendVerification(to string, data LinkData) error {
	if data.SiteName == "" {
		data.SiteName = siteName
	}
	html, err := renderTemplate(verifyEmailTpl, data)
	if err != nil {
		return err
	}
	return s.Send(Message{
		To:      []string{to},
		Subject: "Verify Your Email Address - " + data.SiteName,
		HTML:    html,
		Text:    plainLink("Confirm your email address", data),
	})
}

// SendPasswordReset sends the password reset link.
func (s *Sender) SendPasswordReset(to string, data LinkData) error {
	if data.SiteName == "" {
		data.SiteName = siteName
	}
	html, err := renderTemplate(resetPasswordTpl, data)
	if err != nil {
		return err
	}
	return s.Send(Message{
		To:      []string{to},
		Subject: "Reset Your Password - " + data.SiteName,
		HTML:    html,
		Text:    plainLink("Reset your password", data),
	})
}
