package email

import (
	"bytes"
	"fmt"
	"html/template"
	"net/smtp"
	"strings"

	"github.com/amorempixels/amor_server/config"
)

type Service struct {
	cfg *config.EmailConfig
}

func NewService(cfg *config.EmailConfig) *Service {
	return &Service{cfg: cfg}
}

const layout = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        {{template "content" .}}
        <hr style="border: none; border-top: 1px solid #f3d1dc; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">Este e-mail foi enviado automaticamente, não responda.</p>
    </div>
</body>
</html>`

var (
	welcomeTmpl = template.Must(template.Must(template.New("welcome").Parse(layout)).Parse(`{{define "content"}}
        <h2 style="color: #e11d48;">Bem-vindo ao Amor em Pixels!</h2>
        <p>Olá, {{.Name}}!</p>
        <p>Sua conta foi criada. Agora você pode criar páginas para quem você ama e gerenciá-las pelo painel.</p>
{{end}}`))

	publishedTmpl = template.Must(template.Must(template.New("published").Parse(layout)).Parse(`{{define "content"}}
        <h2 style="color: #e11d48;">Sua página está no ar ❤</h2>
        <p>A página <strong>{{.CustomURL}}</strong> foi publicada.</p>
        <div style="text-align: center; margin: 30px 0;">
            <a href="{{.SiteURL}}" style="background-color: #e11d48; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Ver página</a>
        </div>
        <p>Ou copie o link: <span style="word-break: break-all;">{{.SiteURL}}</span></p>
        {{if .ExpiresAt}}<p>Disponível até {{.ExpiresAt}}.</p>{{end}}
{{end}}`))
)

// SendWelcome greets a newly registered user.
func (s *Service) SendWelcome(to, name string) error {
	if name == "" {
		name = to
	}
	body, err := render(welcomeTmpl, map[string]string{"Name": name})
	if err != nil {
		return err
	}
	return s.sendHTML(to, "Bem-vindo - Amor em Pixels", body)
}

// SendSitePublished tells the recipient where the card lives.
func (s *Service) SendSitePublished(to, customURL, siteURL, expiresAt string) error {
	body, err := render(publishedTmpl, map[string]string{
		"CustomURL": customURL,
		"SiteURL":   siteURL,
		"ExpiresAt": expiresAt,
	})
	if err != nil {
		return err
	}
	return s.sendHTML(to, "Sua página foi publicada - Amor em Pixels", body)
}

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email: %w", err)
	}
	return buf.String(), nil
}

func (s *Service) sendHTML(to, subject, body string) error {
	msg := buildMessage(s.cfg.From, to, subject, body)

	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.SMTPHost)
	addr := fmt.Sprintf("%s:%d", s.cfg.SMTPHost, s.cfg.SMTPPort)

	return smtp.SendMail(addr, auth, s.cfg.From, []string{to}, msg)
}

func buildMessage(from, to, subject, body string) []byte {
	var msg strings.Builder
	for _, h := range [][2]string{
		{"From", from},
		{"To", to},
		{"Subject", subject},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	} {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", h[0], h[1]))
	}
	msg.WriteString("\r\n")
	msg.WriteString(body)
	return []byte(msg.String())
}
