package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	TemplateOrderComplete = "order_complete.html"
	TemplateSignupRequest = "signup_request.html"
)

type OrderCompleteData struct {
	Name         string
	Product      string
	DownloadLink string
	Downloads    int
}

type Answer struct {
	Question string
	Answer   string
}

type SignupRequestData struct {
	FirstName    string
	LastName     string
	EmailAddress string
	Answers      []Answer
}

type Templates struct {
	t *template.Template
}

func LoadTemplates() (*Templates, error) {
	t, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse email templates: %w", err)
	}
	return &Templates{t: t}, nil
}

func (t *Templates) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.t.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
