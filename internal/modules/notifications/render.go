package notifications

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/signalist/signalist/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// WelcomeData fills the welcome email
type WelcomeData struct {
	Name           string
	Intro          template.HTML
	DashboardURL   string
	UnsubscribeURL string
}

// DigestData fills the daily digest email
type DigestData struct {
	Date           string
	Summary        template.HTML
	Articles       []domain.FormattedNewsArticle
	DashboardURL   string
	UnsubscribeURL string
}

// UnsubscribedData fills the unsubscribe confirmation page
type UnsubscribedData struct {
	Email   string
	HomeURL string
}

// Renderer executes the embedded email and confirmation templates.
// Model output is treated as Markdown and sanitised before it reaches a template.
type Renderer struct {
	tmpl     *template.Template
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

// NewRenderer parses the embedded templates
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	return &Renderer{
		tmpl:     tmpl,
		markdown: goldmark.New(),
		policy:   bluemonday.UGCPolicy(),
	}, nil
}

// Markdown converts model output to sanitised HTML
func (r *Renderer) Markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes()))
}

// Welcome renders the welcome email
func (r *Renderer) Welcome(data WelcomeData) (string, error) {
	return r.execute("welcome.html", data)
}

// Digest renders the daily digest email
func (r *Renderer) Digest(data DigestData) (string, error) {
	return r.execute("digest.html", data)
}

// Unsubscribed renders the unsubscribe confirmation page
func (r *Renderer) Unsubscribed(data UnsubscribedData) (string, error) {
	return r.execute("unsubscribed.html", data)
}

func (r *Renderer) execute(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

// FormatDate formats t the way digest subjects show it, e.g. "Monday, March 4, 2024"
func FormatDate(t time.Time) string {
	return t.Format("Monday, January 2, 2006")
}
