package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
	CTALabel   string
	CTAURL     string
}

type followUpEmailData struct {
	baseEmailData
	StudentName string
	Paragraphs  []string
}

type taskAssignedEmailData struct {
	baseEmailData
	Task TaskNotice
}

type accountCreatedEmailData struct {
	baseEmailData
	FullName string
	Email    string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

// renderFollowUp wraps a plain-text draft. Blank lines separate paragraphs;
// the text is escaped by html/template.
func renderFollowUp(studentName, subject, body string) (string, error) {
	var paragraphs []string
	for _, p := range strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	if subject == "" {
		subject = subjectFollowUp
	}
	return renderEmailTemplate("follow_up.html", followUpEmailData{
		baseEmailData: baseEmailData{Title: subject, Heading: subject},
		StudentName:   studentName,
		Paragraphs:    paragraphs,
	})
}
