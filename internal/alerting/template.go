package alerting

import (
	"bytes"
	"errors"
	"text/template"
)

const DefaultTemplate = `[Food Safety {{.EventLabel}}]
Property: {{.Property}}
Subject: {{.Subject}}
Reading: {{.Reading}}
Limit: {{.Limit}}
Time: {{.Time}}
Logged By: {{.LoggedBy}}
Suggestion: {{.Suggestion}}`

// TemplateData provides fields for rendering alert content.
type TemplateData struct {
	Property   string
	Subject    string
	Reading    string
	Limit      string
	Time       string
	LoggedBy   string
	Suggestion string
	Event      string
	EventLabel string
}

// Template renders alert content.
type Template struct {
	tpl *template.Template
}

// NewTemplate parses an alert template, falling back to DefaultTemplate.
func NewTemplate(tpl string) (*Template, error) {
	if tpl == "" {
		tpl = DefaultTemplate
	}
	parsed, err := template.New("food-safety-alert").Parse(tpl)
	if err != nil {
		return nil, err
	}
	return &Template{tpl: parsed}, nil
}

// Render applies the template to data.
func (t *Template) Render(data TemplateData) (string, error) {
	if t == nil || t.tpl == nil {
		return "", errors.New("alert template: nil")
	}
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
