package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type Template string

const TemplatePaymentConfirmation Template = "payment_confirmation"

var subjects = map[Template]string{
	TemplatePaymentConfirmation: "Payment confirmed",
}

type PaymentConfirmation struct {
	AppName    string
	PlanName   string
	Amount     string
	BillingURL string
}

// Render executes a template and returns its subject and HTML body.
func Render(name Template, data any) (string, string, error) {
	subject, ok := subjects[name]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, string(name)+".html", data); err != nil {
		return "", "", fmt.Errorf("email: render %s: %w", name, err)
	}
	return subject, buf.String(), nil
}
