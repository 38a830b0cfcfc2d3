package email

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// mdRenderer escapes raw HTML in the input (WithUnsafe is not set).
var mdRenderer = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// RenderMarkdown converts Markdown to HTML.
func RenderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// Receipt is the data printed on a payment receipt.
type Receipt struct {
	GymName     string
	MemberName  string
	PaymentID   string
	Amount      float64
	Method      string
	Date        string
	PackageName string
	PackageInfo string // package description, Markdown
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`# Payment receipt

Hi {{.MemberName}},

thanks for your payment{{if .GymName}} to **{{.GymName}}**{{end}}.

| | |
|---|---|
| Receipt | {{.PaymentID}} |
| Date | {{.Date}} |
| Method | {{.Method}} |
| Amount | {{printf "%.2f" .Amount}} |
{{- if .PackageName}}
| Package | {{.PackageName}} |
{{- end}}
{{if .PackageInfo}}
## About your package

{{.PackageInfo}}
{{end}}`))

// RenderReceipt builds the subject, Markdown text body and HTML body of a receipt.
// PRE: r.PaymentID is non-empty
// POST: HTML is the goldmark rendering of Text
func RenderReceipt(r Receipt) (subject, text, html string, err error) {
	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, r); err != nil {
		return "", "", "", fmt.Errorf("render receipt: %w", err)
	}
	text = strings.TrimSpace(buf.String()) + "\n"
	html, err = RenderMarkdown(text)
	if err != nil {
		return "", "", "", err
	}
	subject = "Payment receipt " + r.PaymentID
	if r.GymName != "" {
		subject = r.GymName + ": " + subject
	}
	return subject, text, html, nil
}
