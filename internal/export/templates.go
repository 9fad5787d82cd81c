package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var reportTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
	}

	templateContent, err := templateFS.ReadFile("templates/report.html")
	if err != nil {
		// Fallback to built-in template if file not found
		reportTemplate = template.Must(template.New("report").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	reportTemplate = template.Must(template.New("report").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for item report rendering
type TemplateData struct {
	Title       string
	Description string
	Category    string
	Location    string
	Status      string
	ClaimStatus string
	ClaimedBy   string
	ReportedBy  string
	CreatedAt   time.Time
	Messages    []TemplateMessage
}

// TemplateMessage holds one thread entry for the transcript section
type TemplateMessage struct {
	Author string
	Body   string
	SentAt time.Time
}

// RenderReportHTML renders the item report template with provided data
func RenderReportHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .message { background: #f5f5f5; padding: 1rem; margin: 1rem 0; border-left: 3px solid #333; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  {{if .Description}}<p>{{.Description}}</p>{{end}}
  <div class="meta">{{.Status}} | {{.Location}} | {{.CreatedAt.Format "Jan 2, 2006"}} | claim: {{.ClaimStatus}}</div>
  {{if .Messages}}
  <h2>Conversation</h2>
  {{range .Messages}}<div class="message"><strong>{{.Author}}</strong>: {{.Body}}</div>{{end}}
  {{end}}
</body>
</html>`
