package resultview

import (
	"bytes"
	"html/template"
	"io"
)

var tmpl = template.Must(template.New("document").Parse(`<div class="build-result">
{{- range .Blocks}}
{{- if .Status}}
<div class="result-status {{if .Status.OK}}success{{else}}error{{end}}">{{if .Status.OK}}✓{{else}}✗{{end}} {{.Status.Text}}</div>
{{- else}}{{with .Section}}
<section class="result-section{{if .Equipment}} equipment-section{{end}}{{if .Exotic}} exotic{{end}}">
<h3>{{.Title}}</h3>
{{- if .Rows}}{{template "rows" .Rows}}{{end}}
{{- range .Cards}}
<div class="equipment-card">
{{- if .Name}}<h4>{{.Name}}</h4>{{end}}
{{- if .Tags}}<div class="tags">{{range .Tags}}<span class="tag">{{.}}</span>{{end}}</div>{{end}}
{{- if .Rows}}{{template "rows" .Rows}}{{end}}
{{- range .Groups}}
<div class="stat-group"><h5>{{.Label}}</h5>{{template "rows" .Rows}}</div>
{{- end}}
</div>
{{- end}}
</section>
{{- end}}{{end}}
{{- end}}
</div>
{{define "rows"}}<dl>{{range .}}<dt>{{.Key}}</dt><dd>{{.Value}}</dd>{{end}}</dl>{{end}}`))

// Render writes the document as HTML
func (d Document) Render(w io.Writer) error {
	return tmpl.Execute(w, d)
}

// HTML parses text and renders it for embedding in a page
func HTML(text string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := Parse(text).Render(&buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
