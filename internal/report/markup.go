package report

import (
	"bytes"
	"fmt"
	"html/template"
)

var documentTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: Arial, sans-serif; text-align: center; }
  h1 { color: #333; }
  h2 { color: #666; }
  p { margin: 10px 0; }
  img { max-width: 100%; height: auto; margin-top: 10px; }
  .character { margin: 20px; padding: 20px; border: 1px solid #ccc; }
</style>
</head>
<body>
<h1>Character Report</h1>
{{- range .}}
<div class="character">
  <h2>{{.Name}}</h2>
  <p>Age: {{.Age}}</p>
  <p>Gender: {{.Gender}}</p>
  <p>Occupation: {{.Occupation}}</p>
  <p>Relations: {{.RelationNames}}</p>
  {{- with .FirstPhoto}}
  <img src="{{.URL}}" alt="{{.Filename}}" />
  {{- end}}
</div>
{{- end}}
</body>
</html>
`))

// Markup renders the report document. A character without photos gets no
// image block.
func Markup(entries []Entry) (string, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, entries); err != nil {
		return "", fmt.Errorf("render report markup: %w", err)
	}
	return buf.String(), nil
}
