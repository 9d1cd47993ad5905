package mailer

import (
	"bytes"
	"html/template"
	"strings"
)

var layout = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; background-color: #f4f4f4; margin: 0; padding: 20px; }
        .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; border-radius: 8px; overflow: hidden; }
        .header { background-color: #0B6E99; color: white; padding: 20px; text-align: center; }
        .content { padding: 30px; }
        .footer { background-color: #f8f9fa; padding: 15px; text-align: center; font-size: 12px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h1>{{.Subject}}</h1></div>
        <div class="content">
            <p>Hello <strong>{{.Name}}</strong>,</p>
            {{range .Paragraphs}}<p>{{.}}</p>
            {{end}}
        </div>
        <div class="footer">
            <p>This is an automatic message, please do not reply.</p>
        </div>
    </div>
</body>
</html>
`))

// Render wraps a plain text body in the HTML layout. Blank lines split paragraphs.
func Render(name string, msg Message) (string, error) {
	var paragraphs []string
	for _, p := range strings.Split(msg.Body, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	if name == "" {
		name = "there"
	}

	var buf bytes.Buffer
	err := layout.Execute(&buf, struct {
		Subject    string
		Name       string
		Paragraphs []string
	}{msg.Subject, name, paragraphs})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
