// Package templates provides email template rendering
package templates

import (
	"bytes"
	"html/template"
	"log"
)

// ShareEmailProps holds the values injected into the preview share email.
type ShareEmailProps struct {
	BoardID    string
	PreviewURL string
	Message    string
}

var shareEmailTemplate = template.Must(template.New("shareEmail").Parse(`
<!doctype html>
<html lang="en">
  <head>
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <meta http-equiv="Content-Type" content="text/html; charset=UTF-8">
    <title>A preview was shared with you</title>
  </head>
  <body style="font-family: Helvetica, sans-serif; font-size: 16px; line-height: 1.3; background-color: #f4f5f6; margin: 0; padding: 24px;">
    <table role="presentation" border="0" cellpadding="0" cellspacing="0" style="background: #ffffff; border: 1px solid #eaebed; border-radius: 16px; width: 100%; max-width: 600px; margin: 0 auto;">
      <tr>
        <td style="padding: 24px;">
          <p>A design preview from board <strong>{{.BoardID}}</strong> was shared with you.</p>
          {{if .Message}}<p>{{.Message}}</p>{{end}}
          <p>
            <a href="{{.PreviewURL}}" style="background-color: #0867ec; border-radius: 4px; color: #ffffff; display: inline-block; padding: 12px 24px; text-decoration: none;">View preview</a>
          </p>
          <p style="color: #9a9ea6; font-size: 14px;">If the button does not work, copy this link into your browser:<br>{{.PreviewURL}}</p>
        </td>
      </tr>
    </table>
  </body>
</html>
`))

// GetShareEmailContent renders the preview share email HTML.
func GetShareEmailContent(props ShareEmailProps) string {
	var buf bytes.Buffer
	if err := shareEmailTemplate.Execute(&buf, props); err != nil {
		log.Printf("ERROR: Failed to render share email template: %v", err)
		return ""
	}
	return buf.String()
}
