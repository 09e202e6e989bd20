package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

// timestampLayout renders submission times for humans reading the mail.
const timestampLayout = "1/2/2006, 3:04:05 PM"

// ContactDetails are the fields rendered into a contact notification.
type ContactDetails struct {
	Name      string
	Email     string
	Subject   string
	Message   string
	Timestamp time.Time
}

var contactHTML = template.Must(template.New("contact").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f9f9f9;">
  <div style="background-color: #ffffff; padding: 30px; border-radius: 10px; box-shadow: 0 2px 10px rgba(0,0,0,0.1);">
    <h2 style="color: #333; margin-bottom: 20px; border-bottom: 2px solid #007bff; padding-bottom: 10px;">
      New Contact Form Submission
    </h2>

    <div style="margin-bottom: 20px;">
      <h3 style="color: #007bff; margin-bottom: 10px;">Contact Details:</h3>
      <p><strong>Name:</strong> {{.Name}}</p>
      <p><strong>Email:</strong> <a href="mailto:{{.Email}}" style="color: #007bff;">{{.Email}}</a></p>
      <p><strong>Subject:</strong> {{.Subject}}</p>
    </div>

    <div style="margin-bottom: 20px;">
      <h3 style="color: #007bff; margin-bottom: 10px;">Message:</h3>
      <div style="background-color: #f8f9fa; padding: 15px; border-radius: 5px; border-left: 4px solid #007bff;">
        <p style="margin: 0; line-height: 1.6; white-space: pre-wrap;">{{.Message}}</p>
      </div>
    </div>

    <div style="margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; font-size: 12px; color: #666;">
      <p>This email was sent from your portfolio contact form.</p>
      <p>Timestamp: {{.Timestamp}}</p>
    </div>
  </div>
</div>
`))

// ContactHTML renders the HTML body of a contact notification. Field values
// are escaped for markup.
func ContactHTML(d ContactDetails) (string, error) {
	var buf bytes.Buffer
	err := contactHTML.Execute(&buf, struct {
		ContactDetails
		Timestamp string
	}{d, d.Timestamp.Format(timestampLayout)})
	if err != nil {
		return "", fmt.Errorf("failed to render contact template: %w", err)
	}
	return buf.String(), nil
}

// ContactText renders the plain-text fallback body. Field values are copied
// verbatim.
func ContactText(d ContactDetails) string {
	var b strings.Builder

	b.WriteString("New Contact Form Submission\n\n")
	b.WriteString(fmt.Sprintf("Name: %s\n", d.Name))
	b.WriteString(fmt.Sprintf("Email: %s\n", d.Email))
	b.WriteString(fmt.Sprintf("Subject: %s\n\n", d.Subject))
	b.WriteString("Message:\n")
	b.WriteString(d.Message + "\n\n")
	b.WriteString(fmt.Sprintf("Timestamp: %s\n", d.Timestamp.Format(timestampLayout)))

	return b.String()
}
