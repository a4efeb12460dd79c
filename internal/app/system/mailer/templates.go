// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/dalemusser/automationhub/internal/app/system/htmlsanitize"
)

// Email kinds.
const (
	KindContactNotice       = "contact_notice"
	KindContactConfirmation = "contact_confirmation"
	KindContactReply        = "contact_reply"
	KindNewsletterVerify    = "newsletter_verify"
	KindNewsletterIssue     = "newsletter_issue"
)

// Site identifies the sender in every template.
type Site struct {
	Name    string
	BaseURL string
}

// ContactDetails is the part of a contact submission shown in mail.
type ContactDetails struct {
	Name    string
	Email   string
	Phone   string
	Company string
	Subject string
	Message string
}

type layoutData struct {
	SiteName string
	Body     template.HTML
	Footer   string
}

var layout = template.Must(template.New("layout").Parse(layoutHTML))

var (
	contactNoticeBody = template.Must(template.New("notice").Parse(`
<h2 style="margin: 0 0 16px; font-size: 20px; color: #1f2937;">New Contact Form Submission</h2>
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
<p><strong>Phone:</strong> {{if .Phone}}{{.Phone}}{{else}}Not provided{{end}}</p>
<p><strong>Company:</strong> {{if .Company}}{{.Company}}{{else}}Not provided{{end}}</p>
<p><strong>Subject:</strong> {{.Subject}}</p>
<p><strong>Message:</strong></p>
<p style="white-space: pre-wrap;">{{.Message}}</p>`))

	contactConfirmationBody = template.Must(template.New("confirmation").Parse(`
<h2 style="margin: 0 0 16px; font-size: 20px; color: #1f2937;">Thank you for contacting {{.SiteName}}</h2>
<p>We have received your message and will get back to you shortly.</p>
<p>Best regards,<br>{{.SiteName}} Team</p>`))

	contactReplyBody = template.Must(template.New("reply").Parse(`
<h2 style="margin: 0 0 16px; font-size: 20px; color: #1f2937;">Response to your inquiry</h2>
<p style="white-space: pre-wrap;">{{.Message}}</p>
<p>Best regards,<br>{{.SiteName}} Team</p>`))

	verifyBody = template.Must(template.New("verify").Parse(`
<h2 style="margin: 0 0 16px; font-size: 20px; color: #1f2937;">Welcome to the {{.SiteName}} Newsletter!</h2>
<p>Please click the button below to verify your subscription:</p>
<p style="text-align: center; margin: 24px 0;">
  <a href="{{.URL}}" style="display: inline-block; padding: 14px 32px; background-color: #4f46e5; color: #ffffff; text-decoration: none; border-radius: 6px;">Verify Subscription</a>
</p>
<p style="font-size: 13px; color: #6b7280;">Or open this link: {{.URL}}</p>
<p style="font-size: 13px; color: #9ca3af;">This link will expire in {{.ExpiresIn}}.</p>`))

	issueBody = template.Must(template.New("issue").Parse(`{{.}}`))
)

func render(siteName string, body *template.Template, data any, footer string) string {
	var inner bytes.Buffer
	_ = body.Execute(&inner, data)
	var buf bytes.Buffer
	_ = layout.Execute(&buf, layoutData{
		SiteName: siteName,
		Body:     template.HTML(inner.String()),
		Footer:   footer,
	})
	return buf.String()
}

// ContactNotice tells the site admin about a new submission.
func ContactNotice(site Site, adminEmail string, c ContactDetails) Email {
	var text strings.Builder
	text.WriteString("New Contact Form Submission\n\n")
	fmt.Fprintf(&text, "Name: %s\nEmail: %s\n", c.Name, c.Email)
	fmt.Fprintf(&text, "Phone: %s\nCompany: %s\n", orNotProvided(c.Phone), orNotProvided(c.Company))
	fmt.Fprintf(&text, "Subject: %s\n\n%s\n", c.Subject, c.Message)

	return Email{
		Kind:     KindContactNotice,
		To:       adminEmail,
		Subject:  "New Contact Form Submission: " + c.Subject,
		TextBody: text.String(),
		HTMLBody: render(site.Name, contactNoticeBody, c, "Sent from the contact form."),
	}
}

func orNotProvided(s string) string {
	if s == "" {
		return "Not provided"
	}
	return s
}

// ContactConfirmation acknowledges a submission to the customer.
func ContactConfirmation(site Site, to string) Email {
	return Email{
		Kind:    KindContactConfirmation,
		To:      to,
		Subject: "Thank you for contacting " + site.Name,
		TextBody: fmt.Sprintf("Thank you for contacting %s.\n\n"+
			"We have received your message and will get back to you shortly.\n\n"+
			"Best regards,\n%s Team\n", site.Name, site.Name),
		HTMLBody: render(site.Name, contactConfirmationBody, struct{ SiteName string }{site.Name}, ""),
	}
}

// ContactReply sends an admin's reply to the customer. message is plain text.
func ContactReply(site Site, to, subject, message string) Email {
	data := struct{ SiteName, Message string }{site.Name, message}
	return Email{
		Kind:     KindContactReply,
		To:       to,
		Subject:  "Re: " + subject,
		TextBody: fmt.Sprintf("%s\n\nBest regards,\n%s Team\n", message, site.Name),
		HTMLBody: render(site.Name, contactReplyBody, data, ""),
	}
}

// NewsletterVerification asks a new subscriber to confirm their address.
func NewsletterVerification(site Site, to, token, expiresIn string) Email {
	url := strings.TrimRight(site.BaseURL, "/") + "/newsletter/verify/" + token
	data := struct{ SiteName, URL, ExpiresIn string }{site.Name, url, expiresIn}
	return Email{
		Kind:    KindNewsletterVerify,
		To:      to,
		Subject: "Verify your newsletter subscription",
		TextBody: fmt.Sprintf("Welcome to the %s Newsletter!\n\n"+
			"Please open the link below to verify your subscription:\n%s\n\n"+
			"This link will expire in %s.\n", site.Name, url, expiresIn),
		HTMLBody: render(site.Name, verifyBody, data,
			"If you did not subscribe, you can safely ignore this email."),
	}
}

// NewsletterIssue wraps admin-authored HTML content for one recipient.
// The content is sanitized before it is embedded.
func NewsletterIssue(site Site, to, subject, content string) Email {
	clean := htmlsanitize.PrepareForDisplay(content)
	return Email{
		Kind:     KindNewsletterIssue,
		To:       to,
		Subject:  subject,
		TextBody: htmlsanitize.StripTags(content),
		HTMLBody: render(site.Name, issueBody, clean,
			"You are receiving this because you subscribed to the "+site.Name+" newsletter."),
	}
}

const layoutHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.SiteName}}</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 560px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 32px 32px 24px; text-align: center; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 24px; font-weight: 600; color: #4f46e5;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px; font-size: 15px; color: #374151; line-height: 1.5;">{{.Body}}</td>
          </tr>
          {{if .Footer}}
          <tr>
            <td style="padding: 24px 32px; background-color: #f9fafb; border-top: 1px solid #e5e7eb; border-radius: 0 0 8px 8px;">
              <p style="margin: 0; font-size: 12px; color: #9ca3af; text-align: center;">{{.Footer}}</p>
            </td>
          </tr>
          {{end}}
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
