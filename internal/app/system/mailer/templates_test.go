package mailer

import (
	"strings"
	"testing"
)

var testSite = Site{Name: "Automation Hub", BaseURL: "https://example.com/"}

func TestContactNotice(t *testing.T) {
	e := ContactNotice(testSite, "admin@example.com", ContactDetails{
		Name:    "Ada <script>",
		Email:   "ada@example.com",
		Subject: "Partnership",
		Message: "Hello",
	})
	if e.To != "admin@example.com" || e.Subject != "New Contact Form Submission: Partnership" {
		t.Fatalf("unexpected envelope: %+v", e)
	}
	if strings.Contains(e.HTMLBody, "<script>") {
		t.Error("visitor input must be escaped in HTML")
	}
	if !strings.Contains(e.HTMLBody, "Not provided") || !strings.Contains(e.TextBody, "Phone: Not provided") {
		t.Error("missing optional fields should read Not provided")
	}
}

func TestContactReply(t *testing.T) {
	e := ContactReply(testSite, "ada@example.com", "Partnership", "We would love to.")
	if e.Subject != "Re: Partnership" || e.Kind != KindContactReply {
		t.Fatalf("unexpected envelope: %+v", e)
	}
	if !strings.Contains(e.HTMLBody, "We would love to.") {
		t.Error("reply body missing message")
	}
}

func TestNewsletterVerification(t *testing.T) {
	e := NewsletterVerification(testSite, "s@example.com", "abc123", "24 hours")
	want := "https://example.com/newsletter/verify/abc123"
	if !strings.Contains(e.TextBody, want) || !strings.Contains(e.HTMLBody, want) {
		t.Errorf("verification link %q missing", want)
	}
	if !strings.Contains(e.TextBody, "24 hours") {
		t.Error("expiry missing")
	}
}

func TestNewsletterIssue_Sanitized(t *testing.T) {
	e := NewsletterIssue(testSite, "s@example.com", "Issue 1", `<p onclick="x()">Hi</p><script>alert(1)</script>`)
	if strings.Contains(e.HTMLBody, "<script>") || strings.Contains(e.HTMLBody, "onclick") {
		t.Errorf("unsafe content survived: %s", e.HTMLBody)
	}
	if !strings.Contains(e.HTMLBody, "<p>Hi</p>") {
		t.Error("safe markup should be kept")
	}
	if strings.Contains(e.TextBody, "<") {
		t.Errorf("text part should have no markup: %q", e.TextBody)
	}
}
