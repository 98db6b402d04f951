// Package mail provides unit tests for email template rendering.
package mail

import (
	"strings"
	"testing"
)

func TestRenderReportHTML(t *testing.T) {
	html, err := RenderReportHTML(ReportParams{
		Date:     "2026-08-31",
		ReplyTo:  "fiskalne@example.com",
		TeamName: "Zespół Serwisu",
	})
	if err != nil {
		t.Fatalf("RenderReportHTML failed: %v", err)
	}

	for _, want := range []string{"2026-08-31", "fiskalne@example.com", "Protokół Przeglądu"} {
		if !strings.Contains(html, want) {
			t.Errorf("report html missing %q", want)
		}
	}
}

func TestRenderReminderHTML(t *testing.T) {
	html, err := RenderReminderHTML(ReminderParams{
		ClientName:  "TAKMA Sp. z o.o.",
		ClientEmail: "klient@example.com",
		Date:        "2026-09-14",
	})
	if err != nil {
		t.Fatalf("RenderReminderHTML failed: %v", err)
	}

	for _, want := range []string{"TAKMA Sp. z o.o.", "klient@example.com", "2026-09-14"} {
		if !strings.Contains(html, want) {
			t.Errorf("reminder html missing %q", want)
		}
	}
}

func TestReminderSubject(t *testing.T) {
	got := ReminderSubject("TAKMA")
	if got != "[TERMINARZ] Przypomnienie o przeglądzie: TAKMA" {
		t.Errorf("subject = %q", got)
	}
}

// Template rendering escapes markup in client-supplied fields.
func TestReminderHTMLEscapesClientName(t *testing.T) {
	html, err := RenderReminderHTML(ReminderParams{
		ClientName:  `<script>alert(1)</script>`,
		ClientEmail: "klient@example.com",
		Date:        "2026-09-14",
	})
	if err != nil {
		t.Fatalf("RenderReminderHTML failed: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Error("client name was not escaped")
	}
}
