// Package mail provides the pre-rendered email bodies. Rendering
// happens before enqueue; the queue stores the final HTML payload.
package mail

import (
	"bytes"
	"html/template"

	apperrors "github.com/tkmserwis/inspektor/internal/errors"
)

// ReportSubject is the subject line of the inspection report email.
const ReportSubject = "Protokół z przeglądu urządzeń fiskalnych"

var reportTmpl = template.Must(template.New("report").Parse(`
<div style="font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; color: #333; max-width: 600px; margin: 0 auto; border: 1px solid #e0e0e0; border-radius: 8px; overflow: hidden;">
  <div style="background-color: #2563eb; padding: 20px; text-align: center;">
    <h1 style="color: #ffffff; margin: 0; font-size: 24px;">Protokół Przeglądu</h1>
  </div>
  <div style="padding: 30px;">
    <p style="font-size: 16px; line-height: 1.5;">Dzień dobry,</p>
    <p style="font-size: 16px; line-height: 1.5;">
      W załączniku przesyłamy <strong>protokół przeglądu technicznego drukarek fiskalnych</strong>, który został wykonany w dniu {{.Date}}.
    </p>
    <div style="background-color: #f8fafc; border-left: 4px solid #2563eb; padding: 15px; margin: 20px 0;">
      <p style="margin: 0; font-weight: bold; color: #1e40af;">Prosimy o:</p>
      <ol style="margin: 10px 0 0 20px; padding: 0; color: #334155;">
        <li style="margin-bottom: 5px;">Wydrukowanie protokołu</li>
        <li style="margin-bottom: 5px;">Podpisanie dokumentu</li>
        <li style="margin-bottom: 5px;">Odesłanie skanu na adres: <a href="mailto:{{.ReplyTo}}" style="color: #2563eb; text-decoration: none; font-weight: bold;">{{.ReplyTo}}</a></li>
      </ol>
    </div>
    <p style="font-size: 16px; line-height: 1.5; margin-top: 30px;">
      W razie pytań pozostajemy do dyspozycji.
    </p>
    <div style="margin-top: 40px; border-top: 1px solid #e0e0e0; padding-top: 20px;">
      <p style="margin: 0; font-weight: bold; color: #1e293b;">{{.TeamName}}</p>
    </div>
  </div>
  <div style="background-color: #f1f5f9; padding: 15px; text-align: center; font-size: 12px; color: #94a3b8;">
    Wiadomość wygenerowana automatycznie przez System Przeglądów Fiskalnych
  </div>
</div>
`))

var reminderTmpl = template.Must(template.New("reminder").Parse(`
<div style="font-family: sans-serif; color: #333;">
  <h2>Przypomnienie o przeglądzie</h2>
  <p>Za 14 dni mija termin przeglądu dla klienta:</p>
  <p><strong>{{.ClientName}}</strong></p>
  <p>Data przeglądu: <strong>{{.Date}}</strong></p>
  <br>
  <p>Skontaktuj się z klientem: <a href="mailto:{{.ClientEmail}}">{{.ClientEmail}}</a></p>
  <hr>
  <p style="font-size: 12px; color: #888;">System Przeglądów Fiskalnych - Automat</p>
</div>
`))

// ReportParams fills the inspection report email template.
type ReportParams struct {
	Date     string // inspection date, as shown to the client
	ReplyTo  string // address for the signed scan
	TeamName string
}

// RenderReportHTML renders the client-facing report email body.
func RenderReportHTML(params ReportParams) (string, error) {
	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, params); err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternal, "failed to render report email", err)
	}
	return buf.String(), nil
}

// ReminderSubject builds the office reminder subject line.
func ReminderSubject(clientName string) string {
	return "[TERMINARZ] Przypomnienie o przeglądzie: " + clientName
}

// ReminderParams fills the office reminder email template.
type ReminderParams struct {
	ClientName  string
	ClientEmail string
	Date        string // next inspection date, YYYY-MM-DD
}

// RenderReminderHTML renders the office-facing reminder email body.
func RenderReminderHTML(params ReminderParams) (string, error) {
	var buf bytes.Buffer
	if err := reminderTmpl.Execute(&buf, params); err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternal, "failed to render reminder email", err)
	}
	return buf.String(), nil
}
