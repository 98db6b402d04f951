// Package archive provides the upcoming-inspection reminder pass.
package archive

import (
	"time"

	apperrors "github.com/tkmserwis/inspektor/internal/errors"
	"github.com/tkmserwis/inspektor/internal/logging"
	"github.com/tkmserwis/inspektor/internal/mail"
	"github.com/tkmserwis/inspektor/internal/outbox"
)

// reminderLeadDays is how far ahead of the next inspection date the
// office is reminded to contact the client.
const reminderLeadDays = 14

// Enqueuer is the outbox operation the reminder pass uses. Reminders
// go through the queue, so they inherit its offline resilience.
type Enqueuer interface {
	Enqueue(job outbox.Job) (int64, error)
}

// ReminderScanner finds inspections whose next inspection date is
// exactly the lead time away and queues an office reminder for each.
type ReminderScanner struct {
	archive     *Archive
	enqueuer    Enqueuer
	officeEmail string
	now         func() time.Time
}

// NewReminderScanner creates a ReminderScanner sending reminders to
// officeEmail.
func NewReminderScanner(archive *Archive, enqueuer Enqueuer, officeEmail string) *ReminderScanner {
	return &ReminderScanner{
		archive:     archive,
		enqueuer:    enqueuer,
		officeEmail: officeEmail,
		now:         time.Now,
	}
}

// Scan queues a reminder for every due, not-yet-reminded inspection
// and marks it reminded. One inspection's failure does not stop the
// rest; the number of reminders queued is returned.
func (s *ReminderScanner) Scan() (int, error) {
	inspections, err := s.archive.List()
	if err != nil {
		return 0, err
	}

	targetDate := s.now().AddDate(0, 0, reminderLeadDays).Format("2006-01-02")

	queued := 0
	for _, insp := range inspections {
		if insp.ReminderSent || insp.NextInspectionDate != targetDate {
			continue
		}

		html, err := mail.RenderReminderHTML(mail.ReminderParams{
			ClientName:  insp.ClientName,
			ClientEmail: insp.ClientEmail,
			Date:        insp.NextInspectionDate,
		})
		if err != nil {
			logging.Error("Failed to render reminder email", err,
				map[string]interface{}{"inspection_id": insp.ID})
			continue
		}

		if _, err := s.enqueuer.Enqueue(outbox.Job{
			Recipient: s.officeEmail,
			Subject:   mail.ReminderSubject(insp.ClientName),
			HTML:      html,
		}); err != nil {
			logging.ErrorWithCode("Failed to queue reminder email",
				string(apperrors.ErrEnqueueFailed), err,
				map[string]interface{}{"inspection_id": insp.ID})
			continue
		}

		insp.ReminderSent = true
		if err := s.archive.Update(insp.ID, &insp); err != nil {
			// The reminder is already queued; the worst case on the
			// next scan is a duplicate reminder, not a missed one.
			logging.Error("Failed to mark inspection as reminded", err,
				map[string]interface{}{"inspection_id": insp.ID})
		}
		queued++
	}

	if queued > 0 {
		logging.Info("Reminder scan queued emails", map[string]interface{}{
			"queued":      queued,
			"target_date": targetDate,
		})
	}
	return queued, nil
}
