// Package outbox provides the durable offline email queue: jobs are
// enqueued locally when the device cannot send, and drained against the
// remote provider once connectivity returns. Delivery is at-least-once;
// an item is removed only after a confirmed successful send.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/tkmserwis/inspektor/internal/db"
	apperrors "github.com/tkmserwis/inspektor/internal/errors"
	"github.com/tkmserwis/inspektor/internal/logging"
	"github.com/tkmserwis/inspektor/internal/mail"
	"github.com/tkmserwis/inspektor/internal/models"
)

// Event types emitted during outbox activity.
const (
	EventEnqueued       = "outbox.enqueued"
	EventDrainStarted   = "outbox.drain_started"
	EventItemDelivered  = "outbox.item_delivered"
	EventItemFailed     = "outbox.item_failed"
	EventDrainCompleted = "outbox.drain_completed"
)

// Event is one outbox notification, consumed by the status WebSocket.
type Event struct {
	Type string
	Data map[string]interface{}
}

// EventHandler receives outbox events. Handlers must not block.
type EventHandler func(event Event)

// Job is the enqueue input: everything except the store-assigned id
// and the enqueue timestamp.
type Job struct {
	Recipient   string
	Subject     string
	HTML        string
	Attachments []models.Attachment
}

// DrainResult summarizes one drain pass. Per-item failures are part of
// the result, never an error: partial success is the steady state.
type DrainResult struct {
	DrainID        string
	Attempted      int
	Delivered      int
	Failed         int
	DeleteFailures int
}

// Outbox is the durable email queue over the generic record store.
type Outbox struct {
	store   *db.Store
	sender  mail.Sender
	limiter *rate.Limiter
	handler EventHandler
}

var queueCollection = models.QueueItem{}.Collection()

// New creates an Outbox. ratePerSecond caps how fast the drain loop
// hits the remote provider; zero or negative means no cap.
func New(store *db.Store, sender mail.Sender, ratePerSecond float64) *Outbox {
	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}
	return &Outbox{
		store:   store,
		sender:  sender,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// SetEventHandler sets the handler for outbox notifications.
func (o *Outbox) SetEventHandler(handler EventHandler) {
	o.handler = handler
}

func (o *Outbox) emit(eventType string, data map[string]interface{}) {
	if o.handler != nil {
		o.handler(Event{Type: eventType, Data: data})
	}
}

// Enqueue durably records a new job for later delivery and returns its
// assigned id. A failure here means the email would be lost entirely,
// so it is reported as ENQUEUE_FAILED and the caller must surface it
// to the user. Duplicate jobs are not merged: enqueueing the same
// content twice produces two independent items.
func (o *Outbox) Enqueue(job Job) (int64, error) {
	item := models.QueueItem{
		Recipient:   job.Recipient,
		Subject:     job.Subject,
		HTML:        job.HTML,
		Attachments: job.Attachments,
		CreatedAt:   time.Now().UnixMilli(),
	}

	id, err := o.store.Insert(queueCollection, &item)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrEnqueueFailed, "could not add email to the offline queue", err)
	}

	logging.Info("Email queued for later delivery", map[string]interface{}{
		"id":        id,
		"recipient": item.Recipient,
	})
	o.emit(EventEnqueued, map[string]interface{}{"id": id, "recipient": item.Recipient})

	return id, nil
}

// Pending returns the number of jobs awaiting delivery.
func (o *Outbox) Pending() (int, error) {
	return o.store.Count(queueCollection)
}

// Items returns a snapshot of all pending jobs, in store order.
func (o *Outbox) Items() ([]models.QueueItem, error) {
	records, err := o.store.GetAll(queueCollection)
	if err != nil {
		return nil, err
	}

	items := make([]models.QueueItem, 0, len(records))
	for _, rec := range records {
		var item models.QueueItem
		if err := rec.Decode(&item); err != nil {
			return nil, err
		}
		item.ID = rec.ID
		items = append(items, item)
	}
	return items, nil
}

// Drain attempts delivery of every currently pending job, once per
// item, sequentially in snapshot order. Items whose send is confirmed
// are deleted; everything else stays for the next drain. Callers should
// only invoke Drain when they believe the network is reachable; the
// loop itself learns about connectivity solely from the send results.
//
// Sends are sequential on purpose: parallel sends would race the
// delete-only-on-confirmed-success rule and bypass the rate limiter.
func (o *Outbox) Drain(ctx context.Context) (*DrainResult, error) {
	result := &DrainResult{DrainID: uuid.New().String()}

	records, err := o.store.GetAll(queueCollection)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return result, nil
	}

	logging.Info("Processing queued emails", map[string]interface{}{
		"drain_id": result.DrainID,
		"count":    len(records),
	})
	o.emit(EventDrainStarted, map[string]interface{}{
		"drain_id": result.DrainID,
		"count":    len(records),
	})

	for _, rec := range records {
		if ctx.Err() != nil {
			break
		}
		if err := o.limiter.Wait(ctx); err != nil {
			break
		}

		result.Attempted++

		var item models.QueueItem
		if err := rec.Decode(&item); err != nil {
			// Corrupt record: left in place, same as a failed send.
			logging.ErrorWithCode("Queued email is unreadable", string(apperrors.ErrReadFailed), err,
				map[string]interface{}{"drain_id": result.DrainID, "id": rec.ID})
			result.Failed++
			continue
		}
		item.ID = rec.ID

		if err := o.sender.Send(ctx, &item); err != nil {
			// One item's failure must never abort the rest of the pass.
			logging.ErrorWithCode("Queued email delivery failed", string(apperrors.ErrRemoteSendFailed), err,
				map[string]interface{}{
					"drain_id":  result.DrainID,
					"id":        item.ID,
					"recipient": item.Recipient,
				})
			result.Failed++
			o.emit(EventItemFailed, map[string]interface{}{
				"drain_id": result.DrainID, "id": item.ID, "error": err.Error(),
			})
			continue
		}

		if err := o.store.Delete(queueCollection, item.ID); err != nil {
			// Delivered but still queued: the next drain may resend.
			// Accepted as a duplicate-not-lost tradeoff.
			logging.ErrorWithCode("Delivered email could not be removed from queue",
				string(apperrors.ErrDeleteFailed), err,
				map[string]interface{}{"drain_id": result.DrainID, "id": item.ID})
			result.DeleteFailures++
		}

		result.Delivered++
		logging.Info("Queued email sent and removed from queue", map[string]interface{}{
			"drain_id":  result.DrainID,
			"id":        item.ID,
			"recipient": item.Recipient,
		})
		o.emit(EventItemDelivered, map[string]interface{}{
			"drain_id": result.DrainID, "id": item.ID, "recipient": item.Recipient,
		})
	}

	logging.Info("Queue processing completed", map[string]interface{}{
		"drain_id":  result.DrainID,
		"attempted": result.Attempted,
		"delivered": result.Delivered,
		"failed":    result.Failed,
	})
	o.emit(EventDrainCompleted, map[string]interface{}{
		"drain_id":  result.DrainID,
		"delivered": result.Delivered,
		"failed":    result.Failed,
	})

	return result, nil
}
