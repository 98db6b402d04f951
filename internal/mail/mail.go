// Package mail provides outbound email delivery for queued jobs.
package mail

import (
	"context"

	"github.com/tkmserwis/inspektor/internal/models"
)

// Sender delivers one queued email job. The outbox treats any non-nil
// error identically: the item stays queued and is retried on a later
// drain. Implementations must report success only when the remote side
// has accepted the message.
type Sender interface {
	Send(ctx context.Context, item *models.QueueItem) error
}
