// Package queue carries outbound notifications over RabbitMQ: the API
// publishes them and the notifier worker consumes and delivers them.
package queue

import (
	"time"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/model"
)

// NotificationEvent is one message to deliver.  It carries everything the
// worker needs to render the template, so the worker never touches the
// database.
type NotificationEvent struct {
	ID        string                 `json:"id"`
	To        string                 `json:"to"`
	Kind      model.NotificationKind `json:"kind"`
	Data      map[string]string      `json:"data"`
	CreatedAt string                 `json:"created_at"`
}

func newEvent(id, to string, kind model.NotificationKind, data map[string]string, now time.Time) NotificationEvent {
	return NotificationEvent{ID: id, To: to, Kind: kind, Data: data, CreatedAt: now.UTC().Format(time.RFC3339)}
}
