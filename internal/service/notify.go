// server/internal/service/notify.go
package service

import (
	"mediradar-api-server/internal/models"
	"mediradar-api-server/internal/socket"
)

// Notifier publishes lifecycle events to realtime subscribers.
type Notifier interface {
	Publish(topic, eventType string, data any)
}

// Recorder counts lifecycle events.
type Recorder interface {
	Event(name string)
}

type nopNotifier struct{}

func (nopNotifier) Publish(string, string, any) {}

type nopRecorder struct{}

func (nopRecorder) Event(string) {}

// Realtime event types.
const (
	EventRequestCreated = "request.created"
	EventStatusChanged  = "status.changed"
	EventReplyCreated   = "reply.created"
	EventHoldExtended   = "hold.extended"
)

type statusChanged struct {
	Status    models.RequestStatus `json:"status"`
	HoldUntil any                  `json:"hold_until,omitempty"`
}

func publishStatus(n Notifier, r *models.Request) {
	ev := statusChanged{Status: r.Status}
	if r.HoldUntil != nil {
		ev.HoldUntil = r.HoldUntil
	}
	n.Publish(socket.RequestTopic(r.ID), EventStatusChanged, ev)
}
