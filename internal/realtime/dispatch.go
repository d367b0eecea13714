// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

package realtime

import (
	"github.com/goccy/go-json"

	"github.com/Lohithpallikonda/medsbuddy/internal/logging"
	"github.com/Lohithpallikonda/medsbuddy/internal/metrics"
	"github.com/Lohithpallikonda/medsbuddy/internal/models"
	"github.com/Lohithpallikonda/medsbuddy/internal/store"
	"github.com/Lohithpallikonda/medsbuddy/internal/validation"
)

// Dispatcher turns decoded client frames into outbound events and hands them
// to the router. Handlers are pure with respect to delivery: each returns the
// ordered slice of events it produced and never writes to a transport itself.
type Dispatcher struct {
	router *Router
	rooms  *Directory

	// notifications is optional; mark-notification-read still acks when the
	// store is absent.
	notifications *store.NotificationStore
}

// NewDispatcher creates a Dispatcher. notifications may be nil.
func NewDispatcher(router *Router, rooms *Directory, notifications *store.NotificationStore) *Dispatcher {
	return &Dispatcher{router: router, rooms: rooms, notifications: notifications}
}

// HandleFrame processes one inbound frame from s. Unknown event names and
// malformed or invalid payloads produce zero outbound events and leave the
// session untouched; the frame is counted, logged at debug, and dropped.
func (d *Dispatcher) HandleFrame(s *Session, name string, data json.RawMessage) {
	metrics.EventsReceived.WithLabelValues(name).Inc()

	ev, ok, err := DecodeInbound(name, data)
	if !ok {
		metrics.EventsDropped.WithLabelValues("unknown_event").Inc()
		logging.Debug().Str("event", name).Str("user_id", s.Identity).Msg("ignoring unknown event")
		return
	}
	if err != nil {
		metrics.EventsDropped.WithLabelValues("invalid_payload").Inc()
		logging.Debug().Err(err).Str("event", name).Str("user_id", s.Identity).Msg("dropping malformed payload")
		return
	}
	if verr := validation.ValidateStruct(ev); verr != nil {
		metrics.EventsDropped.WithLabelValues("invalid_payload").Inc()
		logging.Debug().Err(verr).Str("event", name).Str("user_id", s.Identity).Msg("dropping invalid payload")
		return
	}

	for _, out := range d.Dispatch(s, ev) {
		d.router.Send(out)
	}
}

// Dispatch maps one validated inbound event to its outbound events, applying
// any side effects (room joins, notification state). The switch is exhaustive
// over the closed variant set.
func (d *Dispatcher) Dispatch(s *Session, ev InboundEvent) []OutboundEvent {
	switch ev := ev.(type) {
	case MedicationTaken:
		return d.medicationActivity(s, ev.MedicationID, ev.MedicationName, ev.Notes, false)
	case MedicationMissed:
		return d.medicationActivity(s, ev.MedicationID, ev.MedicationName, ev.Notes, true)
	case MedicationAdded:
		// Echoes to the actor's own devices only; monitoring caretakers learn
		// about new medications through the REST surface.
		return []OutboundEvent{{
			Name: EventMedicationUpdated,
			Payload: Payload{
				"type":       "added",
				"medication": ev.Medication,
				"userId":     s.Identity,
				"username":   s.Username,
			},
			Target: ToRoom(UserRoom(s.Identity)),
		}}
	case SendMessage:
		msgType := ev.Type
		if msgType == "" {
			msgType = "text"
		}
		body := Payload{
			"senderId":    s.Identity,
			"senderName":  s.Username,
			"recipientId": ev.RecipientID,
			"message":     ev.Message,
			"type":        msgType,
		}
		return []OutboundEvent{
			{Name: EventNewMessage, Payload: body, Target: ToRoom(UserRoom(ev.RecipientID))},
			{Name: EventMessageSent, Payload: body, Target: ToIdentity(s.Identity)},
		}
	case TypingStart:
		return []OutboundEvent{{
			Name:    EventUserTyping,
			Payload: Payload{"userId": s.Identity, "username": s.Username},
			Target:  ToRoom(UserRoom(ev.RecipientID)),
		}}
	case TypingStop:
		return []OutboundEvent{{
			Name:    EventUserStoppedTyping,
			Payload: Payload{"userId": s.Identity},
			Target:  ToRoom(UserRoom(ev.RecipientID)),
		}}
	case JoinMonitoring:
		if s.Role != models.RoleCaretaker {
			logging.Debug().
				Str("user_id", s.Identity).
				Str("patient_id", ev.PatientID).
				Msg("non-caretaker attempted to join monitoring")
			return nil
		}
		d.rooms.Join(MonitorRoom(ev.PatientID), s.Identity)
		return []OutboundEvent{{
			Name:    EventJoinedMonitoring,
			Payload: Payload{"patientId": ev.PatientID},
			Target:  ToIdentity(s.Identity),
		}}
	case SubscribeNotifications:
		d.rooms.Join(NotificationsRoom(s.Identity), s.Identity)
		return []OutboundEvent{{
			Name:    EventNotificationSubscribed,
			Payload: Payload{"message": "Subscribed to notifications"},
			Target:  ToIdentity(s.Identity),
		}}
	case MarkNotificationRead:
		if d.notifications != nil {
			if _, err := d.notifications.MarkRead(s.Identity, ev.NotificationID); err != nil {
				logging.Debug().Err(err).
					Str("user_id", s.Identity).
					Str("notification_id", ev.NotificationID).
					Msg("mark notification read failed")
			}
		}
		return []OutboundEvent{{
			Name:    EventNotificationRead,
			Payload: Payload{"notificationId": ev.NotificationID},
			Target:  ToIdentity(s.Identity),
		}}
	}
	return nil
}

// medicationActivity builds the event pair for a taken or missed dose: an
// echo to the actor's own room and a monitoring event to caretakers watching
// the patient. Missed doses carry high priority.
func (d *Dispatcher) medicationActivity(s *Session, medID, medName, notes string, missed bool) []OutboundEvent {
	updateType := "taken"
	monitorEvent := EventPatientMedicationTaken
	if missed {
		updateType = "missed"
		monitorEvent = EventPatientMedicationMissed
	}

	update := Payload{
		"type":           updateType,
		"medicationId":   medID,
		"medicationName": medName,
		"userId":         s.Identity,
		"username":       s.Username,
	}
	monitor := Payload{
		"patientId":      s.Identity,
		"patientName":    s.Username,
		"medicationId":   medID,
		"medicationName": medName,
	}
	if notes != "" {
		update["notes"] = notes
		monitor["notes"] = notes
	}
	if missed {
		monitor["priority"] = "high"
	}

	return []OutboundEvent{
		{Name: EventMedicationUpdated, Payload: update, Target: ToRoom(UserRoom(s.Identity))},
		{Name: monitorEvent, Payload: monitor, Target: ToRoom(MonitorRoom(s.Identity))},
	}
}
