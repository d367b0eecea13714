// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

package realtime

import (
	"github.com/goccy/go-json"
)

// Outbound event names. These are the wire contract; external clients match
// on exact strings.
const (
	EventConnected               = "connected"
	EventMedicationUpdated       = "medication_updated"
	EventPatientMedicationTaken  = "patient_medication_taken"
	EventPatientMedicationMissed = "patient_medication_missed"
	EventNewMessage              = "new-message"
	EventMessageSent             = "message-sent"
	EventUserTyping              = "user_typing"
	EventUserStoppedTyping       = "user_stopped_typing"
	EventJoinedMonitoring        = "joined_monitoring"
	EventNotificationSubscribed  = "notification_subscribed"
	EventNotificationRead        = "notification_read"
	EventSystemNotification      = "system_notification"
	EventMedicationReminder      = "medication_reminder"
	EventAdherenceAlert          = "adherence_alert"
	EventPong                    = "pong"
)

// Inbound event names. Unknown names are ignored at the decoding boundary.
const (
	inboundMedicationTaken        = "medication-taken"
	inboundMedicationMissed       = "medication-missed"
	inboundMedicationAdded        = "medication-added"
	inboundSendMessage            = "send-message"
	inboundTypingStart            = "typing-start"
	inboundTypingStop             = "typing-stop"
	inboundJoinMonitoring         = "join-medication-monitoring"
	inboundSubscribeNotifications = "subscribe-notifications"
	inboundMarkNotificationRead   = "mark-notification-read"
	inboundPing                   = "ping"
)

// Envelope is the wire frame in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Payload is a JSON object payload. Outbound payloads are maps so the router
// can inject the delivery timestamp.
type Payload map[string]any

// targetKind selects how an outbound event resolves its destinations.
type targetKind int

const (
	targetIdentity targetKind = iota
	targetRoom
	targetAll
)

// Target selects the destination set for an outbound event.
type Target struct {
	kind targetKind
	name string
}

// ToIdentity targets the single live session for id, if online.
func ToIdentity(id string) Target { return Target{kind: targetIdentity, name: id} }

// ToRoom targets every member of the named room at send time.
func ToRoom(name string) Target { return Target{kind: targetRoom, name: name} }

// ToAll targets every registered session.
func ToAll() Target { return Target{kind: targetAll} }

// OutboundEvent is a named payload plus a target selector. It is owned by
// the producing handler until handed to the router, which does not retain it
// after delivery.
type OutboundEvent struct {
	Name    string
	Payload Payload
	Target  Target
}

// Inbound event variants. The transport boundary decodes a frame into
// exactly one of these; dispatch is an exhaustive switch over the closed
// set, so an unhandled kind is a compile-time mistake rather than a silent
// runtime miss.

// InboundEvent is the sealed set of decoded client events.
type InboundEvent interface {
	inboundEvent()
}

// MedicationTaken reports a dose taken by the acting patient.
type MedicationTaken struct {
	MedicationID   string `json:"medicationId" validate:"required"`
	MedicationName string `json:"medicationName" validate:"required"`
	Notes          string `json:"notes" validate:"omitempty,max=500"`
}

// MedicationMissed reports a dose missed by the acting patient.
type MedicationMissed struct {
	MedicationID   string `json:"medicationId" validate:"required"`
	MedicationName string `json:"medicationName" validate:"required"`
	Notes          string `json:"notes" validate:"omitempty,max=500"`
}

// MedicationAdded reports a newly created medication.
type MedicationAdded struct {
	Medication map[string]any `json:"medication" validate:"required"`
}

// SendMessage requests direct delivery of a chat message.
type SendMessage struct {
	RecipientID string `json:"recipientId" validate:"required"`
	Message     string `json:"message" validate:"required,max=1000"`
	Type        string `json:"type" validate:"omitempty,oneof=text image"`
}

// TypingStart is an ephemeral typing indicator. Never persisted and never a
// room membership change.
type TypingStart struct {
	RecipientID string `json:"recipientId" validate:"required"`
}

// TypingStop ends a typing indicator.
type TypingStop struct {
	RecipientID string `json:"recipientId" validate:"required"`
}

// JoinMonitoring asks to observe a patient's medication activity.
// Caretaker-only; any other role is a silent no-op.
type JoinMonitoring struct {
	PatientID string `json:"patientId" validate:"required"`
}

// SubscribeNotifications joins the requester's notifications room.
type SubscribeNotifications struct{}

// MarkNotificationRead flags one stored notification as read.
type MarkNotificationRead struct {
	NotificationID string `json:"notificationId" validate:"required"`
}

func (MedicationTaken) inboundEvent()        {}
func (MedicationMissed) inboundEvent()       {}
func (MedicationAdded) inboundEvent()        {}
func (SendMessage) inboundEvent()            {}
func (TypingStart) inboundEvent()            {}
func (TypingStop) inboundEvent()             {}
func (JoinMonitoring) inboundEvent()         {}
func (SubscribeNotifications) inboundEvent() {}
func (MarkNotificationRead) inboundEvent()   {}

// DecodeInbound turns a frame name and raw payload into a typed variant.
// ok is false for names outside the contract; those are ignored by the
// caller for forward compatibility with older and newer clients.
func DecodeInbound(name string, data json.RawMessage) (ev InboundEvent, ok bool, err error) {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	switch name {
	case inboundMedicationTaken:
		var v MedicationTaken
		err = json.Unmarshal(data, &v)
		return v, true, err
	case inboundMedicationMissed:
		var v MedicationMissed
		err = json.Unmarshal(data, &v)
		return v, true, err
	case inboundMedicationAdded:
		var v MedicationAdded
		err = json.Unmarshal(data, &v)
		return v, true, err
	case inboundSendMessage:
		var v SendMessage
		err = json.Unmarshal(data, &v)
		return v, true, err
	case inboundTypingStart:
		var v TypingStart
		err = json.Unmarshal(data, &v)
		return v, true, err
	case inboundTypingStop:
		var v TypingStop
		err = json.Unmarshal(data, &v)
		return v, true, err
	case inboundJoinMonitoring:
		var v JoinMonitoring
		err = json.Unmarshal(data, &v)
		return v, true, err
	case inboundSubscribeNotifications:
		return SubscribeNotifications{}, true, nil
	case inboundMarkNotificationRead:
		var v MarkNotificationRead
		err = json.Unmarshal(data, &v)
		return v, true, err
	default:
		return nil, false, nil
	}
}
