// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

package client

// Typed emit helpers for the client→server event contract. Field names
// match what the server decodes.

// MedicationTaken reports a dose taken.
func (c *Client) MedicationTaken(medicationID, medicationName, notes string) error {
	return c.Emit("medication-taken", map[string]string{
		"medicationId":   medicationID,
		"medicationName": medicationName,
		"notes":          notes,
	})
}

// MedicationMissed reports a dose missed.
func (c *Client) MedicationMissed(medicationID, medicationName, notes string) error {
	return c.Emit("medication-missed", map[string]string{
		"medicationId":   medicationID,
		"medicationName": medicationName,
		"notes":          notes,
	})
}

// MedicationAdded announces a newly created medication to the user's other
// devices.
func (c *Client) MedicationAdded(medication map[string]any) error {
	return c.Emit("medication-added", map[string]any{"medication": medication})
}

// SendMessage delivers a direct message. messageType defaults to "text"
// server-side when empty.
func (c *Client) SendMessage(recipientID, message, messageType string) error {
	payload := map[string]string{
		"recipientId": recipientID,
		"message":     message,
	}
	if messageType != "" {
		payload["type"] = messageType
	}
	return c.Emit("send-message", payload)
}

// TypingStart signals a typing indicator to the recipient.
func (c *Client) TypingStart(recipientID string) error {
	return c.Emit("typing-start", map[string]string{"recipientId": recipientID})
}

// TypingStop ends the typing indicator.
func (c *Client) TypingStop(recipientID string) error {
	return c.Emit("typing-stop", map[string]string{"recipientId": recipientID})
}

// JoinMonitoring subscribes a caretaker to a patient's medication activity.
func (c *Client) JoinMonitoring(patientID string) error {
	return c.Emit("join-medication-monitoring", map[string]string{"patientId": patientID})
}

// SubscribeNotifications joins the caller's notification stream.
func (c *Client) SubscribeNotifications() error {
	return c.Emit("subscribe-notifications", nil)
}

// MarkNotificationRead flags one stored notification as read.
func (c *Client) MarkNotificationRead(notificationID string) error {
	return c.Emit("mark-notification-read", map[string]string{"notificationId": notificationID})
}
