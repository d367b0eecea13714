// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Lohithpallikonda/medsbuddy/internal/logging"
	"github.com/Lohithpallikonda/medsbuddy/internal/models"
	"github.com/Lohithpallikonda/medsbuddy/internal/realtime"
	"github.com/Lohithpallikonda/medsbuddy/internal/store"
)

// SendMessageRequest posts a direct message over REST.
type SendMessageRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
	Content     string `json:"content" validate:"required,max=1000"`
	MessageType string `json:"message_type" validate:"omitempty,oneof=text image"`
}

// AssignPatientRequest links the calling caretaker to a patient.
type AssignPatientRequest struct {
	PatientID string `json:"patient_id" validate:"required"`
}

// ListNotifications returns the caller's notifications.
func (h *Handlers) ListNotifications(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	limit, offset := pageParams(r, 50)
	opts := store.ListOptions{
		Limit:      limit,
		Offset:     offset,
		UnreadOnly: r.URL.Query().Get("unread") == "true",
	}
	notifications, err := h.stores.Notifications.List(identity.UserID, opts)
	if err != nil {
		logging.Error().Err(err).Msg("failed to list notifications")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to list notifications")
		return
	}

	unread, err := h.stores.Notifications.UnreadCount(identity.UserID)
	if err != nil {
		logging.Error().Err(err).Msg("failed to count unread notifications")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to list notifications")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"notifications": notifications,
		"unread_count":  unread,
	})
}

// MarkNotificationRead flags one notification as read.
func (h *Handlers) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	notification, err := h.stores.Notifications.MarkRead(identity.UserID, chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, models.ErrCodeNotFound, "Notification not found")
		return
	}
	if err != nil {
		logging.Error().Err(err).Msg("failed to mark notification read")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to update notification")
		return
	}
	respondJSON(w, http.StatusOK, notification)
}

// MarkAllNotificationsRead flags every unread notification as read.
func (h *Handlers) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	count, err := h.stores.Notifications.MarkAllRead(identity.UserID)
	if err != nil {
		logging.Error().Err(err).Msg("failed to mark notifications read")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to update notifications")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"updated": count})
}

// DeleteNotification removes a notification.
func (h *Handlers) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	err := h.stores.Notifications.Delete(identity.UserID, chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, models.ErrCodeNotFound, "Notification not found")
		return
	}
	if err != nil {
		logging.Error().Err(err).Msg("failed to delete notification")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to delete notification")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Notification deleted"})
}

// ListConversations returns the caller's conversation summaries.
func (h *Handlers) ListConversations(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	conversations, err := h.stores.Messages.Conversations(identity.UserID)
	if err != nil {
		logging.Error().Err(err).Msg("failed to list conversations")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to list conversations")
		return
	}
	respondJSON(w, http.StatusOK, conversations)
}

// GetConversation returns the message page between the caller and another
// user, oldest first.
func (h *Handlers) GetConversation(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	limit, offset := pageParams(r, 50)
	messages, err := h.stores.Messages.Conversation(identity.UserID, chi.URLParam(r, "userId"), limit, offset)
	if err != nil {
		logging.Error().Err(err).Msg("failed to load conversation")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to load conversation")
		return
	}
	respondJSON(w, http.StatusOK, messages)
}

// SendMessage persists a direct message and pushes it to the recipient's
// live sessions, mirroring the socket send-message path.
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req SendMessageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	messageType := req.MessageType
	if messageType == "" {
		messageType = "text"
	}

	if _, err := h.stores.Users.ByID(req.RecipientID); errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, models.ErrCodeNotFound, "Recipient not found")
		return
	} else if err != nil {
		logging.Error().Err(err).Msg("failed to look up recipient")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to send message")
		return
	}

	message, err := h.stores.Messages.Create(identity.UserID, req.RecipientID, req.Content, messageType)
	if err != nil {
		logging.Error().Err(err).Msg("failed to store message")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to send message")
		return
	}

	h.hub.SendToUser(req.RecipientID, realtime.EventNewMessage, realtime.Payload{
		"senderId":    identity.UserID,
		"senderName":  identity.Username,
		"recipientId": req.RecipientID,
		"message":     req.Content,
		"type":        messageType,
	})

	respondJSON(w, http.StatusCreated, message)
}

// MarkConversationRead flags every message from the other user as read.
func (h *Handlers) MarkConversationRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	count, err := h.stores.Messages.MarkConversationRead(identity.UserID, chi.URLParam(r, "userId"))
	if err != nil {
		logging.Error().Err(err).Msg("failed to mark conversation read")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to update conversation")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"updated": count})
}

// RealtimeStats reports presence and messaging counters for the caller.
func (h *Handlers) RealtimeStats(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	unreadNotifications, err := h.stores.Notifications.UnreadCount(identity.UserID)
	if err != nil {
		logging.Error().Err(err).Msg("failed to count unread notifications")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to load stats")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"online_users":         h.hub.OnlineCount(),
		"connected":            h.hub.IsOnline(identity.UserID),
		"unread_notifications": unreadNotifications,
	})
}

// AssignPatient links the calling caretaker to a patient for monitoring.
func (h *Handlers) AssignPatient(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req AssignPatientRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.stores.Users.ByID(req.PatientID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, models.ErrCodeNotFound, "Patient not found")
		return
	}
	if err != nil {
		logging.Error().Err(err).Msg("failed to look up patient")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to assign patient")
		return
	}
	if user.Role != models.RolePatient {
		respondError(w, http.StatusBadRequest, models.ErrCodeInvalidRequest, "Target user is not a patient")
		return
	}

	assignment, err := h.stores.Caretakers.Assign(identity.UserID, req.PatientID)
	if err != nil {
		logging.Error().Err(err).Msg("failed to assign patient")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to assign patient")
		return
	}
	respondJSON(w, http.StatusCreated, assignment)
}

// ListPatients returns the patients assigned to the calling caretaker.
func (h *Handlers) ListPatients(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	ids, err := h.stores.Caretakers.Patients(identity.UserID)
	if err != nil {
		logging.Error().Err(err).Msg("failed to list patients")
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to list patients")
		return
	}

	patients := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		user, err := h.stores.Users.ByID(id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			logging.Error().Err(err).Msg("failed to load patient")
			respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "Failed to list patients")
			return
		}
		patients = append(patients, user)
	}
	respondJSON(w, http.StatusOK, patients)
}
