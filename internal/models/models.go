// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

// Package models defines the domain records shared by the store, API, and
// realtime layers.
package models

import "time"

// Role is a user's role in the care relationship.
type Role string

const (
	RolePatient   Role = "patient"
	RoleCaretaker Role = "caretaker"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RolePatient || r == RoleCaretaker
}

// User is an account holder. PasswordHash is never serialized.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Medication is a recurring prescription owned by a patient.
type Medication struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Dosage    string    `json:"dosage"`
	Frequency string    `json:"frequency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LogStatus is the recorded outcome for one medication on one day.
type LogStatus string

const (
	LogStatusTaken  LogStatus = "taken"
	LogStatusMissed LogStatus = "missed"
)

// MedicationLog records whether a medication was taken or missed on a date.
// TakenDate is a calendar date in YYYY-MM-DD form; at most one log exists per
// medication per date.
type MedicationLog struct {
	ID           string    `json:"id"`
	MedicationID string    `json:"medication_id"`
	UserID       string    `json:"user_id"`
	TakenDate    string    `json:"taken_date"`
	Status       LogStatus `json:"status"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Notification is a stored alert for a user.
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Data      any        `json:"data,omitempty"`
	Priority  string     `json:"priority"`
	IsRead    bool       `json:"is_read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Message is a direct message between two users.
type Message struct {
	ID          string     `json:"id"`
	SenderID    string     `json:"sender_id"`
	RecipientID string     `json:"recipient_id"`
	MessageType string     `json:"message_type"`
	Content     string     `json:"content"`
	IsRead      bool       `json:"is_read"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Conversation summarizes the message thread between the requesting user and
// one other user.
type Conversation struct {
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	LastMessage string    `json:"last_message"`
	LastAt      time.Time `json:"last_at"`
	UnreadCount int       `json:"unread_count"`
}

// CaretakerAssignment links a caretaker to a patient they monitor.
type CaretakerAssignment struct {
	CaretakerID string    `json:"caretaker_id"`
	PatientID   string    `json:"patient_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// AdherenceStats aggregates a patient's medication log history.
type AdherenceStats struct {
	TotalLogs     int     `json:"total_logs"`
	TakenCount    int     `json:"taken_count"`
	MissedCount   int     `json:"missed_count"`
	AdherenceRate float64 `json:"adherence_rate"`
}
