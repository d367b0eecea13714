// Medsbuddy - Medication Adherence and Care Coordination Platform
// Copyright 2026 Lohithpallikonda
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Lohithpallikonda/medsbuddy

package validation

import (
	"strings"
	"testing"
)

type registerFixture struct {
	Username string `validate:"required,min=3,max=30"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
	Role     string `validate:"required,role"`
}

func TestValidateStructPasses(t *testing.T) {
	req := registerFixture{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct-horse",
		Role:     "patient",
	}
	if err := ValidateStruct(&req); err != nil {
		t.Fatalf("expected valid struct, got %v", err)
	}
}

func TestValidateStructReportsAllFields(t *testing.T) {
	req := registerFixture{Username: "ab", Email: "nope", Password: "short", Role: "admin"}
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected validation failure")
	}
	if got := len(err.Errors()); got != 4 {
		t.Fatalf("expected 4 field errors, got %d: %v", got, err)
	}
}

func TestRoleValidator(t *testing.T) {
	type roleOnly struct {
		Role string `validate:"role"`
	}
	if err := ValidateStruct(&roleOnly{Role: "caretaker"}); err != nil {
		t.Errorf("caretaker should be a valid role: %v", err)
	}
	err := ValidateStruct(&roleOnly{Role: "doctor"})
	if err == nil {
		t.Fatal("doctor should not be a valid role")
	}
	if !strings.Contains(err.Error(), "patient or caretaker") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestMaxLengthMessage(t *testing.T) {
	type msg struct {
		Content string `validate:"required,max=10"`
	}
	err := ValidateStruct(&msg{Content: "this is far too long"})
	if err == nil {
		t.Fatal("expected max length failure")
	}
	if !strings.Contains(err.Error(), "at most 10 characters") {
		t.Errorf("unexpected message: %v", err)
	}
}
