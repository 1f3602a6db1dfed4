// Bucketlist - Personal Goal Tracking
// Copyright 2026 M. Kaschke (mkaschke)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkaschke/bucketlist

package validation

import (
	"strings"
	"testing"

	"github.com/mkaschke/bucketlist/internal/models"
)

func TestValidateRegisterRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     models.RegisterRequest
		wantErr string
	}{
		{
			name: "valid",
			req: models.RegisterRequest{
				Username: "alice_99",
				Email:    "alice@example.com",
				Password: "climb everest 2030",
			},
			wantErr: "",
		},
		{
			name: "username too short",
			req: models.RegisterRequest{
				Username: "al",
				Email:    "alice@example.com",
				Password: "climb everest 2030",
			},
			wantErr: "at least 3 characters",
		},
		{
			name: "username with invalid characters",
			req: models.RegisterRequest{
				Username: "alice!",
				Email:    "alice@example.com",
				Password: "climb everest 2030",
			},
			wantErr: "letters, digits, and underscores",
		},
		{
			name: "invalid email",
			req: models.RegisterRequest{
				Username: "alice",
				Email:    "not-an-email",
				Password: "climb everest 2030",
			},
			wantErr: "valid email",
		},
		{
			name: "password too short",
			req: models.RegisterRequest{
				Username: "alice",
				Email:    "alice@example.com",
				Password: "short1",
			},
			wantErr: "at least 8 characters",
		},
		{
			name:    "everything missing",
			req:     models.RegisterRequest{},
			wantErr: "required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.req)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidateStruct() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("ValidateStruct() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateStruct() = %q, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCreateItemRequest(t *testing.T) {
	valid := models.CreateItemRequest{
		Title:    "See the northern lights",
		Category: models.CategoryTravel,
		Priority: models.PriorityHigh,
	}
	if err := ValidateStruct(&valid); err != nil {
		t.Errorf("ValidateStruct(valid) = %v", err)
	}

	bad := valid
	bad.Category = "astronomy"
	err := ValidateStruct(&bad)
	if err == nil {
		t.Fatal("ValidateStruct() accepted an unknown category")
	}
	if !strings.Contains(err.Error(), "must be one of") {
		t.Errorf("error = %q, want oneof message", err)
	}
}

func TestFieldMessages(t *testing.T) {
	err := ValidateStruct(&models.RegisterRequest{})
	if err == nil {
		t.Fatal("expected validation errors")
	}

	messages := err.FieldMessages()
	for _, field := range []string{"Username", "Email", "Password"} {
		if _, ok := messages[field]; !ok {
			t.Errorf("FieldMessages() missing %q: %v", field, messages)
		}
	}
}
