package platform

import (
	"errors"
	"testing"
)

func TestMessage_Validate(t *testing.T) {
	tests := []struct {
		name      string
		msg       Message
		wantField string
	}{
		{
			name: "valid message",
			msg:  Message{ID: "m1", ChannelID: "c1"},
		},
		{
			name:      "missing ID",
			msg:       Message{ChannelID: "c1"},
			wantField: "id",
		},
		{
			name:      "missing channel ID",
			msg:       Message{ID: "m1"},
			wantField: "channel_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}

			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			if validationErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", validationErr.Field, tt.wantField)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Field: "id"}
	if got := err.Error(); got != "invalid message: missing id" {
		t.Errorf("Error() = %q", got)
	}

	err = &ValidationError{Field: "channel_id", ID: "m1"}
	if got := err.Error(); got != "invalid message m1: missing channel_id" {
		t.Errorf("Error() = %q", got)
	}
}
