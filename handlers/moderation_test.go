package handlers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"sentinel-bot/infractions"
	"sentinel-bot/model"
)

func TestApplyErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "conflict names the existing infraction",
			err:  &infractions.ConflictError{Type: model.TypeTimeout, ExistingID: 42},
			want: "The user already has an active timeout (#42). Pardon it first.",
		},
		{
			name: "hierarchy",
			err:  &infractions.HierarchyError{UserID: "user-1"},
			want: "I cannot act on that user: their top role is equal to or above mine.",
		},
		{
			name: "duration not allowed",
			err:  infractions.ErrDurationNotAllowed,
			want: "That infraction type does not accept a duration.",
		},
		{
			name: "notify required",
			err:  infractions.ErrNotifyRequired,
			want: "The user could not be notified, and this infraction requires notification. Nothing was applied.",
		},
		{
			name: "apply failure mentions rollback",
			err:  &infractions.ApplyFailedError{Cause: errors.New("missing permissions")},
			want: "The infraction could not be applied and has been rolled back. Check my permissions.",
		},
		{
			name: "unknown errors stay generic",
			err:  errors.New("boom"),
			want: "Something went wrong applying the infraction.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, applyErrorMessage(tt.err))
		})
	}
}
