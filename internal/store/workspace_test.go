package store

import (
	"errors"
	"testing"

	"teamspace/internal/model"

	"gorm.io/gorm"
)

func TestInviteeGate(t *testing.T) {
	googleID := "g-123"

	t.Run("unknown email rejected", func(t *testing.T) {
		if err := inviteeGate(&model.User{}, gorm.ErrRecordNotFound); !errors.Is(err, ErrMemberNotVerified) {
			t.Fatalf("expected ErrMemberNotVerified, got %v", err)
		}
	})

	t.Run("user without google identity rejected", func(t *testing.T) {
		user := &model.User{Email: "pw-only@example.com", Password: "hash"}
		if err := inviteeGate(user, nil); !errors.Is(err, ErrMemberNotVerified) {
			t.Fatalf("expected ErrMemberNotVerified, got %v", err)
		}
	})

	t.Run("verified user passes", func(t *testing.T) {
		user := &model.User{Email: "ok@example.com", GoogleID: &googleID}
		if err := inviteeGate(user, nil); err != nil {
			t.Fatalf("expected gate to pass, got %v", err)
		}
	})

	t.Run("lookup failure propagates", func(t *testing.T) {
		lookupErr := errors.New("connection refused")
		if err := inviteeGate(&model.User{}, lookupErr); !errors.Is(err, lookupErr) {
			t.Fatalf("expected lookup error passthrough, got %v", err)
		}
	})
}
