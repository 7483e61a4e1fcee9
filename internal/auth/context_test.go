// ABOUTME: Tests for identity context propagation
// ABOUTME: Covers WithIdentity/IdentityFromContext and MustIdentity panic behavior

package auth

import (
	"context"
	"testing"
)

func TestIdentityRoundtrip(t *testing.T) {
	ctx := WithIdentity(context.Background(), 42)

	userID, ok := IdentityFromContext(ctx)
	if !ok {
		t.Fatal("expected identity in context")
	}
	if userID != 42 {
		t.Errorf("user id = %d, want 42", userID)
	}
}

func TestIdentityFromContext_Missing(t *testing.T) {
	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Error("expected no identity in empty context")
	}
}

func TestMustIdentity_PanicsWhenMissing(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for anonymous context")
		}
	}()
	MustIdentity(context.Background())
}

func TestMustIdentity_Present(t *testing.T) {
	ctx := WithIdentity(context.Background(), 7)
	if got := MustIdentity(ctx); got != 7 {
		t.Errorf("MustIdentity = %d, want 7", got)
	}
}
