package ctxutil

import (
	"context"
	"testing"
)

func TestUserFromContext(t *testing.T) {
	if got := UserFromContext(context.Background()); got != "" {
		t.Errorf("UserFromContext(empty) = %q, want empty", got)
	}
	ctx := WithUserID(context.Background(), "jdoe")
	if got := UserFromContext(ctx); got != "jdoe" {
		t.Errorf("UserFromContext() = %q, want jdoe", got)
	}
}
