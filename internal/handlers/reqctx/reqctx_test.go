package reqctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	t.Run("set ok", func(t *testing.T) {
		ctx := New(context.Background(), "abc")

		require.Equal(t, "abc", RequestID(ctx))
	})

	t.Run("not set", func(t *testing.T) {
		require.Empty(t, RequestID(context.Background()))
	})
}
