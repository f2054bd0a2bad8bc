package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ctxKey string

func TestCombineContextCancelsWithEitherParent(t *testing.T) {
	t.Run("first parent cancels", func(t *testing.T) {
		ctx1, cancel1 := context.WithCancel(context.Background())
		combined, cancel := CombineContext(ctx1, context.Background())
		defer cancel()

		cancel1()
		select {
		case <-combined.Done():
		case <-time.After(time.Second):
			t.Fatal("combined context not canceled with first parent")
		}
	})

	t.Run("second parent cancels", func(t *testing.T) {
		ctx2, cancel2 := context.WithCancel(context.Background())
		combined, cancel := CombineContext(context.Background(), ctx2)
		defer cancel()

		cancel2()
		select {
		case <-combined.Done():
		case <-time.After(time.Second):
			t.Fatal("combined context not canceled with second parent")
		}
	})
}

func TestCombineContextInheritsValuesFromFirst(t *testing.T) {
	ctx1 := context.WithValue(context.Background(), ctxKey("session"), "abc")
	combined, cancel := CombineContext(ctx1, context.Background())
	defer cancel()

	assert.Equal(t, "abc", combined.Value(ctxKey("session")))
}

func TestDetachIgnoresParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	parent = context.WithValue(parent, ctxKey("target"), "tab-1")

	detached := Detach(parent)
	cancel()

	require.NoError(t, detached.Err())
	assert.Nil(t, detached.Done())
	assert.Equal(t, "tab-1", detached.Value(ctxKey("target")))

	_, hasDeadline := detached.Deadline()
	assert.False(t, hasDeadline)
}
