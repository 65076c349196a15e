package presence

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStackFor(t *testing.T) {
	base := time.Now()
	r := NewRoster("local", nil)
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("u%d", i)
		r.ApplyJoin(id, "user"+id, base)
		r.ApplyScrollUpdate(id, "m1", base.Add(time.Second))
	}

	t.Run("overflow beyond max visible", func(t *testing.T) {
		stack := StackFor(r, "m1", 3)
		require.Len(t, stack.Viewers, 3)
		assert.Equal(t, 2, stack.Overflow)
		assert.Equal(t, "u0", stack.Viewers[0].UserID)
	})

	t.Run("no limit", func(t *testing.T) {
		stack := StackFor(r, "m1", 0)
		assert.Len(t, stack.Viewers, 5)
		assert.Zero(t, stack.Overflow)
	})

	t.Run("no viewers", func(t *testing.T) {
		stack := StackFor(r, "m2", 3)
		assert.Empty(t, stack.Viewers)
		assert.Zero(t, stack.Overflow)
	})
}
