package handler

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"tourbook/internal/model"
)

func TestFieldWritable(t *testing.T) {
	open := NewFactory[model.Trip](nil, "trip", zerolog.Nop())
	restricted := NewFactory[model.Review](nil, "review", zerolog.Nop()).
		WithWritable("review", "rating")

	t.Run("open schema still blocks credential fields", func(t *testing.T) {
		assert.True(t, open.fieldWritable("name"))
		assert.True(t, open.fieldWritable("price"))
		for _, blocked := range []string{"_id", "id", "password", "passwordChangedAt", "passwordResetToken", "passwordResetExpires"} {
			assert.False(t, open.fieldWritable(blocked), blocked)
		}
	})

	t.Run("explicit schema allows only listed fields", func(t *testing.T) {
		assert.True(t, restricted.fieldWritable("rating"))
		assert.True(t, restricted.fieldWritable("review"))
		assert.False(t, restricted.fieldWritable("user"))
		assert.False(t, restricted.fieldWritable("trip"))
		assert.False(t, restricted.fieldWritable("createdAt"))
	})
}
