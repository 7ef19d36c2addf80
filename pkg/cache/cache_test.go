package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDisabledCache(t *testing.T) {
	ctx := context.Background()

	for name, c := range map[string]*Cache{
		"nil":      nil,
		"no addr":  Connect(ctx, "", ""),
		"no redis": New(nil),
	} {
		t.Run(name, func(t *testing.T) {
			assert.False(t, c.Enabled())
			assert.NoError(t, c.Set(ctx, "k", map[string]int{"a": 1}, time.Minute))

			var dest map[string]int
			assert.False(t, c.Get(ctx, "k", &dest))
			assert.Nil(t, dest)
			assert.NoError(t, c.Delete(ctx, "k"))
			assert.NoError(t, c.Close())
		})
	}
}
