package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClockNowIsUTC(t *testing.T) {
	t.Parallel()

	clock := New()
	before := time.Now().UTC()
	now := clock.Now()
	after := time.Now().UTC()

	assert.Equal(t, time.UTC, now.Location())
	assert.False(t, now.Before(before))
	assert.False(t, now.After(after))
}
