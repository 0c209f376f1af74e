package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherRecordsMessages(t *testing.T) {
	t.Parallel()

	pub := New()

	id, err := pub.Publish(context.Background(), "capture-runs", map[string]int{"processed": 2})
	require.NoError(t, err)
	assert.Equal(t, "memory-1", id)

	id, err = pub.Publish(context.Background(), "capture-runs", map[string]int{"processed": 5})
	require.NoError(t, err)
	assert.Equal(t, "memory-2", id)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "capture-runs", msgs[0].Topic)
	assert.Equal(t, map[string]int{"processed": 5}, msgs[1].Payload)
}

func TestPublisherMessagesReturnsCopy(t *testing.T) {
	t.Parallel()

	pub := New()
	_, err := pub.Publish(context.Background(), "t", "a")
	require.NoError(t, err)

	msgs := pub.Messages()
	msgs[0].Topic = "mutated"
	assert.Equal(t, "t", pub.Messages()[0].Topic)
}
