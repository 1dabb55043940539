package notify

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeEventJSON(t *testing.T) {
	event := ChangeEvent{
		Source:     "http",
		SnapshotID: "id",
		Keys:       []string{"a"},
		Time:       time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"http","snapshot_id":"id","keys":["a"],"fallback":false,"time":"2024-01-02T03:04:05Z"}`, string(data))
}

func TestRedisPublisherUnreachable(t *testing.T) {
	// reserve a port and release it so nothing is listening there
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	p := NewRedisPublisher(addr, "")
	defer p.Close()
	assert.Equal(t, DefaultChannel, p.Channel())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = p.Publish(ctx, ChangeEvent{Source: "http"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), DefaultChannel)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), ChangeEvent{}))
	assert.NoError(t, p.Close())
}
