package metrics

import (
	"testing"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_NoAddrIsNoOp(t *testing.T) {
	client, err := NewClient(Config{})
	require.NoError(t, err)
	_, ok := client.(*statsd.NoOpClient)
	assert.True(t, ok)
	assert.NoError(t, client.Incr("anything", nil, 1))
}

func TestRecorder(t *testing.T) {
	var client statsd.ClientInterface = NewRecorder()
	require.NoError(t, client.Incr("webhook.received", nil, 1))
	require.NoError(t, client.Incr("webhook.received", nil, 1))
	require.NoError(t, client.Count("sweep.communities_suspended", 3, nil, 1))
	require.NoError(t, client.Timing("http.request", time.Millisecond, nil, 1))

	rec := client.(*Recorder)
	assert.EqualValues(t, 2, rec.Counter("webhook.received"))
	assert.EqualValues(t, 3, rec.Counter("sweep.communities_suspended"))
	assert.Equal(t, 1, rec.Timings("http.request"))
	assert.Zero(t, rec.Counter("missing"))
}
