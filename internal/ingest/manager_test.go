package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommandRoundTrips(t *testing.T) {
	data := []byte(`{"action":"start","stream_id":"abc","url":"rtsp://x","type":"rtsp","object_type":"person","fps":10}`)

	cmd, err := ParseCommand(data)
	require.NoError(t, err)
	assert.Equal(t, "start", cmd.Action)
	assert.Equal(t, "abc", cmd.StreamID)
	assert.Equal(t, "person", cmd.ObjectType)
	assert.Equal(t, 10, cmd.FPS)
}

func TestParseCommandInvalidJSONReturnsError(t *testing.T) {
	_, err := ParseCommand([]byte(`not json`))
	assert.Error(t, err)
}

func TestManagerActiveCountStartsAtZero(t *testing.T) {
	m := NewManager(nil, nil, nil, 640)
	assert.Equal(t, 0, m.ActiveCount())
}

func TestManagerStopUnknownStreamIsNoop(t *testing.T) {
	m := NewManager(nil, nil, nil, 640)
	assert.NoError(t, m.stopStream("does-not-exist"))
}

func TestManagerHandleCommandUnknownActionErrors(t *testing.T) {
	m := NewManager(nil, nil, nil, 640)
	err := m.HandleCommand(nil, StreamCommand{Action: "pause"})
	assert.Error(t, err)
}

func TestManagerStopAllOnEmptyManagerIsNoop(t *testing.T) {
	m := NewManager(nil, nil, nil, 640)
	assert.NotPanics(t, func() { m.StopAll() })
	assert.Equal(t, 0, m.ActiveCount())
}
