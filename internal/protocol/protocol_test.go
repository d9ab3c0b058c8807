package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"engine_state","data":{"state":"thinking"}}`))
	require.NoError(t, err)
	assert.Equal(t, TypeEngineState, msg.Type)

	var p EngineStatePayload
	require.NoError(t, json.Unmarshal(msg.Data, &p))
	assert.Equal(t, "thinking", p.State)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"data":{}}`))
	assert.Error(t, err, "missing type must be rejected")
}

func TestDecode_UnknownTypePasses(t *testing.T) {
	// Unknown types are not the decoder's problem; they flow through to
	// the external handler unclassified.
	msg, err := Decode([]byte(`{"type":"telemetry","data":{"n":1}}`))
	require.NoError(t, err)
	assert.Equal(t, "telemetry", msg.Type)
}

func TestNewChat(t *testing.T) {
	msg, err := NewChat("hello", []string{"file-1"})
	require.NoError(t, err)
	assert.Equal(t, TypeChat, msg.Type)
	assert.False(t, msg.Timestamp.IsZero())

	var p ChatPayload
	require.NoError(t, json.Unmarshal(msg.Data, &p))
	assert.Equal(t, "hello", p.Message)
	assert.Equal(t, []string{"file-1"}, p.Attachments)
}

func TestNewSwitch_OmitsEmptyModel(t *testing.T) {
	msg, err := NewSwitch("openai", "", nil)
	require.NoError(t, err)
	assert.NotContains(t, string(msg.Data), `"model"`)
}

func TestNewPermissionResponse(t *testing.T) {
	msg, err := NewPermissionResponse("req-1", "allow", false)
	require.NoError(t, err)

	var p PermissionResponsePayload
	require.NoError(t, json.Unmarshal(msg.Data, &p))
	assert.Equal(t, "req-1", p.RequestID)
	assert.Equal(t, "allow", p.OptionID)
	assert.False(t, p.Cancelled)
}

func TestEmptyBodyBuilders(t *testing.T) {
	for _, tc := range []struct {
		name    string
		build   func() (*Message, error)
		msgType string
	}{
		{"stop", NewStop, TypeStop},
		{"new_session", NewNewSession, TypeNewSession},
		{"clear_history", NewClearHistory, TypeClearHistory},
		{"ping", NewPing, TypePing},
	} {
		msg, err := tc.build()
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.msgType, msg.Type)
	}
}
