package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectedAction() Connected {
	return Connected{
		SessionID:    "sess-1",
		SessionTitle: "First chat",
		Provider:     "anthropic",
		Model:        "large",
		Version:      "1.2.3",
		Cwd:          "/work",
		Capabilities: map[string]bool{"tools": true},
		Engine:       "idle",
		SafetyMode:   "ask",
	}
}

func TestReduce_Connected(t *testing.T) {
	s := New()
	s.Error = "old failure"
	s.Switching = true
	s.InitDetail = "starting provider"

	next := Reduce(s, connectedAction())

	assert.True(t, next.Connected)
	assert.True(t, next.WasConnected)
	assert.False(t, next.Switching)
	assert.Empty(t, next.InitDetail)
	assert.Equal(t, "sess-1", next.SessionID)
	assert.Equal(t, "First chat", next.SessionTitle)
	assert.Equal(t, "anthropic", next.Provider)
	assert.Equal(t, "large", next.Model)
	assert.Equal(t, "1.2.3", next.Version)
	assert.Equal(t, "/work", next.Cwd)
	assert.Equal(t, map[string]bool{"tools": true}, next.Capabilities)
	assert.Equal(t, EngineIdle, next.Engine)
	assert.Equal(t, SafetyAsk, next.SafetyMode)
	assert.Empty(t, next.Error)
}

func TestReduce_ConnectedDefaults(t *testing.T) {
	a := connectedAction()
	a.SafetyMode = ""
	a.Engine = "warp-speed" // unknown values normalize to idle on connect

	next := Reduce(New(), a)
	assert.Equal(t, SafetySafe, next.SafetyMode)
	assert.Equal(t, EngineIdle, next.Engine)
}

func TestReduce_DisconnectedPreservesSession(t *testing.T) {
	s := Reduce(New(), connectedAction())
	s = Reduce(s, CostDelta{USD: 0.5, InputTokens: 100, OutputTokens: 50})
	s = Reduce(s, EngineStateChanged{State: "thinking"})

	next := Reduce(s, Disconnected{})

	assert.False(t, next.Connected)
	assert.True(t, next.WasConnected, "wasConnected never resets")
	assert.Equal(t, EngineIdle, next.Engine)
	assert.Equal(t, "sess-1", next.SessionID, "session identity survives transport loss")
	assert.Equal(t, 0.5, next.Cost.TotalCostUSD, "cost survives transport loss")
}

func TestReduce_EngineState(t *testing.T) {
	for _, valid := range []string{"idle", "thinking", "tool_executing", "responding", "error"} {
		next := Reduce(New(), EngineStateChanged{State: valid})
		assert.Equal(t, EngineState(valid), next.Engine)
	}
}

func TestReduce_EngineStateUnknownLeavesStateUnchanged(t *testing.T) {
	s := Reduce(New(), EngineStateChanged{State: "thinking"})
	next := Reduce(s, EngineStateChanged{State: "daydreaming"})
	assert.Equal(t, EngineThinking, next.Engine, "garbage must not be absorbed")
}

func TestReduce_ThinkingLifecycle(t *testing.T) {
	s := Reduce(New(), ThinkingStart{Phase: "analyzing", Subject: "code"})
	require.True(t, s.Thinking.Active)
	assert.Equal(t, "analyzing", s.Thinking.Phase)
	assert.Equal(t, "code", s.Thinking.Subject)
	assert.False(t, s.Thinking.StartedAt.IsZero())

	// Empty subject keeps the previous one.
	s = Reduce(s, ThinkingUpdate{Phase: "planning"})
	assert.Equal(t, "planning", s.Thinking.Phase)
	assert.Equal(t, "code", s.Thinking.Subject)

	s = Reduce(s, ThinkingUpdate{Phase: "planning", Subject: "tests"})
	assert.Equal(t, "tests", s.Thinking.Subject)

	s = Reduce(s, ThinkingEnd{})
	assert.Equal(t, Thinking{Phase: "general"}, s.Thinking)
}

func TestReduce_Tool(t *testing.T) {
	s := Reduce(New(), ToolUpdate{Name: "bash", Status: "started"})
	assert.Equal(t, "bash", s.ToolName)

	s = Reduce(s, ToolUpdate{Name: "bash", Status: "finished"})
	assert.Empty(t, s.ToolName)
}

func TestReduce_CostAccumulates(t *testing.T) {
	s := Reduce(New(), CostDelta{USD: 0.25, InputTokens: 10, OutputTokens: 20})
	s = Reduce(s, CostDelta{USD: 0.75, InputTokens: 30, OutputTokens: 40})

	assert.InDelta(t, 1.0, s.Cost.TotalCostUSD, 1e-9)
	assert.Equal(t, uint64(40), s.Cost.TotalInputTokens)
	assert.Equal(t, uint64(60), s.Cost.TotalOutputTokens)
}

func TestReduce_ErrorLifecycle(t *testing.T) {
	s := Reduce(New(), SetError{Message: "rate limit"})
	assert.Equal(t, "rate limit", s.Error)

	s = Reduce(s, ClearError{})
	assert.Empty(t, s.Error)
}

func TestReduce_Diagnostic(t *testing.T) {
	s := Reduce(New(), SetDiagnostic{Message: "slow backend", Level: "warn"})
	assert.Equal(t, "slow backend", s.Diagnostic)

	s = Reduce(s, SetDiagnostic{Message: ""})
	assert.Empty(t, s.Diagnostic)
}

func TestReduce_SwitchingClearedByConnected(t *testing.T) {
	s := Reduce(New(), Switching{})
	assert.True(t, s.Switching)

	s = Reduce(s, connectedAction())
	assert.False(t, s.Switching)
}

func TestReduce_SessionTitleServerAuthority(t *testing.T) {
	s := Reduce(New(), connectedAction())

	// Mismatched-format IDs are why the flag, not the ID, decides.
	next := Reduce(s, SessionTitleUpdated{SessionID: "other", Title: "Renamed", IsCurrent: false})
	assert.Equal(t, "First chat", next.SessionTitle)

	next = Reduce(s, SessionTitleUpdated{SessionID: "other", Title: "Renamed", IsCurrent: true})
	assert.Equal(t, "Renamed", next.SessionTitle)
}

func TestReduce_SessionIDDiscoveredFirstWriterWins(t *testing.T) {
	s := Reduce(New(), SessionIDDiscovered{SessionID: "s1"})
	assert.Equal(t, "s1", s.SessionID)

	s = Reduce(s, SessionIDDiscovered{SessionID: "s2"})
	assert.Equal(t, "s1", s.SessionID)

	// Only an explicit connect replaces it.
	s = Reduce(s, connectedAction())
	assert.Equal(t, "sess-1", s.SessionID)
}

func TestReduce_InitializingAndStateDetail(t *testing.T) {
	s := Reduce(New(), Initializing{Detail: "loading model"})
	assert.Equal(t, "loading model", s.InitDetail)

	s = Reduce(s, StateUpdate{Detail: "warming caches"})
	assert.Equal(t, "warming caches", s.InitDetail)
}

func TestReduce_NeverMutatesInput(t *testing.T) {
	orig := Reduce(New(), connectedAction())
	snapshot := orig

	Reduce(orig, EngineStateChanged{State: "thinking"})
	Reduce(orig, ThinkingStart{Phase: "p", Subject: "s"})
	Reduce(orig, CostDelta{USD: 9, InputTokens: 9, OutputTokens: 9})
	Reduce(orig, Disconnected{})

	assert.Equal(t, snapshot, orig)
}
