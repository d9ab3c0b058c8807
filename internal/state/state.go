package state

import "time"

// EngineState is the agent's current high-level activity. It is the single
// source of truth for "what is the agent doing right now".
type EngineState string

const (
	EngineIdle          EngineState = "idle"
	EngineThinking      EngineState = "thinking"
	EngineToolExecuting EngineState = "tool_executing"
	EngineResponding    EngineState = "responding"
	EngineError         EngineState = "error"
)

// ParseEngineState validates a wire value against the known engine states.
func ParseEngineState(s string) (EngineState, bool) {
	switch EngineState(s) {
	case EngineIdle, EngineThinking, EngineToolExecuting, EngineResponding, EngineError:
		return EngineState(s), true
	}
	return "", false
}

// SafetyMode controls how the backend gates tool permissions.
type SafetyMode string

const (
	SafetySafe         SafetyMode = "safe"
	SafetyAsk          SafetyMode = "ask"
	SafetyUnrestricted SafetyMode = "unrestricted"
)

// Thinking describes the agent's in-flight reasoning sub-state.
type Thinking struct {
	Active    bool
	Phase     string
	Subject   string
	StartedAt time.Time
}

// clearedThinking is the canonical "not thinking" shape.
func clearedThinking() Thinking {
	return Thinking{Phase: "general"}
}

// Cost accumulates usage totals for the lifetime of a connection. The
// reducer only ever adds to these fields.
type Cost struct {
	TotalCostUSD      float64
	TotalInputTokens  uint64
	TotalOutputTokens uint64
}

// SessionState is the full client-side view of the conversation session.
// It is replaced wholesale by the reducer, never mutated in place. Empty
// strings stand in for unset SessionID/SessionTitle/Error/Diagnostic.
type SessionState struct {
	Connected    bool
	WasConnected bool // latches true on first connect, survives reconnects

	SessionID    string
	SessionTitle string

	Provider     string
	Model        string
	Version      string
	Cwd          string
	Capabilities map[string]bool

	Engine     EngineState
	InitDetail string
	Switching  bool
	SafetyMode SafetyMode

	Thinking Thinking
	ToolName string
	Cost     Cost

	Error      string
	Diagnostic string
}

// New returns the initial session state used at client construction.
func New() SessionState {
	return SessionState{
		Engine:     EngineIdle,
		SafetyMode: SafetySafe,
		Thinking:   clearedThinking(),
	}
}
