package state

// Action is an input to the reducer. Variants are closed over by the
// marker method so the reducer switch is exhaustive by construction.
type Action interface {
	isAction()
}

// Connected carries the server handshake. It replaces session identity
// wholesale and is the only action allowed to overwrite SessionID.
type Connected struct {
	SessionID    string
	SessionTitle string
	Provider     string
	Model        string
	Version      string
	Cwd          string
	Capabilities map[string]bool
	Engine       string
	SafetyMode   string
}

// Disconnected marks transport loss. Session identity and cost survive.
type Disconnected struct{}

// Initializing signals provider startup, with an optional progress detail.
type Initializing struct {
	Detail string
}

// StateUpdate carries a transient init/progress detail string.
type StateUpdate struct {
	Detail string
}

// EngineStateChanged carries the raw wire value; the reducer rejects
// values outside the known set.
type EngineStateChanged struct {
	State string
}

// ThinkingStart opens a reasoning sub-state.
type ThinkingStart struct {
	Phase   string
	Subject string
}

// ThinkingUpdate merges into an open reasoning sub-state. An empty
// Subject keeps the previous one.
type ThinkingUpdate struct {
	Phase   string
	Subject string
}

// ThinkingEnd resets thinking to the canonical cleared shape.
type ThinkingEnd struct{}

// ToolUpdate tracks the in-flight tool invocation by name.
type ToolUpdate struct {
	Name   string
	Status string
}

// CostDelta adds usage to the accumulated totals.
type CostDelta struct {
	USD          float64
	InputTokens  uint64
	OutputTokens uint64
}

// SetError surfaces a protocol-level error message.
type SetError struct {
	Message string
}

// ClearError removes a surfaced error.
type ClearError struct{}

// SetDiagnostic stores a diagnostic message; an empty message clears it.
type SetDiagnostic struct {
	Message string
	Level   string
}

// Switching marks a provider/session change in progress until the next
// Connected.
type Switching struct{}

// SessionTitleUpdated applies a title only when the server says it belongs
// to the current session.
type SessionTitleUpdated struct {
	SessionID string
	Title     string
	IsCurrent bool
}

// SessionIDDiscovered records a session id revealed after connect, for
// providers that omit it in the handshake. First writer wins.
type SessionIDDiscovered struct {
	SessionID string
}

func (Connected) isAction()           {}
func (Disconnected) isAction()        {}
func (Initializing) isAction()        {}
func (StateUpdate) isAction()         {}
func (EngineStateChanged) isAction()  {}
func (ThinkingStart) isAction()       {}
func (ThinkingUpdate) isAction()      {}
func (ThinkingEnd) isAction()         {}
func (ToolUpdate) isAction()          {}
func (CostDelta) isAction()           {}
func (SetError) isAction()            {}
func (ClearError) isAction()          {}
func (SetDiagnostic) isAction()       {}
func (Switching) isAction()           {}
func (SessionTitleUpdated) isAction() {}
func (SessionIDDiscovered) isAction() {}
