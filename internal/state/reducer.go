package state

import "time"

// Reduce applies one action to the session state and returns the next
// state. It is a total function: unknown actions and invalid payloads
// return the input unchanged. SessionState is passed and returned by
// value, so the caller's copy is never mutated.
func Reduce(s SessionState, a Action) SessionState {
	switch act := a.(type) {
	case Connected:
		s.Connected = true
		s.WasConnected = true
		s.Switching = false
		s.InitDetail = ""
		s.SessionID = act.SessionID
		s.SessionTitle = act.SessionTitle
		s.Provider = act.Provider
		s.Model = act.Model
		s.Version = act.Version
		s.Cwd = act.Cwd
		s.Capabilities = act.Capabilities
		if es, ok := ParseEngineState(act.Engine); ok {
			s.Engine = es
		} else {
			s.Engine = EngineIdle
		}
		if act.SafetyMode == "" {
			s.SafetyMode = SafetySafe
		} else {
			s.SafetyMode = SafetyMode(act.SafetyMode)
		}
		s.Error = ""

	case Disconnected:
		s.Connected = false
		s.Engine = EngineIdle

	case Initializing:
		s.InitDetail = act.Detail

	case StateUpdate:
		s.InitDetail = act.Detail

	case EngineStateChanged:
		// Unknown values are a protocol violation. The supervisor logs
		// them; the state machine refuses to absorb them.
		es, ok := ParseEngineState(act.State)
		if !ok {
			return s
		}
		s.Engine = es

	case ThinkingStart:
		s.Thinking = Thinking{
			Active:    true,
			Phase:     act.Phase,
			Subject:   act.Subject,
			StartedAt: time.Now().UTC(),
		}

	case ThinkingUpdate:
		if act.Phase != "" {
			s.Thinking.Phase = act.Phase
		}
		// Never regress the subject to blank mid-thought.
		if act.Subject != "" {
			s.Thinking.Subject = act.Subject
		}

	case ThinkingEnd:
		s.Thinking = clearedThinking()

	case ToolUpdate:
		if act.Status == "started" {
			s.ToolName = act.Name
		} else {
			s.ToolName = ""
		}

	case CostDelta:
		s.Cost.TotalCostUSD += act.USD
		s.Cost.TotalInputTokens += act.InputTokens
		s.Cost.TotalOutputTokens += act.OutputTokens

	case SetError:
		s.Error = act.Message

	case ClearError:
		s.Error = ""

	case SetDiagnostic:
		s.Diagnostic = act.Message

	case Switching:
		s.Switching = true

	case SessionTitleUpdated:
		// The server is the sole authority on title/session correspondence.
		if act.IsCurrent {
			s.SessionTitle = act.Title
		}

	case SessionIDDiscovered:
		if s.SessionID == "" {
			s.SessionID = act.SessionID
		}
	}

	return s
}
