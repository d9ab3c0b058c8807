package state

import (
	"encoding/json"

	"agentchat/internal/protocol"
)

// ParseResult is the classification of one inbound frame. Action may be
// nil (frame dropped or forward-only). ResetFence tells the caller to
// clear the error fence before any compound handling.
type ParseResult struct {
	Action     Action
	ResetFence bool
}

// fenceSuppressed is the set of message types dropped while the error
// fence is active. error and connected are deliberately absent: an error
// arriving mid-fence must still surface, and a fresh connect always takes
// priority.
var fenceSuppressed = map[string]bool{
	protocol.TypeEngineState:  true,
	protocol.TypeThinking:     true,
	protocol.TypeText:         true,
	protocol.TypeTool:         true,
	protocol.TypeChatResponse: true,
}

// Parse classifies one decoded frame into zero or one action. It is pure:
// the only state it consults is the fence flag passed by the caller.
//
// While fenced, a chat_response lifts the fence but produces no action;
// the caller owns the idle-reset compound that must fire exactly once per
// chat_response, so this function never emits it on either path.
func Parse(msg *protocol.Message, errorFenced bool) ParseResult {
	if errorFenced && fenceSuppressed[msg.Type] {
		if msg.Type == protocol.TypeChatResponse {
			return ParseResult{ResetFence: true}
		}
		return ParseResult{}
	}

	switch msg.Type {
	case protocol.TypeConnected:
		var p protocol.ConnectedPayload
		unmarshalData(msg.Data, &p)
		return ParseResult{
			Action: Connected{
				SessionID:    p.SessionID,
				SessionTitle: p.SessionTitle,
				Provider:     p.Provider,
				Model:        p.Model,
				Version:      p.Version,
				Cwd:          p.Cwd,
				Capabilities: p.Capabilities,
				Engine:       p.EngineState,
				SafetyMode:   p.SafetyMode,
			},
			ResetFence: true,
		}

	case protocol.TypeInitializing:
		var p protocol.StatePayload
		unmarshalData(msg.Data, &p)
		return ParseResult{Action: Initializing{Detail: p.Detail}}

	case protocol.TypeState:
		var p protocol.StatePayload
		unmarshalData(msg.Data, &p)
		if p.Detail == "" {
			return ParseResult{}
		}
		return ParseResult{Action: StateUpdate{Detail: p.Detail}}

	case protocol.TypeEngineState:
		var p protocol.EngineStatePayload
		unmarshalData(msg.Data, &p)
		return ParseResult{Action: EngineStateChanged{State: p.State}}

	case protocol.TypeThinking:
		var p protocol.ThinkingPayload
		unmarshalData(msg.Data, &p)
		// Completion beats start beats update: a server could set both flags.
		switch {
		case p.IsComplete:
			return ParseResult{Action: ThinkingEnd{}}
		case p.IsStart:
			return ParseResult{Action: ThinkingStart{Phase: p.Phase, Subject: p.Subject}}
		default:
			return ParseResult{Action: ThinkingUpdate{Phase: p.Phase, Subject: p.Subject}}
		}

	case protocol.TypeTool:
		var p protocol.ToolPayload
		unmarshalData(msg.Data, &p)
		if p.Status == "" {
			p.Status = "started"
		}
		return ParseResult{Action: ToolUpdate{Name: p.Name, Status: p.Status}}

	case protocol.TypeCost:
		var p protocol.CostPayload
		unmarshalData(msg.Data, &p)
		return ParseResult{Action: CostDelta{
			USD:          p.TotalCostUSD,
			InputTokens:  p.InputTokens,
			OutputTokens: p.OutputTokens,
		}}

	case protocol.TypeError:
		// The fence itself is not set here: fence activation belongs to the
		// caller, which pairs it with the idle-reset compound.
		var p protocol.ErrorPayload
		unmarshalData(msg.Data, &p)
		return ParseResult{Action: SetError{Message: p.Error}}

	case protocol.TypeSessionTitleUpdated:
		var p protocol.SessionTitlePayload
		unmarshalData(msg.Data, &p)
		return ParseResult{Action: SessionTitleUpdated{
			SessionID: p.SessionID,
			Title:     p.Title,
			IsCurrent: p.IsCurrentSession,
		}}

	case protocol.TypeDiagnostic:
		var p protocol.DiagnosticPayload
		unmarshalData(msg.Data, &p)
		if p.Message == "" {
			return ParseResult{}
		}
		return ParseResult{Action: SetDiagnostic{Message: p.Message, Level: p.Level}}

	case protocol.TypeChatResponse:
		var p protocol.ChatResponsePayload
		unmarshalData(msg.Data, &p)
		if p.SessionID == "" {
			return ParseResult{}
		}
		return ParseResult{Action: SessionIDDiscovered{SessionID: p.SessionID}}
	}

	// Unclassified types (including text) are forward-only.
	return ParseResult{}
}

// unmarshalData decodes a payload defensively: missing or malformed data
// leaves the target at its zero value.
func unmarshalData(data json.RawMessage, v interface{}) {
	if len(data) == 0 {
		return
	}
	_ = json.Unmarshal(data, v)
}
