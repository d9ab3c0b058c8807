package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message is the envelope for all WebSocket frames, symmetric in both
// directions: {"type": ..., "data": {...}}.
type Message struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a client-originated message with the current timestamp.
func NewMessage(msgType string, data interface{}) (*Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal data: %w", err)
	}
	return &Message{
		Type:      msgType,
		Data:      raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Decode parses a raw inbound frame. A frame without a type field is
// invalid; callers drop invalid frames rather than surfacing them.
func Decode(raw []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("missing 'type' field")
	}
	return &msg, nil
}

// Server → Client message types.
const (
	TypeConnected           = "connected"
	TypeInitializing        = "initializing"
	TypeState               = "state"
	TypeEngineState         = "engine_state"
	TypeThinking            = "thinking"
	TypeText                = "text"
	TypeTool                = "tool"
	TypeCost                = "cost"
	TypeError               = "error"
	TypeSessionTitleUpdated = "session_title_updated"
	TypeDiagnostic          = "diagnostic"
	TypeChatResponse        = "chat_response"
)

// Client → Server message types.
const (
	TypeChat               = "chat"
	TypeStop               = "stop"
	TypeSwitch             = "switch"
	TypePermissionResponse = "permission_response"
	TypeResumeSession      = "resume_session"
	TypeNewSession         = "new_session"
	TypeClearHistory       = "clear_history"
	TypePing               = "ping"
)

// Server → Client payloads.

type ConnectedPayload struct {
	SessionID    string          `json:"session_id"`
	SessionTitle string          `json:"session_title"`
	Provider     string          `json:"provider"`
	Model        string          `json:"model"`
	Version      string          `json:"version"`
	Cwd          string          `json:"cwd"`
	Capabilities map[string]bool `json:"capabilities"`
	EngineState  string          `json:"engine_state"`
	SafetyMode   string          `json:"safety_mode"`
}

type StatePayload struct {
	Detail string `json:"detail"`
}

type EngineStatePayload struct {
	State string `json:"state"`
}

type ThinkingPayload struct {
	IsStart    bool   `json:"is_start"`
	IsComplete bool   `json:"is_complete"`
	Phase      string `json:"phase"`
	Subject    string `json:"subject"`
}

type ToolPayload struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type CostPayload struct {
	TotalCostUSD float64 `json:"total_cost_usd"`
	InputTokens  uint64  `json:"input_tokens"`
	OutputTokens uint64  `json:"output_tokens"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

type SessionTitlePayload struct {
	SessionID        string `json:"session_id"`
	Title            string `json:"title"`
	IsCurrentSession bool   `json:"is_current_session"`
}

type DiagnosticPayload struct {
	Message string `json:"message"`
	Level   string `json:"level"`
}

type ChatResponsePayload struct {
	SessionID string `json:"session_id"`
	Error     string `json:"error"`
}
