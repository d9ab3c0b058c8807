package protocol

// Client → Server payloads.

type ChatPayload struct {
	Message     string   `json:"message"`
	Attachments []string `json:"attachments,omitempty"`
}

type SwitchPayload struct {
	Provider string            `json:"provider"`
	Model    string            `json:"model,omitempty"`
	Options  map[string]string `json:"options,omitempty"`
}

type PermissionResponsePayload struct {
	RequestID string `json:"request_id"`
	OptionID  string `json:"option_id"`
	Cancelled bool   `json:"cancelled"`
}

type ResumeSessionPayload struct {
	SessionID string `json:"session_id"`
}

// Outbound command builders. Each is a pure serialization function: typed
// parameters in, wire-ready message out. None of them touch connection or
// session state.

// NewChat builds a chat request. Attachments are server-issued file IDs
// from a prior upload.
func NewChat(message string, attachments []string) (*Message, error) {
	return NewMessage(TypeChat, ChatPayload{
		Message:     message,
		Attachments: attachments,
	})
}

// NewStop builds a request to interrupt the in-flight agent turn.
func NewStop() (*Message, error) {
	return NewMessage(TypeStop, struct{}{})
}

// NewSwitch builds a provider/model switch request.
func NewSwitch(provider, model string, options map[string]string) (*Message, error) {
	return NewMessage(TypeSwitch, SwitchPayload{
		Provider: provider,
		Model:    model,
		Options:  options,
	})
}

// NewPermissionResponse builds a reply to a server permission prompt.
func NewPermissionResponse(requestID, optionID string, cancelled bool) (*Message, error) {
	return NewMessage(TypePermissionResponse, PermissionResponsePayload{
		RequestID: requestID,
		OptionID:  optionID,
		Cancelled: cancelled,
	})
}

// NewResumeSession builds a request to resume a prior session by ID.
func NewResumeSession(sessionID string) (*Message, error) {
	return NewMessage(TypeResumeSession, ResumeSessionPayload{SessionID: sessionID})
}

// NewNewSession builds a request for a fresh session.
func NewNewSession() (*Message, error) {
	return NewMessage(TypeNewSession, struct{}{})
}

// NewClearHistory builds a request to clear the server-side transcript.
func NewClearHistory() (*Message, error) {
	return NewMessage(TypeClearHistory, struct{}{})
}

// NewPing builds a keepalive frame.
func NewPing() (*Message, error) {
	return NewMessage(TypePing, struct{}{})
}
