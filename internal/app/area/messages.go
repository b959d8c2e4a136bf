package area

// Message types broadcast by the core. Payloads are plain data; the transport
// layer decides their wire form.
const (
	MsgPhase           = "phase"
	MsgPhasePaused     = "phase_paused"
	MsgPhaseResumed    = "phase_resumed"
	MsgResponseRequest = "response_request"
	MsgAreaClosed      = "area_closed"
)

// PhasePayload describes the current position of an area's timeline.
type PhasePayload struct {
	Area        string `json:"area"`
	Phase       any    `json:"phase"`
	DurationMs  int64  `json:"durationMs"`
	RemainingMs int64  `json:"remainingMs"`
	Paused      bool   `json:"paused"`
}

// ResponseRequestPayload asks every occupant to answer for Type.
type ResponseRequestPayload struct {
	Area      string `json:"area"`
	Type      string `json:"type"`
	TimeoutMs int64  `json:"timeoutMs"`
}

// AreaClosedPayload notifies occupants and observers that the area is gone.
type AreaClosedPayload struct {
	Area   string `json:"area"`
	Reason string `json:"reason"`
}
