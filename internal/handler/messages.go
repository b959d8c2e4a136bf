package handler

import "hzarena/internal/app/user"

// Inbound message types.
const (
	InJoin      = "join"
	InLeave     = "leave"
	InObserve   = "observe"
	InUnobserve = "unobserve"
	InChat      = "chat"
	InRespond   = "respond"
	InAway      = "away"
	InDeafen    = "deafen"
	InEnterRoom = "enter_room"
	InReady     = "ready_check"
)

// Outbound message types, in addition to those broadcast by the area engine.
const (
	MsgWelcome        = "welcome"
	MsgError          = "error"
	MsgJoined         = "joined"
	MsgLeft           = "left"
	MsgObserving      = "observing"
	MsgOccupantJoined = "occupant_joined"
	MsgOccupantLeft   = "occupant_left"
	MsgOccupantState  = "occupant_state"
	MsgChat           = "chat"
	MsgRoomEntered    = "room_entered"
	MsgReadyResult    = "ready_result"
)

// ReadyResponseType is the response type occupants answer during a ready check.
const ReadyResponseType = "ready"

// maxChatRunes bounds the text of a chat message.
const maxChatRunes = 2000

type AreaRequest struct {
	Area     string `json:"area"`
	Password string `json:"password,omitempty"`
}

type ChatRequest struct {
	Text string `json:"text"`
}

type RespondRequest struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

type AwayRequest struct {
	Away bool `json:"away"`
}

type DeafenRequest struct {
	Deafened bool `json:"deafened"`
}

type EnterRoomRequest struct {
	// Room is a sub-room title; empty returns to the area itself.
	Room string `json:"room"`
}

type WelcomePayload struct {
	Identity user.Identity `json:"identity"`
	Resumed  bool          `json:"resumed"`
	Area     *AreaInfo     `json:"area,omitempty"`
}

type OccupantPayload struct {
	Area     string       `json:"area"`
	Occupant OccupantInfo `json:"occupant"`
}

type ChatPayload struct {
	Area string `json:"area"`
	Room string `json:"room,omitempty"`
	From string `json:"from"`
	Text string `json:"text"`
}

type ReadyResultPayload struct {
	Area  string `json:"area"`
	Ready bool   `json:"ready"`
}
