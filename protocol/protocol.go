// Package protocol defines the JSON envelopes exchanged over the relay
// WebSocket. It is shared by the server and the Go client.
package protocol

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// EnvelopeType is the discriminator of a WebSocket envelope.
type EnvelopeType string

const (
	EnvelopeConnected         EnvelopeType = "connected"
	EnvelopeIdentify          EnvelopeType = "identify"
	EnvelopeIdentifySuccess   EnvelopeType = "identify_success"
	EnvelopeNewMessage        EnvelopeType = "new_message"
	EnvelopeTyping            EnvelopeType = "typing"
	EnvelopeUserTyping        EnvelopeType = "user_typing"
	EnvelopeVideoCallRequest  EnvelopeType = "video_call_request"
	EnvelopeVideoCallOffer    EnvelopeType = "video_call_offer"
	EnvelopeVideoCallAnswer   EnvelopeType = "video_call_answer"
	EnvelopeVideoCallAccepted EnvelopeType = "video_call_accepted"
	EnvelopeVideoCallEnd      EnvelopeType = "video_call_end"
)

// Call signaling envelopes drive a state machine that lives entirely on
// the two clients; the server relays them without tracking call state.
// The expected progression on each side is
//
//	idle -> ringing    caller sends video_call_request
//	ringing -> connecting    callee replies video_call_accepted, then the
//	                         offer/answer pair is exchanged
//	connecting -> active     both descriptions applied, media flows p2p
//	any -> ended             either side sends video_call_end
//
// Because the relay keeps no call state, a client that reconnects
// mid-call may observe duplicate or stale signaling envelopes and must
// tolerate them.

// IsCallSignal reports whether t is one of the pass-through call
// signaling types. Their payloads are relayed without interpretation.
func (t EnvelopeType) IsCallSignal() bool {
	switch t {
	case EnvelopeVideoCallRequest, EnvelopeVideoCallOffer,
		EnvelopeVideoCallAnswer, EnvelopeVideoCallAccepted,
		EnvelopeVideoCallEnd:
		return true
	}
	return false
}

// Envelope is the inbound wire format. Only the fields relevant to the
// declared Type are expected to be set; Message and Signal stay raw so
// the relay can validate or pass them through untouched.
type Envelope struct {
	Type       EnvelopeType    `json:"type"`
	UserID     FlexID          `json:"userId,omitempty"`
	Message    json.RawMessage `json:"message,omitempty"`
	SenderID   int             `json:"senderId,omitempty"`
	ReceiverID int             `json:"receiverId,omitempty"`
	From       int             `json:"from,omitempty"`
	To         int             `json:"to,omitempty"`
	Signal     json.RawMessage `json:"signal,omitempty"`
}

// ServerNotice is a server-to-client envelope carrying only a human
// readable confirmation (connected, identify_success).
type ServerNotice struct {
	Type    EnvelopeType `json:"type"`
	Message string       `json:"message"`
}

// Message is a persisted chat message as it appears on the wire.
type Message struct {
	ID                 int       `json:"id"`
	ListingID          int       `json:"listingId"`
	SenderID           int       `json:"senderId"`
	ReceiverID         int       `json:"receiverId"`
	Message            string    `json:"message"`
	CreatedAt          time.Time `json:"createdAt"`
	CreatedAtFormatted string    `json:"createdAtFormatted"`
	Read               bool      `json:"read"`
}

// MessageEvent wraps a persisted chat message for fan-out.
type MessageEvent struct {
	Type    EnvelopeType `json:"type"`
	Message Message      `json:"message"`
}

// TypingEvent tells a receiver that someone is composing a message.
type TypingEvent struct {
	Type     EnvelopeType `json:"type"`
	SenderID int          `json:"senderId"`
}

// FlexID is a user identifier that tolerates being sent either as a
// JSON number or as a numeric string. Zero means absent/unparseable.
type FlexID int

func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	n, err := strconv.Atoi(string(data))
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexID(n)
	return nil
}

func (f FlexID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(f))), nil
}

func (f FlexID) Int() int { return int(f) }
