package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/skillspace/skillspace/internal/models"
	"github.com/skillspace/skillspace/protocol"
)

// Dispatch error kinds. None of these ever reaches the wire: the
// protocol answers failures with silence. They exist so callers and
// tests can observe why an envelope was dropped.
var (
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrUnknownType       = errors.New("unknown envelope type")
	ErrInvalidPayload    = errors.New("invalid payload")
	ErrUnknownUser       = errors.New("unknown user")
	ErrStoreFailure      = errors.New("store failure")
)

// dispatch routes one inbound envelope. It runs synchronously on the
// sender's read loop, which preserves per-socket ordering of effects.
func (h *Hub) dispatch(c *Client, raw []byte) error {
	var env protocol.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Type == "" {
		return fmt.Errorf("%w: missing type", ErrMalformedEnvelope)
	}

	switch {
	case env.Type == protocol.EnvelopeIdentify:
		return h.handleIdentify(c, env)
	case env.Type == protocol.EnvelopeNewMessage:
		return h.handleNewMessage(c, env)
	case env.Type == protocol.EnvelopeTyping:
		return h.handleTyping(c, env)
	case env.Type.IsCallSignal():
		return h.relayCallSignal(c, env, raw)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

// handleIdentify resolves the candidate user ID against the store and,
// on success, binds it to this connection and confirms on the same
// socket only. An unknown or unparseable ID is silently ignored: the
// client simply never sees identify_success.
func (h *Hub) handleIdentify(c *Client, env protocol.Envelope) error {
	userID := env.UserID.Int()
	if userID <= 0 {
		return fmt.Errorf("%w: identify without usable userId", ErrInvalidPayload)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	exists, err := h.store.UserExists(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: user lookup: %v", ErrStoreFailure, err)
	}
	if !exists {
		return fmt.Errorf("%w: id %d", ErrUnknownUser, userID)
	}

	h.bind(c, userID)
	h.log.Info("client identified",
		zap.String("clientId", c.ID), zap.Int("userId", userID))

	c.sendJSON(protocol.ServerNotice{
		Type:    protocol.EnvelopeIdentifySuccess,
		Message: "User identified successfully",
	})
	return nil
}

// handleNewMessage validates and persists the chat message, then fans
// the stored record out to every connection bound to the sender or the
// receiver, so both parties and all of their open tabs observe it.
func (h *Hub) handleNewMessage(c *Client, env protocol.Envelope) error {
	if len(env.Message) == 0 {
		return fmt.Errorf("%w: new_message without message", ErrInvalidPayload)
	}

	var insert models.InsertMessage
	if err := json.Unmarshal(env.Message, &insert); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if !insert.Valid() {
		return fmt.Errorf("%w: missing required message fields", ErrInvalidPayload)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	stored, err := h.store.CreateMessage(ctx, insert)
	if err != nil {
		return fmt.Errorf("%w: persist message: %v", ErrStoreFailure, err)
	}

	data, err := json.Marshal(protocol.MessageEvent{
		Type:    protocol.EnvelopeNewMessage,
		Message: wireMessage(*stored),
	})
	if err != nil {
		return fmt.Errorf("marshal message event: %w", err)
	}

	h.fanOut(data, stored.SenderID, stored.ReceiverID)
	return nil
}

// handleTyping relays a typing indicator to the receiver's connections.
// It is never echoed to the sender and never persisted.
func (h *Hub) handleTyping(_ *Client, env protocol.Envelope) error {
	if env.SenderID <= 0 || env.ReceiverID <= 0 {
		return fmt.Errorf("%w: typing without sender/receiver", ErrInvalidPayload)
	}

	data, err := json.Marshal(protocol.TypingEvent{
		Type:     protocol.EnvelopeUserTyping,
		SenderID: env.SenderID,
	})
	if err != nil {
		return fmt.Errorf("marshal typing event: %w", err)
	}

	h.fanOut(data, env.ReceiverID)
	return nil
}

// relayCallSignal forwards a call envelope to the target's connections
// without touching it: the original bytes are relayed, so the opaque
// signal blob arrives exactly as sent. Call state lives on the clients;
// a target with no bound connections makes this a no-op.
func (h *Hub) relayCallSignal(_ *Client, env protocol.Envelope, raw []byte) error {
	if env.To <= 0 {
		return fmt.Errorf("%w: %s without target", ErrInvalidPayload, env.Type)
	}

	h.fanOut(raw, env.To)
	return nil
}

func wireMessage(m models.SkillMessage) protocol.Message {
	return protocol.Message{
		ID:                 m.ID,
		ListingID:          m.ListingID,
		SenderID:           m.SenderID,
		ReceiverID:         m.ReceiverID,
		Message:            m.Message,
		CreatedAt:          m.CreatedAt,
		CreatedAtFormatted: models.FormatRelativeTime(m.CreatedAt),
		Read:               m.Read,
	}
}
