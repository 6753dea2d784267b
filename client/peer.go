package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pion/webrtc/v4"
)

// STUN servers for ICE candidate gathering. Media and data flow
// peer-to-peer once signaling completes; the relay carries only the
// session descriptions produced here.
var stunServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

// Peer wraps a WebRTC peer connection for one call. Signaling is
// non-trickle: each side waits for ICE gathering to complete and ships
// a single complete session description as the opaque signal blob.
type Peer struct {
	pc        *webrtc.PeerConnection
	dc        *webrtc.DataChannel
	initiator bool
}

// NewPeer creates a peer connection configured with public STUN servers.
// The initiator side also opens the call data channel.
func NewPeer(initiator bool) (*Peer, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{{URLs: stunServers}},
	})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	p := &Peer{pc: pc, initiator: initiator}
	if initiator {
		dc, err := pc.CreateDataChannel("call", nil)
		if err != nil {
			pc.Close()
			return nil, fmt.Errorf("create data channel: %w", err)
		}
		p.dc = dc
	}
	return p, nil
}

// Offer produces the complete local offer as a signal blob. Initiator only.
func (p *Peer) Offer(ctx context.Context) (json.RawMessage, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}
	return p.finishDescription(ctx, offer)
}

// Answer consumes the remote offer blob and produces the complete local
// answer blob. Callee only.
func (p *Peer) Answer(ctx context.Context, offer json.RawMessage) (json.RawMessage, error) {
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(offer, &desc); err != nil {
		return nil, fmt.Errorf("decode offer: %w", err)
	}
	if err := p.pc.SetRemoteDescription(desc); err != nil {
		return nil, fmt.Errorf("set remote description: %w", err)
	}

	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("create answer: %w", err)
	}
	return p.finishDescription(ctx, answer)
}

// Accept consumes the remote answer blob. Initiator only.
func (p *Peer) Accept(answer json.RawMessage) error {
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(answer, &desc); err != nil {
		return fmt.Errorf("decode answer: %w", err)
	}
	if err := p.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	return nil
}

// finishDescription sets the local description and waits for ICE
// gathering to complete so the blob carries every candidate.
func (p *Peer) finishDescription(ctx context.Context, desc webrtc.SessionDescription) (json.RawMessage, error) {
	gatherDone := webrtc.GatheringCompletePromise(p.pc)
	if err := p.pc.SetLocalDescription(desc); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}

	select {
	case <-gatherDone:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	blob, err := json.Marshal(p.pc.LocalDescription())
	if err != nil {
		return nil, fmt.Errorf("encode description: %w", err)
	}
	return blob, nil
}

// OnOpen runs fn once the call data channel is open, on either side.
func (p *Peer) OnOpen(fn func(*webrtc.DataChannel)) {
	if p.initiator {
		p.dc.OnOpen(func() { fn(p.dc) })
		return
	}
	p.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		p.dc = dc
		dc.OnOpen(func() { fn(dc) })
	})
}

// Close tears the peer connection down.
func (p *Peer) Close() error {
	return p.pc.Close()
}
