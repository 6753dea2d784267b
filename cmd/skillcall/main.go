// Skillcall — terminal demo client for the SkillSpace relay.
//
// It connects to the relay, identifies as a user, and either places a
// call to a peer user or waits for one. The call itself is a WebRTC
// data channel; the relay only carries the offer/answer envelopes.
//
//	skillcall -server ws://localhost:8080/ws -user 7 -peer 9   # caller
//	skillcall -server ws://localhost:8080/ws -user 9           # callee
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pterm/pterm"

	"github.com/skillspace/skillspace/client"
	"github.com/skillspace/skillspace/protocol"
)

func main() {
	server := flag.String("server", "ws://localhost:8080/ws", "Relay WebSocket URL")
	user := flag.Int("user", 0, "Your user ID")
	peerID := flag.Int("peer", 0, "Peer user ID to call (omit to wait for a call)")
	flag.Parse()

	if *user <= 0 {
		pterm.Error.Println("missing or invalid -user")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c, err := client.Dial(ctx, *server, *user, client.Options{})
	if err != nil {
		pterm.Error.Printfln("connect: %v", err)
		os.Exit(1)
	}
	defer c.Close()

	c.On(protocol.EnvelopeIdentifySuccess, func([]byte) {
		pterm.Success.Printfln("Identified as user %d", *user)
	})

	if *peerID > 0 {
		runCaller(ctx, c, *user, *peerID)
	} else {
		runCallee(ctx, c, *user)
	}
}

func runCaller(ctx context.Context, c *client.Client, user, peerID int) {
	peer, err := client.NewPeer(true)
	if err != nil {
		pterm.Error.Printfln("create peer: %v", err)
		return
	}
	defer peer.Close()

	wireDataChannel(peer, true)

	c.On(protocol.EnvelopeVideoCallAccepted, func([]byte) {
		pterm.Info.Printfln("User %d accepted, sending offer...", peerID)
		go func() {
			offerCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			signal, err := peer.Offer(offerCtx)
			if err != nil {
				pterm.Error.Printfln("create offer: %v", err)
				return
			}
			c.Send(protocol.Envelope{
				Type:   protocol.EnvelopeVideoCallOffer,
				From:   user,
				To:     peerID,
				Signal: signal,
			})
		}()
	})

	c.On(protocol.EnvelopeVideoCallAnswer, func(data []byte) {
		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return
		}
		if err := peer.Accept(env.Signal); err != nil {
			pterm.Error.Printfln("accept answer: %v", err)
		}
	})

	c.On(protocol.EnvelopeVideoCallEnd, func([]byte) {
		pterm.Info.Println("Peer ended the call")
	})

	pterm.Info.Printfln("Calling user %d...", peerID)
	c.Send(protocol.Envelope{
		Type: protocol.EnvelopeVideoCallRequest,
		From: user,
		To:   peerID,
	})

	<-ctx.Done()
	c.Send(protocol.Envelope{Type: protocol.EnvelopeVideoCallEnd, From: user, To: peerID})
}

func runCallee(ctx context.Context, c *client.Client, user int) {
	var peer *client.Peer

	c.On(protocol.EnvelopeVideoCallRequest, func(data []byte) {
		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return
		}
		pterm.Info.Printfln("Incoming call from user %d, accepting", env.From)
		c.Send(protocol.Envelope{
			Type: protocol.EnvelopeVideoCallAccepted,
			From: user,
			To:   env.From,
		})
	})

	c.On(protocol.EnvelopeVideoCallOffer, func(data []byte) {
		var env protocol.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return
		}
		go func() {
			p, err := client.NewPeer(false)
			if err != nil {
				pterm.Error.Printfln("create peer: %v", err)
				return
			}
			peer = p
			wireDataChannel(p, false)

			answerCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			signal, err := p.Answer(answerCtx, env.Signal)
			if err != nil {
				pterm.Error.Printfln("create answer: %v", err)
				return
			}
			c.Send(protocol.Envelope{
				Type:   protocol.EnvelopeVideoCallAnswer,
				From:   user,
				To:     env.From,
				Signal: signal,
			})
		}()
	})

	c.On(protocol.EnvelopeVideoCallEnd, func([]byte) {
		pterm.Info.Println("Peer ended the call")
	})

	pterm.Info.Printfln("Waiting for calls as user %d (Ctrl+C to quit)", user)
	<-ctx.Done()
	if peer != nil {
		peer.Close()
	}
}

func wireDataChannel(peer *client.Peer, initiator bool) {
	peer.OnOpen(func(dc *webrtc.DataChannel) {
		pterm.Success.Println("Call connected (data channel open)")
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			pterm.Info.Printfln("peer: %s", string(msg.Data))
		})
		if initiator {
			dc.SendText("ping")
		}
	})
}
