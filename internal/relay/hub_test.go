package relay

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"go.uber.org/zap"

	"github.com/skillspace/skillspace/internal/models"
	"github.com/skillspace/skillspace/internal/storage"
	"github.com/skillspace/skillspace/protocol"
)

// newTestHub builds a hub over in-memory storage with the given users
// pre-created. User IDs are assigned in order starting at 1.
func newTestHub(t *testing.T, usernames ...string) (*Hub, *storage.MemoryStorage) {
	t.Helper()
	store := storage.NewMemoryStorage()
	for _, name := range usernames {
		if _, err := store.CreateUser(context.Background(), models.InsertUser{
			Username: name,
			Password: "secret",
		}); err != nil {
			t.Fatalf("CreateUser(%q): %v", name, err)
		}
	}
	return NewHub(store, nil, zap.NewNop()), store
}

// addConn registers a connection without a real socket. Outbound
// envelopes accumulate in the send channel.
func addConn(h *Hub, id string) *Client {
	c := &Client{ID: id, hub: h, send: make(chan []byte, 16)}
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	return c
}

func identify(t *testing.T, h *Hub, c *Client, userID int) {
	t.Helper()
	raw := []byte(`{"type":"identify","userId":` + strconv.Itoa(userID) + `}`)
	if err := h.dispatch(c, raw); err != nil {
		t.Fatalf("identify dispatch: %v", err)
	}
	drain(c) // identify_success
}

func drain(c *Client) (out [][]byte) {
	for {
		select {
		case data := <-c.send:
			out = append(out, data)
		default:
			return out
		}
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	h, _ := newTestHub(t)
	c := addConn(h, "c1")

	h.remove(c)
	if got := h.connectionCount(); got != 0 {
		t.Fatalf("connection count after close = %d, want 0", got)
	}

	// Second close of the same client must be a no-op.
	h.remove(c)
	if got := h.connectionCount(); got != 0 {
		t.Fatalf("connection count after double close = %d, want 0", got)
	}
}

func TestIdentifyBindsAndConfirms(t *testing.T) {
	h, _ := newTestHub(t, "alice")
	c := addConn(h, "c1")

	if err := h.dispatch(c, []byte(`{"type":"identify","userId":1}`)); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	msgs := drain(c)
	if len(msgs) != 1 {
		t.Fatalf("got %d envelopes, want 1 identify_success", len(msgs))
	}
	var notice protocol.ServerNotice
	if err := json.Unmarshal(msgs[0], &notice); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if notice.Type != protocol.EnvelopeIdentifySuccess {
		t.Errorf("type = %q, want identify_success", notice.Type)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.byUser[1]["c1"]; !ok {
		t.Error("connection not bound to user 1")
	}
}

func TestIdentifyAcceptsNumericString(t *testing.T) {
	h, _ := newTestHub(t, "alice")
	c := addConn(h, "c1")

	if err := h.dispatch(c, []byte(`{"type":"identify","userId":"1"}`)); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if msgs := drain(c); len(msgs) != 1 {
		t.Fatalf("got %d envelopes, want identify_success", len(msgs))
	}
}

func TestIdentifyUnknownUserIsGated(t *testing.T) {
	h, _ := newTestHub(t, "alice")
	c := addConn(h, "c1")

	err := h.dispatch(c, []byte(`{"type":"identify","userId":42}`))
	if !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("err = %v, want ErrUnknownUser", err)
	}
	if msgs := drain(c); len(msgs) != 0 {
		t.Errorf("got %d envelopes, want none (no identify_success)", len(msgs))
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if c.userID != 0 {
		t.Errorf("userID = %d, want unbound", c.userID)
	}
	if len(h.byUser) != 0 {
		t.Error("byUser index not empty")
	}
}

func TestReidentifyOverwritesBinding(t *testing.T) {
	h, _ := newTestHub(t, "alice", "bob")
	c := addConn(h, "c1")

	identify(t, h, c, 1)
	identify(t, h, c, 2)

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.byUser[1]; ok {
		t.Error("stale binding for user 1 survived re-identify")
	}
	if _, ok := h.byUser[2]["c1"]; !ok {
		t.Error("connection not bound to user 2")
	}
}

func TestNewMessageFanOut(t *testing.T) {
	h, _ := newTestHub(t, "alice", "bob", "carol")

	// Alice has two tabs, Bob one, Carol one.
	aliceTab1 := addConn(h, "a1")
	aliceTab2 := addConn(h, "a2")
	bob := addConn(h, "b1")
	carol := addConn(h, "c1")
	identify(t, h, aliceTab1, 1)
	identify(t, h, aliceTab2, 1)
	identify(t, h, bob, 2)
	identify(t, h, carol, 3)

	raw := []byte(`{"type":"new_message","message":{"listingId":1,"senderId":1,"receiverId":2,"message":"hi"}}`)
	if err := h.dispatch(aliceTab1, raw); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	for name, c := range map[string]*Client{"aliceTab1": aliceTab1, "aliceTab2": aliceTab2, "bob": bob} {
		msgs := drain(c)
		if len(msgs) != 1 {
			t.Fatalf("%s received %d envelopes, want 1", name, len(msgs))
		}
		var event protocol.MessageEvent
		if err := json.Unmarshal(msgs[0], &event); err != nil {
			t.Fatalf("%s: unmarshal: %v", name, err)
		}
		if event.Type != protocol.EnvelopeNewMessage {
			t.Errorf("%s: type = %q, want new_message", name, event.Type)
		}
		if event.Message.Message != "hi" || event.Message.SenderID != 1 || event.Message.ReceiverID != 2 {
			t.Errorf("%s: unexpected message payload: %+v", name, event.Message)
		}
		if event.Message.CreatedAtFormatted == "" {
			t.Errorf("%s: createdAtFormatted is empty", name)
		}
	}

	if msgs := drain(carol); len(msgs) != 0 {
		t.Errorf("carol received %d envelopes, want none", len(msgs))
	}
}

func TestNewMessageInvalidPayloadDropped(t *testing.T) {
	h, store := newTestHub(t, "alice", "bob")
	c := addConn(h, "c1")
	identify(t, h, c, 1)

	// receiverId missing
	err := h.dispatch(c, []byte(`{"type":"new_message","message":{"listingId":1,"senderId":1,"message":"hi"}}`))
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("err = %v, want ErrInvalidPayload", err)
	}
	if msgs := drain(c); len(msgs) != 0 {
		t.Errorf("sender received %d envelopes, want none", len(msgs))
	}

	stored, err := store.GetMessagesBetweenUsers(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("GetMessagesBetweenUsers: %v", err)
	}
	if len(stored) != 0 {
		t.Errorf("invalid payload was persisted: %+v", stored)
	}
}

func TestTypingNotEchoedToSender(t *testing.T) {
	h, _ := newTestHub(t, "alice", "bob")
	alice := addConn(h, "a1")
	aliceTab2 := addConn(h, "a2")
	bob := addConn(h, "b1")
	identify(t, h, alice, 1)
	identify(t, h, aliceTab2, 1)
	identify(t, h, bob, 2)

	if err := h.dispatch(alice, []byte(`{"type":"typing","senderId":1,"receiverId":2}`)); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	msgs := drain(bob)
	if len(msgs) != 1 {
		t.Fatalf("receiver got %d envelopes, want 1", len(msgs))
	}
	var event protocol.TypingEvent
	if err := json.Unmarshal(msgs[0], &event); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if event.Type != protocol.EnvelopeUserTyping || event.SenderID != 1 {
		t.Errorf("got %+v, want user_typing from sender 1", event)
	}

	if msgs := drain(alice); len(msgs) != 0 {
		t.Errorf("sender tab 1 got %d envelopes, want none", len(msgs))
	}
	if msgs := drain(aliceTab2); len(msgs) != 0 {
		t.Errorf("sender tab 2 got %d envelopes, want none", len(msgs))
	}
}

func TestCallSignalPassThrough(t *testing.T) {
	h, _ := newTestHub(t, "alice", "bob")
	alice := addConn(h, "a1")
	bob := addConn(h, "b1")
	identify(t, h, alice, 1)
	identify(t, h, bob, 2)

	raw := []byte(`{"type":"video_call_offer","from":1,"to":2,"signal":{"type":"offer","sdp":"v=0\r\no=- 4611686018427387904 2 IN IP4 127.0.0.1\r\n"}}`)
	if err := h.dispatch(alice, raw); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	msgs := drain(bob)
	if len(msgs) != 1 {
		t.Fatalf("receiver got %d envelopes, want 1", len(msgs))
	}
	// The envelope must arrive exactly as sent: same bytes, so the
	// opaque signal blob cannot have been touched.
	if string(msgs[0]) != string(raw) {
		t.Errorf("relayed envelope was modified:\n got %s\nwant %s", msgs[0], raw)
	}
}

func TestCallSignalNoRecipientIsNoOp(t *testing.T) {
	h, _ := newTestHub(t, "alice", "bob")
	alice := addConn(h, "a1")
	identify(t, h, alice, 1)

	// Nobody is identified as user 2.
	err := h.dispatch(alice, []byte(`{"type":"video_call_request","from":1,"to":2}`))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if msgs := drain(alice); len(msgs) != 0 {
		t.Errorf("caller got %d envelopes, want none", len(msgs))
	}
}

func TestMalformedEnvelopeKeepsConnectionUsable(t *testing.T) {
	h, _ := newTestHub(t, "alice")
	c := addConn(h, "c1")

	err := h.dispatch(c, []byte(`{not json`))
	if !errors.Is(err, ErrMalformedEnvelope) {
		t.Fatalf("err = %v, want ErrMalformedEnvelope", err)
	}

	// A well-formed envelope afterwards is still processed.
	if err := h.dispatch(c, []byte(`{"type":"identify","userId":1}`)); err != nil {
		t.Fatalf("dispatch after malformed input: %v", err)
	}
	if msgs := drain(c); len(msgs) != 1 {
		t.Errorf("got %d envelopes after recovery, want 1", len(msgs))
	}
}

func TestUnknownTypeDropped(t *testing.T) {
	h, _ := newTestHub(t, "alice")
	c := addConn(h, "c1")

	err := h.dispatch(c, []byte(`{"type":"presence_subscribe"}`))
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("err = %v, want ErrUnknownType", err)
	}
	if err := h.dispatch(c, []byte(`{"userId":1}`)); !errors.Is(err, ErrMalformedEnvelope) {
		t.Fatalf("missing type: err = %v, want ErrMalformedEnvelope", err)
	}
}

func TestPerSocketOrderPreserved(t *testing.T) {
	h, store := newTestHub(t, "alice", "bob")
	c := addConn(h, "c1")
	identify(t, h, c, 1)

	for _, text := range []string{"first", "second", "third"} {
		raw, _ := json.Marshal(map[string]interface{}{
			"type": "new_message",
			"message": map[string]interface{}{
				"listingId": 1, "senderId": 1, "receiverId": 2, "message": text,
			},
		})
		if err := h.dispatch(c, raw); err != nil {
			t.Fatalf("dispatch %q: %v", text, err)
		}
	}

	stored, err := store.GetMessagesBetweenUsers(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("GetMessagesBetweenUsers: %v", err)
	}
	want := []string{"first", "second", "third"}
	if len(stored) != len(want) {
		t.Fatalf("stored %d messages, want %d", len(stored), len(want))
	}
	for i, m := range stored {
		if m.Message != want[i] {
			t.Errorf("message[%d] = %q, want %q", i, m.Message, want[i])
		}
		if m.ID != i+1 {
			t.Errorf("message[%d].ID = %d, want %d (insertion order)", i, m.ID, i+1)
		}
	}
}

// failingStore simulates an unavailable backend.
type failingStore struct{ err error }

func (s failingStore) UserExists(context.Context, int) (bool, error) { return false, s.err }
func (s failingStore) CreateMessage(context.Context, models.InsertMessage) (*models.SkillMessage, error) {
	return nil, s.err
}

func TestStoreFailureSurfacesAsErrorKind(t *testing.T) {
	h := NewHub(failingStore{err: errors.New("backend down")}, nil, zap.NewNop())
	c := addConn(h, "c1")

	if err := h.dispatch(c, []byte(`{"type":"identify","userId":1}`)); !errors.Is(err, ErrStoreFailure) {
		t.Errorf("identify err = %v, want ErrStoreFailure", err)
	}
	raw := []byte(`{"type":"new_message","message":{"listingId":1,"senderId":1,"receiverId":2,"message":"hi"}}`)
	if err := h.dispatch(c, raw); !errors.Is(err, ErrStoreFailure) {
		t.Errorf("new_message err = %v, want ErrStoreFailure", err)
	}
	if msgs := drain(c); len(msgs) != 0 {
		t.Errorf("got %d envelopes, want none (failures are silent on the wire)", len(msgs))
	}
}
