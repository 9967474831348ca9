package server

import (
	"encoding/json"
	"sync"
	"testing"
)

// fakeConn 记录所有出站帧的内存连接
type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
	code   int
}

func (f *fakeConn) Enqueue(b []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return false
	}
	f.frames = append(f.frames, append([]byte(nil), b...))
	return true
}

func (f *fakeConn) CloseWith(code int, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.code = code
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = nil
}

func (f *fakeConn) events(t *testing.T) []Envelope {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Envelope, 0, len(f.frames))
	for _, b := range f.frames {
		var env Envelope
		if err := json.Unmarshal(b, &env); err != nil {
			t.Fatalf("invalid frame %s: %v", b, err)
		}
		out = append(out, env)
	}
	return out
}

func (f *fakeConn) ofType(t *testing.T, typ string) []Envelope {
	t.Helper()
	var out []Envelope
	for _, env := range f.events(t) {
		if env.Type == typ {
			out = append(out, env)
		}
	}
	return out
}

func newTestRoom(t *testing.T, id string) *Room {
	t.Helper()
	r := NewRoom(id, NewSettings(DefaultConfig()), nil)
	r.Start()
	t.Cleanup(r.Stop)
	return r
}

func mustState(t *testing.T, raw string) State {
	t.Helper()
	var st State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		t.Fatalf("invalid state %s: %v", raw, err)
	}
	return st
}

func frame(t *testing.T, typ string, data any) []byte {
	t.Helper()
	var raw json.RawMessage
	switch v := data.(type) {
	case string:
		raw = json.RawMessage(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		raw = b
	}
	b, err := json.Marshal(Envelope{Type: typ, Data: raw})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return b
}

func assertJSONEqual(t *testing.T, got json.RawMessage, want string) {
	t.Helper()
	var g, w any
	if err := json.Unmarshal(got, &g); err != nil {
		t.Fatalf("invalid json %s: %v", got, err)
	}
	if err := json.Unmarshal([]byte(want), &w); err != nil {
		t.Fatalf("invalid json %s: %v", want, err)
	}
	gb, _ := json.Marshal(g)
	wb, _ := json.Marshal(w)
	if string(gb) != string(wb) {
		t.Fatalf("json mismatch:\n got  %s\n want %s", gb, wb)
	}
}
