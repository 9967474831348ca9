package server

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"type":"update","data":{"health":3}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.Type != EventUpdate {
		t.Fatalf("unexpected type %q", env.Type)
	}
	assertJSONEqual(t, env.Data, `{"health":3}`)

	for _, raw := range []string{`not json`, `{"data":{}}`, `[]`} {
		_, err := DecodeEnvelope([]byte(raw))
		var perr *ProtocolError
		if !errors.As(err, &perr) || perr.Code != CodeBadFrame {
			t.Fatalf("%s: expected bad_frame, got %v", raw, err)
		}
	}
}

func TestParseUpdate(t *testing.T) {
	cases := []struct {
		name string
		data string
		ok   bool
	}{
		{"position array", `{"position":[1,0,0]}`, true},
		{"position object", `{"position":{"x":1,"y":2,"z":3}}`, true},
		{"full record", `{"rotationY":1.2,"animation":"Run","health":90,"deaths":1,"kills":2,"profile":{"name":"玩家1","color":"#a1b2c3"}}`, true},
		{"unknown fields kept", `{"weapon":"staff","buffs":[1,2]}`, true},
		{"explicit null", `{"animation":null}`, true},
		{"empty object", `{}`, true},
		{"short position", `{"position":[1,0]}`, false},
		{"partial position object", `{"position":{"x":1,"y":2}}`, false},
		{"string health", `{"health":"full"}`, false},
		{"numeric animation", `{"animation":3}`, false},
		{"bad color", `{"profile":{"name":"p","color":"red"}}`, false},
		{"not an object", `[1,2,3]`, false},
		{"null payload", `null`, false},
		{"missing payload", ``, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st, err := ParseUpdate(json.RawMessage(tc.data))
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok {
				var perr *ProtocolError
				if !errors.As(err, &perr) || perr.Code != CodeBadPayload || perr.Event != EventUpdate {
					t.Fatalf("expected bad_payload for update, got %v", err)
				}
				return
			}
			if st == nil {
				t.Fatalf("expected non-nil state")
			}
		})
	}
}

func TestParseBullet(t *testing.T) {
	valid := []string{
		`{"id":"bullet-1","position":{"x":0,"y":1,"z":0},"angle":1.57,"player":"player"}`,
		`{"id":42}`,
	}
	for _, raw := range valid {
		got, err := ParseBullet(json.RawMessage(raw))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", raw, err)
		}
		if string(got) != raw {
			t.Fatalf("bullet must be relayed verbatim, got %s", got)
		}
	}

	invalid := []string{`{}`, `{"id":""}`, `{"id":null}`, `{"id":{}}`, `{"id":"b","angle":"left"}`, `"b1"`}
	for _, raw := range invalid {
		if _, err := ParseBullet(json.RawMessage(raw)); err == nil {
			t.Fatalf("%s: expected error", raw)
		}
	}
}

func TestParseGhost(t *testing.T) {
	id, st, err := ParseGhost(EventGhostSpawn, json.RawMessage(`{"id":"g1","position":[0,0,5],"hp":10,"targetId":"abc"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "g1" || string(st["hp"]) != "10" {
		t.Fatalf("unexpected ghost %s %v", id, st)
	}

	_, _, err = ParseGhost(EventGhostUpdate, json.RawMessage(`{"id":"g1","rotation":[0,0,0,1],"vanishing":true,"animation":"Fly"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	invalid := []string{
		`{"hp":5}`,
		`{"id":""}`,
		`{"id":7}`,
		`{"id":"g1","rotation":[0,0,1]}`,
		`{"id":"g1","vanishing":"yes"}`,
		`{"id":"g1","hp":"lots"}`,
	}
	for _, raw := range invalid {
		_, _, err := ParseGhost(EventGhostUpdate, json.RawMessage(raw))
		var perr *ProtocolError
		if !errors.As(err, &perr) || perr.Event != EventGhostUpdate {
			t.Fatalf("%s: expected ghost_update protocol error, got %v", raw, err)
		}
	}
}

func TestParseGhostID(t *testing.T) {
	id, err := ParseGhostID(json.RawMessage(`"g1"`))
	if err != nil || id != "g1" {
		t.Fatalf("unexpected result %q %v", id, err)
	}
	for _, raw := range []string{`""`, `null`, `{"id":"g1"}`, `12`, ``} {
		if _, err := ParseGhostID(json.RawMessage(raw)); err == nil {
			t.Fatalf("%s: expected error", raw)
		}
	}
}

func TestEncodeEvent(t *testing.T) {
	b, err := encodeEvent(EventPlayerDisconnect, "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertJSONEqual(t, b, `{"type":"player_disconnect","data":"abc"}`)
}
