package server

import "testing"

func TestRegistryJoinLookupLeave(t *testing.T) {
	reg := NewRegistry("default")

	if got := reg.Join("a", "r1"); got != "r1" {
		t.Fatalf("expected r1, got %q", got)
	}
	if got := reg.Join("b", ""); got != "default" {
		t.Fatalf("expected default room, got %q", got)
	}
	if room, ok := reg.Lookup("a"); !ok || room != "r1" {
		t.Fatalf("lookup a: %q %t", room, ok)
	}
	if reg.Count() != 2 {
		t.Fatalf("expected 2 connections, got %d", reg.Count())
	}

	if room, ok := reg.Leave("a"); !ok || room != "r1" {
		t.Fatalf("leave a: %q %t", room, ok)
	}
	if _, ok := reg.Leave("a"); ok {
		t.Fatalf("second leave must be a no-op")
	}
	if _, ok := reg.Lookup("a"); ok {
		t.Fatalf("a must be gone")
	}
	if reg.Count() != 1 {
		t.Fatalf("expected 1 connection, got %d", reg.Count())
	}
}

func TestRegistryEmptyDefaultRoom(t *testing.T) {
	reg := NewRegistry("")
	if got := reg.Join("a", ""); got != "default" {
		t.Fatalf("expected default, got %q", got)
	}
}
