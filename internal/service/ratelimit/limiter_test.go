package ratelimit

import "testing"

func TestAllow_ExhaustsBucket(t *testing.T) {
	l := New()

	for i := 0; i < 3; i++ {
		if !l.Allow("a", 3, 0) {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	if l.Allow("a", 3, 0) {
		t.Error("expected bucket to be empty after capacity requests")
	}
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	l := New()

	if !l.Allow("a", 1, 0) {
		t.Fatal("first request for a should be allowed")
	}
	if l.Allow("a", 1, 0) {
		t.Error("second request for a should be denied")
	}
	if !l.Allow("b", 1, 0) {
		t.Error("request for b should not be affected by a")
	}
}
