package permission

import "testing"

func TestStatic(t *testing.T) {
	for _, granted := range []bool{true, false} {
		p := Static{Granted: granted}
		if p.HasPermission(Camera) != granted {
			t.Errorf("HasPermission: got %v, want %v", !granted, granted)
		}

		calls := 0
		var got bool
		p.RequestPermission(Camera, func(g bool) {
			calls++
			got = g
		})
		if calls != 1 || got != granted {
			t.Errorf("RequestPermission: calls=%d got=%v, want 1/%v", calls, got, granted)
		}
	}
}

func TestManual_ResolveDeliversOnce(t *testing.T) {
	m := NewManual()
	if m.HasPermission(Camera) {
		t.Fatal("new provider should not grant camera")
	}

	calls := 0
	var got bool
	m.RequestPermission(Camera, func(g bool) {
		calls++
		got = g
	})
	if calls != 0 {
		t.Fatal("callback ran before Resolve")
	}
	if m.Pending(Camera) != 1 {
		t.Errorf("pending: got %d, want 1", m.Pending(Camera))
	}

	m.Resolve(Camera, true)
	m.Resolve(Camera, true)

	if calls != 1 {
		t.Errorf("callback ran %d times, want 1", calls)
	}
	if !got {
		t.Error("callback should receive grant")
	}
	if !m.HasPermission(Camera) {
		t.Error("camera should be granted after Resolve")
	}
	if m.Pending(Camera) != 0 {
		t.Error("pending requests should be cleared")
	}
}

func TestManual_Deny(t *testing.T) {
	m := NewManual()
	var answers []bool
	m.RequestPermission(Camera, func(g bool) { answers = append(answers, g) })
	m.RequestPermission(Camera, func(g bool) { answers = append(answers, g) })

	m.Resolve(Camera, false)

	if len(answers) != 2 || answers[0] || answers[1] {
		t.Errorf("answers: got %v, want [false false]", answers)
	}
	if m.HasPermission(Camera) {
		t.Error("denied capability should not be granted")
	}
}

func TestManual_AlreadyGranted(t *testing.T) {
	m := NewManual()
	m.Resolve(Camera, true)

	called := false
	m.RequestPermission(Camera, func(g bool) { called = g })
	if !called {
		t.Error("request for granted capability should answer immediately")
	}
}

func TestManual_NilCallback(t *testing.T) {
	m := NewManual()
	m.RequestPermission(Camera, nil)
	if m.Pending(Camera) != 0 {
		t.Error("nil callback should not be queued")
	}
}
