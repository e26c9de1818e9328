package fwupdate

import "testing"

func TestCanTransitionAllowsDocumentedEdges(t *testing.T) {
	cases := []struct {
		from, to State
		want     bool
	}{
		{StateIdle, StateLearnComponents, true},
		{StateLearnComponents, StateReadyXfer, true},
		{StateReadyXfer, StateDownload, true},
		{StateDownload, StateVerify, true},
		{StateVerify, StateApply, true},
		{StateApply, StateReadyXfer, true},
		{StateReadyXfer, StateActivate, true},
		{StateActivate, StateIdle, false},
		{StateIdle, StateDownload, false},
		{StateVerify, StateDownload, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%v,%v)=%v want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestCancelUpdateComponentTargetOnlyFromDownloadVerifyApply(t *testing.T) {
	for _, s := range []State{StateDownload, StateVerify, StateApply} {
		if target, ok := CancelUpdateComponentTarget(s); !ok || target != StateReadyXfer {
			t.Errorf("from %v: got target=%v ok=%v", s, target, ok)
		}
	}
	for _, s := range []State{StateIdle, StateLearnComponents, StateReadyXfer, StateActivate} {
		if _, ok := CancelUpdateComponentTarget(s); ok {
			t.Errorf("from %v: expected no-op", s)
		}
	}
}

func TestCancelUpdateTargetHarmlessFromIdleAndActivate(t *testing.T) {
	for _, s := range []State{StateIdle, StateActivate} {
		if _, ok := CancelUpdateTarget(s); ok {
			t.Errorf("from %v: expected harmless no-op", s)
		}
	}
	for _, s := range []State{StateLearnComponents, StateReadyXfer, StateDownload, StateVerify, StateApply} {
		if target, ok := CancelUpdateTarget(s); !ok || target != StateIdle {
			t.Errorf("from %v: got target=%v ok=%v", s, target, ok)
		}
	}
}
