package notice

import "testing"

func TestBoardDrain(t *testing.T) {
	b := NewBoard(nil)
	b.Push(Error, "Please select a patient")
	b.Push(Success, "done")

	got := b.Drain()
	if len(got) != 2 || got[0].Level != Error || got[1].Message != "done" {
		t.Fatalf("unexpected notices: %+v", got)
	}
	if again := b.Drain(); len(again) != 0 {
		t.Errorf("expected empty board after drain, got %+v", again)
	}
}

func TestSignalCoalesces(t *testing.T) {
	s := NewSignal()
	s.Fire()
	s.Fire()
	s.Fire()

	<-s.C()
	select {
	case <-s.C():
		t.Error("signal should coalesce pending fires")
	default:
	}
}
