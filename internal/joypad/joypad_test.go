package joypad

import "testing"

func TestJoypad_ActionAndDirectionMultiplex(t *testing.T) {
	j := New()
	j.SetState(A) // A pressed, nothing else

	j.WriteP1(0x10) // P15=0 selects the action buttons
	if got := j.ReadP1(); got != 0xDD {
		t.Fatalf("action row: got %#02x want 0xDD", got)
	}

	j.WriteP1(0x20) // P14=0 selects the D-Pad
	if got := j.ReadP1(); got != 0xEF {
		t.Fatalf("direction row: got %#02x want 0xEF", got)
	}
}

func TestJoypad_NothingPressed(t *testing.T) {
	j := New()
	j.WriteP1(0x00)
	if got := j.ReadP1(); got != 0xCF {
		t.Fatalf("got %#02x want 0xCF", got)
	}
}

func TestJoypad_FallingEdgeReportsIRQ(t *testing.T) {
	j := New()
	j.WriteP1(0x10) // select action row; nothing pressed yet
	if edge := j.SetState(A); !edge {
		t.Fatalf("expected falling edge when A becomes pressed while selected")
	}
	if edge := j.SetState(A); edge {
		t.Fatalf("no edge expected when state doesn't change")
	}
}
