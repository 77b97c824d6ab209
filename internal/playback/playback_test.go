package playback

import "testing"

func TestSingleActivePlayer(t *testing.T) {
	c := NewCoordinator()
	ids := []string{"a", "b", "c"}

	c.SetActive("a")

	playing := 0
	for _, id := range ids {
		if c.StateOf(id) == Playing {
			playing++
		}
	}
	if playing != 1 {
		t.Fatalf("playing items = %d, want 1", playing)
	}

	// Switching active pauses the old item immediately.
	c.SetActive("b")
	if c.StateOf("a") != Suspended {
		t.Errorf("previous item = %v, want Suspended", c.StateOf("a"))
	}
	if c.StateOf("b") != Playing {
		t.Errorf("new item = %v, want Playing", c.StateOf("b"))
	}

	playing = 0
	for _, id := range ids {
		if c.StateOf(id) == Playing {
			playing++
		}
	}
	if playing != 1 {
		t.Errorf("playing items after switch = %d, want 1", playing)
	}
}

func TestVisibilityForcesPauseKeepsIntent(t *testing.T) {
	c := NewCoordinator()
	c.SetActive("a")

	if c.StateOf("a") != Playing {
		t.Fatalf("state = %v, want Playing", c.StateOf("a"))
	}

	// Drop below the 50% threshold: paused, but intent survives.
	c.VisibilityChanged(0.4)
	if c.StateOf("a") != Paused {
		t.Errorf("state at 40%% visibility = %v, want Paused", c.StateOf("a"))
	}
	if !c.WantPlaying() {
		t.Error("visibility pause must not clear the play intent")
	}

	// Back into view: resumes automatically.
	c.VisibilityChanged(0.9)
	if c.StateOf("a") != Playing {
		t.Errorf("state back in view = %v, want Playing", c.StateOf("a"))
	}
}

func TestVisibilityThresholdBoundary(t *testing.T) {
	c := NewCoordinator()
	c.SetActive("a")

	c.VisibilityChanged(0.5)
	if c.StateOf("a") != Playing {
		t.Errorf("state at exactly 50%% = %v, want Playing", c.StateOf("a"))
	}
	c.VisibilityChanged(0.49)
	if c.StateOf("a") != Paused {
		t.Errorf("state just under 50%% = %v, want Paused", c.StateOf("a"))
	}
}

func TestTogglePlayAffectsCurrentOnly(t *testing.T) {
	c := NewCoordinator()
	c.SetActive("a")

	c.TogglePlay()
	if c.StateOf("a") != Paused {
		t.Errorf("state after toggle = %v, want Paused", c.StateOf("a"))
	}
	if c.StateOf("b") != Suspended {
		t.Errorf("other item = %v, want Suspended untouched", c.StateOf("b"))
	}

	c.TogglePlay()
	if c.StateOf("a") != Playing {
		t.Errorf("state after second toggle = %v, want Playing", c.StateOf("a"))
	}
}

func TestPausedIntentSurvivesItemSwitch(t *testing.T) {
	c := NewCoordinator()
	c.SetActive("a")
	c.TogglePlay() // viewer paused

	c.SetActive("b")
	if c.StateOf("b") != Paused {
		t.Errorf("new item = %v, want Paused while intent is off", c.StateOf("b"))
	}
}

func TestMuteIsSessionWide(t *testing.T) {
	c := NewCoordinator()
	c.SetActive("a")

	if c.ToggleMute() != true || !c.Muted() {
		t.Fatal("mute toggle failed")
	}

	// Mute follows the session across items.
	c.SetActive("b")
	if !c.Muted() {
		t.Error("mute must survive item changes")
	}
}

func TestRateValidation(t *testing.T) {
	c := NewCoordinator()
	c.SetRate(2.0)
	if c.Rate() != 2.0 {
		t.Errorf("rate = %v, want 2.0", c.Rate())
	}
	c.SetRate(0)
	c.SetRate(-1)
	if c.Rate() != 2.0 {
		t.Errorf("invalid rates should be ignored, rate = %v", c.Rate())
	}
}

func TestVisibilityClamped(t *testing.T) {
	c := NewCoordinator()
	c.SetActive("a")

	c.VisibilityChanged(-0.5)
	if c.StateOf("a") != Paused {
		t.Errorf("state = %v, want Paused at clamped 0", c.StateOf("a"))
	}
	c.VisibilityChanged(3.0)
	if c.StateOf("a") != Playing {
		t.Errorf("state = %v, want Playing at clamped 1", c.StateOf("a"))
	}
}
