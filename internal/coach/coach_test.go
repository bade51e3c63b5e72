package coach

import (
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/verte-zerg/neurocursor/internal/model"
)

var epoch = time.Unix(1_700_000_000, 0)

type fixedChooser int

func (f fixedChooser) Choose(n int) int {
	return int(f) % n
}

func at(offset time.Duration) time.Time {
	return epoch.Add(offset)
}

func TestEnteringHighSpeaksAndRequestsReset(t *testing.T) {
	m := NewMachine(fixedChooser(1))
	m.Step(model.StressLow, 90, false, at(0))
	d := m.Step(model.StressHigh, 40, false, at(time.Second))
	if d.Theme != ThemeHighStress || !d.RequestReset || !d.Transition {
		t.Fatalf("unexpected decision: %+v", d)
	}
	if d.Line != Lines(ThemeHighStress)[1] {
		t.Fatalf("expected the chooser's line, got %q", d.Line)
	}
	if !m.Timeline().LastSpokenAt.Equal(at(time.Second)) {
		t.Fatalf("expected lastSpokenAt to be updated")
	}
}

func TestEntryCooldownSuppressesSecondSpike(t *testing.T) {
	m := NewMachine(fixedChooser(0))
	m.Step(model.StressLow, 90, false, at(0))
	m.Step(model.StressHigh, 40, false, at(time.Second))
	m.Step(model.StressLow, 90, false, at(10*time.Second))
	if d := m.Step(model.StressHigh, 40, false, at(20*time.Second)); d.Spoke() {
		t.Fatalf("expected silence inside the cooldown, got %+v", d)
	}
	m.Step(model.StressLow, 90, false, at(30*time.Second))
	if d := m.Step(model.StressHigh, 40, false, at(46*time.Second)); d.Theme != ThemeHighStress {
		t.Fatalf("expected the cooldown to have expired, got %+v", d)
	}
}

func TestRecoveryNeedsHighDwell(t *testing.T) {
	m := NewMachine(fixedChooser(0))
	m.Step(model.StressHigh, 40, false, at(0))
	// The first HIGH sample is a LOW->HIGH transition and speaks.
	if d := m.Step(model.StressLow, 90, false, at(50*time.Second)); d.Theme != ThemeRecovery {
		t.Fatalf("expected recovery after a long HIGH stretch, got %+v", d)
	}

	short := NewMachine(fixedChooser(0))
	short.Step(model.StressLow, 90, false, at(0))
	short.Step(model.StressHigh, 40, false, at(100*time.Second))
	short.Step(model.StressLow, 90, false, at(105*time.Second))
	short.Step(model.StressHigh, 40, false, at(200*time.Second))
	if d := short.Step(model.StressLow, 90, false, at(210*time.Second)); d.Spoke() {
		t.Fatalf("expected no recovery after a 10s spike, got %+v", d)
	}
}

func TestSustainedHighRepeatsWithRestartedDwell(t *testing.T) {
	m := NewMachine(fixedChooser(0))
	m.Step(model.StressLow, 90, false, at(0))
	m.Step(model.StressHigh, 40, false, at(time.Second))
	if d := m.Step(model.StressHigh, 40, false, at(100*time.Second)); d.Spoke() {
		t.Fatalf("dwell not reached yet, got %+v", d)
	}
	d := m.Step(model.StressHigh, 40, false, at(121*time.Second))
	if d.Theme != ThemeHighStress || !d.RequestReset || d.Transition {
		t.Fatalf("expected sustained high line, got %+v", d)
	}
	if !m.Timeline().StateEnteredAt.Equal(at(121 * time.Second)) {
		t.Fatalf("expected dwell to restart")
	}
	if d := m.Step(model.StressHigh, 40, false, at(200*time.Second)); d.Spoke() {
		t.Fatalf("expected restarted dwell to hold, got %+v", d)
	}
}

func TestCalmFocusAfterLongLowStretch(t *testing.T) {
	m := NewMachine(fixedChooser(2))
	m.Step(model.StressLow, 90, false, at(0))
	if d := m.Step(model.StressLow, 60, false, at(130*time.Second)); d.Spoke() {
		t.Fatalf("light focus must not trigger calm praise, got %+v", d)
	}
	d := m.Step(model.StressLow, 90, false, at(131*time.Second))
	if d.Theme != ThemeCalmFocus || d.RequestReset {
		t.Fatalf("expected calm focus line, got %+v", d)
	}
	if d.Line != Lines(ThemeCalmFocus)[2] {
		t.Fatalf("unexpected line %q", d.Line)
	}
}

func TestIdleOnlyTracksLevel(t *testing.T) {
	m := NewMachine(fixedChooser(0))
	m.Step(model.StressLow, 90, false, at(0))
	if d := m.Step(model.StressHigh, 40, true, at(time.Second)); d.Spoke() || d.RequestReset {
		t.Fatalf("idle step must be silent, got %+v", d)
	}
	tl := m.Timeline()
	if tl.PreviousLevel != model.StressHigh {
		t.Fatalf("expected previous level to follow the idle sample")
	}
	if !tl.StateEnteredAt.Equal(at(0)) {
		t.Fatalf("idle transition must not be timestamped")
	}
	if d := m.Step(model.StressHigh, 40, false, at(2*time.Second)); d.Transition {
		t.Fatalf("HIGH after idle HIGH is not a transition")
	}
}

func TestArbiterAcceptsAndCountsDown(t *testing.T) {
	a := NewArbiter(0, 0)
	if got := a.Request(at(0), false); got != Accepted {
		t.Fatalf("expected acceptance, got %s", got)
	}
	if got := a.Request(at(time.Second), false); got != RefusedActive {
		t.Fatalf("expected active refusal, got %s", got)
	}
	state, ended := a.Advance(at(1500 * time.Millisecond))
	if ended || state.Remaining != 59 {
		t.Fatalf("unexpected countdown state %+v/%v", state, ended)
	}
	state, ended = a.Advance(at(60 * time.Second))
	if !ended || state.Active {
		t.Fatalf("expected the countdown to end, got %+v/%v", state, ended)
	}
	if _, ended := a.Advance(at(61 * time.Second)); ended {
		t.Fatalf("a finished reset must not end twice")
	}
}

func TestArbiterRefusesWhileIdleWithoutSpendingCooldown(t *testing.T) {
	a := NewArbiter(0, 0)
	if got := a.Request(at(0), true); got != RefusedIdle {
		t.Fatalf("expected idle refusal, got %s", got)
	}
	if got := a.Request(at(time.Second), false); got != Accepted {
		t.Fatalf("idle refusal must not consume the cooldown, got %s", got)
	}
}

func TestArbiterCooldownAfterSkip(t *testing.T) {
	a := NewArbiter(0, 0)
	a.Request(at(0), false)
	if !a.Skip() {
		t.Fatalf("expected skip to end the reset")
	}
	if a.Skip() {
		t.Fatalf("skip without an active reset must be a no-op")
	}
	if got := a.Request(at(4*time.Minute+59*time.Second), false); got != RefusedCooldown {
		t.Fatalf("expected cooldown refusal, got %s", got)
	}
	if got := a.Request(at(5*time.Minute+time.Second), false); got != Accepted {
		t.Fatalf("expected acceptance after the cooldown, got %s", got)
	}
}

func TestArbiterSpacingUnderTriggerStorm(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := NewArbiter(0, 0)
		now := epoch
		var accepted []time.Time
		steps := rapid.IntRange(1, 400).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			now = now.Add(time.Duration(rapid.Int64Range(0, 30_000).Draw(t, "gap_ms")) * time.Millisecond)
			switch rapid.IntRange(0, 3).Draw(t, "action") {
			case 0:
				a.Skip()
			case 1:
				a.Advance(now)
			default:
				idle := rapid.Bool().Draw(t, "idle")
				if a.Request(now, idle) == Accepted {
					accepted = append(accepted, now)
				}
			}
		}
		for i := 1; i < len(accepted); i++ {
			if gap := accepted[i].Sub(accepted[i-1]); gap < DefaultResetCooldown {
				t.Fatalf("resets accepted %v apart", gap)
			}
		}
	})
}

func TestRandomChooserStaysInRange(t *testing.T) {
	r := NewRandom(42)
	for i := 0; i < 100; i++ {
		if idx := r.Choose(3); idx < 0 || idx >= 3 {
			t.Fatalf("index out of range: %d", idx)
		}
	}
	if idx := r.Choose(0); idx != 0 {
		t.Fatalf("empty range must yield 0, got %d", idx)
	}
}

func TestPickTipFollowsLevel(t *testing.T) {
	if tip := PickTip(fixedChooser(3), model.StressHigh); tip != Tips(model.StressHigh)[3] {
		t.Fatalf("unexpected high-stress tip %+v", tip)
	}
	if tip := PickTip(fixedChooser(0), model.StressLow); tip != DefaultTip() {
		t.Fatalf("unexpected calm tip %+v", tip)
	}
}

func TestCalibrationPrompt(t *testing.T) {
	if CalibrationPrompt(false) == CalibrationPrompt(true) {
		t.Fatalf("expected distinct start and recalibration prompts")
	}
}
