package gauge

import (
	"math"
	"testing"
	"time"

	"pgregory.net/rapid"
)

func TestShieldStartsAt85(t *testing.T) {
	if hp := NewShield(DefaultShieldStart).HP(); hp != 85 {
		t.Fatalf("expected 85, got %v", hp)
	}
	if hp := NewShield(250).HP(); hp != 100 {
		t.Fatalf("expected start to clamp to 100, got %v", hp)
	}
}

func TestShieldDynamics(t *testing.T) {
	calm := NewShield(50)
	// Zero stress regenerates 18 HP per minute.
	if hp := calm.Update(0, time.Minute); math.Abs(hp-68) > 1e-9 {
		t.Fatalf("expected 68 after a calm minute, got %v", hp)
	}
	tense := NewShield(50)
	// Full stress drains 26 HP per minute.
	if hp := tense.Update(100, time.Minute); math.Abs(hp-24) > 1e-9 {
		t.Fatalf("expected 24 after a tense minute, got %v", hp)
	}
	if hp := tense.Update(100, time.Hour); hp != 0 {
		t.Fatalf("expected shield to bottom out at 0, got %v", hp)
	}
	if hp := tense.Update(100, time.Second); hp != 0 {
		t.Fatalf("an empty shield keeps tracking at 0, got %v", hp)
	}
}

func TestShieldIgnoresNegativeDelta(t *testing.T) {
	s := NewShield(40)
	if hp := s.Update(0, -time.Minute); hp != 40 {
		t.Fatalf("expected no change, got %v", hp)
	}
}

func TestChargeTriggersOncePerCrossing(t *testing.T) {
	c := NewCharge()
	// 0.012/s at zero stress: 82 seconds reach 0.984.
	if v, fired := c.Update(0, 82*time.Second); fired || math.Abs(v-0.984) > 1e-9 {
		t.Fatalf("unexpected state %v/%v", v, fired)
	}
	v, fired := c.Update(0, time.Second)
	if !fired || v != 0 {
		t.Fatalf("expected trigger and reset, got %v/%v", v, fired)
	}
	if _, fired := c.Update(0, time.Second); fired {
		t.Fatalf("expected no second trigger without refilling")
	}
}

func TestChargeRateGrowsWithStress(t *testing.T) {
	if r := Rate(0); r != 0.012 {
		t.Fatalf("unexpected base rate %v", r)
	}
	if r := Rate(100); math.Abs(r-0.057) > 1e-12 {
		t.Fatalf("unexpected stressed rate %v", r)
	}
}

func TestSecondsToNextBreak(t *testing.T) {
	c := NewCharge()
	c.Update(100, 0)
	want := 1 / 0.057
	if got := c.SecondsToNextBreak(); math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got := c.SecondsToNextBreakAt(0); math.Abs(got-1/0.012) > 1e-9 {
		t.Fatalf("unexpected estimate %v", got)
	}
}

func TestGaugesStayBounded(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		shield := NewShield(rapid.Float64Range(-50, 150).Draw(t, "start"))
		charge := NewCharge()
		steps := rapid.IntRange(1, 300).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			stress := rapid.Float64Range(-20, 120).Draw(t, "stress")
			dt := time.Duration(rapid.Int64Range(-10_000, 600_000).Draw(t, "dt_ms")) * time.Millisecond
			hp := shield.Update(stress, dt)
			if hp < 0 || hp > 100 {
				t.Fatalf("shield out of range: %v", hp)
			}
			v, fired := charge.Update(stress, dt)
			if v < 0 || v > 1 {
				t.Fatalf("charge out of range: %v", v)
			}
			if fired && v != 0 {
				t.Fatalf("charge must empty on trigger, got %v", v)
			}
			if v >= TriggerLevel {
				t.Fatalf("charge left at or above trigger level: %v", v)
			}
		}
	})
}
