package countdown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tarn/irriga/internal/device"
)

var base = time.Date(2026, 6, 15, 8, 0, 0, 0, time.UTC)

func TestProjection_TicksLocallyBetweenCaptures(t *testing.T) {
	p := New(90*time.Second, 10*time.Minute, base)

	assert.Equal(t, 90*time.Second, p.Remaining(base))
	assert.Equal(t, 60*time.Second, p.Remaining(base.Add(30*time.Second)))
	assert.Equal(t, time.Duration(0), p.Remaining(base.Add(5*time.Minute)),
		"remaining never goes negative")
	assert.False(t, p.Estimated())
}

func TestProjection_CaptureCorrectsDrift(t *testing.T) {
	p := New(90*time.Second, 10*time.Minute, base)

	// The panel drifted to 60s locally; the controller says 75s. The
	// report wins outright.
	later := base.Add(30 * time.Second)
	p.Capture(75*time.Second, 10*time.Minute, later)
	assert.Equal(t, 75*time.Second, p.Remaining(later))
}

func TestProjection_FallbackTotalIsEstimated(t *testing.T) {
	p := New(4*time.Minute, 0, base)

	assert.True(t, p.Estimated())
	assert.Equal(t, DefaultTotalEstimate, p.Total())

	// A report beyond the fallback stretches the total so percent stays
	// in range.
	p.Capture(15*time.Minute, 0, base)
	assert.True(t, p.Estimated())
	assert.Equal(t, 15*time.Minute, p.Total())
	assert.Equal(t, float64(0), p.Percent(base))
}

func TestProjection_PercentBounds(t *testing.T) {
	p := New(5*time.Minute, 10*time.Minute, base)

	assert.InDelta(t, 50, p.Percent(base), 0.01)
	assert.InDelta(t, 75, p.Percent(base.Add(150*time.Second)), 0.01)
	assert.Equal(t, float64(100), p.Percent(base.Add(time.Hour)))
}

func TestProjection_Clock(t *testing.T) {
	p := New(90*time.Second, 10*time.Minute, base)
	assert.Equal(t, "01:30", p.Clock(base))
	assert.Equal(t, "00:05", p.Clock(base.Add(85*time.Second)))
	assert.Equal(t, "00:00", p.Clock(base.Add(time.Hour)))
}

func TestProjection_ExpiresExactlyOnce(t *testing.T) {
	p := New(10*time.Second, time.Minute, base)

	assert.False(t, p.Expired(base), "not expired while running")
	assert.False(t, p.Expired(base.Add(9*time.Second)))

	done := base.Add(11 * time.Second)
	assert.True(t, p.Expired(done), "first check at zero fires")
	assert.False(t, p.Expired(done), "second check must not fire again")
	assert.False(t, p.Expired(done.Add(time.Minute)))
}

func TestProjection_CaptureRearmsExpiry(t *testing.T) {
	p := New(time.Second, time.Minute, base)

	fired := base.Add(2 * time.Second)
	assert.True(t, p.Expired(fired))

	// The controller reports the zone running again (a new manual start).
	p.Capture(30*time.Second, time.Minute, fired)
	assert.False(t, p.Expired(fired))
	assert.True(t, p.Expired(fired.Add(31*time.Second)), "re-armed signal fires once more")
}

func TestProjection_FromZoneReport(t *testing.T) {
	// A controller report of 30 remaining seconds ticks down locally to
	// zero with a single expiry signal.
	zone := device.ZoneStatus{ID: 1, Name: "Lawn", Active: true, RemainingTime: 30}
	p := New(zone.Remaining(), 0, base)

	assert.Equal(t, "00:30", p.Clock(base))
	assert.Equal(t, "00:15", p.Clock(base.Add(15*time.Second)))
	assert.Equal(t, "00:00", p.Clock(base.Add(31*time.Second)))

	fired := 0
	for _, offset := range []time.Duration{29, 30, 31, 60} {
		if p.Expired(base.Add(offset * time.Second)) {
			fired++
		}
	}
	assert.Equal(t, 1, fired, "expiry must signal exactly once")
}

func TestProjection_NegativeReportClamps(t *testing.T) {
	p := New(-5*time.Second, 0, base)
	assert.Equal(t, time.Duration(0), p.Remaining(base))
	assert.True(t, p.Expired(base))
}
