package audio

import (
	"testing"
	"time"
)

// testParams mirrors the default 16 kHz policy: 1.5 s window, 1.0 s minimum,
// 800 ms debounce, 2.5 s stall, 200 ms overlap.
func testParams() Params {
	return Params{
		WindowSamples:  24000,
		MinSamples:     16000,
		OverlapSamples: 3200,
		Debounce:       800 * time.Millisecond,
		StallTimeout:   2500 * time.Millisecond,
	}
}

func TestReady_FullWindow(t *testing.T) {
	now := time.Now()
	b := NewBuffer(testParams(), now)

	b.Append(make([]float32, 24000))

	// A full window is ready immediately, regardless of elapsed time.
	if !b.Ready(now) {
		t.Error("Ready = false with a full window, want true")
	}
}

func TestReady_MinBacklogNeedsDebounce(t *testing.T) {
	now := time.Now()
	b := NewBuffer(testParams(), now)

	b.Append(make([]float32, 16000))

	if b.Ready(now.Add(500 * time.Millisecond)) {
		t.Error("Ready = true before the debounce interval, want false")
	}
	if !b.Ready(now.Add(900 * time.Millisecond)) {
		t.Error("Ready = false after the debounce interval, want true")
	}
}

func TestReady_StallTimeoutFlushesPartialBacklog(t *testing.T) {
	now := time.Now()
	b := NewBuffer(testParams(), now)

	// Far below the minimum: only the stall timeout can trigger a cycle.
	b.Append(make([]float32, 1000))

	if b.Ready(now.Add(2 * time.Second)) {
		t.Error("Ready = true before the stall timeout, want false")
	}
	if !b.Ready(now.Add(2600 * time.Millisecond)) {
		t.Error("Ready = false after the stall timeout with non-empty backlog, want true")
	}
}

func TestReady_EmptyBufferNeverReady(t *testing.T) {
	now := time.Now()
	b := NewBuffer(testParams(), now)

	if b.Ready(now.Add(time.Hour)) {
		t.Error("Ready = true on an empty buffer, want false")
	}
}

func TestStallTimeout_ExactlyOneCycle(t *testing.T) {
	now := time.Now()
	b := NewBuffer(testParams(), now)

	b.Append(make([]float32, 1000))

	deadline := now.Add(3 * time.Second)
	if !b.Ready(deadline) {
		t.Fatal("Ready = false after the stall timeout, want true")
	}

	window := b.Extract()
	if len(window) != 1000 {
		t.Fatalf("Extract returned %d samples, want the whole 1000-sample backlog", len(window))
	}
	b.Advance(len(window), deadline)

	// The partial backlog was fully consumed (consumed ≥ backlog empties the
	// buffer), so no second stall cycle fires.
	if b.Len() != 0 {
		t.Errorf("backlog = %d after consuming it entirely, want 0", b.Len())
	}
	if b.Ready(deadline.Add(3 * time.Second)) {
		t.Error("Ready = true on the emptied buffer, want false")
	}
}

func TestExtract_CapsAtWindowSize(t *testing.T) {
	now := time.Now()
	b := NewBuffer(testParams(), now)

	b.Append(make([]float32, 30000))

	window := b.Extract()
	if len(window) != 24000 {
		t.Errorf("Extract returned %d samples, want 24000", len(window))
	}
	// Extract must not consume: the backlog still holds everything.
	if b.Len() != 30000 {
		t.Errorf("backlog = %d after Extract, want 30000", b.Len())
	}
}

func TestAdvance_RetainsOverlapTail(t *testing.T) {
	now := time.Now()
	b := NewBuffer(testParams(), now)

	samples := make([]float32, 30000)
	for i := range samples {
		samples[i] = float32(i)
	}
	b.Append(samples)

	window := b.Extract()
	b.Advance(len(window), now)

	// 3200 overlap samples from the consumed tail plus the 6000 appended
	// beyond the window.
	if got, want := b.Len(), 3200+6000; got != want {
		t.Fatalf("backlog = %d after Advance, want %d", got, want)
	}

	// The retained region must start at sample 24000−3200.
	next := b.Extract()
	if next[0] != float32(24000-3200) {
		t.Errorf("retained backlog starts at sample %v, want %v", next[0], float32(24000-3200))
	}
}

func TestAdvance_ConsumedBeyondBacklogEmpties(t *testing.T) {
	now := time.Now()
	b := NewBuffer(testParams(), now)

	b.Append(make([]float32, 5000))
	b.Advance(10000, now)

	if b.Len() != 0 {
		t.Errorf("backlog = %d, want 0", b.Len())
	}
}

func TestAdvance_OverlapCappedByConsumed(t *testing.T) {
	now := time.Now()
	p := testParams()
	b := NewBuffer(p, now)

	// Consumed region smaller than the overlap: only the consumed samples
	// can be retained.
	b.Append(make([]float32, 2000))
	b.Append(make([]float32, 500))

	b.Advance(2000, now)

	if got, want := b.Len(), 2000+500; got != want {
		t.Errorf("backlog = %d, want %d (entire consumed region retained plus remainder)", got, want)
	}
}

func TestAdvance_UpdatesLastProcessed(t *testing.T) {
	now := time.Now()
	b := NewBuffer(testParams(), now)

	later := now.Add(time.Second)
	b.Advance(0, later)

	if !b.LastProcessed().Equal(later) {
		t.Errorf("LastProcessed = %v, want %v", b.LastProcessed(), later)
	}
}

func TestSamplesForMs(t *testing.T) {
	tests := []struct {
		ms   int
		want int
	}{
		{1500, 24000},
		{1000, 16000},
		{200, 3200},
		{100, 1600},
		{0, 0},
	}
	for _, tc := range tests {
		if got := SamplesForMs(16000, tc.ms); got != tc.want {
			t.Errorf("SamplesForMs(16000, %d) = %d, want %d", tc.ms, got, tc.want)
		}
	}
}
