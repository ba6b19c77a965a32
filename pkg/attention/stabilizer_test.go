package attention

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/teslashibe/lookgame/pkg/direction"
)

type sample struct {
	at time.Duration
	d  direction.Direction
}

// replay feeds samples through a fresh stabilizer and fires pending values
// whenever their deadline passes, up to end.
func replay(quiet time.Duration, samples []sample, end time.Duration) []direction.Direction {
	base := time.Unix(0, 0)
	s := NewStabilizer(quiet)
	var out []direction.Direction

	fireUntil := func(now time.Time) {
		if dl, ok := s.Deadline(); ok && !now.Before(dl) {
			if d, ok := s.Fire(dl); ok {
				out = append(out, d)
			}
		}
	}

	for _, smp := range samples {
		at := base.Add(smp.at)
		fireUntil(at)
		s.Push(smp.d, at)
	}
	fireUntil(base.Add(end))
	return out
}

func TestStabilizer(t *testing.T) {
	const quiet = 2 * time.Second
	ms := time.Millisecond
	U, L, R := direction.Up, direction.Left, direction.Right
	X := direction.Unknown

	tests := []struct {
		name    string
		samples []sample
		end     time.Duration
		want    []direction.Direction
	}{
		{
			name: "flicker then hold yields one value",
			samples: []sample{
				{0, U}, {100 * ms, U}, {200 * ms, L}, {300 * ms, U},
				{400 * ms, U}, {500 * ms, U}, {600 * ms, U},
			},
			end:  3 * time.Second,
			want: []direction.Direction{U},
		},
		{
			name:    "not held long enough",
			samples: []sample{{0, U}},
			end:     1900 * ms,
			want:    nil,
		},
		{
			name:    "unknown is never emitted",
			samples: []sample{{0, X}, {100 * ms, X}},
			end:     5 * time.Second,
			want:    nil,
		},
		{
			name:    "two settled values",
			samples: []sample{{0, U}, {3 * time.Second, R}},
			end:     6 * time.Second,
			want:    []direction.Direction{U, R},
		},
		{
			name:    "flicker resets the window",
			samples: []sample{{0, U}, {1500 * ms, L}, {3000 * ms, U}},
			end:     4500 * ms,
			want:    nil,
		},
		{
			name: "same value around a settled unknown is not repeated",
			samples: []sample{
				{0, U}, {3 * time.Second, X}, {6 * time.Second, U},
			},
			end:  9 * time.Second,
			want: []direction.Direction{U},
		},
		{
			name: "bounce back before settling",
			samples: []sample{
				{0, U}, {3 * time.Second, L}, {3100 * ms, U},
			},
			end:  6 * time.Second,
			want: []direction.Direction{U},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := replay(quiet, tt.samples, tt.end)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("emitted (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStabilizerNeverRepeats(t *testing.T) {
	seq := []direction.Direction{
		direction.Up, direction.Unknown, direction.Up, direction.Left,
		direction.Left, direction.Unknown, direction.Left, direction.Down,
	}
	var samples []sample
	for i, d := range seq {
		samples = append(samples, sample{time.Duration(i) * 3 * time.Second, d})
	}

	got := replay(2*time.Second, samples, time.Minute)
	for i := 1; i < len(got); i++ {
		if got[i] == got[i-1] {
			t.Fatalf("consecutive duplicate %v at %d in %v", got[i], i, got)
		}
	}
	for _, d := range got {
		if d == direction.Unknown {
			t.Fatalf("emitted UNKNOWN in %v", got)
		}
	}
}

func TestStabilizerPushReportsDeadlineMove(t *testing.T) {
	s := NewStabilizer(time.Second)
	now := time.Now()

	if !s.Push(direction.Up, now) {
		t.Error("first push should arm the deadline")
	}
	if s.Push(direction.Up, now.Add(time.Millisecond)) {
		t.Error("repeated value should not move the deadline")
	}
	dl, ok := s.Deadline()
	if !ok || !dl.Equal(now.Add(time.Second)) {
		t.Errorf("deadline: got %v (%v), want %v", dl, ok, now.Add(time.Second))
	}
	if _, ok := s.Fire(now.Add(500 * time.Millisecond)); ok {
		t.Error("Fire before deadline should not emit")
	}
	if d, ok := s.Fire(now.Add(time.Second)); !ok || d != direction.Up {
		t.Errorf("Fire at deadline: got %v, %v", d, ok)
	}
	if _, ok := s.Deadline(); ok {
		t.Error("deadline should be cleared after firing")
	}
}

func TestDistinct(t *testing.T) {
	var d Distinct[int]
	var got []int
	for _, v := range []int{1, 1, 2, 2, 2, 1, 3, 3} {
		if d.Changed(v) {
			got = append(got, v)
		}
	}
	if diff := cmp.Diff([]int{1, 2, 1, 3}, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	d.Reset()
	if !d.Changed(3) {
		t.Error("value after Reset should count as changed")
	}
}
