package selector

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/five82/gifsizer/internal/trial"
)

func rec(seq int, size int64, score int) trial.Record {
	return trial.Record{
		Seq:     seq,
		Outcome: trial.Outcome{SizeBytes: size, Score: score},
	}
}

func failed(seq, score int) trial.Record {
	r := rec(seq, 0, score)
	r.Err = errors.New("encode failed")
	return r
}

func ptr(v int64) *int64 { return &v }

func TestFits(t *testing.T) {
	tests := []struct {
		name   string
		rec    trial.Record
		target *int64
		want   bool
	}{
		{"no target", rec(0, 5000, 1), nil, true},
		{"under target", rec(0, 900, 1), ptr(1000), true},
		{"exactly target", rec(0, 1000, 1), ptr(1000), true},
		{"over target", rec(0, 1001, 1), ptr(1000), false},
		{"failed", failed(0, 1), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fits(tt.rec, tt.target); got != tt.want {
				t.Errorf("Fits() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name    string
		records []trial.Record
		target  *int64
		wantSeq int
		wantNil bool
	}{
		{
			name:    "empty",
			wantNil: true,
		},
		{
			name:    "all failed",
			records: []trial.Record{failed(0, 10), failed(1, 5)},
			wantNil: true,
		},
		{
			name:    "no target picks max score",
			records: []trial.Record{rec(0, 100, 3), rec(1, 5000, 9), rec(2, 50, 1)},
			wantSeq: 1,
		},
		{
			name:    "fitting beats higher score",
			records: []trial.Record{rec(0, 2000, 9), rec(1, 900, 4), rec(2, 800, 2)},
			target:  ptr(1000),
			wantSeq: 1,
		},
		{
			name:    "score tie broken by seq",
			records: []trial.Record{rec(3, 900, 5), rec(1, 950, 5), rec(2, 100, 4)},
			target:  ptr(1000),
			wantSeq: 1,
		},
		{
			name:    "nothing fits returns best effort",
			records: []trial.Record{rec(0, 2000, 9), rec(1, 1500, 4)},
			target:  ptr(1000),
			wantSeq: 0,
		},
		{
			name:    "failed records skipped",
			records: []trial.Record{failed(0, 99), rec(1, 10, 1)},
			target:  ptr(1000),
			wantSeq: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Select(tt.records, tt.target)
			if tt.wantNil {
				if got != nil {
					t.Errorf("Select() = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatal("Select() = nil")
			}
			if got.Seq != tt.wantSeq {
				t.Errorf("Select().Seq = %d, want %d", got.Seq, tt.wantSeq)
			}
		})
	}
}

func TestSelectOrderIndependent(t *testing.T) {
	records := []trial.Record{
		rec(0, 3000, 20), rec(1, 990, 12), rec(2, 700, 8),
		rec(3, 1000, 12), rec(4, 400, 3), failed(5, 30),
	}
	target := ptr(1000)
	want := Select(records, target).Seq

	r := rand.New(rand.NewSource(1))
	for range 20 {
		shuffled := append([]trial.Record(nil), records...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		if got := Select(shuffled, target).Seq; got != want {
			t.Fatalf("Select() on shuffled input = %d, want %d", got, want)
		}
	}
}

func TestSmallest(t *testing.T) {
	records := []trial.Record{rec(0, 500, 9), failed(1, 1), rec(2, 300, 4), rec(3, 300, 2)}
	got := Smallest(records)
	if got == nil || got.Seq != 2 {
		t.Errorf("Smallest() = %+v, want seq 2", got)
	}
	if Smallest([]trial.Record{failed(0, 1)}) != nil {
		t.Error("Smallest() with only failures should be nil")
	}
}

func TestBetterFailedNeverWins(t *testing.T) {
	if Better(failed(0, 100), rec(1, 99999, 0), ptr(10)) {
		t.Error("failed record should never be better than a successful one")
	}
}
