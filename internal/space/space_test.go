package space

import (
	"errors"
	"testing"
)

func allLockCombos() []Locks {
	var out []Locks
	for i := range 8 {
		out = append(out, Locks{
			Quality:   i&1 != 0,
			Diffusion: i&2 != 0,
			FrameRate: i&4 != 0,
		})
	}
	return out
}

// enumerate lists every legal point of s by walking the full lattice.
func enumerate(s *Space) []ParameterSet {
	cfg := s.Config()
	var out []ParameterSet
	for q := cfg.QualityMax; q >= cfg.QualityMin; q -= cfg.QualityStep {
		for d := 0; d <= cfg.DiffusionMax; d += max(cfg.DiffusionStep, 1) {
			for f := 1; f <= cfg.FrameSkipMax; f++ {
				p := ParameterSet{Quality: q, Diffusion: d, FrameSkip: f}
				if s.Contains(p) {
					out = append(out, p)
				}
			}
			if cfg.DiffusionMax == 0 {
				break
			}
		}
	}
	return out
}

func mustNew(t *testing.T, cfg Config, locks Locks) *Space {
	t.Helper()
	s, err := New(cfg, locks)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"default is valid", func(c *Config) {}, false},
		{"quality max 0", func(c *Config) { c.QualityMax = 0 }, true},
		{"quality max 101", func(c *Config) { c.QualityMax = 101 }, true},
		{"quality min above max", func(c *Config) { c.QualityMin = 100; c.QualityMax = 90 }, true},
		{"quality min equal max", func(c *Config) { c.QualityMin = 90; c.QualityMax = 90 }, false},
		{"zero quality step", func(c *Config) { c.QualityStep = 0 }, true},
		{"negative diffusion", func(c *Config) { c.DiffusionMax = -1 }, true},
		{"diffusion above cap", func(c *Config) { c.DiffusionMax = 201 }, true},
		{"zero diffusion step", func(c *Config) { c.DiffusionStep = 0 }, true},
		{"diffusion disabled without step", func(c *Config) { c.DiffusionMax = 0; c.DiffusionStep = 0 }, false},
		{"frame skip zero", func(c *Config) { c.FrameSkipMax = 0 }, true},
		{"frame skip above cap", func(c *Config) { c.FrameSkipMax = 9 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidBounds) {
				t.Errorf("Validate() error = %v, want ErrInvalidBounds", err)
			}
		})
	}
}

func TestBaseline(t *testing.T) {
	s := mustNew(t, DefaultConfig(), Locks{})
	want := ParameterSet{Quality: 100, Diffusion: 0, FrameSkip: 1}
	if got := s.Baseline(); got != want {
		t.Errorf("Baseline() = %v, want %v", got, want)
	}
	if got := s.Baseline().FrameRateFactor(); got != 1.0 {
		t.Errorf("Baseline().FrameRateFactor() = %v, want 1.0", got)
	}
}

func TestBaselineHasMaximumScore(t *testing.T) {
	for _, locks := range allLockCombos() {
		s := mustNew(t, DefaultConfig(), locks)
		base := s.Score(s.Baseline())
		for _, p := range enumerate(s) {
			if p != s.Baseline() && s.Score(p) >= base {
				t.Errorf("locks %+v: Score(%v) = %d >= baseline score %d", locks, p, s.Score(p), base)
			}
		}
	}
}

func TestScoreIsInjective(t *testing.T) {
	s := mustNew(t, DefaultConfig(), Locks{})
	seen := make(map[int]ParameterSet)
	for _, p := range enumerate(s) {
		score := s.Score(p)
		if prev, ok := seen[score]; ok {
			t.Fatalf("Score(%v) = Score(%v) = %d", p, prev, score)
		}
		seen[score] = p
	}
	if len(seen) != s.Size() {
		t.Errorf("enumerated %d points, Size() = %d", len(seen), s.Size())
	}
}

func TestScoreOutsideSpace(t *testing.T) {
	s := mustNew(t, DefaultConfig(), Locks{})
	tests := []ParameterSet{
		{Quality: 101, Diffusion: 0, FrameSkip: 1},
		{Quality: 97, Diffusion: 0, FrameSkip: 1},
		{Quality: 100, Diffusion: 10, FrameSkip: 1},
		{Quality: 100, Diffusion: 0, FrameSkip: 0},
		{Quality: 100, Diffusion: 0, FrameSkip: 5},
		{Quality: 45, Diffusion: 0, FrameSkip: 1},
	}
	for _, p := range tests {
		if got := s.Score(p); got != -1 {
			t.Errorf("Score(%v) = %d, want -1", p, got)
		}
	}
}

func TestNeighborsOrder(t *testing.T) {
	s := mustNew(t, DefaultConfig(), Locks{})

	tests := []struct {
		name string
		cur  ParameterSet
		dir  Direction
		want []ParameterSet
	}{
		{
			name: "baseline toward smaller steps frame rate then diffusion",
			cur:  ParameterSet{Quality: 100, Diffusion: 0, FrameSkip: 1},
			dir:  TowardSmaller,
			want: []ParameterSet{
				{Quality: 100, Diffusion: 0, FrameSkip: 2},
				{Quality: 100, Diffusion: 20, FrameSkip: 1},
			},
		},
		{
			name: "frame rate exhausted",
			cur:  ParameterSet{Quality: 100, Diffusion: 40, FrameSkip: 4},
			dir:  TowardSmaller,
			want: []ParameterSet{
				{Quality: 100, Diffusion: 60, FrameSkip: 4},
			},
		},
		{
			name: "quality only after cheaper axes exhausted",
			cur:  ParameterSet{Quality: 100, Diffusion: 120, FrameSkip: 4},
			dir:  TowardSmaller,
			want: []ParameterSet{
				{Quality: 95, Diffusion: 120, FrameSkip: 4},
			},
		},
		{
			name: "minimum has no smaller neighbors",
			cur:  ParameterSet{Quality: 50, Diffusion: 120, FrameSkip: 4},
			dir:  TowardSmaller,
			want: nil,
		},
		{
			name: "toward larger restores quality then diffusion",
			cur:  ParameterSet{Quality: 90, Diffusion: 40, FrameSkip: 3},
			dir:  TowardLarger,
			want: []ParameterSet{
				{Quality: 95, Diffusion: 40, FrameSkip: 3},
				{Quality: 90, Diffusion: 20, FrameSkip: 3},
			},
		},
		{
			name: "toward larger restores frame rate last",
			cur:  ParameterSet{Quality: 100, Diffusion: 0, FrameSkip: 3},
			dir:  TowardLarger,
			want: []ParameterSet{
				{Quality: 100, Diffusion: 0, FrameSkip: 2},
			},
		},
		{
			name: "baseline has no larger neighbors",
			cur:  ParameterSet{Quality: 100, Diffusion: 0, FrameSkip: 1},
			dir:  TowardLarger,
			want: nil,
		},
		{
			name: "illegal point has no neighbors",
			cur:  ParameterSet{Quality: 99, Diffusion: 0, FrameSkip: 1},
			dir:  TowardSmaller,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Neighbors(tt.cur, tt.dir)
			if len(got) != len(tt.want) {
				t.Fatalf("Neighbors(%v, %v) = %v, want %v", tt.cur, tt.dir, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Neighbors(%v, %v)[%d] = %v, want %v", tt.cur, tt.dir, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNeighborsNeverChangeLockedAxes(t *testing.T) {
	for _, locks := range allLockCombos() {
		s := mustNew(t, DefaultConfig(), locks)
		base := s.Baseline()
		for _, p := range enumerate(s) {
			for _, dir := range []Direction{TowardSmaller, TowardLarger} {
				for _, n := range s.Neighbors(p, dir) {
					if locks.Quality && n.Quality != base.Quality {
						t.Errorf("locks %+v: %v -> %v changed locked quality", locks, p, n)
					}
					if locks.Diffusion && n.Diffusion != base.Diffusion {
						t.Errorf("locks %+v: %v -> %v changed locked diffusion", locks, p, n)
					}
					if locks.FrameRate && n.FrameSkip != base.FrameSkip {
						t.Errorf("locks %+v: %v -> %v changed locked frame rate", locks, p, n)
					}
					if !s.Contains(n) {
						t.Errorf("locks %+v: %v -> %v is out of bounds", locks, p, n)
					}
				}
			}
		}
	}
}

func TestNeighborsAllLocked(t *testing.T) {
	s := mustNew(t, DefaultConfig(), Locks{Quality: true, Diffusion: true, FrameRate: true})
	if got := s.Neighbors(s.Baseline(), TowardSmaller); len(got) != 0 {
		t.Errorf("Neighbors() with all axes locked = %v, want empty", got)
	}
	if !s.Exhausted(s.Baseline()) {
		t.Error("Exhausted(baseline) = false with all axes locked")
	}
	if s.Size() != 1 {
		t.Errorf("Size() = %d, want 1", s.Size())
	}
}

func TestDescentIsMonotonic(t *testing.T) {
	for _, locks := range allLockCombos() {
		s := mustNew(t, DefaultConfig(), locks)
		visited := map[ParameterSet]bool{}
		cur := s.Baseline()
		visited[cur] = true

		for steps := 0; ; steps++ {
			if steps > s.Size() {
				t.Fatalf("locks %+v: descent did not terminate", locks)
			}
			next := s.Neighbors(cur, TowardSmaller)
			if len(next) == 0 {
				break
			}
			for _, n := range next {
				if s.Score(n) >= s.Score(cur) {
					t.Errorf("locks %+v: Score(%v)=%d not below Score(%v)=%d",
						locks, n, s.Score(n), cur, s.Score(cur))
				}
			}
			cur = next[len(next)-1]
			if visited[cur] {
				t.Fatalf("locks %+v: revisited %v", locks, cur)
			}
			visited[cur] = true
		}

		if cur != s.Minimum() {
			t.Errorf("locks %+v: descent ended at %v, want Minimum() %v", locks, cur, s.Minimum())
		}
	}
}

func TestMinimum(t *testing.T) {
	s := mustNew(t, DefaultConfig(), Locks{Diffusion: true})
	want := ParameterSet{Quality: 50, Diffusion: 0, FrameSkip: 4}
	if got := s.Minimum(); got != want {
		t.Errorf("Minimum() = %v, want %v", got, want)
	}
	if !s.Exhausted(want) {
		t.Errorf("Exhausted(%v) = false", want)
	}
}

func TestContainsHonorsLocks(t *testing.T) {
	s := mustNew(t, DefaultConfig(), Locks{Quality: true})
	if s.Contains(ParameterSet{Quality: 95, Diffusion: 0, FrameSkip: 1}) {
		t.Error("Contains() accepted a point off the locked quality")
	}
	if !s.Contains(ParameterSet{Quality: 100, Diffusion: 40, FrameSkip: 2}) {
		t.Error("Contains() rejected a legal point")
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name  string
		locks Locks
		in    ParameterSet
		want  ParameterSet
	}{
		{
			name: "legal point unchanged",
			in:   ParameterSet{Quality: 85, Diffusion: 40, FrameSkip: 2},
			want: ParameterSet{Quality: 85, Diffusion: 40, FrameSkip: 2},
		},
		{
			name: "out of range values clamped",
			in:   ParameterSet{Quality: 120, Diffusion: 500, FrameSkip: 0},
			want: ParameterSet{Quality: 100, Diffusion: 120, FrameSkip: 1},
		},
		{
			name: "off grid values rounded",
			in:   ParameterSet{Quality: 83, Diffusion: 31, FrameSkip: 9},
			want: ParameterSet{Quality: 85, Diffusion: 40, FrameSkip: 4},
		},
		{
			name: "below quality floor",
			in:   ParameterSet{Quality: 10, Diffusion: 0, FrameSkip: 1},
			want: ParameterSet{Quality: 50, Diffusion: 0, FrameSkip: 1},
		},
		{
			name:  "locked axes pinned",
			locks: Locks{Quality: true, FrameRate: true},
			in:    ParameterSet{Quality: 60, Diffusion: 20, FrameSkip: 3},
			want:  ParameterSet{Quality: 100, Diffusion: 20, FrameSkip: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mustNew(t, DefaultConfig(), tt.locks)
			got := s.Clamp(tt.in)
			if got != tt.want {
				t.Errorf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
			}
			if !s.Contains(got) {
				t.Errorf("Clamp(%v) = %v is not contained in the space", tt.in, got)
			}
		})
	}
}

func TestSize(t *testing.T) {
	tests := []struct {
		locks Locks
		want  int
	}{
		{Locks{}, 11 * 7 * 4},
		{Locks{Quality: true}, 7 * 4},
		{Locks{Diffusion: true}, 11 * 4},
		{Locks{FrameRate: true}, 11 * 7},
		{Locks{Quality: true, Diffusion: true}, 4},
	}
	for _, tt := range tests {
		s := mustNew(t, DefaultConfig(), tt.locks)
		if got := s.Size(); got != tt.want {
			t.Errorf("locks %+v: Size() = %d, want %d", tt.locks, got, tt.want)
		}
	}
}

func TestDominates(t *testing.T) {
	a := ParameterSet{Quality: 100, Diffusion: 0, FrameSkip: 1}
	b := ParameterSet{Quality: 90, Diffusion: 40, FrameSkip: 2}
	if !Dominates(a, b) {
		t.Errorf("Dominates(%v, %v) = false", a, b)
	}
	if Dominates(b, a) {
		t.Errorf("Dominates(%v, %v) = true", b, a)
	}
	c := ParameterSet{Quality: 95, Diffusion: 0, FrameSkip: 3}
	if Dominates(b, c) || Dominates(c, b) {
		t.Errorf("incomparable points %v and %v reported as dominating", b, c)
	}
	if !Dominates(a, a) {
		t.Error("a point should dominate itself")
	}
}

func TestFrameRateFactor(t *testing.T) {
	tests := []struct {
		skip int
		want float64
	}{
		{0, 1.0},
		{1, 1.0},
		{2, 0.5},
		{4, 0.25},
	}
	for _, tt := range tests {
		p := ParameterSet{Quality: 100, FrameSkip: tt.skip}
		if got := p.FrameRateFactor(); got != tt.want {
			t.Errorf("FrameRateFactor(skip=%d) = %v, want %v", tt.skip, got, tt.want)
		}
	}
}

func TestRaises(t *testing.T) {
	s := mustNew(t, DefaultConfig(), Locks{})
	tests := []struct {
		name string
		cur  ParameterSet
		want []ParameterSet
	}{
		{
			name: "baseline has nowhere to go",
			cur:  ParameterSet{Quality: 100, Diffusion: 0, FrameSkip: 1},
			want: nil,
		},
		{
			name: "frame rate restored below max quality",
			cur:  ParameterSet{Quality: 95, Diffusion: 100, FrameSkip: 4},
			want: []ParameterSet{
				{Quality: 100, Diffusion: 100, FrameSkip: 4},
				{Quality: 95, Diffusion: 80, FrameSkip: 4},
				{Quality: 95, Diffusion: 100, FrameSkip: 3},
			},
		},
		{
			name: "only frame rate left",
			cur:  ParameterSet{Quality: 100, Diffusion: 0, FrameSkip: 2},
			want: []ParameterSet{{Quality: 100, Diffusion: 0, FrameSkip: 1}},
		},
		{
			name: "outside the space",
			cur:  ParameterSet{Quality: 97, Diffusion: 0, FrameSkip: 1},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Raises(tt.cur)
			if len(got) != len(tt.want) {
				t.Fatalf("Raises(%v) = %v, want %v", tt.cur, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Raises(%v)[%d] = %v, want %v", tt.cur, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRaisesHonorLocksAndScore(t *testing.T) {
	for _, locks := range allLockCombos() {
		s := mustNew(t, DefaultConfig(), locks)
		base := s.Baseline()
		for _, p := range enumerate(s) {
			for _, n := range s.Raises(p) {
				if !s.Contains(n) {
					t.Errorf("locks %+v: %v -> %v is out of bounds", locks, p, n)
				}
				if locks.Quality && n.Quality != base.Quality ||
					locks.Diffusion && n.Diffusion != base.Diffusion ||
					locks.FrameRate && n.FrameSkip != base.FrameSkip {
					t.Errorf("locks %+v: %v -> %v changed a locked axis", locks, p, n)
				}
				if s.Score(n) <= s.Score(p) {
					t.Errorf("locks %+v: raise %v -> %v does not raise the score", locks, p, n)
				}
			}
		}
	}
}
