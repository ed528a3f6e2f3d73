package judge

import (
	"math"
	"math/rand"
	"testing"
)

func TestScore_Identical(t *testing.T) {
	inputs := []string{
		"a",
		"内国法人とは、国内に本店又は主たる事務所を有する法人をいう。",
		"一行目\n\n二行目",
		"（１）ＡＢＣ",
	}
	for _, in := range inputs {
		if got := Score(in, in); got != 100 {
			t.Errorf("Score(%q, itself) = %v, want 100", in, got)
		}
		if got := ScoreWith(MethodIndel, in, in); got != 100 {
			t.Errorf("indel score of %q against itself = %v, want 100", in, got)
		}
	}
}

func TestScore_EmptyInputs(t *testing.T) {
	tests := []struct{ candidate, reference string }{
		{"", "anything"},
		{"anything", ""},
		{"", ""},
		{" \n　", "anything"},
	}
	for _, m := range []Method{MethodBlocks, MethodIndel} {
		for _, tt := range tests {
			if got := ScoreWith(m, tt.candidate, tt.reference); got != 0 {
				t.Errorf("%s: ScoreWith(%q, %q) = %v, want 0", m, tt.candidate, tt.reference, got)
			}
		}
	}
}

func TestScore_IgnoresWidthAndSpacing(t *testing.T) {
	if got := Score("１２３　４５", "12345"); got != 100 {
		t.Errorf("full-width digits with spacing scored %v, want 100", got)
	}
	if got := Score("(1) 内国法人", "（１）内国法人"); got != 100 {
		t.Errorf("half-width brackets scored %v, want 100", got)
	}
}

func TestScore_KnownRatios(t *testing.T) {
	tests := []struct {
		candidate, reference string
		blocks, indel        float64
	}{
		{"abcd", "abce", 75, 75},
		{"ab", "ba", 50, 50},
		{"abc", "xyz", 0, 0},
		{"ab", "abcd", 2 * 2.0 / 6 * 100, 2 * 2.0 / 6 * 100},
	}
	for _, tt := range tests {
		if got := ScoreWith(MethodBlocks, tt.candidate, tt.reference); math.Abs(got-tt.blocks) > 1e-9 {
			t.Errorf("blocks %q vs %q = %v, want %v", tt.candidate, tt.reference, got, tt.blocks)
		}
		if got := ScoreWith(MethodIndel, tt.candidate, tt.reference); math.Abs(got-tt.indel) > 1e-9 {
			t.Errorf("indel %q vs %q = %v, want %v", tt.candidate, tt.reference, got, tt.indel)
		}
	}
}

func TestScore_Bounds(t *testing.T) {
	alphabet := []rune("あいうえおかきくけこ、。\nabc１２")
	rng := rand.New(rand.NewSource(42))
	gen := func() string {
		n := 1 + rng.Intn(40)
		out := make([]rune, n)
		for i := range out {
			out[i] = alphabet[rng.Intn(len(alphabet))]
		}
		return string(out)
	}
	for range 200 {
		a, b := gen(), gen()
		for _, m := range []Method{MethodBlocks, MethodIndel} {
			s := ScoreWith(m, a, b)
			if s < 0 || s > 100 {
				t.Fatalf("%s: score %v out of range for %q vs %q", m, s, a, b)
			}
			if again := ScoreWith(m, a, b); again != s {
				t.Fatalf("%s: score not deterministic: %v then %v", m, s, again)
			}
		}
	}
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    Method
		wantErr bool
	}{
		{"", MethodBlocks, false},
		{"blocks", MethodBlocks, false},
		{" Indel ", MethodIndel, false},
		{"levenshtein", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMethod(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMethod(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMethod(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
