package filter

import (
	"testing"

	"github.com/streamscribe/streamscribe/internal/config"
)

func newFilter() *Filter {
	return New(config.Default().Filter)
}

func TestEvaluate_Accepts(t *testing.T) {
	f := newFilter()

	got := f.Evaluate(Candidate{Text: "  the quick brown fox  "}, Context{})
	if !got.Accept {
		t.Fatalf("Accept = false (%s), want true", got.Reason)
	}
	if got.Text != "the quick brown fox" {
		t.Errorf("Text = %q, want trimmed original", got.Text)
	}
	if got.Reason != ReasonAccepted {
		t.Errorf("Reason = %s, want %s", got.Reason, ReasonAccepted)
	}
}

func TestEvaluate_Rejections(t *testing.T) {
	f := newFilter()

	tests := []struct {
		name string
		c    Candidate
		ctx  Context
		want Reason
	}{
		{
			name: "empty",
			c:    Candidate{Text: "   "},
			want: ReasonTooShort,
		},
		{
			name: "single rune",
			c:    Candidate{Text: "a"},
			want: ReasonTooShort,
		},
		{
			name: "blank audio artifact",
			c:    Candidate{Text: "[BLANK_AUDIO]"},
			want: ReasonArtifact,
		},
		{
			name: "parenthesised artifact",
			c:    Candidate{Text: "(music)"},
			want: ReasonArtifact,
		},
		{
			name: "punctuation only",
			c:    Candidate{Text: "...!"},
			want: ReasonArtifact,
		},
		{
			name: "filler phrase",
			c:    Candidate{Text: "Thank you."},
			want: ReasonArtifact,
		},
		{
			name: "filler word yeah",
			c:    Candidate{Text: "Yeah."},
			want: ReasonArtifact,
		},
		{
			name: "filler word okay",
			c:    Candidate{Text: "Okay."},
			want: ReasonArtifact,
		},
		{
			name: "longer filler phrase",
			c:    Candidate{Text: "Thank you very much."},
			want: ReasonArtifact,
		},
		{
			name: "keyboard clicking artifact",
			c:    Candidate{Text: "(keyboard clicking)"},
			want: ReasonArtifact,
		},
		{
			name: "background noise artifact",
			c:    Candidate{Text: "[background noise]"},
			want: ReasonArtifact,
		},
		{
			name: "short single word",
			c:    Candidate{Text: "cat"},
			want: ReasonShortWord,
		},
		{
			name: "exact repetition of recent",
			c:    Candidate{Text: "hello world"},
			ctx:  Context{Recent: []string{"something else", "Hello world."}},
			want: ReasonRepetition,
		},
		{
			name: "candidate contained in recent",
			c:    Candidate{Text: "brown fox"},
			ctx:  Context{Recent: []string{"the quick brown fox jumps"}},
			want: ReasonRepetition,
		},
		{
			name: "recent contained in candidate",
			c:    Candidate{Text: "the quick brown fox jumps"},
			ctx:  Context{Recent: []string{"brown fox"}},
			want: ReasonRepetition,
		},
		{
			name: "near duplicate of recent",
			c:    Candidate{Text: "the quick brown foxes jumped"},
			ctx:  Context{Recent: []string{"the quick brown fox jumped"}},
			want: ReasonNearDuplicate,
		},
		{
			name: "all words identical",
			c:    Candidate{Text: "okay okay okay okay"},
			want: ReasonRepetition,
		},
		{
			name: "two word stutter loop",
			c:    Candidate{Text: "the cat the cat the cat the cat"},
			want: ReasonRepetition,
		},
		{
			name: "stutter loop cut off mid phrase",
			c:    Candidate{Text: "the cat the cat the"},
			want: ReasonRepetition,
		},
		{
			name: "three word alternation",
			c:    Candidate{Text: "go stop go"},
			want: ReasonRepetition,
		},
		{
			name: "exact repetition of previous",
			c:    Candidate{Text: "good morning everyone"},
			ctx:  Context{PreviousText: "Good morning, everyone!"},
			want: ReasonRepetition,
		},
		{
			name: "dominated by previous",
			c:    Candidate{Text: "hello there my friend hello"},
			ctx:  Context{PreviousText: "hello there my friend today"},
			want: ReasonOverlap,
		},
		{
			name: "low confidence",
			c:    Candidate{Text: "probably said something", Confidence: 0.5, Reported: true},
			want: ReasonLowConfidence,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := f.Evaluate(tc.c, tc.ctx)
			if got.Accept {
				t.Fatalf("Accept = true, want rejection %s", tc.want)
			}
			if got.Reason != tc.want {
				t.Errorf("Reason = %s, want %s", got.Reason, tc.want)
			}
		})
	}
}

// A window that extends the previous phrase must come through: two of the
// three distinct words are shared, and 0.67 does not exceed the 0.7 ratio
// threshold.
func TestEvaluate_AcceptsExtensionOfPrevious(t *testing.T) {
	f := newFilter()

	got := f.Evaluate(Candidate{Text: "hello there friend"}, Context{PreviousText: "hello there"})
	if !got.Accept {
		t.Fatalf("Accept = false (%s), want true", got.Reason)
	}
}

func TestEvaluate_LongSingleWordAccepted(t *testing.T) {
	f := newFilter()

	if got := f.Evaluate(Candidate{Text: "tremendous"}, Context{}); !got.Accept {
		t.Errorf("Accept = false (%s) for a four-plus letter word, want true", got.Reason)
	}
	// "cats" sits exactly on the four-rune boundary.
	if got := f.Evaluate(Candidate{Text: "cats"}, Context{}); !got.Accept {
		t.Errorf("Accept = false (%s) for a four-rune word, want true", got.Reason)
	}
}

func TestEvaluate_UnreportedConfidenceIgnored(t *testing.T) {
	f := newFilter()

	got := f.Evaluate(Candidate{Text: "nothing was reported here", Confidence: 0}, Context{})
	if !got.Accept {
		t.Errorf("Accept = false (%s) with unreported confidence, want true", got.Reason)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	f := newFilter()

	c := Candidate{Text: "the weather is lovely today"}
	ctx := Context{PreviousText: "completely different words here", Recent: []string{"unrelated history entry"}}

	first := f.Evaluate(c, ctx)
	second := f.Evaluate(c, ctx)
	if first != second {
		t.Errorf("repeated evaluation differs: first %+v, second %+v", first, second)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"[BLANK_AUDIO]", "blank_audio"},
		{"Hello, World!", "hello world"},
		{"  spaced   out  ", "spaced out"},
		{"...", ""},
	}
	for _, tc := range tests {
		if got := normalize(tc.in); got != tc.want {
			t.Errorf("normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
