// Package filter suppresses transcripts that a recognition engine produces
// but a human never said: hallucinated artifacts on near-silence, stutter
// repetitions caused by window overlap, and low-confidence fragments.
//
// Rules are ordered cheapest-first and the first rejection wins; a candidate
// that survives every rule is accepted verbatim (only surrounding whitespace
// is trimmed). The filter itself is stateless, the per-session context it
// judges against is passed in by the caller.
package filter

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"

	"github.com/streamscribe/streamscribe/internal/config"
)

// Reason identifies which rule rejected a candidate. Used as a metric label.
type Reason string

const (
	ReasonAccepted      Reason = "accepted"
	ReasonTooShort      Reason = "too_short"
	ReasonArtifact      Reason = "artifact"
	ReasonShortWord     Reason = "short_word"
	ReasonRepetition    Reason = "repetition"
	ReasonNearDuplicate Reason = "near_duplicate"
	ReasonOverlap       Reason = "overlap"
	ReasonLowConfidence Reason = "low_confidence"
)

// Candidate is one transcript under evaluation.
type Candidate struct {
	Text string

	// Confidence is the engine-reported confidence; only consulted when
	// Reported is true, since not every backend produces one.
	Confidence float64
	Reported   bool
}

// Context is the per-session state a candidate is judged against.
type Context struct {
	// PreviousText is the most recently accepted transcript.
	PreviousText string

	// Recent holds the last few accepted transcripts, newest last.
	Recent []string
}

// Result is the filter verdict. Text carries the trimmed transcript when
// Accept is true.
type Result struct {
	Accept bool
	Text   string
	Reason Reason
}

// Filter evaluates transcript candidates. Safe for concurrent use.
type Filter struct {
	cfg config.FilterConfig
}

// New creates a Filter with the given tunables.
func New(cfg config.FilterConfig) *Filter {
	return &Filter{cfg: cfg}
}

// artifacts are transcripts whisper-family models emit on silence or music,
// plus isolated filler words that carry no content. Entries are normalized
// (lowercased, punctuation stripped), so "(keyboard clicking)" and
// "[keyboard clicking]" share one entry.
var artifacts = make(map[string]bool)

func init() {
	for _, s := range []string{
		"blank_audio",
		"blank audio",
		"silence",
		"music",
		"music playing",
		"noise",
		"sound",
		"inaudible",
		"applause",
		"laughter",
		"coughing",
		"breathing",
		"sighs",
		"keyboard clicking",
		"mouse clicking",
		"background noise",
		"thank you",
		"thank you very much",
		"thanks",
		"thanks for watching",
		"thank you for watching",
		"subtitles by the amara org community",
		"sous titrage societe radio canada",
		"you", "yeah", "yes", "no", "oh", "um", "uh", "ah",
		"hmm", "okay", "ok", "well", "so", "the", "a", "and",
		"but", "or", "is", "was", "are", "were", "i", "it",
		"that", "this", "with", "for", "on", "at", "by", "from",
		"bye", "bye bye",
	} {
		artifacts[s] = true
	}
}

// Evaluate runs the rule chain over c against ctx.
func (f *Filter) Evaluate(c Candidate, ctx Context) Result {
	text := strings.TrimSpace(c.Text)
	if len([]rune(text)) < 2 {
		return Result{Reason: ReasonTooShort}
	}

	norm := normalize(text)
	if norm == "" || artifacts[norm] {
		return Result{Reason: ReasonArtifact}
	}

	words := strings.Fields(norm)
	if len(words) == 1 && len([]rune(words[0])) < 4 {
		return Result{Reason: ReasonShortWord}
	}

	if r := f.checkRecent(norm, ctx.Recent); r != ReasonAccepted {
		return Result{Reason: r}
	}
	if r := f.checkPrevious(norm, words, ctx.PreviousText); r != ReasonAccepted {
		return Result{Reason: r}
	}

	if c.Reported && c.Confidence < f.cfg.MinConfidence {
		return Result{Reason: ReasonLowConfidence}
	}

	return Result{Accept: true, Text: text, Reason: ReasonAccepted}
}

// checkRecent rejects candidates that repeat the recent history: an exact
// normalized match, a substring containment in either direction, or a
// Jaro-Winkler similarity at or above the configured threshold.
func (f *Filter) checkRecent(norm string, recent []string) Reason {
	for _, prev := range recent {
		p := normalize(prev)
		if p == "" {
			continue
		}
		if p == norm {
			return ReasonRepetition
		}
		if strings.Contains(p, norm) || strings.Contains(norm, p) {
			return ReasonRepetition
		}
		if matchr.JaroWinkler(norm, p, false) >= f.cfg.SimilarityThreshold {
			return ReasonNearDuplicate
		}
	}
	return ReasonAccepted
}

// checkPrevious rejects candidates dominated by the immediately preceding
// transcript: an exact match, a degenerate word pattern, or a distinct-word
// overlap ratio above the configured threshold. Unlike the history rules this
// deliberately allows containment, so a window that extends the previous
// phrase ("hello there" then "hello there friend") still comes through.
func (f *Filter) checkPrevious(norm string, words []string, previous string) Reason {
	if degenerate(words) {
		return ReasonRepetition
	}

	p := normalize(previous)
	if p == "" {
		return ReasonAccepted
	}
	if p == norm {
		return ReasonRepetition
	}
	if overlapRatio(words, strings.Fields(p)) > f.cfg.OverlapRatioThreshold {
		return ReasonOverlap
	}
	return ReasonAccepted
}

// degenerate reports stutter patterns: three or more words where every word
// matches the one two positions back, which covers both a single repeated
// word ("okay okay okay") and a two-word loop ("the cat the cat the").
func degenerate(words []string) bool {
	if len(words) < 3 {
		return false
	}
	for i := 2; i < len(words); i++ {
		if words[i] != words[i-2] {
			return false
		}
	}
	return true
}

// overlapRatio returns the fraction of the candidate's distinct words that
// also appear in the previous transcript.
func overlapRatio(words, prevWords []string) float64 {
	if len(words) == 0 {
		return 0
	}
	prev := make(map[string]bool, len(prevWords))
	for _, w := range prevWords {
		prev[w] = true
	}
	distinct := make(map[string]bool, len(words))
	shared := 0
	for _, w := range words {
		if distinct[w] {
			continue
		}
		distinct[w] = true
		if prev[w] {
			shared++
		}
	}
	return float64(shared) / float64(len(distinct))
}

// normalize lowercases text and strips everything but letters, digits, and
// spaces, collapsing runs of whitespace. Bracketed artifacts like
// "[BLANK_AUDIO]" normalize to their bare token.
func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	lastSpace := true
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}
