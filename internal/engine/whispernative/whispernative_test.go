package whispernative

import (
	"testing"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

func TestNew_RequiresModelPath(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("New(\"\") err = nil, want error")
	}
}

func TestMeanTokenProbability(t *testing.T) {
	if _, ok := meanTokenProbability(nil); ok {
		t.Error("ok = true for no tokens, want false")
	}

	tokens := []whisperlib.Token{{P: 0.8}, {P: 0.9}, {P: 1.0}}
	got, ok := meanTokenProbability(tokens)
	if !ok {
		t.Fatal("ok = false, want true")
	}
	if want := 0.9; got < want-1e-6 || got > want+1e-6 {
		t.Errorf("mean = %g, want %g", got, want)
	}
}
