package xpeval

import "testing"

// TestEBVDeterminism locks in that the effective boolean
// value is a pure function of the result sequence, independent of how that
// sequence was produced.
func TestEBVDeterminism(t *testing.T) {
	cases := []struct {
		name string
		seq  Sequence
		want bool
	}{
		{"empty", Sequence{}, false},
		{"singleton-true-bool", Sequence{BooleanItemOf(true)}, true},
		{"singleton-false-bool", Sequence{BooleanItemOf(false)}, false},
		{"singleton-nonempty-string", Sequence{StringItemOf("x")}, true},
		{"singleton-empty-string", Sequence{StringItemOf("")}, false},
		{"singleton-nonzero-number", Sequence{NumberItemOf(3)}, true},
		{"singleton-zero-number", Sequence{NumberItemOf(0)}, false},
	}
	for _, c := range cases {
		got, err := EffectiveBooleanValue(c.seq)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", c.name, err)
		}
		if got != c.want {
			t.Errorf("%s: EffectiveBooleanValue = %v, want %v", c.name, got, c.want)
		}
		// Determinism: calling again on an equivalent sequence value gives
		// the same answer.
		got2, _ := EffectiveBooleanValue(c.seq)
		if got2 != got {
			t.Errorf("%s: EffectiveBooleanValue not deterministic: %v then %v", c.name, got, got2)
		}
	}
}

func TestEBVMultiAtomicIsError(t *testing.T) {
	_, err := EffectiveBooleanValue(Sequence{StringItemOf("a"), StringItemOf("b")})
	if err == nil {
		t.Fatal("expected an error for the effective boolean value of 2 atomic items")
	}
}
