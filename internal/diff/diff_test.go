package diff

import (
	"strings"
	"testing"

	"github.com/sokinpui/markpatch/model"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		line string
		opts Options
		want string
	}{
		{"\tFoo  bar  \n", Options{}, "\tFoo  bar  \n"},
		{"\tFoo  bar  \n", Options{IgnoreWhitespace: true}, " Foo bar"},
		{"\tFoo  bar  \n", Options{IgnoreWhitespace: true, IgnoreCase: true}, " foo bar"},
		{"ABC\n", Options{IgnoreCase: true}, "abc\n"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.line, tt.opts); got != tt.want {
			t.Errorf("Normalize(%q, %+v) = %q, want %q", tt.line, tt.opts, got, tt.want)
		}
	}
}

func TestComputePartitionIsGapFree(t *testing.T) {
	current := "a\nb\nc\nd\n"
	proposed := "a\nB\nc\ne\nf\n"
	hunks, ops := Compute(current, proposed, Options{})

	r, l := 0, 0
	for _, op := range ops {
		if op.R1 != r || op.L1 != l {
			t.Fatalf("gap before %+v (r=%d l=%d)", op, r, l)
		}
		if op.R2 < op.R1 || op.L2 < op.L1 {
			t.Fatalf("inverted range %+v", op)
		}
		r, l = op.R2, op.L2
	}
	if r != 4 || l != 5 {
		t.Errorf("partition ends at (%d,%d), want (4,5)", r, l)
	}

	if len(hunks) != 2 {
		t.Fatalf("got %d hunks, want 2: %+v", len(hunks), hunks)
	}
	if hunks[0].Tag != model.TagReplace || hunks[0].Preview != "B" {
		t.Errorf("first hunk = %+v", hunks[0])
	}
	if hunks[1].Added != 2 || hunks[1].Removed != 1 {
		t.Errorf("second hunk counts = %+v", hunks[1])
	}
}

func TestComputeIgnoreWhitespace(t *testing.T) {
	hunks, ops := Compute("def f():\n\treturn 1\n", "def f():\n    return  1   \n", Options{IgnoreWhitespace: true})
	if len(hunks) != 0 {
		t.Errorf("expected no hunks, got %+v", hunks)
	}
	if len(ops) != 1 || ops[0].Tag != model.TagEqual {
		t.Errorf("ops = %+v", ops)
	}

	hunks, _ = Compute("def f():\n\treturn 1\n", "def f():\n    return  1   \n", Options{})
	if len(hunks) != 1 {
		t.Errorf("expected one hunk without normalization, got %+v", hunks)
	}
}

func TestComputeDeterministic(t *testing.T) {
	cur := "x\ny\nx\ny\n"
	prop := "y\nx\ny\nx\n"
	_, first := Compute(cur, prop, Options{})
	for i := 0; i < 5; i++ {
		_, again := Compute(cur, prop, Options{})
		if len(again) != len(first) {
			t.Fatalf("run %d differs", i)
		}
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("run %d differs at %d", i, j)
			}
		}
	}
}

func TestPreviewFallsBackToCurrent(t *testing.T) {
	hunks, _ := Compute("keep\n\ngone\n", "keep\n", Options{})
	if len(hunks) != 1 || hunks[0].Tag != model.TagDelete || hunks[0].Preview != "gone" {
		t.Errorf("hunks = %+v", hunks)
	}
}

func TestUnified(t *testing.T) {
	out, err := Unified("a\nb\n", "a\nc", "f.py", 3)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"--- a/f.py", "+++ b/f.py", "-b", "+c"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in\n%s", want, out)
		}
	}
}

func TestWordsPlain(t *testing.T) {
	got := WordsPlain("return a + b", "return a - b")
	if got != "return a [-+-]{+-+} b" {
		t.Errorf("WordsPlain = %q", got)
	}
}
