package patcher

import (
	"errors"
	"reflect"
	"testing"

	"github.com/sokinpui/markpatch/internal/diff"
	"github.com/sokinpui/markpatch/internal/fs"
	"github.com/sokinpui/markpatch/model"
)

func allKeys(ops []model.Opcode) model.KeySet {
	keys := model.NewKeySet()
	for _, op := range ops {
		if op.Tag != model.TagEqual {
			keys[op.HunkKey] = struct{}{}
		}
	}
	return keys
}

var applyCases = []struct {
	name              string
	current, proposed string
}{
	{"replace and insert", "a\nb\nc\nd\n", "a\nB\nc\ne\nf\n"},
	{"pure insert", "a\nc\n", "a\nb\nc\n"},
	{"pure delete", "a\nb\nc\n", "c\n"},
	{"empty current", "", "x\ny\n"},
	{"empty proposed", "x\ny\n", ""},
	{"identical", "same\n", "same\n"},
}

func TestApplyHunksEmptySelectionIsIdentity(t *testing.T) {
	for _, tc := range applyCases {
		t.Run(tc.name, func(t *testing.T) {
			cur, prop := fs.SplitLines(tc.current), fs.SplitLines(tc.proposed)
			ops := diff.Opcodes(cur, prop, diff.Options{})
			got := ApplyHunks(cur, prop, ops, model.NewKeySet(), ApplyOptions{})
			if !reflect.DeepEqual(got, append([]string{}, cur...)) {
				t.Errorf("got %q, want %q", got, cur)
			}
		})
	}
}

func TestApplyHunksFullSelectionEqualsProposed(t *testing.T) {
	for _, tc := range applyCases {
		t.Run(tc.name, func(t *testing.T) {
			cur, prop := fs.SplitLines(tc.current), fs.SplitLines(tc.proposed)
			ops := diff.Opcodes(cur, prop, diff.Options{})
			selective := ApplyHunks(cur, prop, ops, allKeys(ops), ApplyOptions{})
			whole := ApplyHunks(cur, prop, ops, nil, ApplyOptions{WholeBlock: true})
			if !reflect.DeepEqual(selective, append([]string{}, prop...)) {
				t.Errorf("selective = %q, want %q", selective, prop)
			}
			if !reflect.DeepEqual(whole, append([]string{}, prop...)) {
				t.Errorf("whole = %q, want %q", whole, prop)
			}
		})
	}
}

func TestApplyHunksPartialSelection(t *testing.T) {
	cur := fs.SplitLines("a\nb\nc\nd\n")
	prop := fs.SplitLines("a\nB\nc\nD\n")
	ops := diff.Opcodes(cur, prop, diff.Options{})
	hunks := diff.Hunks(cur, prop, ops)
	if len(hunks) != 2 {
		t.Fatalf("hunks = %+v", hunks)
	}
	got := ApplyHunks(cur, prop, ops, model.NewKeySet(hunks[1].Key), ApplyOptions{})
	want := []string{"a\n", "b\n", "c\n", "D\n"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestApplyHunksIgnoreWhitespaceKeepsOriginalLines(t *testing.T) {
	cur := fs.SplitLines("x  =  1\ny\n")
	prop := fs.SplitLines("x = 1\nz\n")
	ops := diff.Opcodes(cur, prop, diff.Options{IgnoreWhitespace: true})
	got := ApplyHunks(cur, prop, ops, allKeys(ops), ApplyOptions{})
	want := []string{"x  =  1\n", "z\n"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestApplyHunksLockMarkers(t *testing.T) {
	cur := fs.SplitLines("    # [FUNC: f]\nbody\n    # [END: f]\n")
	prop := fs.SplitLines("# [FUNC: f]\nnew body\n# [END: f]\n")
	ops := diff.Opcodes(cur, prop, diff.Options{})
	opts := ApplyOptions{LockMarkers: true, MarkerStart: "# [FUNC: f]", MarkerEnd: "# [END: f]"}

	got := ApplyHunks(cur, prop, ops, allKeys(ops), opts)
	want := []string{"    # [FUNC: f]\n", "new body\n", "    # [END: f]\n"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("locked = %q, want %q", got, want)
	}

	opts.WholeBlock = true
	if got := ApplyHunks(cur, prop, ops, nil, opts); !reflect.DeepEqual(got, prop) {
		t.Errorf("whole block must ignore lock, got %q", got)
	}
}

func TestApplyHunksAddWithEmptyCurrent(t *testing.T) {
	prop := fs.SplitLines("def g():\n    pass\n")
	ops := diff.Opcodes(nil, prop, diff.Options{})
	got := ApplyHunks(nil, prop, ops, allKeys(ops), ApplyOptions{Action: model.ActionAdd})
	if !reflect.DeepEqual(got, prop) {
		t.Errorf("got %q", got)
	}
}

var file = []string{"x\n", "# [FUNC: f]\n", "a\n", "# [END: f]\n", "y\n"}

func request(action model.Action) model.EditRequest {
	return model.EditRequest{
		TargetPath:  "m.py",
		Action:      action,
		MarkerStart: "# [FUNC: f]",
		MarkerEnd:   "# [END: f]",
	}
}

func TestComposeReplace(t *testing.T) {
	got, err := ComposeFile(request(model.ActionReplace), file, model.BlockRange{Start: 1, End: 3},
		"context\n# [FUNC: f]\nb\n# [END: f]\ntrailing")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"x\n", "# [FUNC: f]\n", "b\n", "# [END: f]\n", "y\n"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestComposeReplaceWithoutTrailingNewline(t *testing.T) {
	got, err := ComposeFile(request(model.ActionReplace), file, model.BlockRange{Start: 1, End: 3},
		"# [FUNC: f]\nb\n# [END: f]")
	if err != nil {
		t.Fatal(err)
	}
	if got[3] != "# [END: f]\n" {
		t.Errorf("end marker = %q", got[3])
	}
}

func TestComposeReplaceErrors(t *testing.T) {
	_, err := ComposeFile(request(model.ActionReplace), file, model.BlockRange{Start: 1, End: 3}, "b\n")
	var le *model.LookupError
	if !errors.As(err, &le) || le.Hint == "" {
		t.Errorf("missing markers: err = %v", err)
	}
	if _, err := ComposeFile(request(model.ActionReplace), file, model.NoRange, "# [FUNC: f]\n# [END: f]\n"); !model.IsLookup(err) {
		t.Errorf("invalid range: err = %v", err)
	}
	if _, err := ComposeFile(request(model.ActionReplace), file, model.BlockRange{Start: 3, End: 9}, "# [FUNC: f]\n# [END: f]\n"); !model.IsLookup(err) {
		t.Errorf("out of bounds range: err = %v", err)
	}
}

func TestComposeDelete(t *testing.T) {
	got, err := ComposeFile(request(model.ActionDelete), file, model.BlockRange{Start: 1, End: 3}, "")
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"x\n", "y\n"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
	if _, err := ComposeFile(request(model.ActionDelete), file, model.NoRange, ""); !model.IsLookup(err) {
		t.Errorf("err = %v", err)
	}
}

func TestComposeAdd(t *testing.T) {
	t.Run("append", func(t *testing.T) {
		got, _ := ComposeFile(request(model.ActionAdd), []string{"a\n", "b"}, model.NoRange, "c\nd")
		want := []string{"a\n", "b\n", "c\n", "d\n"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %q, want %q", got, want)
		}
	})
	t.Run("before extension point", func(t *testing.T) {
		lines := []string{"# [SECTION: EXTENSION_POINTS]\n", "# [END: SECTION: EXTENSION_POINTS]\n", "tail\n"}
		got, _ := ComposeFile(request(model.ActionAdd), lines, model.NoRange, "new\n")
		want := []string{"# [SECTION: EXTENSION_POINTS]\n", "new\n", "# [END: SECTION: EXTENSION_POINTS]\n", "tail\n"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %q, want %q", got, want)
		}
	})
	t.Run("empty file", func(t *testing.T) {
		got, _ := ComposeFile(request(model.ActionAdd), nil, model.NoRange, "only")
		if !reflect.DeepEqual(got, []string{"only\n"}) {
			t.Errorf("got %q", got)
		}
	})
	t.Run("empty proposal", func(t *testing.T) {
		got, _ := ComposeFile(request(model.ActionAdd), []string{"a\n", "b\n"}, model.NoRange, "")
		want := []string{"a\n", "b\n"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %q, want %q", got, want)
		}
	})
	t.Run("crlf file", func(t *testing.T) {
		got, _ := ComposeFile(request(model.ActionAdd), []string{"a\r\n", "b"}, model.NoRange, "c")
		want := []string{"a\r\n", "b\r\n", "c\r\n"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %q, want %q", got, want)
		}
	})
}

func TestComposeUnsupported(t *testing.T) {
	_, err := ComposeFile(request("MOVE"), file, model.NoRange, "")
	var ue *model.UnsupportedActionError
	if !errors.As(err, &ue) {
		t.Errorf("err = %v", err)
	}
}
