package marker

import (
	"reflect"
	"strings"
	"testing"

	"github.com/sokinpui/markpatch/model"
)

func TestFindAll(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  []model.BlockRange
	}{
		{
			name:  "no pairs",
			lines: []string{"a\n", "b\n"},
			want:  nil,
		},
		{
			name:  "two pairs in order",
			lines: []string{"S\n", "x\n", "E\n", "y\n", "S\n", "E\r\n"},
			want:  []model.BlockRange{{Start: 0, End: 2}, {Start: 4, End: 5}},
		},
		{
			name:  "unmatched trailing start",
			lines: []string{"S\n", "E\n", "S\n", "z\n"},
			want:  []model.BlockRange{{Start: 0, End: 1}},
		},
		{
			name:  "end before start is skipped",
			lines: []string{"E\n", "S\n", "E\n"},
			want:  []model.BlockRange{{Start: 1, End: 2}},
		},
		{
			name:  "surrounding whitespace on the file line is significant",
			lines: []string{"S \n", " S\n", "E\n"},
			want:  nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindAll(tt.lines, "S", "E")
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FindAll() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindFirstNotFound(t *testing.T) {
	if got := FindFirst([]string{"a\n"}, "S", "E"); got != model.NoRange {
		t.Errorf("FindFirst() = %v, want NoRange", got)
	}
}

func TestResolve(t *testing.T) {
	lines := []string{"# [FUNC: f]\n", "a\n", "# [END: f]\n", "# [FUNC: f]\n", "b\n", "# [END: f]\n"}

	t.Run("selector chooses second", func(t *testing.T) {
		var seen []string
		res := Resolve(lines, "# [FUNC: f]", "# [END: f]", func(labels []string) (int, bool) {
			seen = labels
			return 1, true
		})
		if res.Range != (model.BlockRange{Start: 3, End: 5}) {
			t.Errorf("Range = %v", res.Range)
		}
		if len(seen) != 2 || !strings.HasPrefix(seen[1], "Lines 4-6:") {
			t.Errorf("labels = %q", seen)
		}
	})

	t.Run("rejection", func(t *testing.T) {
		res := Resolve(lines, "# [FUNC: f]", "# [END: f]", func([]string) (int, bool) { return 0, false })
		if res.Found() || !res.Ambiguous() || res.Candidates != 2 {
			t.Errorf("unexpected resolution %+v", res)
		}
	})

	t.Run("nil selector rejects ambiguity", func(t *testing.T) {
		if res := Resolve(lines, "# [FUNC: f]", "# [END: f]", nil); !res.Ambiguous() {
			t.Errorf("expected ambiguous resolution, got %+v", res)
		}
	})

	t.Run("single match skips selector", func(t *testing.T) {
		res := Resolve(lines[:3], "# [FUNC: f]", "# [END: f]", func([]string) (int, bool) {
			t.Fatal("selector must not be called")
			return 0, false
		})
		if res.Range != (model.BlockRange{Start: 0, End: 2}) {
			t.Errorf("Range = %v", res.Range)
		}
	})
}

func TestStripStale(t *testing.T) {
	lines := []string{
		"# [SECTION: Imports]\n",
		"import os\n",
		"# [END: Imports]\n",
		"// [FUNC: main] START\n",
		"<!-- [CLASS: Window] -->\n",
		"REM [END: label]\n",
		"# region helpers\n",
		"// endregion\n",
		"# ---------------\n",
		"# ==== Utils ====\n",
		"---\n",
		"x = [1, 2]\n",
		"# a normal comment\n",
	}
	cleaned, removed := StripStale(lines)
	want := []string{"import os\n", "---\n", "x = [1, 2]\n", "# a normal comment\n"}
	if !reflect.DeepEqual(cleaned, want) {
		t.Errorf("cleaned = %q, want %q", cleaned, want)
	}
	if removed != len(lines)-len(want) {
		t.Errorf("removed = %d", removed)
	}
}

func TestTableStyleFor(t *testing.T) {
	table := DefaultTable()
	tests := map[string]Style{
		"a.py":       {Prefix: "# "},
		"b.GO":       {Prefix: "// "},
		"run.bat":    {Prefix: "REM "},
		"form.ui":    {Prefix: "<!-- ", Suffix: " -->"},
		"unknown.zz": {Prefix: "# "},
	}
	for path, want := range tests {
		if got := table.StyleFor(path); got != want {
			t.Errorf("StyleFor(%s) = %+v, want %+v", path, got, want)
		}
	}
	if !table.IsMarkup("index.HTML") || table.IsMarkup("main.go") {
		t.Error("unexpected markup classification")
	}
}

func TestTableOverridesDoNotLeak(t *testing.T) {
	base := DefaultTable()
	custom, err := base.WithStyle("lua", Style{Prefix: "-- "}).WithExtension("lua", "lua")
	if err != nil {
		t.Fatal(err)
	}
	if got := custom.StyleFor("init.lua"); got.Prefix != "-- " {
		t.Errorf("custom StyleFor = %+v", got)
	}
	if got := base.StyleFor("init.lua"); got.Prefix != "# " {
		t.Errorf("base table was mutated: %+v", got)
	}
	if _, err := base.WithExtension(".x", "nope"); err == nil {
		t.Error("expected unknown style error")
	}
}

func TestRenderMarkers(t *testing.T) {
	xml := Style{Prefix: "<!-- ", Suffix: " -->"}
	if got := xml.SectionBegin("Imports"); got != "<!-- [SECTION: Imports] -->" {
		t.Errorf("SectionBegin = %q", got)
	}
	rem := Style{Prefix: "REM "}
	if got := rem.End("setup"); got != "REM [END: setup]" {
		t.Errorf("End = %q", got)
	}
	if !IsStale(rem.FuncBegin("setup")) || !IsStale(xml.ClassBegin("W")) {
		t.Error("rendered markers must be recognized as stale")
	}
}

func TestIsExtensionPointEnd(t *testing.T) {
	for _, line := range []string{"# [END: SECTION: EXTENSION_POINTS]\n", "// [END: SECTION: EXTENSION_POINTS]", "<!-- [END: SECTION: EXTENSION_POINTS] -->"} {
		if !IsExtensionPointEnd(line) {
			t.Errorf("%q not recognized", line)
		}
	}
	if IsExtensionPointEnd("# [END: SECTION: OTHER]") {
		t.Error("unexpected match")
	}
}

func TestNearMiss(t *testing.T) {
	lines := []string{"#  [FUNC:   f]\n", "x\n", "# [END: f]\n"}
	hint := NearMiss(lines, "# [FUNC: f]", "# [END: f]")
	if !strings.Contains(hint, "whitespace from line 1") {
		t.Errorf("hint = %q", hint)
	}
	if strings.Contains(hint, "end marker") {
		t.Errorf("end marker exists exactly, hint = %q", hint)
	}
}
