package injector

import (
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"

	"github.com/sokinpui/markpatch/internal/fs"
	"github.com/sokinpui/markpatch/internal/marker"
	"github.com/sokinpui/markpatch/model"
)

const source = `import os
import sys


class Widget:
    def draw(self):
        pass


def helper():
    return 1


if __name__ == "__main__":
    helper()
`

const annotated = `# [SECTION: Imports]
import os
import sys
# [END: SECTION: Imports]


# [CLASS: Widget]
class Widget:
# [FUNC: draw]
    def draw(self):
        pass
# [END: draw]
# [END: Widget]


# [FUNC: helper]
def helper():
    return 1
# [END: helper]


# [SECTION: Entrypoint]
if __name__ == "__main__":
    helper()
# [END: SECTION: Entrypoint]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAnnotatePython(t *testing.T) {
	path := writeFile(t, "app.py", source)
	rep, err := Annotate(context.Background(), path, Options{Table: marker.DefaultTable()})
	if err != nil {
		t.Fatalf("Annotate: %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != annotated {
		t.Errorf("annotated file:\n%s\nwant:\n%s", got, annotated)
	}
	if rep.Stage != StageSaved || rep.Classes != 1 || rep.Methods != 1 || rep.Functions != 1 || !rep.Imports || !rep.Entrypoint {
		t.Errorf("report = %+v", rep)
	}
	bak, _ := os.ReadFile(path + ".bak")
	if string(bak) != source {
		t.Errorf("backup = %q", bak)
	}
}

func TestAnnotateIsIdempotent(t *testing.T) {
	path := writeFile(t, "app.py", source)
	opts := Options{Table: marker.DefaultTable()}
	if _, err := Annotate(context.Background(), path, opts); err != nil {
		t.Fatal(err)
	}
	first, _ := os.ReadFile(path)
	rep, err := Annotate(context.Background(), path, opts)
	if err != nil {
		t.Fatal(err)
	}
	second, _ := os.ReadFile(path)
	if string(first) != string(second) {
		t.Errorf("second run changed the file:\n%s", second)
	}
	if rep.Removed != 10 {
		t.Errorf("removed = %d, want 10", rep.Removed)
	}
}

func TestAnnotateParseErrorLeavesFile(t *testing.T) {
	content := "# [FUNC: x]\ndef broken(:\n"
	path := writeFile(t, "bad.py", content)
	rep, err := Annotate(context.Background(), path, Options{Table: marker.DefaultTable()})
	var se *model.StructuralParseError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v", err)
	}
	if se.Path != path {
		t.Errorf("error path = %q", se.Path)
	}
	if rep.Stage != StageCleaned {
		t.Errorf("stage = %s", rep.Stage)
	}
	got, _ := os.ReadFile(path)
	if string(got) != content {
		t.Error("file was modified")
	}
	if _, err := os.Stat(path + ".bak"); err == nil {
		t.Error("backup written for a failed run")
	}
}

func TestAnnotateSelfProtection(t *testing.T) {
	path := writeFile(t, SelfName, "package injector\n")
	rep, err := Annotate(context.Background(), path, Options{Table: marker.DefaultTable()})
	if err != nil || !rep.Skipped || len(rep.Steps) != 1 {
		t.Fatalf("rep = %+v, err = %v", rep, err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "package injector\n" {
		t.Error("injector source was modified")
	}
}

func TestAnnotateMarkup(t *testing.T) {
	content := "<?xml version=\"1.0\"?>\n<ui>\n</ui>"
	path := writeFile(t, "form.ui", content)
	rep, err := Annotate(context.Background(), path, Options{Table: marker.DefaultTable(), DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"<?xml version=\"1.0\"?>\n",
		"<!-- [SECTION: form.ui] -->\n",
		"<ui>\n",
		"</ui>\n",
		"<!-- [END: SECTION: form.ui] -->\n",
	}
	if !reflect.DeepEqual(rep.Output, want) {
		t.Errorf("output = %q", rep.Output)
	}
	got, _ := os.ReadFile(path)
	if string(got) != content {
		t.Error("dry run wrote the file")
	}
}

func TestAnnotateKeepsBOMAndCRLF(t *testing.T) {
	content := "\xef\xbb\xbf:start\r\necho hi\r\n"
	path := writeFile(t, "run.bat", content)
	if _, err := Annotate(context.Background(), path, Options{Table: marker.DefaultTable()}); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(path)
	want := "\xef\xbb\xbfREM [FUNC: start]\r\n:start\r\necho hi\r\nREM [END: start]\r\n"
	if string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// naiveInsert applies insertions in descending index order, splicing one
// at a time, the way an in-place implementation would.
func naiveInsert(lines []string, ins []Insertion) []string {
	order := append([]Insertion(nil), ins...)
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].Index != order[j].Index {
			return order[i].Index > order[j].Index
		}
		return order[i].Priority < order[j].Priority
	})
	out := append([]string(nil), lines...)
	for _, in := range order {
		out = append(out[:in.Index], append([]string{in.Text + "\n"}, out[in.Index:]...)...)
	}
	return out
}

func TestPlanMatchesDescendingSplice(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		n := 1 + rng.Intn(30)
		lines := make([]string, n)
		for i := range lines {
			lines[i] = strings.Repeat("x", i) + "\n"
		}

		var entities []model.Entity
		for line := 1; line <= n; {
			length := rng.Intn(4)
			end := min(line+length, n)
			e := model.Entity{Kind: model.KindFunction, Name: "f", StartLine: line, EndLine: end}
			if rng.Intn(3) == 0 && end > line {
				e.Kind, e.Name = model.KindClass, "C"
				e.Children = []model.Entity{{Kind: model.KindMethod, Name: "m", StartLine: line + 1, EndLine: end}}
			}
			entities = append(entities, e)
			line = end + 1 + rng.Intn(2)
		}

		var plan Plan
		for _, e := range entities {
			addEntity(&plan, e, marker.Style{Prefix: "# "})
		}
		got := plan.Apply(lines, "\n")
		want := naiveInsert(lines, plan.items)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("round %d: forward pass\n%q\ndiffers from splice\n%q", round, got, want)
		}
	}
}

func TestInjectAppendsTerminatorBeforeTrailingMarker(t *testing.T) {
	lines := fs.SplitLines("def f():\n    pass")
	got := Inject(lines, []model.Entity{{Kind: model.KindFunction, Name: "f", StartLine: 1, EndLine: 2}}, marker.Style{Prefix: "# "})
	want := []string{"# [FUNC: f]\n", "def f():\n", "    pass\n", "# [END: f]\n"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q", got)
	}
}
