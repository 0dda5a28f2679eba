package scanner

import (
	"context"
	"reflect"
	"testing"

	"github.com/sokinpui/markpatch/model"
)

const pythonSource = `"""Doc."""
import os

from sys import (
    argv,
)
# comment
import re


@decorator
def top(a):
    return a


class Widget(Base):
    attr = 1

    def method(self):
        pass

    @property
    async def value(self):
        return 1


async def fetch():
    pass


if __name__ == "__main__":
    top(1)

`

func TestScanPython(t *testing.T) {
	got, err := Scan(context.Background(), []byte(pythonSource), KindPython)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []model.Entity{
		{Kind: model.KindImports, StartLine: 2, EndLine: 6},
		{Kind: model.KindFunction, Name: "top", StartLine: 11, EndLine: 13},
		{Kind: model.KindClass, Name: "Widget", StartLine: 16, EndLine: 24, Children: []model.Entity{
			{Kind: model.KindMethod, Name: "method", StartLine: 19, EndLine: 20},
			{Kind: model.KindMethod, Name: "value", StartLine: 22, EndLine: 24},
		}},
		{Kind: model.KindFunction, Name: "fetch", StartLine: 27, EndLine: 28},
		{Kind: model.KindEntrypoint, StartLine: 31, EndLine: 32},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Scan() =\n%+v\nwant\n%+v", got, want)
	}
}

func TestScanPythonGuardBeforeDefinition(t *testing.T) {
	src := "if '__main__' == __name__:\n    main()\n\ndef main():\n    pass\n"
	got, err := Scan(context.Background(), []byte(src), KindPython)
	if err != nil {
		t.Fatal(err)
	}
	want := []model.Entity{
		{Kind: model.KindEntrypoint, StartLine: 1, EndLine: 2},
		{Kind: model.KindFunction, Name: "main", StartLine: 4, EndLine: 5},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Scan() = %+v, want %+v", got, want)
	}
}

func TestScanPythonSyntaxError(t *testing.T) {
	_, err := Scan(context.Background(), []byte("def ok():\n    pass\n\ndef broken(:\n    pass\n"), KindPython)
	if !model.IsStructural(err) {
		t.Fatalf("err = %v, want StructuralParseError", err)
	}
}

const goSource = `package main

import (
	"fmt"
	"os"
)

type Server struct {
	name string
}

func (s *Server) Start() error {
	if s == nil {
		return nil // }
	}
	return nil
}

func main() { fmt.Println("}"); os.Exit(0) }
`

func TestScanGo(t *testing.T) {
	got, err := Scan(context.Background(), []byte(goSource), KindGo)
	if err != nil {
		t.Fatal(err)
	}
	want := []model.Entity{
		{Kind: model.KindImports, StartLine: 3, EndLine: 6},
		{Kind: model.KindClass, Name: "Server", StartLine: 8, EndLine: 10},
		{Kind: model.KindFunction, Name: "Start", StartLine: 12, EndLine: 17},
		{Kind: model.KindFunction, Name: "main", StartLine: 19, EndLine: 19},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Scan() =\n%+v\nwant\n%+v", got, want)
	}
}

func TestScanShell(t *testing.T) {
	src := "#!/bin/bash\nsource ./lib.sh\n. ./other.sh\n\ngreet() {\n  echo \"hi {\"\n}\n\nfunction cleanup {\n  rm -f x\n}\n"
	got, err := Scan(context.Background(), []byte(src), KindShell)
	if err != nil {
		t.Fatal(err)
	}
	want := []model.Entity{
		{Kind: model.KindImports, StartLine: 2, EndLine: 3},
		{Kind: model.KindFunction, Name: "greet", StartLine: 5, EndLine: 7},
		{Kind: model.KindFunction, Name: "cleanup", StartLine: 9, EndLine: 11},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Scan() = %+v, want %+v", got, want)
	}
}

func TestScanJavaScriptSkipsUnclosedBlock(t *testing.T) {
	src := "import x from 'x';\nexport default async function load() {\n  return x;\n}\nclass Broken {\n"
	got, _ := Scan(context.Background(), []byte(src), KindJavaScript)
	want := []model.Entity{
		{Kind: model.KindImports, StartLine: 1, EndLine: 1},
		{Kind: model.KindFunction, Name: "load", StartLine: 2, EndLine: 4},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Scan() = %+v, want %+v", got, want)
	}
}

func TestScanBatch(t *testing.T) {
	src := "@echo off\r\ncall :setup\r\ngoto :eof\r\n:: comment\r\n:setup\r\necho hi\r\n\r\n:run\r\necho run\r\n"
	got, _ := Scan(context.Background(), []byte(src), KindBatch)
	want := []model.Entity{
		{Kind: model.KindFunction, Name: "setup", StartLine: 5, EndLine: 6},
		{Kind: model.KindFunction, Name: "run", StartLine: 8, EndLine: 9},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Scan() = %+v, want %+v", got, want)
	}
}

func TestScanUnknownOnlyImports(t *testing.T) {
	src := "#include <stdio.h>\n\n#include \"x.h\"\n\nint main() {\n}\n"
	got, _ := Scan(context.Background(), []byte(src), KindUnknown)
	want := []model.Entity{{Kind: model.KindImports, StartLine: 1, EndLine: 3}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Scan() = %+v, want %+v", got, want)
	}
}

func TestKindFor(t *testing.T) {
	tests := map[string]Kind{
		"a.py":      KindPython,
		"b.PS1":     KindPowerShell,
		"c.tsx":     KindJavaScript,
		"d.go":      KindGo,
		"e.cmd":     KindBatch,
		"f.rs":      KindUnknown,
		"no-ext":    KindUnknown,
		"deploy.sh": KindShell,
	}
	for path, want := range tests {
		if got := KindFor(path); got != want {
			t.Errorf("KindFor(%s) = %s, want %s", path, got, want)
		}
	}
}
