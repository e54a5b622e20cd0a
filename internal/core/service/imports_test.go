package service

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// The core may only reach outward through ports; api and infrastructure
// packages depend on it, never the other way round.
func TestCoreImportsStayInward(t *testing.T) {
	forbidden := []string{
		"github.com/fitlog/fitness-api/internal/api",
		"github.com/fitlog/fitness-api/internal/infrastructure",
		"github.com/fitlog/fitness-api/internal/app",
	}

	for _, dir := range []string{".", "../domain", "../ports"} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			t.Fatalf("read %s: %v", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".go") {
				continue
			}
			path := filepath.Join(dir, e.Name())
			f, err := parser.ParseFile(token.NewFileSet(), path, nil, parser.ImportsOnly)
			if err != nil {
				t.Fatalf("parse %s: %v", path, err)
			}
			for _, imp := range f.Imports {
				p, _ := strconv.Unquote(imp.Path.Value)
				for _, prefix := range forbidden {
					if p == prefix || strings.HasPrefix(p, prefix+"/") {
						t.Fatalf("%s imports %s", path, p)
					}
				}
			}
		}
	}
}
