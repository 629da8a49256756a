// Package testutil provides helpers for enforcing import boundaries between
// the layers of the repository.
package testutil

import (
	"fmt"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// AssertNoDirectImports scans all non-test .go files in dir (typically "."
// from within the package under test) and fails if any import path satisfies
// the forbidden predicate. Build tags are not followed.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	violations, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("scan %s: %v", dir, err)
	}
	if len(violations) > 0 {
		t.Fatalf("forbidden imports (%s):\n%s", reason, strings.Join(violations, "\n"))
	}
}

// DomainPurityForbidden matches imports that would couple pkg/domain to the
// rest of the module. The domain layer depends only on the standard library
// and the decimal arithmetic package.
func DomainPurityForbidden(path string) bool {
	if strings.HasPrefix(path, "aquacore/") {
		return true
	}
	if !strings.Contains(path, ".") {
		return false // standard library
	}
	return path != "github.com/shopspring/decimal"
}

// StorageImportForbidden matches imports of internal/core. Storage backends
// sit below the service layer and must not reach up into it.
func StorageImportForbidden(path string) bool {
	return path == "aquacore/internal/core" || strings.HasPrefix(path, "aquacore/internal/core/")
}

func directImportViolations(dir string, forbidden func(string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var violations []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		path := filepath.Join(dir, name)
		file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		for _, imp := range file.Imports {
			value, err := strconv.Unquote(imp.Path.Value)
			if err != nil {
				continue
			}
			if forbidden(value) {
				violations = append(violations, fmt.Sprintf("%s imports %s", name, value))
			}
		}
	}
	return violations, nil
}
