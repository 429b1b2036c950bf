// Package modsel chooses which module files take part in a run.
package modsel

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Ext is the extension of module files.
const Ext = ".bin"

// fold builds a Caser per call; Casers are stateful.
func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// Name is the module name a file path stands for: its base name without
// extension.
func Name(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Matches reports whether name contains any of keywords, ignoring case.
func Matches(name string, keywords []string) bool {
	n := fold(name)
	for _, k := range keywords {
		if k != "" && strings.Contains(n, fold(k)) {
			return true
		}
	}
	return false
}

// Select keeps the candidates whose module name matches a keyword and no
// exclude entry. No keywords means every candidate matches. The input order
// is kept and duplicate paths are dropped.
func Select(candidates, keywords, exclude []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		clean := filepath.Clean(c)
		if _, dup := seen[clean]; dup {
			continue
		}
		seen[clean] = struct{}{}
		name := Name(clean)
		if len(keywords) > 0 && !Matches(name, keywords) {
			continue
		}
		if Matches(name, exclude) {
			continue
		}
		out = append(out, clean)
	}
	return out
}

// Discover lists module files directly inside dirs, each directory sorted
// by name, directories in the given order.
func Discover(dirs []string) ([]string, error) {
	var out []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", dir, err)
		}
		var names []string
		for _, e := range entries {
			if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), Ext) {
				names = append(names, e.Name())
			}
		}
		slices.Sort(names)
		for _, n := range names {
			out = append(out, filepath.Join(dir, n))
		}
	}
	return out, nil
}
