// Package report writes the human-readable record of a resolution run.
package report

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"concretize/internal/resolve"
)

// FileName returns the report file name for target.
func FileName(target string) string {
	return "concretized_" + target + "_types.log"
}

// Header is the one-line summary of a run.
func Header(target, output string, res *resolve.Result, elapsed time.Duration) string {
	if abs, err := filepath.Abs(output); err == nil {
		output = abs
	}
	return fmt.Sprintf("%s - %.3fs to inject %d concrete types in module '%s'",
		target, elapsed.Seconds(), len(res.Types), output)
}

// Write stores the header, every resolved type one per line and the
// resolution counters in dir, replacing an earlier report for target.
// It returns the report path.
func Write(dir, target, output string, res *resolve.Result, elapsed time.Duration) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName(target))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	w := bufio.NewWriter(f)
	fmt.Fprintln(w, Header(target, output, res, elapsed))
	for _, t := range res.Types {
		fmt.Fprintln(w, t.FullName())
	}
	fmt.Fprintf(w, "# %s\n", res.Stats)
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
