package engine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/islishude/filepack/internal/cli"
)

func run(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	opts, err := cli.Parse(args)
	if err != nil {
		t.Fatalf("cli.Parse(%v) error = %v", args, err)
	}
	var stdout, stderr bytes.Buffer
	r := New(&stdout, &stderr, opts.Verbose)
	code := r.Run(context.Background(), opts)
	return stdout.String(), stderr.String(), code
}

func TestRunArchiveCommands(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "backup.tar")
	a := writeFile(t, dir, "a.txt", "alpha")
	b := writeFile(t, dir, "b.log", "bravo")

	_, stderr, code := run(t, "add", archive, a, b)
	if code != ExitSuccess {
		t.Fatalf("add exit = %d, stderr = %s", code, stderr)
	}

	stdout, _, code := run(t, "list", archive)
	if code != ExitSuccess {
		t.Fatalf("list exit = %d", code)
	}
	if !strings.Contains(stdout, "a.txt") || !strings.Contains(stdout, "b.log") {
		t.Fatalf("list output = %q", stdout)
	}

	out := filepath.Join(dir, "out")
	_, stderr, code = run(t, "extract", "-C", out, "-exclude", "*.log", archive)
	if code != ExitSuccess {
		t.Fatalf("extract exit = %d, stderr = %s", code, stderr)
	}
	if _, err := os.Stat(filepath.Join(out, "a.txt")); err != nil {
		t.Fatalf("a.txt not extracted: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "b.log")); err == nil {
		t.Fatalf("excluded b.log was extracted")
	}

	_, stderr, code = run(t, "remove", "-m", "b.log", archive)
	if code != ExitSuccess {
		t.Fatalf("remove exit = %d, stderr = %s", code, stderr)
	}
	stdout, _, _ = run(t, "list", archive)
	if strings.Contains(stdout, "b.log") {
		t.Fatalf("b.log still listed after remove: %q", stdout)
	}

	_, _, code = run(t, "remove", "-all", archive)
	if code != ExitSuccess {
		t.Fatalf("remove -all exit = %d", code)
	}
	if _, err := os.Stat(archive); err == nil {
		t.Fatalf("archive still exists after remove -all")
	}
}

func TestRunCompressionCommands(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "data.bin", strings.Repeat("payload ", 1024))

	stdout, stderr, code := run(t, "compress", "-a", "gzip", data)
	if code != ExitSuccess {
		t.Fatalf("compress exit = %d, stderr = %s", code, stderr)
	}
	gz := strings.TrimSpace(stdout)
	if gz != data+".gz" {
		t.Fatalf("compress output = %q", gz)
	}

	stdout, stderr, code = run(t, "stat", "-a", "gzip", gz)
	if code != ExitSuccess {
		t.Fatalf("stat exit = %d, stderr = %s", code, stderr)
	}
	if !strings.Contains(stdout, "uncompressed") || !strings.Contains(stdout, ":1") {
		t.Fatalf("stat output = %q", stdout)
	}

	restored := filepath.Join(dir, "restored.bin")
	stdout, stderr, code = run(t, "decompress", "-a", "gzip", "-o", restored, gz)
	if code != ExitSuccess {
		t.Fatalf("decompress exit = %d, stderr = %s", code, stderr)
	}
	if strings.TrimSpace(stdout) != restored {
		t.Fatalf("decompress output = %q", stdout)
	}
	got, err := os.ReadFile(restored)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(got) != strings.Repeat("payload ", 1024) {
		t.Fatalf("restored content mismatch")
	}
}

func TestRunFailures(t *testing.T) {
	dir := t.TempDir()

	if _, _, code := run(t, "list", filepath.Join(dir, "missing.dat")); code != ExitFatal {
		t.Fatalf("list missing.dat exit = %d, want fatal", code)
	}
	if _, _, code := run(t, "compress", "-a", "rar", writeFile(t, dir, "x.bin", "x")); code != ExitFatal {
		t.Fatalf("compress -a rar exit = %d, want fatal", code)
	}
}

func TestMatchAny(t *testing.T) {
	if !matchAny([]string{"*.log", "tmp/**"}, "a.log") {
		t.Fatalf("matchAny(*.log, a.log) = false")
	}
	if !matchAny([]string{"*.log", "tmp/**"}, "tmp/x/y.txt") {
		t.Fatalf("matchAny(tmp/**, tmp/x/y.txt) = false")
	}
	if matchAny([]string{"*.log"}, "a.txt") {
		t.Fatalf("matchAny(*.log, a.txt) = true")
	}
	if matchAny(nil, "a.txt") {
		t.Fatalf("matchAny(nil, a.txt) = true")
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", name, err)
	}
	return path
}
