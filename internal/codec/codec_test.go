package codec

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	payload := []byte(strings.Repeat("filepack-codec-payload-", 256))
	for _, a := range []Algorithm{Gzip, Bzip2, Xz, Lz4, Zstd} {
		t.Run(string(a), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(nopWriteCloser{Writer: &buf}, a, 0)
			if err != nil {
				t.Fatalf("NewWriter() error = %v", err)
			}
			if _, err := w.Write(payload); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}
			if buf.Len() == 0 {
				t.Fatalf("no compressed output")
			}

			r, err := NewReader(io.NopCloser(bytes.NewReader(buf.Bytes())), a)
			if err != nil {
				t.Fatalf("NewReader() error = %v", err)
			}
			got, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if err := r.Close(); err != nil {
				t.Fatalf("reader Close() error = %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Fatalf("payload mismatch after round trip")
			}
		})
	}
}

func TestLevelChangesOutput(t *testing.T) {
	payload := []byte(strings.Repeat("aaaaaaaaaabbbbbbbbbbcccc", 4096))
	sizes := make(map[int]int)
	for _, level := range []int{1, 9} {
		var buf bytes.Buffer
		w, err := NewWriter(nopWriteCloser{Writer: &buf}, Gzip, level)
		if err != nil {
			t.Fatalf("NewWriter(level=%d) error = %v", level, err)
		}
		if _, err := w.Write(payload); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		sizes[level] = buf.Len()
	}
	if sizes[9] > sizes[1] {
		t.Fatalf("level 9 output (%d) larger than level 1 (%d)", sizes[9], sizes[1])
	}
}

func TestFromString(t *testing.T) {
	cases := map[string]Algorithm{
		"gzip": Gzip, "gz": Gzip, "GZIP": Gzip,
		"bzip2": Bzip2, "bz2": Bzip2,
		"xz":   Xz,
		"lz4":  Lz4,
		"zstd": Zstd, "zst": Zstd,
	}
	for in, want := range cases {
		got, ok := FromString(in)
		if !ok || got != want {
			t.Fatalf("FromString(%q) = %q, %v, want %q", in, got, ok, want)
		}
	}
	if _, ok := FromString("brotli"); ok {
		t.Fatalf("FromString(brotli) accepted an unsupported algorithm")
	}
}

func TestSuffix(t *testing.T) {
	cases := map[Algorithm]string{
		Gzip: ".gz", Bzip2: ".bz2", Xz: ".xz", Lz4: ".lz4", Zstd: ".zst",
	}
	for a, want := range cases {
		if got := Suffix(a); got != want {
			t.Fatalf("Suffix(%s) = %q, want %q", a, got, want)
		}
	}
}

func TestUnsupportedAlgorithm(t *testing.T) {
	if _, err := NewWriter(nopWriteCloser{Writer: io.Discard}, Algorithm("rar"), 0); err == nil {
		t.Fatalf("NewWriter() accepted an unsupported algorithm")
	}
	if _, err := NewReader(io.NopCloser(strings.NewReader("")), Algorithm("rar")); err == nil {
		t.Fatalf("NewReader() accepted an unsupported algorithm")
	}
}

type nopWriteCloser struct{ io.Writer }

func (n nopWriteCloser) Close() error { return nil }
