package cli

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want Options
	}{
		{
			name: "list",
			args: []string{"list", "backup.tar"},
			want: Options{Command: CmdList, Target: "backup.tar"},
		},
		{
			name: "extract with flags",
			args: []string{"extract", "-C", "out", "-m", "a.txt", "-in-place", "backup.tar"},
			want: Options{Command: CmdExtract, Target: "backup.tar", Dir: "out", Member: "a.txt", InPlace: true},
		},
		{
			name: "extract with excludes",
			args: []string{"extract", "-C", "out", "-exclude", "*.log", "-exclude", "tmp/**", "backup.tar"},
			want: Options{Command: CmdExtract, Target: "backup.tar", Dir: "out", Exclude: []string{"*.log", "tmp/**"}},
		},
		{
			name: "add",
			args: []string{"add", "backup.tar", "a.txt", "b.txt"},
			want: Options{Command: CmdAdd, Target: "backup.tar", Sources: []string{"a.txt", "b.txt"}},
		},
		{
			name: "remove member",
			args: []string{"remove", "-m", "a.txt", "backup.tar"},
			want: Options{Command: CmdRemove, Target: "backup.tar", Member: "a.txt"},
		},
		{
			name: "remove all",
			args: []string{"remove", "-all", "backup.tar"},
			want: Options{Command: CmdRemove, Target: "backup.tar", All: true},
		},
		{
			name: "compress",
			args: []string{"compress", "-a", "zstd", "-l", "6", "-o", "out.zst", "data.bin"},
			want: Options{Command: CmdCompress, Target: "data.bin", Algorithm: "zstd", Level: 6, Output: "out.zst"},
		},
		{
			name: "decompress in place",
			args: []string{"decompress", "-a", "gz", "-in-place", "data.bin.gz"},
			want: Options{Command: CmdDecompress, Target: "data.bin.gz", Algorithm: "gz", InPlace: true},
		},
		{
			name: "stat",
			args: []string{"stat", "-a", "xz", "data.bin"},
			want: Options{Command: CmdStat, Target: "data.bin", Algorithm: "xz"},
		},
		{
			name: "verbose",
			args: []string{"list", "-v", "backup.tar"},
			want: Options{Command: CmdList, Target: "backup.tar", Verbose: true},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.args)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			assertOptions(t, got, tc.want)
		})
	}
}

func TestParseHelp(t *testing.T) {
	for _, args := range [][]string{nil, {"-h"}, {"--help"}, {"help"}} {
		got, err := Parse(args)
		if err != nil {
			t.Fatalf("Parse(%v) error = %v", args, err)
		}
		if !got.Help {
			t.Fatalf("Parse(%v).Help = false", args)
		}
	}
}

func TestParseErrors(t *testing.T) {
	cases := [][]string{
		{"explode", "backup.tar"},
		{"list"},
		{"add", "backup.tar"},
		{"remove", "backup.tar"},
		{"remove", "-m", "a.txt", "-all", "backup.tar"},
		{"list", "backup.tar", "extra.tar"},
	}
	for _, args := range cases {
		if _, err := Parse(args); err == nil {
			t.Fatalf("Parse(%v) did not fail", args)
		}
	}
}

func assertOptions(t *testing.T, got, want Options) {
	t.Helper()
	if got.Command != want.Command || got.Target != want.Target ||
		got.Member != want.Member || got.All != want.All ||
		got.Dir != want.Dir || got.Algorithm != want.Algorithm ||
		got.Level != want.Level || got.Output != want.Output ||
		got.InPlace != want.InPlace || got.Verbose != want.Verbose {
		t.Fatalf("Parse() = %+v, want %+v", got, want)
	}
	if len(got.Sources) != len(want.Sources) {
		t.Fatalf("Sources = %v, want %v", got.Sources, want.Sources)
	}
	for i := range got.Sources {
		if got.Sources[i] != want.Sources[i] {
			t.Fatalf("Sources = %v, want %v", got.Sources, want.Sources)
		}
	}
	if len(got.Exclude) != len(want.Exclude) {
		t.Fatalf("Exclude = %v, want %v", got.Exclude, want.Exclude)
	}
	for i := range got.Exclude {
		if got.Exclude[i] != want.Exclude[i] {
			t.Fatalf("Exclude = %v, want %v", got.Exclude, want.Exclude)
		}
	}
}
