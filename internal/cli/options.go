// Package cli parses the filepack command line.
package cli

import (
	"flag"
	"fmt"
	"strings"
)

type Command string

const (
	CmdList       Command = "list"
	CmdExtract    Command = "extract"
	CmdAdd        Command = "add"
	CmdRemove     Command = "remove"
	CmdCompress   Command = "compress"
	CmdDecompress Command = "decompress"
	CmdStat       Command = "stat"
)

type Options struct {
	Command Command
	// Target is the archive or file the command operates on; may be a
	// local path or an s3:// location.
	Target string
	// Sources are the files to add (add command only).
	Sources []string

	Member    string
	All       bool
	Dir       string
	Exclude   []string
	Algorithm string
	Level     int
	Output    string
	InPlace   bool
	Verbose   bool
	Help      bool
}

type stringSlice []string

func (s *stringSlice) String() string { return strings.Join(*s, ",") }

func (s *stringSlice) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// Parse resolves args into Options. The first argument picks the
// command; the rest are parsed with a per-command flag set.
func Parse(args []string) (Options, error) {
	var opts Options
	if len(args) == 0 {
		opts.Help = true
		return opts, nil
	}
	switch args[0] {
	case "-h", "--help", "help":
		opts.Help = true
		return opts, nil
	}

	opts.Command = Command(args[0])
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	fs.Usage = func() {}
	fs.BoolVar(&opts.Verbose, "verbose", false, "enable debug logging")
	fs.BoolVar(&opts.Verbose, "v", false, "enable debug logging (shorthand)")

	var exclude stringSlice
	switch opts.Command {
	case CmdList:
	case CmdExtract:
		fs.StringVar(&opts.Member, "m", "", "extract only this member")
		fs.StringVar(&opts.Dir, "C", ".", "extraction directory")
		fs.Var(&exclude, "exclude", "skip members matching this glob (repeatable)")
		fs.BoolVar(&opts.InPlace, "in-place", false, "delete the archive (or member) after extraction")
	case CmdAdd:
		fs.BoolVar(&opts.InPlace, "in-place", false, "delete source files after adding")
	case CmdRemove:
		fs.StringVar(&opts.Member, "m", "", "member to remove")
		fs.BoolVar(&opts.All, "all", false, "delete the whole archive")
	case CmdCompress:
		fs.StringVar(&opts.Algorithm, "a", "gzip", "compression algorithm")
		fs.IntVar(&opts.Level, "l", 0, "compression level (default 9)")
		fs.StringVar(&opts.Output, "o", "", "target path")
		fs.BoolVar(&opts.InPlace, "in-place", false, "delete the source after compressing")
	case CmdDecompress:
		fs.StringVar(&opts.Algorithm, "a", "gzip", "compression algorithm")
		fs.StringVar(&opts.Output, "o", "", "target path")
		fs.BoolVar(&opts.InPlace, "in-place", false, "delete the source after decompressing")
	case CmdStat:
		fs.StringVar(&opts.Algorithm, "a", "gzip", "compression algorithm")
		fs.IntVar(&opts.Level, "l", 0, "trial compression level (default 9)")
	default:
		return opts, fmt.Errorf("unknown command %q", args[0])
	}

	if err := fs.Parse(args[1:]); err != nil {
		return opts, err
	}
	opts.Exclude = exclude

	rest := fs.Args()
	if len(rest) == 0 {
		return opts, fmt.Errorf("%s: missing file argument", opts.Command)
	}
	opts.Target = rest[0]

	switch opts.Command {
	case CmdAdd:
		if len(rest) < 2 {
			return opts, fmt.Errorf("add: at least one source file is required")
		}
		opts.Sources = rest[1:]
	case CmdRemove:
		if opts.Member == "" && !opts.All {
			return opts, fmt.Errorf("remove: either -m or --all is required")
		}
		if opts.Member != "" && opts.All {
			return opts, fmt.Errorf("remove: -m and --all are mutually exclusive")
		}
		fallthrough
	default:
		if len(rest) > 1 {
			return opts, fmt.Errorf("%s: unexpected argument %q", opts.Command, rest[1])
		}
	}
	return opts, nil
}
