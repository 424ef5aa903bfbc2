// Package engine executes parsed CLI commands against the filepack
// facades, staging s3:// locations through a local scratch copy.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"text/tabwriter"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/islishude/filepack"
	"github.com/islishude/filepack/internal/cli"
	"github.com/islishude/filepack/internal/locator"
	s3store "github.com/islishude/filepack/internal/storage/s3"
)

const (
	ExitSuccess = 0
	ExitUsage   = 1
	ExitFatal   = 2
)

type Runner struct {
	stdout io.Writer
	log    *slog.Logger
}

func New(stdout, stderr io.Writer, verbose bool) *Runner {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return &Runner{
		stdout: stdout,
		log:    slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})),
	}
}

// outcome tells the s3 sync step what the command did to the staged
// file: rewrote it, deleted it, or produced a sibling file.
type outcome struct {
	mutated  bool
	deleted  bool
	produced string
}

func (r *Runner) Run(ctx context.Context, opts cli.Options) int {
	ref, err := locator.Parse(opts.Target)
	if err != nil {
		r.log.Error("bad file argument", "err", err)
		return ExitUsage
	}

	target := ref.Path
	var staged *stagedObject
	if ref.Kind == locator.KindS3 {
		staged, err = r.stage(ctx, ref, opts.Command == cli.CmdAdd)
		if err != nil {
			r.log.Error("fetching object failed", "location", ref.Raw, "err", err)
			return ExitFatal
		}
		defer staged.cleanup()
		target = staged.path
	}

	res, err := r.dispatch(ctx, opts, target)
	if err != nil {
		r.log.Error("command failed", "command", string(opts.Command), "err", err)
		return ExitFatal
	}

	if staged != nil {
		if err := r.sync(ctx, staged, res); err != nil {
			r.log.Error("syncing object failed", "location", ref.Raw, "err", err)
			return ExitFatal
		}
	}
	return ExitSuccess
}

func (r *Runner) dispatch(ctx context.Context, opts cli.Options, target string) (outcome, error) {
	if err := ctx.Err(); err != nil {
		return outcome{}, err
	}
	fp, err := filepack.New(target)
	if err != nil {
		return outcome{}, err
	}

	switch opts.Command {
	case cli.CmdList:
		return outcome{}, fp.WriteListing(r.stdout)
	case cli.CmdExtract:
		return r.runExtract(fp, opts)
	case cli.CmdAdd:
		for _, src := range opts.Sources {
			r.log.Debug("adding member", "source", src)
			if err := fp.AddMember(src, opts.InPlace); err != nil {
				return outcome{}, err
			}
		}
		return outcome{mutated: true}, nil
	case cli.CmdRemove:
		if opts.All {
			return outcome{deleted: true}, fp.RemoveAll()
		}
		return outcome{mutated: true}, fp.RemoveMember(opts.Member)
	case cli.CmdCompress:
		return r.runCompress(fp, opts)
	case cli.CmdDecompress:
		return r.runDecompress(fp, opts)
	case cli.CmdStat:
		return outcome{}, r.runStat(fp, opts)
	default:
		return outcome{}, fmt.Errorf("unknown command %q", opts.Command)
	}
}

func (r *Runner) runExtract(fp *filepack.FilePack, opts cli.Options) (outcome, error) {
	if opts.Member != "" {
		err := fp.ExtractMember(opts.Member, opts.Dir, opts.InPlace)
		return outcome{mutated: opts.InPlace}, err
	}
	if len(opts.Exclude) == 0 {
		return outcome{deleted: opts.InPlace}, fp.ExtractAll(opts.Dir, opts.InPlace)
	}

	members, err := fp.Members()
	if err != nil {
		return outcome{}, err
	}
	for _, m := range members {
		if matchAny(opts.Exclude, m.Name) {
			r.log.Debug("skipping excluded member", "name", m.Name)
			continue
		}
		if err := fp.ExtractMember(m.Name, opts.Dir, false); err != nil {
			return outcome{}, err
		}
	}
	if opts.InPlace {
		return outcome{deleted: true}, fp.RemoveAll()
	}
	return outcome{}, nil
}

func (r *Runner) runCompress(fp *filepack.FilePack, opts cli.Options) (outcome, error) {
	algo, err := filepack.ParseAlgorithm(opts.Algorithm)
	if err != nil {
		return outcome{}, err
	}
	produced, err := fp.Compress(algo, filepack.CompressOptions{
		TargetPath: opts.Output,
		InPlace:    opts.InPlace,
		Level:      opts.Level,
	})
	if err != nil {
		return outcome{}, err
	}
	fmt.Fprintln(r.stdout, produced)
	return outcome{deleted: opts.InPlace, produced: produced}, nil
}

func (r *Runner) runDecompress(fp *filepack.FilePack, opts cli.Options) (outcome, error) {
	algo, err := filepack.ParseAlgorithm(opts.Algorithm)
	if err != nil {
		return outcome{}, err
	}
	produced, err := fp.Decompress(algo, filepack.DecompressOptions{
		TargetPath: opts.Output,
		InPlace:    opts.InPlace,
	})
	if err != nil {
		return outcome{}, err
	}
	fmt.Fprintln(r.stdout, produced)
	return outcome{deleted: opts.InPlace, produced: produced}, nil
}

func (r *Runner) runStat(fp *filepack.FilePack, opts cli.Options) error {
	algo, err := filepack.ParseAlgorithm(opts.Algorithm)
	if err != nil {
		return err
	}
	level := opts.Level
	if level <= 0 {
		level = filepack.DefaultCompressionLevel
	}
	uncompressed, err := fp.UncompressedSize(algo)
	if err != nil {
		return err
	}
	compressed, err := fp.CompressedSize(algo, level)
	if err != nil {
		return err
	}
	ratio, err := fp.CompressionRatio(algo)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(r.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "uncompressed\t%dB\n", uncompressed)
	fmt.Fprintf(tw, "compressed\t%dB\n", compressed)
	fmt.Fprintf(tw, "ratio\t%s\n", ratio)
	return tw.Flush()
}

func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if doublestar.MatchUnvalidated(p, name) {
			return true
		}
	}
	return false
}

// stagedObject is a local scratch copy of an s3 object. Commands work
// on the copy and sync pushes the result back.
type stagedObject struct {
	ref   locator.Ref
	store *s3store.Store
	dir   string
	path  string
}

// stage downloads the object into a scratch directory, keeping the key's
// base name so format sniffing and suffix inference work on the copy.
// With allowMissing a key that does not exist yet stages an absent local
// file, so "add" can create a brand-new archive.
func (r *Runner) stage(ctx context.Context, ref locator.Ref, allowMissing bool) (*stagedObject, error) {
	store, err := s3store.New(ctx)
	if err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp("", "filepack-s3-*")
	if err != nil {
		return nil, err
	}
	s := &stagedObject{
		ref:   ref,
		store: store,
		dir:   dir,
		path:  filepath.Join(dir, path.Base(ref.Key)),
	}
	if err := store.Download(ctx, ref, s.path); err != nil {
		var missing *types.NoSuchKey
		if allowMissing && errors.As(err, &missing) {
			r.log.Debug("object does not exist yet, creating a new archive", "key", ref.Key)
			_ = os.Remove(s.path)
			return s, nil
		}
		s.cleanup()
		return nil, err
	}
	r.log.Debug("downloaded object", "key", ref.Key, "scratch", s.path)
	return s, nil
}

func (s *stagedObject) cleanup() {
	if s.dir != "" {
		_ = os.RemoveAll(s.dir)
	}
}

// sync pushes the command's result back to s3: a rewritten staged file
// is re-uploaded over the same key, a deleted one removes the object,
// and a produced sibling file is uploaded next to the original key.
func (r *Runner) sync(ctx context.Context, s *stagedObject, res outcome) error {
	if res.produced != "" {
		key := path.Join(path.Dir(s.ref.Key), filepath.Base(res.produced))
		out := locator.Ref{Kind: locator.KindS3, Raw: s.ref.Raw, Bucket: s.ref.Bucket, Key: key}
		if err := s.store.Upload(ctx, res.produced, out); err != nil {
			return err
		}
		r.log.Debug("uploaded object", "key", key)
	}
	if res.deleted {
		if err := s.store.Delete(ctx, s.ref); err != nil {
			return err
		}
		r.log.Debug("deleted object", "key", s.ref.Key)
		return nil
	}
	if res.mutated {
		if err := s.store.Upload(ctx, s.path, s.ref); err != nil {
			return err
		}
		r.log.Debug("uploaded object", "key", s.ref.Key)
	}
	return nil
}
