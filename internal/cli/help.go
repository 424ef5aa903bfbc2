package cli

import "fmt"

func HelpText(prog string) string {
	return fmt.Sprintf(`Usage: %[1]s <command> [flags] <file> [sources...]

Commands:
  list        print the members of an archive
  extract     extract members of an archive
  add         add files to an archive (created if missing)
  remove      remove one member or the whole archive
  compress    compress a file with gzip, bzip2, xz, lz4 or zstd
  decompress  decompress a file
  stat        print compressed/uncompressed sizes and the ratio

The file argument may be a local path or an s3://bucket/key location.

Examples:
  %[1]s add backup.tar notes.txt
  %[1]s list backup.tar
  %[1]s extract -C out -m notes.txt backup.tar
  %[1]s remove -m notes.txt backup.tar
  %[1]s compress -a zstd -l 6 backup.tar
  %[1]s stat -a gzip backup.tar

Per-command flags are listed above; "%[1]s <command> -h" is not supported.
`, prog)
}
