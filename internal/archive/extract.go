package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"

	"github.com/GriffinCanCode/apcore/internal/shared/paths"
)

var (
	// ErrUnsafePath is returned for entries that escape the destination.
	ErrUnsafePath = errors.New("archive: entry escapes destination")
	// ErrUnsupportedFormat is returned when the content is not a known archive.
	ErrUnsupportedFormat = errors.New("archive: unsupported format")
)

// Format is a supported archive layout.
type Format string

const (
	FormatZip     Format = "zip"
	FormatTar     Format = "tar"
	FormatTarGzip Format = "tar.gz"
	FormatTarZstd Format = "tar.zst"
)

// skipPatterns match entries that are never extracted.
var skipPatterns = []string{"__MACOSX/**", "**/.DS_Store"}

// Detect sniffs the archive format of the file at p.
func Detect(p string) (Format, error) {
	mtype, err := mimetype.DetectFile(p)
	if err != nil {
		return "", fmt.Errorf("detect %s: %w", p, err)
	}
	for m := mtype; m != nil; m = m.Parent() {
		switch {
		case m.Is("application/zip"):
			return FormatZip, nil
		case m.Is("application/x-tar"):
			return FormatTar, nil
		case m.Is("application/gzip"):
			return FormatTarGzip, nil
		case m.Is("application/zstd"):
			return FormatTarZstd, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, mtype.String())
}

// Extract unpacks the archive at src into dest, creating dest if needed.
// onEntry, if set, is called with the slash-separated name of every file
// written. It returns the number of files written.
func Extract(ctx context.Context, src, dest string, onEntry func(name string)) (int, error) {
	format, err := Detect(src)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return 0, fmt.Errorf("create destination: %w", err)
	}

	x := &extractor{ctx: ctx, dest: filepath.Clean(dest), onEntry: onEntry}
	switch format {
	case FormatZip:
		err = x.zip(src)
	default:
		err = x.tarFile(src, format)
	}
	return x.files, err
}

type extractor struct {
	ctx     context.Context
	dest    string
	onEntry func(string)
	files   int
}

func (x *extractor) zip(src string) error {
	reader, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if err := x.ctx.Err(); err != nil {
			return fmt.Errorf("extraction cancelled: %w", err)
		}

		target, skip, err := x.resolve(file.Name)
		if err != nil {
			return err
		}
		if skip {
			continue
		}

		info := file.FileInfo()
		if info.IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", file.Name, err)
		}
		err = x.write(target, file.Name, rc, info.Mode().Perm())
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func (x *extractor) tarFile(src string, format Format) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	switch format {
	case FormatTarGzip:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	case FormatTarZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("zstd: %w", err)
		}
		defer zr.Close()
		r = zr
	}
	return x.tar(tar.NewReader(r))
}

func (x *extractor) tar(tr *tar.Reader) error {
	for {
		if err := x.ctx.Err(); err != nil {
			return fmt.Errorf("extraction cancelled: %w", err)
		}

		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar: %w", err)
		}

		target, skip, err := x.resolve(header.Name)
		if err != nil {
			return err
		}
		if skip {
			continue
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := x.write(target, header.Name, tr, os.FileMode(header.Mode).Perm()); err != nil {
				return err
			}
		}
	}
}

// resolve maps an entry name to its path under dest.
func (x *extractor) resolve(name string) (string, bool, error) {
	clean := path.Clean(strings.ReplaceAll(name, `\`, "/"))
	if clean == "." || clean == "/" {
		return "", true, nil
	}
	for _, pattern := range skipPatterns {
		if ok, _ := doublestar.Match(pattern, strings.TrimPrefix(clean, "./")); ok {
			return "", true, nil
		}
	}
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false, fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}

	target := filepath.Join(x.dest, filepath.FromSlash(clean))
	if !paths.Within(x.dest, target) {
		return "", false, fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, false, nil
}

func (x *extractor) write(target, name string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := out.Close(); err != nil {
		return err
	}

	x.files++
	if x.onEntry != nil {
		x.onEntry(path.Clean(strings.ReplaceAll(name, `\`, "/")))
	}
	return nil
}
