package archive

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type file struct {
	name string
	body string
}

var moduleFiles = []file{
	{"module.prop", "id=demo\nname=Demo\n"},
	{"system/bin/demo", "#!/system/bin/sh\n"},
	{"__MACOSX/._module.prop", "junk"},
	{"system/.DS_Store", "junk"},
}

func writeZip(t *testing.T, files []file) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.name)
		require.NoError(t, err)
		_, err = io.WriteString(w, f.body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return writeTemp(t, "pkg.zip", buf.Bytes())
}

func tarBytes(t *testing.T, files []file) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, f := range files {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     f.name,
			Mode:     0o755,
			Size:     int64(len(f.body)),
			Typeflag: tar.TypeReg,
		}))
		_, err := io.WriteString(tw, f.body)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func assertModuleTree(t *testing.T, dest string) {
	t.Helper()
	prop, err := os.ReadFile(filepath.Join(dest, "module.prop"))
	require.NoError(t, err)
	assert.Equal(t, "id=demo\nname=Demo\n", string(prop))
	assert.FileExists(t, filepath.Join(dest, "system", "bin", "demo"))
	assert.NoDirExists(t, filepath.Join(dest, "__MACOSX"))
	assert.NoFileExists(t, filepath.Join(dest, "system", ".DS_Store"))
}

func TestExtractZip(t *testing.T) {
	src := writeZip(t, moduleFiles)
	dest := filepath.Join(t.TempDir(), "staging")

	var seen []string
	n, err := Extract(context.Background(), src, dest, func(name string) { seen = append(seen, name) })

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"module.prop", "system/bin/demo"}, seen)
	assertModuleTree(t, dest)
}

func TestExtractTarVariants(t *testing.T) {
	raw := tarBytes(t, moduleFiles)

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, err := gw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	var zs bytes.Buffer
	zw, err := zstd.NewWriter(&zs)
	require.NoError(t, err)
	_, err = zw.Write(raw)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	tests := []struct {
		name   string
		data   []byte
		format Format
	}{
		{"tar", raw, FormatTar},
		{"tar.gz", gz.Bytes(), FormatTarGzip},
		{"tar.zst", zs.Bytes(), FormatTarZstd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := writeTemp(t, "pkg.bin", tt.data)

			format, err := Detect(src)
			require.NoError(t, err)
			assert.Equal(t, tt.format, format)

			dest := t.TempDir()
			n, err := Extract(context.Background(), src, dest, nil)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
			assertModuleTree(t, dest)

			info, err := os.Stat(filepath.Join(dest, "system", "bin", "demo"))
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
		})
	}
}

func TestDetectIgnoresExtension(t *testing.T) {
	src := writeZip(t, moduleFiles)
	renamed := filepath.Join(filepath.Dir(src), "module_APM.bin")
	require.NoError(t, os.Rename(src, renamed))

	format, err := Detect(renamed)
	require.NoError(t, err)
	assert.Equal(t, FormatZip, format)
}

func TestExtractRejectsEscapingEntries(t *testing.T) {
	for _, name := range []string{"../evil", "a/../../evil", "/etc/evil"} {
		t.Run(name, func(t *testing.T) {
			src := writeZip(t, []file{{"ok.txt", "fine"}, {name, "bad"}})
			root := t.TempDir()
			dest := filepath.Join(root, "staging")

			_, err := Extract(context.Background(), src, dest, nil)

			assert.ErrorIs(t, err, ErrUnsafePath)
			assert.NoFileExists(t, filepath.Join(root, "evil"))
		})
	}
}

func TestExtractUnsupported(t *testing.T) {
	src := writeTemp(t, "notes.txt", []byte("just some text\n"))

	_, err := Extract(context.Background(), src, t.TempDir(), nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractMissingFile(t *testing.T) {
	_, err := Extract(context.Background(), filepath.Join(t.TempDir(), "absent.zip"), t.TempDir(), nil)
	assert.Error(t, err)
}

func TestExtractCancelled(t *testing.T) {
	src := writeZip(t, moduleFiles)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Extract(ctx, src, t.TempDir(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInventory(t *testing.T) {
	dest := t.TempDir()
	_, err := Extract(context.Background(), writeZip(t, moduleFiles), dest, nil)
	require.NoError(t, err)

	entries, err := Inventory(dest)
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, "module.prop", entries[0].Path)
	assert.Equal(t, "system/bin/demo", entries[1].Path)
	assert.Equal(t, int64(len("id=demo\nname=Demo\n")+len("#!/system/bin/sh\n")), TotalSize(entries))
}
