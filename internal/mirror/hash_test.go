package mirror

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func TestFilesEqual(t *testing.T) {
	cmp := NewComparator(testLogger())
	dir := t.TempDir()

	big := bytes.Repeat([]byte("abcdefgh"), 2048) // 16 KiB, spans multiple chunks

	bigFirstDiff := bytes.Clone(big)
	bigFirstDiff[0] ^= 0xff

	bigLastDiff := bytes.Clone(big)
	bigLastDiff[len(bigLastDiff)-1] ^= 0xff

	cases := []struct {
		name  string
		a, b  []byte
		equal bool
	}{
		{"identical small", []byte("hello"), []byte("hello"), true},
		{"identical large", big, bytes.Clone(big), true},
		{"empty files", []byte{}, []byte{}, true},
		{"differ in first chunk", big, bigFirstDiff, false},
		{"differ in last chunk", big, bigLastDiff, false},
		{"different length same prefix", big, big[:len(big)-100], false},
		{"prefix shorter than one chunk", []byte("hello world"), []byte("hello"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pathA := filepath.Join(dir, "a_"+tc.name)
			pathB := filepath.Join(dir, "b_"+tc.name)
			writeFile(t, pathA, tc.a)
			writeFile(t, pathB, tc.b)

			assert.Equal(t, tc.equal, cmp.FilesEqual(pathA, pathB))
			assert.Equal(t, tc.equal, cmp.FilesEqual(pathB, pathA))
		})
	}
}

func TestFilesEqual_MissingOrNotRegular(t *testing.T) {
	cmp := NewComparator(testLogger())
	dir := t.TempDir()

	file := filepath.Join(dir, "a.txt")
	writeFile(t, file, []byte("hi"))

	assert.False(t, cmp.FilesEqual(file, filepath.Join(dir, "missing.txt")))
	assert.False(t, cmp.FilesEqual(filepath.Join(dir, "missing.txt"), file))
	assert.False(t, cmp.FilesEqual(file, dir))
	assert.False(t, cmp.FilesEqual(dir, dir))
}

func TestPairedDigestEqual_LengthDivergence(t *testing.T) {
	// equal-prefix streams of different length must never compare equal,
	// even without a size pre-check
	long := bytes.Repeat([]byte("x"), hashChunkSize*2)
	short := long[:hashChunkSize]

	equal, err := pairedDigestEqual(bytes.NewReader(long), bytes.NewReader(short))
	require.NoError(t, err)
	assert.False(t, equal)
}

func TestTreeEqual(t *testing.T) {
	cmp := NewComparator(testLogger())

	makeTree := func(t *testing.T) string {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "a.txt"), []byte("alpha"))
		writeFile(t, filepath.Join(root, "sub", "b.txt"), []byte("beta"))
		writeFile(t, filepath.Join(root, "sub", "deep", "c.txt"), []byte("gamma"))
		require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))
		return root
	}

	t.Run("identical copies", func(t *testing.T) {
		a := makeTree(t)
		b := makeTree(t)
		assert.True(t, cmp.TreeEqual(a, b))
	})

	t.Run("altered file", func(t *testing.T) {
		a := makeTree(t)
		b := makeTree(t)
		writeFile(t, filepath.Join(b, "sub", "b.txt"), []byte("BETA"))
		assert.False(t, cmp.TreeEqual(a, b))
	})

	t.Run("removed file", func(t *testing.T) {
		a := makeTree(t)
		b := makeTree(t)
		require.NoError(t, os.Remove(filepath.Join(b, "a.txt")))
		assert.False(t, cmp.TreeEqual(a, b))
	})

	t.Run("extra file", func(t *testing.T) {
		a := makeTree(t)
		b := makeTree(t)
		writeFile(t, filepath.Join(b, "extra.txt"), []byte("x"))
		assert.False(t, cmp.TreeEqual(a, b))
	})

	t.Run("removed subdirectory", func(t *testing.T) {
		a := makeTree(t)
		b := makeTree(t)
		require.NoError(t, os.RemoveAll(filepath.Join(b, "sub", "deep")))
		assert.False(t, cmp.TreeEqual(a, b))
	})

	t.Run("file replaced by directory", func(t *testing.T) {
		a := makeTree(t)
		b := makeTree(t)
		require.NoError(t, os.Remove(filepath.Join(b, "a.txt")))
		require.NoError(t, os.Mkdir(filepath.Join(b, "a.txt"), 0o755))
		assert.False(t, cmp.TreeEqual(a, b))
	})

	t.Run("not a directory", func(t *testing.T) {
		a := makeTree(t)
		assert.False(t, cmp.TreeEqual(a, filepath.Join(a, "a.txt")))
		assert.False(t, cmp.TreeEqual(filepath.Join(a, "missing"), a))
	})
}
