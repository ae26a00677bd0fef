package mirror

import (
	"bytes"
	"crypto/md5"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mirrorbox/mirrorbox/internal/utils"
)

const hashChunkSize = 4096

// Comparator decides content equality of files and whole directory trees.
// Equality is computed over streamed md5 digests; md5 is used purely for
// equality here, not authentication. Any I/O error during comparison resolves
// to "unequal" so the reconciler errs toward re-copying.
type Comparator struct {
	log *slog.Logger
}

func NewComparator(log *slog.Logger) *Comparator {
	return &Comparator{log: log}
}

// FilesEqual reports whether two regular files have identical content.
// Sizes are compared first as a fast reject; a size-read failure is logged
// and the comparison falls through to the content check.
func (c *Comparator) FilesEqual(a, b string) bool {
	if !utils.FileExists(a) || !utils.FileExists(b) {
		return false
	}

	infoA, errA := os.Stat(a)
	infoB, errB := os.Stat(b)
	if errA != nil || errB != nil {
		c.log.Debug("could not stat files for size check", "a", a, "b", b)
	} else if infoA.Size() != infoB.Size() {
		return false
	}

	fileA, err := os.Open(a)
	if err != nil {
		c.log.Debug("compare failed", "path", a, "error", err)
		return false
	}
	defer fileA.Close()

	fileB, err := os.Open(b)
	if err != nil {
		c.log.Debug("compare failed", "path", b, "error", err)
		return false
	}
	defer fileB.Close()

	equal, err := pairedDigestEqual(fileA, fileB)
	if err != nil {
		c.log.Debug("compare failed", "a", a, "b", b, "error", err)
		return false
	}
	return equal
}

// TreeEqual reports whether two directory trees are content-identical.
// Directories are compared by immediate entry names first, then entry by
// entry recursively with matching relative paths.
func (c *Comparator) TreeEqual(a, b string) bool {
	if !utils.DirExists(a) {
		c.log.Debug("not a directory", "path", a)
		return false
	}
	if !utils.DirExists(b) {
		c.log.Debug("not a directory", "path", b)
		return false
	}

	entriesA, err := os.ReadDir(a)
	if err != nil {
		c.log.Debug("read dir failed", "path", a, "error", err)
		return false
	}
	entriesB, err := os.ReadDir(b)
	if err != nil {
		c.log.Debug("read dir failed", "path", b, "error", err)
		return false
	}

	if len(entriesA) != len(entriesB) {
		return false
	}

	namesB := make(map[string]struct{}, len(entriesB))
	for _, entry := range entriesB {
		namesB[entry.Name()] = struct{}{}
	}

	for _, entry := range entriesA {
		if _, ok := namesB[entry.Name()]; !ok {
			return false
		}
		pathA := filepath.Join(a, entry.Name())
		pathB := filepath.Join(b, entry.Name())
		if utils.DirExists(pathA) || utils.DirExists(pathB) {
			if !c.TreeEqual(pathA, pathB) {
				return false
			}
		} else if !c.FilesEqual(pathA, pathB) {
			return false
		}
	}
	return true
}

// pairedDigestEqual streams both readers in lock-step 4096-byte chunks through
// incremental md5 digests, short-circuiting on the first divergence. A length
// divergence between paired chunks is unequal by definition, so two files of
// different length but identical prefix can never compare equal even if the
// size pre-check was skipped.
func pairedDigestEqual(a, b io.Reader) (bool, error) {
	digestA := md5.New()
	digestB := md5.New()
	chunkA := make([]byte, hashChunkSize)
	chunkB := make([]byte, hashChunkSize)

	for {
		lenA, err := readChunk(a, chunkA)
		if err != nil {
			return false, err
		}
		lenB, err := readChunk(b, chunkB)
		if err != nil {
			return false, err
		}

		if lenA != lenB {
			return false, nil
		}
		if lenA == 0 {
			break
		}

		digestA.Write(chunkA[:lenA])
		digestB.Write(chunkB[:lenB])
		if !bytes.Equal(digestA.Sum(nil), digestB.Sum(nil)) {
			return false, nil
		}
	}

	return bytes.Equal(digestA.Sum(nil), digestB.Sum(nil)), nil
}

// readChunk fills buf as far as the stream allows. EOF is reported as a zero
// or short read, not an error.
func readChunk(r io.Reader, buf []byte) (int, error) {
	n, err := io.ReadFull(r, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return n, nil
	}
	return n, err
}
