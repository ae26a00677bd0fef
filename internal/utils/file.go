package utils

import (
	"io"
	"os"
)

// CopyFile copies the contents of src to dst, creating missing parent
// directories. File mode and modification time are carried over best-effort.
// Returns the number of bytes copied.
func CopyFile(src, dst string) (int64, error) {
	if err := EnsureParent(dst); err != nil {
		return 0, err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return 0, err
	}

	written, err := io.Copy(dstFile, srcFile)
	if closeErr := dstFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return written, err
	}

	// best-effort metadata
	if info, statErr := srcFile.Stat(); statErr == nil {
		_ = os.Chmod(dst, info.Mode().Perm())
		_ = os.Chtimes(dst, info.ModTime(), info.ModTime())
	}

	return written, nil
}
