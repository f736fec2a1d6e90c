package file

import (
	"os"
	"path/filepath"
	"strings"
)

func ReplaceExt(path, ext string) string {
	if path == "" {
		return path
	}

	dir := filepath.Dir(path)
	filename := filepath.Base(path)

	lastDot := strings.LastIndex(filename, ".")

	if lastDot <= 0 {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		return filepath.Join(dir, filename+ext)
	}

	nameWithoutExt := filename[:lastDot]

	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	return filepath.Join(dir, nameWithoutExt+ext)
}

// Stem returns the file name without directory or extension.
// e.g. "/media/show/ep01.mkv" -> "ep01"
func Stem(path string) string {
	filename := filepath.Base(path)
	lastDot := strings.LastIndex(filename, ".")
	if lastDot <= 0 {
		return filename
	}
	return filename[:lastDot]
}

func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
