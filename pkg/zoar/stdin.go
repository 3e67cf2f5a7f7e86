package zoar

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadFileList reads newline-separated file names until EOF. Blank lines are
// skipped.
func ReadFileList(r io.Reader) ([]string, error) {
	var names []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name != "" {
			names = append(names, name)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read file list: %w", err)
	}
	return names, nil
}

// IsPiped reports whether f is the read end of a pipe.
func IsPiped(f *os.File) bool {
	if f == nil {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeNamedPipe != 0
}
