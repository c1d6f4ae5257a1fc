package utils

import (
	"path/filepath"
	"runtime"
)

// SiblingDir resolves a directory living next to the caller's source file.
// Used to locate the goose migrations regardless of the working directory.
func SiblingDir(name string) string {
	_, filename, _, ok := runtime.Caller(1)
	if !ok {
		panic("failed to resolve the caller's file path")
	}
	return filepath.Join(filepath.Dir(filename), name)
}
