// Package pathcat builds the input and output paths of a batch run.
//
// Directories are kept in normalized form (absolute, trailing separator) so
// file paths are produced by plain concatenation.
package pathcat

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"wavconv/internal/config"
)

var (
	ErrInvalidPath   = errors.New("invalid path")
	ErrNotNormalized = errors.New("directory is not normalized")
)

const separator = string(os.PathSeparator)

// Case selects the letter case written for output extensions.
type Case int

const (
	CaseLower Case = iota
	CaseUpper
)

// ParseCase maps the config spelling ("lower", "upper") to a Case.
func ParseCase(value string) (Case, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "lower":
		return CaseLower, nil
	case "upper":
		return CaseUpper, nil
	default:
		return CaseLower, fmt.Errorf("unknown extension case %q", value)
	}
}

func (c Case) String() string {
	if c == CaseUpper {
		return "upper"
	}
	return "lower"
}

// Normalize appends the platform separator when absent. An empty path is
// returned unchanged; callers must reject it before joining.
func Normalize(path string) string {
	if path == "" || strings.HasSuffix(path, separator) {
		return path
	}
	return path + separator
}

// IsNormalized reports whether dir already ends with the separator.
func IsNormalized(dir string) bool {
	return dir != "" && strings.HasSuffix(dir, separator)
}

// Join concatenates a normalized directory and a bare file name.
func Join(dir, name string) (string, error) {
	if dir == "" || name == "" {
		return "", fmt.Errorf("%w: join %q + %q", ErrInvalidPath, dir, name)
	}
	if !IsNormalized(dir) {
		return "", fmt.Errorf("%w: %q", ErrNotNormalized, dir)
	}
	if strings.ContainsRune(name, os.PathSeparator) {
		return "", fmt.Errorf("%w: name %q contains a separator", ErrInvalidPath, name)
	}
	return dir + name, nil
}

// SwapExtension replaces the extension after the final dot of the base name
// with ext. Names without an extension get one appended.
func SwapExtension(path, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	base := filepath.Base(path)
	dot := strings.LastIndexByte(base, '.')
	if dot <= 0 {
		return path + "." + ext
	}
	cut := len(path) - len(base) + dot
	return path[:cut+1] + ext
}

// Extension returns the text after the final dot of the base name, or "" when
// there is none. Dotfiles such as ".wav" have no extension.
func Extension(name string) string {
	base := filepath.Base(name)
	dot := strings.LastIndexByte(base, '.')
	if dot <= 0 || dot == len(base)-1 {
		return ""
	}
	return base[dot+1:]
}

// ApplyCase renders ext in the requested case.
func ApplyCase(ext string, c Case) string {
	if c == CaseUpper {
		return cases.Upper(language.Und).String(ext)
	}
	return cases.Lower(language.Und).String(ext)
}

// Resolve expands ~, makes path absolute and normalizes it.
func Resolve(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("%w: empty directory", ErrInvalidPath)
	}
	abs, err := config.ExpandPath(path)
	if err != nil {
		return "", err
	}
	return Normalize(abs), nil
}
