// Package security validates user-supplied paths before files are written.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Allowed extensions for each report output.
var (
	JSONExtensions  = []string{".json"}
	PlotExtensions  = []string{".png", ".svg", ".pdf"}
	ChartExtensions = []string{".html", ".htm"}
)

// ValidateOutputPath checks that filePath names a file with one of the
// allowed extensions and that a relative path does not climb out of the
// working directory.
func ValidateOutputPath(filePath string, allowedExts []string) error {
	if strings.TrimSpace(filePath) == "" {
		return fmt.Errorf("output path is empty")
	}

	cleanPath := filepath.Clean(filePath)
	if !filepath.IsAbs(cleanPath) {
		if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
			return fmt.Errorf("path traversal detected: %s escapes the working directory", filePath)
		}
	}
	if strings.HasSuffix(filePath, string(filepath.Separator)) || cleanPath == "." {
		return fmt.Errorf("output path %s is a directory", filePath)
	}

	ext := strings.ToLower(filepath.Ext(cleanPath))
	for _, allowed := range allowedExts {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("output path %s must have one of the extensions %s", filePath, strings.Join(allowedExts, ", "))
}

// SanitizeFilename makes a safe filename from an arbitrary string. Any
// rune that is not an ASCII letter, digit, dot, underscore or dash becomes
// an underscore, repeats collapse, and the result is capped at 128 bytes.
func SanitizeFilename(s string) string {
	const maxLen = 128
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
