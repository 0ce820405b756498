package metainfo

import (
	"path"
	"strings"
)

var reservedWindowsNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

const replacementChar = '_'

// sanitizePathComponent replaces characters that are illegal in Windows
// paths, strips leading/trailing whitespace and dots, and rewrites reserved
// device names. The transform is idempotent: sanitizing an already-sane
// component is a no-op.
func sanitizePathComponent(c string) string {
	var b strings.Builder
	b.Grow(len(c))
	for _, r := range c {
		switch {
		case r < 32:
			b.WriteRune(replacementChar)
		case strings.ContainsRune(`<>:"/\|?*`, r):
			b.WriteRune(replacementChar)
		default:
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), " .")

	if out == "" || out == "." || out == ".." {
		return string(replacementChar)
	}
	upper := strings.ToUpper(out)
	if dot := strings.IndexByte(upper, '.'); dot >= 0 {
		upper = upper[:dot]
	}
	if reservedWindowsNames[upper] {
		return string(replacementChar) + out
	}
	return out
}

// SanitizePath sanitizes every component of a slash-separated relative path,
// rejecting absolute paths and "..", and returns the cleaned relative path.
func SanitizePath(components []string) (string, error) {
	if len(components) == 0 {
		return "", &ErrInvalidPath{Reason: "empty path"}
	}
	cleaned := make([]string, 0, len(components))
	for _, c := range components {
		s := sanitizePathComponent(c)
		if s == "" {
			continue
		}
		cleaned = append(cleaned, s)
	}
	if len(cleaned) == 0 {
		return "", &ErrInvalidPath{Path: strings.Join(components, "/"), Reason: "sanitizes to empty path"}
	}
	p := path.Join(cleaned...)
	if path.IsAbs(p) || strings.HasPrefix(p, "..") {
		return "", &ErrInvalidPath{Path: p, Reason: "escapes torrent root"}
	}
	return p, nil
}
