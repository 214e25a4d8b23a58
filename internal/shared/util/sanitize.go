package util

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode"
)

// maxFileNameRunes bounds stored upload names; the extension is kept when cutting.
const maxFileNameRunes = 120

var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName reduces a client-supplied upload name to a safe base name:
// directories are dropped, control characters and quotes removed, whitespace
// collapsed to underscores, and the result capped at 120 runes.
func SanitizeFileName(name string) (string, error) {
	name = strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	if strings.Contains(name, "..") {
		return "", ErrInvalidFileName
	}
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			b.WriteRune('_')
		case unicode.IsControl(r), r == '"', r == '\'', r == '`':
			continue
		default:
			b.WriteRune(r)
		}
	}
	s := strings.Trim(b.String(), "._")
	if s == "" {
		return "", ErrInvalidFileName
	}
	return truncateKeepExt(s, maxFileNameRunes), nil
}

// DispositionName makes name safe to embed in a quoted Content-Disposition
// filename. Unlike SanitizeFileName it keeps the name otherwise untouched.
func DispositionName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	clean := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) || r == '"' {
			return -1
		}
		return r
	}, name)
	if strings.Trim(clean, ". ") == "" {
		return "download"
	}
	return clean
}

func truncateKeepExt(name string, limit int) string {
	runes := []rune(name)
	if len(runes) <= limit {
		return name
	}
	ext := []rune(filepath.Ext(name))
	if len(ext) >= limit {
		return string(runes[:limit])
	}
	return string(runes[:limit-len(ext)]) + string(ext)
}
