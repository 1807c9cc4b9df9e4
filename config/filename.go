package config

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	badFileName = "_bad_file_name_"
	// bytes, most file systems limit single name to 255
	maxFileNameLen = 200
)

// CleanFileName makes single path segment out of generated text: drops
// characters file system does not accept, leading dots, trailing dots and
// spaces, and limits length.
func CleanFileName(in string) string {
	out := strings.Map(func(sym rune) rune {
		if unicode.IsControl(sym) || strings.ContainsRune(forbiddenNameChars, sym) {
			return -1
		}
		return sym
	}, in)
	out = strings.TrimRight(strings.TrimLeft(out, ". "), ". ")

	if len(out) > maxFileNameLen {
		cut := maxFileNameLen
		for cut > 0 && !utf8.RuneStart(out[cut]) {
			cut--
		}
		out = strings.TrimRight(out[:cut], ". ")
	}
	if len(out) == 0 {
		return badFileName
	}
	return out
}
