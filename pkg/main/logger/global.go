package logger

import (
	"errors"
	"html"
	"strconv"
	"strings"
	"unicode"

	"github.com/rainycape/unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrNotAllowed  = errors.New("not allowed")
	ErrInvalidData = errors.New("invalid data")
)

// strips combining marks after decomposition: "filière" -> "filiere"
var transformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var subRune = map[rune]string{
	'&':  "et",
	'@':  "at",
	'"':  "",
	'\'': "",
	'’':  "",
	'‒':  "-",
	'–':  "-",
	'—':  "-",
	'―':  "-",
	'œ':  "oe",
	'Œ':  "Oe",
	'æ':  "ae",
	'ß':  "ss",
}

func substituteRune(s string) string {
	var buf strings.Builder
	buf.Grow(len(s))
	for _, c := range s {
		if d, ok := subRune[c]; ok {
			buf.WriteString(d)
		} else {
			buf.WriteRune(c)
		}
	}
	return buf.String()
}

func replaceUnwantedChars(s string) string {
	var buf strings.Builder
	buf.Grow(len(s))
	for _, c := range s {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' {
			buf.WriteRune(c)
		} else {
			buf.WriteRune('-')
		}
	}
	return buf.String()
}

// StringToSlug turns a display name into a lower-case ascii slug usable in
// file names and URLs ("Types de cours" -> "types-de-cours").
func StringToSlug(instr string) string {
	if strings.Contains(instr, "&") || strings.Contains(instr, "%") {
		instr = html.UnescapeString(instr)
	}
	instr = substituteRune(strings.TrimSpace(instr))
	if folded, _, err := transform.String(transformer, instr); err == nil {
		instr = folded
	}
	instr = strings.ToLower(unidecode.Unidecode(instr))
	instr = replaceUnwantedChars(instr)
	for strings.Contains(instr, "--") {
		instr = strings.ReplaceAll(instr, "--", "-")
	}
	return strings.Trim(instr, "-")
}

// HasPrefixI reports whether s begins with prefix, ignoring case.
func HasPrefixI(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// StringToInt converts s to an int and returns 0 on failure.
func StringToInt(s string) int {
	if s == "" {
		return 0
	}
	in, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return in
}

