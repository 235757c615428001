/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package ranking

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxNameLength is the longest player name, in characters, that is ever stored.
const MaxNameLength = 20

// NormalizeName trims the input, collapses internal whitespace runs to a single
// space and caps the result at MaxNameLength characters.
func NormalizeName(raw string) string {
	name := strings.Join(strings.FieldsFunc(raw, isNameSpace), " ")

	if utf8.RuneCountInString(name) <= MaxNameLength {
		return name
	}

	runes := []rune(name)

	// A cut can land right after a space.
	return strings.TrimRight(string(runes[:MaxNameLength]), " ")
}

// isNameSpace matches the whitespace set of a browser's String.prototype.trim.
// U+0085 is not part of it.
func isNameSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ',
		'\u00a0', '\u1680', '\u2028', '\u2029', '\u202f', '\u205f', '\u3000', '\ufeff':
		return true
	}

	return r >= '\u2000' && r <= '\u200a'
}

// NameString turns a decoded JSON value into the string a player name is
// normalized from. Absent, null and structured values become "".
func NameString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
