package util

import (
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const wireDateLayout = "20060102"

// FormatDate renders a date the way WSFE expects it: YYYYMMDD.
func FormatDate(t time.Time) string {
	return t.Format(wireDateLayout)
}

// ParseDate parses a WSFE YYYYMMDD date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(wireDateLayout, s)
}

// FormatDatetime renders a datetime with the literal "-00:00" suffix. The
// WSAA homologation endpoint rejects standard ISO-8601 numeric offsets, so
// the exact string AFIP documents must be reproduced, whatever the input
// zone is.
func FormatDatetime(t time.Time) string {
	return t.Format("2006-01-02T15:04:05") + "-00:00"
}

// ParseString recovers text that AFIP mis-encoded as Latin-1 inside a
// UTF-8 envelope ("AÃ±adir" -> "Añadir"). If the recovery itself fails the
// original string is returned untouched.
func ParseString(s string) string {
	recovered, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil {
		return s
	}
	if !utf8.ValidString(recovered) {
		return s
	}
	return recovered
}
