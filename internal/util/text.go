package util

import (
	"strconv"
	"strings"
)

// FormatFloat renders a float the way the report expects: shortest
// round-trip form, no exponent, no trailing ".0".
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func FormatInt(n int) string {
	return strconv.Itoa(n)
}

func FormatBool(b bool) string {
	return strconv.FormatBool(b)
}

// SanitizeFileName makes s safe to use as a single path element.
func SanitizeFileName(s string) string {
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_", "\"", "_")
	out := repl.Replace(strings.TrimSpace(s))
	if out == "" {
		return "unversioned"
	}
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
