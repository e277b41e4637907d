// Package render produces client-facing text: filled message templates,
// WhatsApp deep links and printable invoice and receipt pages.
package render

import (
	"regexp"
	"strconv"
	"strings"
)

var tokenPattern = regexp.MustCompile(`\{(\w+)\}`)

// Fill replaces every {name} in tpl with tokens[name]. Unknown tokens are
// left in place.
func Fill(tpl string, tokens map[string]string) string {
	return tokenPattern.ReplaceAllStringFunc(tpl, func(m string) string {
		if v, ok := tokens[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}

// Amount formats v with thousands separators and at most two decimals.
func Amount(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	s = strings.TrimSuffix(strings.TrimSuffix(s, "00"), ".")
	intPart, frac, _ := strings.Cut(s, ".")
	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}
