package renderer

import (
	"regexp"
	"strings"
)

var (
	dollarToken   = regexp.MustCompile(`\$\{([^}]+)\}`)
	mustacheToken = regexp.MustCompile(`\{\{\{([^}]*)\}\}\}|\{\{([^}]*)\}\}`)

	// Subjects only know the double-brace form.
	textMustacheToken = regexp.MustCompile(`\{\{([^}]+)\}\}`)
)

// Substitute runs the two variable passes over rendered HTML.
//
// Pass 1 replaces ${key} with the raw value and leaves the token as written
// when the value is missing or empty. Pass 2 replaces {{key}} with the
// HTML-escaped value, {{{key}}} and {{&key}} with the raw value, and renders
// missing keys as "". Values inserted by pass 1 are seen by pass 2.
func Substitute(html string, vars map[string]string) string {
	html = dollarToken.ReplaceAllStringFunc(html, func(match string) string {
		key := strings.TrimSpace(match[2 : len(match)-1])
		if v := vars[key]; v != "" {
			return v
		}
		return match
	})

	return mustacheToken.ReplaceAllStringFunc(html, func(match string) string {
		if strings.HasPrefix(match, "{{{") {
			return vars[strings.TrimSpace(match[3:len(match)-3])]
		}
		key := strings.TrimSpace(match[2 : len(match)-2])
		if strings.HasPrefix(key, "&") {
			return vars[strings.TrimSpace(key[1:])]
		}
		return EscapeHTML(vars[key])
	})
}

// SubstituteText is the plain-text variant used for subjects: both syntaxes
// resolve to the raw value and unresolved tokens stay as written.
func SubstituteText(text string, vars map[string]string) string {
	if text == "" {
		return ""
	}
	keep := func(match string, key string) string {
		if v := vars[strings.TrimSpace(key)]; v != "" {
			return v
		}
		return match
	}

	text = dollarToken.ReplaceAllStringFunc(text, func(match string) string {
		return keep(match, match[2:len(match)-1])
	})
	return textMustacheToken.ReplaceAllStringFunc(text, func(match string) string {
		return keep(match, match[2:len(match)-2])
	})
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	"/", "&#x2F;",
	"`", "&#x60;",
	"=", "&#x3D;",
)

// EscapeHTML escapes the characters a mustache renderer escapes.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
