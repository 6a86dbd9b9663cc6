package extractor

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Deep key search stops this many levels below the root.
const maxSearchDepth = 4

func resolve(root gjson.Result, c candidates) string {
	for _, p := range c.paths {
		if s := scalar(root.Get(p)); s != "" {
			return s
		}
	}
	if len(c.deep) > 0 {
		return deepFind(root, c.deep)
	}
	return ""
}

// scalar renders strings, numbers and booleans. Objects, arrays and null
// count as missing.
func scalar(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return strings.TrimSpace(r.Str)
	case gjson.Number:
		return r.Raw
	case gjson.True, gjson.False:
		return r.String()
	default:
		return ""
	}
}

// deepFind walks the payload breadth first, matching keys case-insensitively.
// Shallower matches win; within a level, earlier keys win.
func deepFind(root gjson.Result, keys []string) string {
	level := []gjson.Result{root}
	for depth := 0; depth <= maxSearchDepth && len(level) > 0; depth++ {
		var next []gjson.Result
		var found []map[string]string

		for _, node := range level {
			values := map[string]string{}
			node.ForEach(func(key, value gjson.Result) bool {
				if value.IsObject() || value.IsArray() {
					next = append(next, value)
					return true
				}
				if key.Type == gjson.String {
					k := strings.ToLower(key.Str)
					if _, seen := values[k]; !seen {
						values[k] = scalar(value)
					}
				}
				return true
			})
			found = append(found, values)
		}

		for _, k := range keys {
			for _, values := range found {
				if v := values[k]; v != "" {
					return v
				}
			}
		}
		level = next
	}
	return ""
}

func amountAt(r gjson.Result, cents bool) (string, bool) {
	var v float64
	switch r.Type {
	case gjson.Number:
		v = r.Float()
	case gjson.String:
		parsed, ok := parseAmount(r.Str)
		if !ok {
			return "", false
		}
		v = parsed
	default:
		return "", false
	}

	if cents {
		v /= 100
	}
	return FormatAmount(v), true
}

// parseAmount accepts "197.00", "197,00", "1.197,00", "1,197.00" and
// currency-prefixed variants like "R$ 197,00".
func parseAmount(s string) (float64, bool) {
	var b strings.Builder
	for _, c := range s {
		if c >= '0' && c <= '9' || c == '.' || c == ',' || c == '-' {
			b.WriteRune(c)
		}
	}
	clean := b.String()
	if clean == "" {
		return 0, false
	}

	lastDot := strings.LastIndex(clean, ".")
	lastComma := strings.LastIndex(clean, ",")
	switch {
	case lastComma > lastDot:
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.Replace(clean, ",", ".", 1)
	case lastDot > lastComma && lastComma >= 0:
		clean = strings.ReplaceAll(clean, ",", "")
	}

	v, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FormatAmount renders v with two decimals and a comma separator, e.g. "197,00".
func FormatAmount(v float64) string {
	return strings.Replace(strconv.FormatFloat(v, 'f', 2, 64), ".", ",", 1)
}
