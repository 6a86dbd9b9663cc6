package extractor

import (
	"strconv"
	"strings"
)

// NormalizePhone rewrites a Brazilian phone number into the 55+DDD+number
// form WhatsApp expects. Area codes up to 30 carry the mobile ninth digit,
// higher ones do not. Inputs with fewer than 10 digits come back as digits.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, c := range phone {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	clean := b.String()
	if len(clean) < 10 {
		return clean
	}

	if strings.HasPrefix(clean, "55") && len(clean) > 11 {
		clean = clean[2:]
	}

	ddd := clean[:2]
	dddNum, _ := strconv.Atoi(ddd)
	if dddNum < 11 {
		return "55" + clean
	}

	number := clean[2:]
	if dddNum <= 30 {
		switch len(number) {
		case 8:
			return "55" + ddd + "9" + number
		case 7, 9:
			return "55" + ddd + number
		}
	} else {
		switch {
		case len(number) == 9 && number[0] == '9':
			return "55" + ddd + number[1:]
		case len(number) == 8, len(number) == 9:
			return "55" + ddd + number
		}
	}

	return "55" + clean
}
