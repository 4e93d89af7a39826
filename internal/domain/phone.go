package domain

import "strings"

const germanPrefix = "49"

// PhoneVariants expands a caller number into the spellings a contact's phone
// or mobilephone property may be stored under: international with and
// without "+", and national with a leading 0. A trunk 0 left after the country
// code ("4901701234567") is dropped. The cleaned input is always first.
func PhoneVariants(raw string) []string {
	n := cleanPhone(raw)
	if n == "" {
		return nil
	}

	var subscriber string
	switch {
	case strings.HasPrefix(n, "+"+germanPrefix):
		subscriber = n[3:]
	case strings.HasPrefix(n, "00"+germanPrefix):
		subscriber = n[4:]
	case strings.HasPrefix(n, germanPrefix):
		subscriber = n[2:]
	case strings.HasPrefix(n, "0"):
		subscriber = n[1:]
	default:
		if strings.HasPrefix(n, "+") {
			return dedupe([]string{n, n[1:]})
		}
		return dedupe([]string{n, "+" + n})
	}
	subscriber = strings.TrimLeft(subscriber, "0")
	if subscriber == "" {
		return []string{n}
	}

	return dedupe([]string{
		n,
		germanPrefix + subscriber,
		"+" + germanPrefix + subscriber,
		"0" + subscriber,
	})
}

// cleanPhone strips formatting characters, keeping a single leading "+".
func cleanPhone(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "+" {
		return ""
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
