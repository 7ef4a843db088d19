package engine

import (
	"net/netip"
	"strings"
	"unicode"
)

// addressSuffixes folds common street suffix spellings to one form so that
// "100 Main Street" and "100 Main St" index identically. Punctuation is
// stripped before tokenization, so only bare tokens appear here.
var addressSuffixes = map[string]string{
	"street":    "st",
	"avenue":    "ave",
	"road":      "rd",
	"drive":     "dr",
	"lane":      "ln",
	"boulevard": "blvd",
	"court":     "ct",
	"circle":    "cir",
	"highway":   "hwy",
}

// Normalize derives the typed identifier features from a raw record.
// It is a pure function and never fails: unparsable or missing fields
// yield an absent feature rather than an error.
func Normalize(r CarrierRecord) FeatureSet {
	fs := make(FeatureSet, len(FeatureKinds))

	if p := normalizePhone(r.Phone); p != "" {
		fs[FeaturePhone] = p
	}
	if e := normalizeEmail(r.Email); e != "" {
		fs[FeatureEmail] = e
		if d := emailDomain(e); d != "" {
			fs[FeatureEmailDomain] = d
		}
	}
	if a := normalizeAddress(r.Address); a != "" {
		fs[FeatureAddress] = a
	}
	if ip := normalizeIP(r.IP); ip != "" {
		fs[FeatureIP] = ip
	}
	return fs
}

// normalizePhone strips everything but digits, drops the US trunk prefix
// from 11-digit numbers, and rejects anything outside 7-15 digits.
func normalizePhone(v string) string {
	var b strings.Builder
	b.Grow(len(v))
	for _, r := range v {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) < 7 || len(digits) > 15 {
		return ""
	}
	return digits
}

// normalizeEmail lowercases and trims the address. Anything without a
// non-empty local part and domain is treated as absent.
func normalizeEmail(v string) string {
	e := strings.ToLower(strings.TrimSpace(v))
	at := strings.LastIndex(e, "@")
	if at <= 0 || at == len(e)-1 {
		return ""
	}
	return e
}

// emailDomain returns the substring after the last "@" of an already
// normalized email.
func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	return email[at+1:]
}

// normalizeAddress lowercases, strips punctuation, collapses whitespace,
// and folds street suffixes. Purely textual; no geocoding.
func normalizeAddress(v string) string {
	var b strings.Builder
	b.Grow(len(v))
	for _, r := range strings.ToLower(v) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(' ')
		}
	}
	tokens := strings.Fields(b.String())
	if len(tokens) == 0 {
		return ""
	}
	for i, tok := range tokens {
		if s, ok := addressSuffixes[tok]; ok {
			tokens[i] = s
		}
	}
	return strings.Join(tokens, " ")
}

// normalizeIP accepts only syntactically valid IPv4/IPv6 literals and
// returns them in canonical form.
func normalizeIP(v string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(v))
	if err != nil {
		return ""
	}
	return addr.String()
}
