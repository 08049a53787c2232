package typedjson

import (
	"fmt"
	"strings"
	"unicode"
)

// MaskType names a data format with a masking rule. Use in struct tags:
// `typedjson:"mask=email"`.
type MaskType string

const (
	MaskSSN   MaskType = "ssn"   // 123-45-6789 -> ***-**-6789
	MaskEmail MaskType = "email" // alice@example.com -> a***@example.com
	MaskPhone MaskType = "phone" // (555) 123-4567 -> (***) ***-4567
	MaskCard  MaskType = "card"  // 4111111111111111 -> ************1111
	MaskIP    MaskType = "ip"    // 192.168.1.100 -> 192.168.xxx.xxx
	MaskUUID  MaskType = "uuid"  // 550e8400-e29b-... -> 550e8400-****-****-****-************
	MaskIBAN  MaskType = "iban"  // GB82WEST12345698765432 -> GB82************5432
	MaskName  MaskType = "name"  // John Smith -> J*** S****
)

// MaskFunc rewrites a value so that only a non-identifying part remains.
type MaskFunc func(value string) string

var maskers = map[MaskType]MaskFunc{
	MaskSSN:   maskSSN,
	MaskEmail: maskEmail,
	MaskPhone: maskPhone,
	MaskCard:  maskCard,
	MaskIP:    maskIP,
	MaskUUID:  maskUUID,
	MaskIBAN:  maskIBAN,
	MaskName:  maskName,
}

// IsValidMaskType reports whether mt has a masking rule.
func IsValidMaskType(mt MaskType) bool {
	_, ok := maskers[mt]
	return ok
}

// Mask applies the rule for mt to value. Unknown types mask everything.
func Mask(mt MaskType, value string) string {
	if fn, ok := maskers[mt]; ok {
		return fn(value)
	}
	return stars(value)
}

// Masked returns a member converter that writes string values masked and
// reads them back unchanged. Masking is one-way: a masked document
// deserializes to the masked text.
func Masked(mt MaskType) Converter {
	return Converter{
		Serialize: func(v any, _ SerializeFallback) (any, error) {
			if isNilAny(v) {
				return nil, nil
			}
			s, ok := stringValue(v)
			if !ok {
				return nil, fmt.Errorf("mask %s: got %T", mt, v)
			}
			return Mask(mt, s), nil
		},
		Deserialize: func(raw any, _ DeserializeFallback) (any, error) {
			if raw == nil {
				return nil, nil
			}
			s, ok := raw.(string)
			if !ok {
				return nil, fmt.Errorf("mask %s: got %T", mt, raw)
			}
			return s, nil
		},
	}
}

// stringValue reads a string or *string member value.
func stringValue(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case *string:
		if s == nil {
			return "", false
		}
		return *s, true
	case fmt.Stringer:
		return s.String(), true
	}
	return "", false
}

func stars(s string) string { return strings.Repeat("*", len(s)) }

func digitsOf(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// lastFour returns the final four digits of s, or false when s has fewer.
func lastFour(s string) (digits, last string, ok bool) {
	digits = digitsOf(s)
	if len(digits) < 4 {
		return digits, "", false
	}
	return digits, digits[len(digits)-4:], true
}

func maskSSN(v string) string {
	_, last, ok := lastFour(v)
	if !ok {
		return stars(v)
	}
	return "***-**-" + last
}

func maskEmail(v string) string {
	at := strings.LastIndex(v, "@")
	if at < 1 {
		return stars(v)
	}
	return v[:1] + "***" + v[at:]
}

func maskPhone(v string) string {
	digits, last, ok := lastFour(v)
	switch {
	case !ok:
		return stars(v)
	case len(digits) >= 10 && strings.HasPrefix(v, "("):
		return "(***) ***-" + last
	case len(digits) >= 10:
		return "***-***-" + last
	}
	return "***-" + last
}

func maskCard(v string) string {
	digits, last, ok := lastFour(v)
	if !ok {
		return stars(v)
	}
	sep := ""
	switch {
	case strings.Contains(v, " "):
		sep = " "
	case strings.Contains(v, "-"):
		sep = "-"
	default:
		return strings.Repeat("*", len(digits)-4) + last
	}
	groups := make([]string, (len(digits)-1)/4)
	for i := range groups {
		groups[i] = "****"
	}
	return strings.Join(append(groups, last), sep)
}

func maskIP(v string) string {
	if parts := strings.Split(v, "."); len(parts) == 4 {
		return parts[0] + "." + parts[1] + ".xxx.xxx"
	}
	if !strings.Contains(v, ":") {
		return stars(v)
	}
	groups := expandIPv6(v)
	if len(groups) != 8 {
		return stars(v)
	}
	return strings.Join(groups[:4], ":") + ":xxxx:xxxx:xxxx:xxxx"
}

// expandIPv6 splits an IPv6 address into its eight groups, expanding "::".
func expandIPv6(v string) []string {
	head, tail, compressed := strings.Cut(v, "::")
	if !compressed {
		return strings.Split(v, ":")
	}
	if strings.Contains(tail, "::") {
		return nil
	}
	var left, right []string
	if head != "" {
		left = strings.Split(head, ":")
	}
	if tail != "" {
		right = strings.Split(tail, ":")
	}
	missing := 8 - len(left) - len(right)
	if missing < 0 {
		return nil
	}
	out := append([]string{}, left...)
	for i := 0; i < missing; i++ {
		out = append(out, "0000")
	}
	return append(out, right...)
}

func maskUUID(v string) string {
	parts := strings.Split(v, "-")
	if len(parts) != 5 {
		return stars(v)
	}
	return parts[0] + "-****-****-****-************"
}

func maskIBAN(v string) string {
	if len(v) <= 8 {
		return stars(v)
	}
	return v[:4] + strings.Repeat("*", len(v)-8) + v[len(v)-4:]
}

func maskName(v string) string {
	words := strings.Fields(v)
	for i, w := range words {
		r := []rune(w)
		words[i] = string(r[0]) + strings.Repeat("*", len(r)-1)
	}
	return strings.Join(words, " ")
}
