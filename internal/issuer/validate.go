package issuer

import (
	"fmt"
	"net"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Validity bounds for issued certificates, in days.
const (
	MinValidityDays = 1
	MaxValidityDays = 3650
)

// ValidationError reports a rejected issuance request. Values carries every
// offending subject name so the operator can fix them all in one pass.
type ValidationError struct {
	Field   string
	Message string
	Values  []string
}

func (e *ValidationError) Error() string {
	if len(e.Values) > 0 {
		return fmt.Sprintf("%s: %s: %s", e.Field, e.Message, strings.Join(e.Values, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateValidity checks the requested lifetime against the allowed range.
func ValidateValidity(days int) error {
	if days < MinValidityDays || days > MaxValidityDays {
		return &ValidationError{
			Field:   "validity_days",
			Message: fmt.Sprintf("must be between %d and %d days", MinValidityDays, MaxValidityDays),
		}
	}
	return nil
}

// ValidateSubjectNames checks every subject name and reports all invalid
// entries together. Each name must be an IP address or a DNS name; DNS
// wildcards are restricted to the leftmost label and may not cover a
// public suffix.
func ValidateSubjectNames(names []string) error {
	var invalid []string
	for _, name := range names {
		if err := validateSubjectName(name); err != nil {
			invalid = append(invalid, name)
		}
	}
	if len(invalid) > 0 {
		return &ValidationError{
			Field:   "subject_names",
			Message: "invalid subject names",
			Values:  invalid,
		}
	}
	return nil
}

// validateSubjectName accepts an IP address or a valid DNS name.
func validateSubjectName(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return fmt.Errorf("subject name cannot be empty")
	}

	if ip := net.ParseIP(name); ip != nil {
		return nil
	}

	return validateDNSName(name)
}

// validateDNSName validates a lowercased DNS name per RFC 1035/1123 with
// the RFC 6125 wildcard rules applied.
func validateDNSName(name string) error {
	// RFC 1035: total DNS name ≤ 253 characters
	if len(name) > 253 {
		return fmt.Errorf("DNS name too long: %d > 253 characters", len(name))
	}

	labels := strings.Split(name, ".")

	for i, label := range labels {
		if label == "" {
			return fmt.Errorf("empty label in DNS name (double dot or leading/trailing dot)")
		}

		// RFC 1035: label ≤ 63 characters
		if len(label) > 63 {
			return fmt.Errorf("label too long: %q (%d > 63 characters)", label, len(label))
		}

		// Wildcard is only valid in leftmost position
		if label == "*" {
			if i != 0 {
				return fmt.Errorf("wildcard (*) must be leftmost label")
			}
			continue
		}

		if !isValidDNSLabel(label) {
			return fmt.Errorf("invalid DNS label %q", label)
		}
	}

	// Final label must be at least two characters, like real TLDs.
	if last := labels[len(labels)-1]; last != "*" && len(last) < 2 {
		return fmt.Errorf("final label too short: %q", last)
	}

	if labels[0] == "*" {
		return validateWildcard(name, labels)
	}
	return nil
}

// isValidDNSLabel checks a DNS label per RFC 1123: alphanumeric characters
// and hyphens, no leading or trailing hyphen.
func isValidDNSLabel(label string) bool {
	if len(label) == 0 {
		return false
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for _, c := range label {
		isLower := c >= 'a' && c <= 'z'
		isUpper := c >= 'A' && c <= 'Z'
		isDigit := c >= '0' && c <= '9'
		if !isLower && !isUpper && !isDigit && c != '-' {
			return false
		}
	}
	return true
}

// validateWildcard applies RFC 6125: a wildcard name needs at least three
// labels and must not cover an ICANN public suffix, so *.com or *.co.uk
// can never be requested through the console.
func validateWildcard(name string, labels []string) error {
	for _, label := range labels[1:] {
		if label == "*" {
			return fmt.Errorf("multiple wildcards not allowed: %q", name)
		}
	}

	if len(labels) < 3 {
		return fmt.Errorf("wildcard requires at least 3 labels (*.domain.tld): %q", name)
	}

	baseDomain := strings.Join(labels[1:], ".")
	suffix, icann := publicsuffix.PublicSuffix(baseDomain)
	if icann && suffix == baseDomain {
		return fmt.Errorf("wildcard on public suffix not allowed: %q", name)
	}
	return nil
}

// SanitizeFileName reduces a common name to a safe directory-name stem:
// only alphanumerics, dot, underscore and hyphen survive, runs of
// underscores collapse, and leading/trailing underscores are trimmed.
func SanitizeFileName(name string) string {
	var b strings.Builder
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b.WriteRune(c)
		case c == '.' || c == '-':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}

	out := b.String()
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	return strings.Trim(out, "_")
}
