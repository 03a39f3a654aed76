package issuer

import (
	"errors"
	"strings"
	"testing"
)

// =============================================================================
// Subject Name Validation Tests
// =============================================================================

func TestU_ValidateSubjectNames_Valid(t *testing.T) {
	names := []string{
		"example.com",
		"sub.example.com",
		"*.example.com",
		"host-01.internal.example.com",
		"192.168.1.10",
		"2001:db8::1",
	}
	if err := ValidateSubjectNames(names); err != nil {
		t.Errorf("valid names rejected: %v", err)
	}
}

func TestU_ValidateSubjectNames_CollectsAllInvalid(t *testing.T) {
	names := []string{
		"good.example.com",
		"-bad.example.com",
		"also_bad.example.com",
		"fine.example.org",
		"double..dot.com",
	}

	err := ValidateSubjectNames(names)
	if err == nil {
		t.Fatal("expected an error")
	}

	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(valErr.Values) != 3 {
		t.Errorf("expected 3 offending values, got %d: %v", len(valErr.Values), valErr.Values)
	}
	for _, bad := range []string{"-bad.example.com", "also_bad.example.com", "double..dot.com"} {
		if !contains(valErr.Values, bad) {
			t.Errorf("missing offending value %q in %v", bad, valErr.Values)
		}
	}
	// All offenders appear in one message so the operator fixes them together.
	msg := valErr.Error()
	if !strings.Contains(msg, "-bad.example.com") || !strings.Contains(msg, "double..dot.com") {
		t.Errorf("message does not list offenders: %s", msg)
	}
}

func TestU_ValidateSubjectNames_WildcardRules(t *testing.T) {
	cases := []struct {
		name  string
		valid bool
	}{
		{"*.example.com", true},
		{"*.internal.example.com", true},
		{"foo.*.example.com", false}, // wildcard not leftmost
		{"*.*.example.com", false},   // multiple wildcards
		{"*.com", false},             // too broad
		{"*.co.uk", false},           // public suffix
	}
	for _, tc := range cases {
		err := ValidateSubjectNames([]string{tc.name})
		if tc.valid && err != nil {
			t.Errorf("%s: expected valid, got %v", tc.name, err)
		}
		if !tc.valid && err == nil {
			t.Errorf("%s: expected rejection", tc.name)
		}
	}
}

func TestU_ValidateSubjectNames_LengthLimits(t *testing.T) {
	longLabel := strings.Repeat("a", 64) + ".example.com"
	if err := ValidateSubjectNames([]string{longLabel}); err == nil {
		t.Error("expected rejection of a 64-character label")
	}

	okLabel := strings.Repeat("a", 63) + ".example.com"
	if err := ValidateSubjectNames([]string{okLabel}); err != nil {
		t.Errorf("63-character label rejected: %v", err)
	}

	longName := strings.Repeat("abcdefgh.", 30) + "example.com"
	if err := ValidateSubjectNames([]string{longName}); err == nil {
		t.Error("expected rejection of a name over 253 characters")
	}

	if err := ValidateSubjectNames([]string{"example.c"}); err == nil {
		t.Error("expected rejection of a one-character final label")
	}
}

// =============================================================================
// Validity Tests
// =============================================================================

func TestU_ValidateValidity(t *testing.T) {
	for _, days := range []int{1, 365, 3650} {
		if err := ValidateValidity(days); err != nil {
			t.Errorf("%d days rejected: %v", days, err)
		}
	}
	for _, days := range []int{0, -1, 3651, 100000} {
		if err := ValidateValidity(days); err == nil {
			t.Errorf("%d days accepted", days)
		}
	}
}

// =============================================================================
// Filename Sanitization Tests
// =============================================================================

func TestU_SanitizeFileName(t *testing.T) {
	cases := map[string]string{
		"example.com":        "example.com",
		"*.example.com":      ".example.com",
		"my server!":         "my_server",
		"a  b   c":           "a_b_c",
		"__trimmed__":        "trimmed",
		"host-01.example":    "host-01.example",
		"../../etc/passwd":   ".._.._etc_passwd",
		"UPPER.Case.Example": "UPPER.Case.Example",
	}
	for input, want := range cases {
		if got := SanitizeFileName(input); got != want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", input, got, want)
		}
	}
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
