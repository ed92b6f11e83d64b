package model

import "testing"

// TestSeverityString tests the String method of Severity.
func TestSeverityString(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		severity Severity
		expected string
	}{
		{SeverityStyle, "style"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(999), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			t.Parallel()
			if tc.severity.String() != tc.expected {
				t.Errorf("got %q, expected %q", tc.severity.String(), tc.expected)
			}
		})
	}
}

// TestSeverityOrdering tests that severities compare in the documented order.
func TestSeverityOrdering(t *testing.T) {
	t.Parallel()

	if !(SeverityStyle < SeverityWarning && SeverityWarning < SeverityError && SeverityError < SeverityCritical) {
		t.Error("expected style < warning < error < critical")
	}

	all := Severities()
	for i := 1; i < len(all); i++ {
		if all[i-1] <= all[i] {
			t.Errorf("Severities() not descending at %d: %v", i, all)
		}
	}
}

// TestParseSeverity tests parsing of unified severity names.
func TestParseSeverity(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input    string
		expected Severity
		ok       bool
	}{
		{"style", SeverityStyle, true},
		{"WARNING", SeverityWarning, true},
		{" error ", SeverityError, true},
		{"critical", SeverityCritical, true},
		{"fatal", SeverityCritical, true},
		{"catastrophic", SeverityWarning, false},
		{"", SeverityWarning, false},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseSeverity(tc.input)
			if got != tc.expected || ok != tc.ok {
				t.Errorf("ParseSeverity(%q) = %v, %v; expected %v, %v", tc.input, got, ok, tc.expected, tc.ok)
			}
		})
	}
}

// TestSeverityMapDefaultsToWarning tests the fallback for unmapped tokens.
func TestSeverityMapDefaultsToWarning(t *testing.T) {
	t.Parallel()

	m := SeverityMap{"high": SeverityError, "low": SeverityStyle}

	if got := m.Map("HIGH"); got != SeverityError {
		t.Errorf("expected error for HIGH, got %v", got)
	}
	if got := m.Map("apocalyptic"); got != SeverityWarning {
		t.Errorf("expected warning for unknown token, got %v", got)
	}
	if got := m.Map(""); got != SeverityWarning {
		t.Errorf("expected warning for empty token, got %v", got)
	}
}

// TestSeverityText tests text marshalling round trips.
func TestSeverityText(t *testing.T) {
	t.Parallel()

	for _, sev := range Severities() {
		text, err := sev.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v): %v", sev, err)
		}
		var got Severity
		if err := got.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", text, err)
		}
		if got != sev {
			t.Errorf("round trip: got %v, expected %v", got, sev)
		}
	}

	var s Severity
	if err := s.UnmarshalText([]byte("bogus")); err == nil {
		t.Error("expected error for unknown severity")
	}
}
