package phone

import "testing"

func TestDigits(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"809-555-0000", "8095550000"},
		{"+1 (809) 555 0000", "18095550000"},
		{"", ""},
		{"no digits", ""},
	}

	for _, tc := range cases {
		if got := Digits(tc.in); got != tc.want {
			t.Errorf("Digits(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeE164KeepsUnparseableInput(t *testing.T) {
	if got := NormalizeE164("   not a phone   "); got != "not a phone" {
		t.Fatalf("expected trimmed passthrough, got %q", got)
	}
}
