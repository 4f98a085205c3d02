package utils

import "testing"

func TestAtoiDefault(t *testing.T) {
	const fallback = 20

	t.Run("parses valid values", func(t *testing.T) {
		for in, want := range map[string]int{
			"1":    1,
			"-3":   -3,
			"007":  7,
			"2500": 2500,
		} {
			if got := AtoiDefault(in, fallback); got != want {
				t.Errorf("AtoiDefault(%q) = %d, want %d", in, got, want)
			}
		}
	})

	t.Run("falls back on bad input", func(t *testing.T) {
		// strconv.Atoi does not trim, so padded values fall back too.
		for _, in := range []string{"", "page", "3.5", " 8", "99999999999999999999"} {
			if got := AtoiDefault(in, fallback); got != fallback {
				t.Errorf("AtoiDefault(%q) = %d, want fallback %d", in, got, fallback)
			}
		}
	})
}
