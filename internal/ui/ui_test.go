package ui

import "testing"

// Tests never run on a TTY, so every renderer must pass text through
// unchanged: no escape sequences in piped output.
func TestRenderPlainWithoutTTY(t *testing.T) {
	renderers := map[string]func(string) string{
		"Good":   Good,
		"Warn":   Warn,
		"Bad":    Bad,
		"Accent": Accent,
		"Muted":  Muted,
	}
	for name, fn := range renderers {
		if got := fn("7 items"); got != "7 items" {
			t.Errorf("%s(%q) = %q, want plain text", name, "7 items", got)
		}
	}
}
