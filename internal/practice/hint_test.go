package practice

import "testing"

func TestSoundsClose(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		spoken string
		target string
		want   bool
	}{
		{"homophone", "night", "knight", true},
		{"same consonant skeleton", "caterpillar", "katerpiller", true},
		{"unrelated words", "banana", "helicopter", false},
		{"identical", "hello", "hello", true},
		{"case and punctuation ignored", "Fone!", "phone", true},
		{"empty spoken", "", "hello", false},
		{"empty target", "hello", "", false},
		{"both empty", "", "", false},
		{"multi-token any match", "the knight rides", "night", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := SoundsClose(tt.spoken, tt.target); got != tt.want {
				t.Errorf("SoundsClose(%q, %q) = %v; want %v", tt.spoken, tt.target, got, tt.want)
			}
		})
	}
}
