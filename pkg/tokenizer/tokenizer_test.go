package tokenizer

import "testing"

func TestEstimate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "whitespace", text: "   \n", want: 0},
		{name: "short", text: "sol", want: 1},
		{name: "ascii", text: "abcdefghijklmnop", want: 4},
		{name: "accents count as one char", text: "¿llovería mañana?", want: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Estimate(tt.text); got != tt.want {
				t.Errorf("Estimate(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestEstimateMessages(t *testing.T) {
	if got := EstimateMessages("abcdefgh", "", "abcd"); got != 3 {
		t.Errorf("EstimateMessages() = %d, want 3", got)
	}
}
