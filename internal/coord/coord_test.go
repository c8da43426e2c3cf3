package coord

import "testing"

func TestFromValidation(t *testing.T) {
	// Validation diagnostics are already 0-indexed.
	tests := []struct {
		in   int
		want int
	}{
		{0, 0},
		{1, 1},
		{41, 41},
	}

	for _, tt := range tests {
		if got := FromValidation(tt.in); got != tt.want {
			t.Errorf("FromValidation(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFromEvaluation(t *testing.T) {
	// Evaluation results are 1-indexed.
	tests := []struct {
		in   int
		want int
	}{
		{1, 0},
		{2, 1},
		{42, 41},
	}

	for _, tt := range tests {
		if got := FromEvaluation(tt.in); got != tt.want {
			t.Errorf("FromEvaluation(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFromTokenMap(t *testing.T) {
	// Token maps are 1-indexed.
	tests := []struct {
		in   int
		want int
	}{
		{1, 0},
		{2, 1},
		{42, 41},
	}

	for _, tt := range tests {
		if got := FromTokenMap(tt.in); got != tt.want {
			t.Errorf("FromTokenMap(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for line := 0; line < 10; line++ {
		if got := FromEvaluation(ToEvaluation(line)); got != line {
			t.Errorf("FromEvaluation(ToEvaluation(%d)) = %d", line, got)
		}
		if got := FromTokenMap(ToTokenMap(line)); got != line {
			t.Errorf("FromTokenMap(ToTokenMap(%d)) = %d", line, got)
		}
	}
}

func TestInRange(t *testing.T) {
	tests := []struct {
		line      int
		lineCount int
		want      bool
	}{
		{0, 1, true},
		{0, 0, false},
		{-1, 5, false},
		{4, 5, true},
		{5, 5, false},
	}

	for _, tt := range tests {
		if got := InRange(tt.line, tt.lineCount); got != tt.want {
			t.Errorf("InRange(%d, %d) = %v, want %v", tt.line, tt.lineCount, got, tt.want)
		}
	}
}
