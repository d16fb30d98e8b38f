package pricing

import (
	"testing"

	"github.com/switchboard-ai/switchboard/pkg/types"
)

func TestCalculate(t *testing.T) {
	calc := NewCalculator(nil) // default rates

	tests := []struct {
		name         string
		model        string
		inputTokens  int
		outputTokens int
		want         float64
	}{
		{
			name:         "gpt-4o exact match",
			model:        "gpt-4o",
			inputTokens:  1000,
			outputTokens: 1000,
			want:         0.005 + 0.015,
		},
		{
			name:         "gpt-4-turbo prefix match",
			model:        "gpt-4-turbo-preview",
			inputTokens:  1000,
			outputTokens: 500,
			want:         0.01 + 0.03*0.5,
		},
		{
			name:         "claude-3-5-sonnet prefix match",
			model:        "claude-3-5-sonnet-20240620",
			inputTokens:  2000,
			outputTokens: 1000,
			want:         0.003*2 + 0.015,
		},
		{
			name:         "unknown model returns zero",
			model:        "unknown-model",
			inputTokens:  1000,
			outputTokens: 1000,
			want:         0,
		},
		{
			name:  "zero tokens",
			model: "gpt-4o",
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.Calculate(tt.model, tt.inputTokens, tt.outputTokens)
			if diff := got - tt.want; diff < -0.0001 || diff > 0.0001 {
				t.Errorf("Calculate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	calc := NewCalculator(nil)

	tests := []struct {
		name      string
		model     string
		wantFound bool
		wantRate  string
	}{
		{"exact match", "gpt-4o", true, "gpt-4o"},
		{"longest prefix wins over gpt-4*", "gpt-4-turbo-preview", true, "gpt-4-turbo*"},
		{"generic gpt-4 prefix", "gpt-4-0613", true, "gpt-4*"},
		{"case insensitive", "GPT-4O", true, "gpt-4o"},
		{"unknown model", "completely-unknown", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, found := calc.Lookup(tt.model)
			if found != tt.wantFound {
				t.Fatalf("Lookup() found = %v, want %v", found, tt.wantFound)
			}
			if found && rate.Model != tt.wantRate {
				t.Errorf("Lookup() matched %q, want %q", rate.Model, tt.wantRate)
			}
		})
	}
}

func TestCostOf(t *testing.T) {
	calc := NewCalculator(nil)

	if got := calc.CostOf("gpt-4o", nil); got != 0 {
		t.Errorf("CostOf with nil usage = %v, want 0", got)
	}

	usage := &types.Usage{PromptTokens: 1000, CompletionTokens: 1000}
	want := 0.005 + 0.015
	if got := calc.CostOf("gpt-4o", usage); got-want < -0.0001 || got-want > 0.0001 {
		t.Errorf("CostOf() = %v, want %v", got, want)
	}
}

func TestAdd(t *testing.T) {
	calc := NewCalculator(nil)

	calc.Add(Rate{Model: "custom-model", InputCostPer1K: 0.001, OutputCostPer1K: 0.002})
	if got, want := calc.Calculate("custom-model", 1000, 1000), 0.003; got-want < -0.0001 || got-want > 0.0001 {
		t.Errorf("Calculate() after Add = %v, want %v", got, want)
	}

	// Replacing an existing rate takes effect immediately.
	calc.Add(Rate{Model: "gpt-4o", InputCostPer1K: 0.999, OutputCostPer1K: 0.999})
	if got, want := calc.Calculate("gpt-4o", 1000, 1000), 1.998; got-want < -0.0001 || got-want > 0.0001 {
		t.Errorf("Calculate() after replace = %v, want %v", got, want)
	}

	// Replacing a prefix rate must not duplicate the pattern.
	calc.Add(Rate{Model: "gpt-4*", InputCostPer1K: 0.5, OutputCostPer1K: 0.5})
	if got, want := calc.Calculate("gpt-4-0613", 1000, 0), 0.5; got-want < -0.0001 || got-want > 0.0001 {
		t.Errorf("Calculate() after prefix replace = %v, want %v", got, want)
	}
}

func BenchmarkCalculate(b *testing.B) {
	calc := NewCalculator(nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = calc.Calculate("gpt-4o", 1000, 1000)
	}
}
