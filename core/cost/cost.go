package cost

import (
	"fmt"
	"strings"

	"github.com/bupple-inc/ai-engine/providers/ai"
)

// Currency is the unit every rate and summary is expressed in.
const Currency = "USD"

// ModelCost is the pricing of one model in USD per million tokens.
//
//	modelCost := cost.ModelCost{
//	    InputCostPerMillion:  2.50,
//	    OutputCostPerMillion: 10.00,
//	}
type ModelCost struct {
	InputCostPerMillion  float64 `mapstructure:"input_cost_per_million" yaml:"input_cost_per_million" json:"input_cost_per_million"`
	OutputCostPerMillion float64 `mapstructure:"output_cost_per_million" yaml:"output_cost_per_million" json:"output_cost_per_million"`
}

// CalculateInputCost calculates the cost for the given number of input tokens.
func (mc ModelCost) CalculateInputCost(tokens int) float64 {
	return (float64(tokens) / 1_000_000.0) * mc.InputCostPerMillion
}

// CalculateOutputCost calculates the cost for the given number of output tokens.
func (mc ModelCost) CalculateOutputCost(tokens int) float64 {
	return (float64(tokens) / 1_000_000.0) * mc.OutputCostPerMillion
}

// Summarize prices usage.
func (mc ModelCost) Summarize(usage ai.Usage) Summary {
	summary := Summary{
		InputCost:  mc.CalculateInputCost(usage.PromptTokens),
		OutputCost: mc.CalculateOutputCost(usage.CompletionTokens),
		Currency:   Currency,
	}
	summary.TotalCost = summary.InputCost + summary.OutputCost
	return summary
}

// Validate reports negative rates.
func (mc ModelCost) Validate() error {
	if mc.InputCostPerMillion < 0 || mc.OutputCostPerMillion < 0 {
		return fmt.Errorf("rates must not be negative, got %s", mc)
	}
	return nil
}

// String returns a formatted string representation of the model costs.
func (mc ModelCost) String() string {
	return fmt.Sprintf("Input: $%.6f/M, Output: $%.6f/M",
		mc.InputCostPerMillion, mc.OutputCostPerMillion)
}

// Summary is the priced usage of one or more requests.
type Summary struct {
	InputCost  float64 `json:"input_cost"`
	OutputCost float64 `json:"output_cost"`
	TotalCost  float64 `json:"total_cost"`
	Currency   string  `json:"currency"`
}

func (s Summary) String() string {
	return fmt.Sprintf("%.6f %s", s.TotalCost, s.Currency)
}

// Table maps model names to their pricing. Keys are matched without regard
// to case.
type Table map[string]ModelCost

// Lookup returns the pricing of model. An exact key wins; otherwise the
// longest key that prefixes model is used, so "gpt-4" prices "gpt-4-0613".
func (t Table) Lookup(model string) (ModelCost, bool) {
	model = strings.ToLower(model)
	if model == "" {
		return ModelCost{}, false
	}

	var (
		best    ModelCost
		bestLen int
		found   bool
	)
	for key, mc := range t {
		key = strings.ToLower(key)
		if key == model {
			return mc, true
		}
		if strings.HasPrefix(model, key) && len(key) > bestLen {
			best, bestLen, found = mc, len(key), true
		}
	}
	return best, found
}
