package cost

import (
	"fmt"
)

// OptimizationStrategy defines the strategy for tool selection when multiple tools
// are available. This guides the LLM on which metrics to prioritize.
type OptimizationStrategy string

const (
	// OptimizeForCost prioritizes tools with lower execution costs.
	// Use when budget constraints are the primary concern.
	OptimizeForCost OptimizationStrategy = "cost"

	// OptimizeForAccuracy prioritizes tools with higher accuracy/reliability scores.
	// Use when result quality is more important than cost or speed.
	OptimizeForAccuracy OptimizationStrategy = "accuracy"

	// OptimizeForSpeed prioritizes tools with faster execution times.
	// Use when response time is critical.
	OptimizeForSpeed OptimizationStrategy = "speed"

	// OptimizeForQuality prioritizes tools with higher overall quality scores.
	// Quality can be a combination of accuracy, reliability, and result richness.
	OptimizeForQuality OptimizationStrategy = "quality"

	// OptimizeBalanced seeks a balance between cost, accuracy, and speed.
	// Use when no single metric dominates the decision criteria.
	OptimizeBalanced OptimizationStrategy = "balanced"

	// OptimizeCostEffective prioritizes the best quality-to-cost ratio.
	// Use when you want good results at reasonable prices.
	OptimizeCostEffective OptimizationStrategy = "cost_effective"
)

// String returns the string representation of the optimization strategy.
func (s OptimizationStrategy) String() string {
	return string(s)
}

// ToolCost represents the cost information for a single tool execution.
// The cost can be expressed as a fixed amount per call or as a custom unit.
// It also includes optional quality metrics for optimization strategies.
//
// Example usage:
//
//	toolCost := cost.ToolCost{
//	    Amount:      0.001,
//	    Currency:    "USD",
//	    Description: "per API call",
//	    Accuracy:    0.95,  // 95% accuracy
//	    Speed:       1.2,   // 1.2 seconds average
//	}
type ToolCost struct {
	// Amount is the cost value for executing this tool once
	Amount float64 `json:"amount"`

	// Currency is the currency or unit for the cost (e.g., "USD", "EUR", "credits")
	Currency string `json:"currency,omitempty"`

	// Description provides additional context about the cost
	// (e.g., "per API call", "per search query")
	Description string `json:"description,omitempty"`

	// Accuracy represents the accuracy/reliability score (0.0 to 1.0)
	// Higher values indicate more accurate/reliable results
	Accuracy float64 `json:"accuracy,omitempty"`

	// Speed represents the average execution time in seconds
	// Lower values indicate faster execution
	Speed float64 `json:"speed,omitempty"`

	// Quality represents an overall quality score (0.0 to 1.0)
	// This can be a composite metric of various factors
	Quality float64 `json:"quality,omitempty"`
}

// String returns a formatted string representation of the cost.
func (tc ToolCost) String() string {
	currency := tc.Currency
	if currency == "" {
		currency = "USD"
	}

	result := fmt.Sprintf("%.6f %s", tc.Amount, currency)

	if tc.Description != "" {
		result = fmt.Sprintf("%s (%s)", result, tc.Description)
	}

	return result
}

// MetricsString returns a formatted string with all quality metrics.
func (tc ToolCost) MetricsString() string {
	metrics := ""

	if tc.Accuracy > 0 {
		metrics += fmt.Sprintf("Accuracy: %.1f%%", tc.Accuracy*100)
	}

	if tc.Speed > 0 {
		if metrics != "" {
			metrics += ", "
		}
		metrics += fmt.Sprintf("Speed: %.2fs", tc.Speed)
	}

	if tc.Quality > 0 {
		if metrics != "" {
			metrics += ", "
		}
		metrics += fmt.Sprintf("Quality: %.1f%%", tc.Quality*100)
	}

	return metrics
}

// CostEffectivenessScore calculates a cost-effectiveness score.
// Higher scores indicate better value (quality per unit cost).
// Returns 0 if cost is 0 to avoid division by zero.
func (tc ToolCost) CostEffectivenessScore() float64 {
	if tc.Amount == 0 {
		return 0
	}

	qualityScore := tc.Quality
	if qualityScore == 0 && tc.Accuracy > 0 {
		// Use accuracy as a fallback if quality is not set
		qualityScore = tc.Accuracy
	}

	if qualityScore == 0 {
		return 0
	}

	return qualityScore / tc.Amount
}

// ToolMetrics represents the cost and performance metadata attached to a single
// tool (as opposed to ToolCost, which values a tool invocation in isolation).
// It is surfaced to the LLM via ai.ToolDescription when a client is configured
// with WithEnrichSystemPromptWithToolsCosts, so the model can factor cost and
// reliability into its tool-selection decisions.
type ToolMetrics struct {
	// Amount is the cost value for executing this tool once.
	Amount float64 `json:"amount"`

	// Currency is the currency or unit for the cost (e.g., "USD", "EUR", "credits").
	Currency string `json:"currency,omitempty"`

	// CostDescription provides additional context about the cost
	// (e.g., "per API call", "per search query").
	CostDescription string `json:"cost_description,omitempty"`

	// Accuracy represents the accuracy/reliability score (0.0 to 1.0).
	Accuracy float64 `json:"accuracy,omitempty"`

	// AverageDurationInMillis is the average execution time in milliseconds.
	AverageDurationInMillis int64 `json:"average_duration_ms,omitempty"`
}

// String returns a formatted string representation of the cost.
func (tm ToolMetrics) String() string {
	currency := tm.Currency
	if currency == "" {
		currency = "USD"
	}

	result := fmt.Sprintf("%.6f %s", tm.Amount, currency)

	if tm.CostDescription != "" {
		result = fmt.Sprintf("%s (%s)", result, tm.CostDescription)
	}

	return result
}

// MetricsString returns a formatted string with the non-zero quality metrics.
func (tm ToolMetrics) MetricsString() string {
	metrics := ""

	if tm.Accuracy > 0 {
		metrics += fmt.Sprintf("Accuracy: %.1f%%", tm.Accuracy*100)
	}

	if tm.AverageDurationInMillis > 0 {
		if metrics != "" {
			metrics += ", "
		}
		metrics += fmt.Sprintf("Avg Duration: %dms", tm.AverageDurationInMillis)
	}

	return metrics
}

// CostEffectivenessScore calculates accuracy per unit cost. Returns 0 if either
// the amount or the accuracy is zero, to avoid division by zero and to avoid
// rewarding free (but unmeasured) tools.
func (tm ToolMetrics) CostEffectivenessScore() float64 {
	if tm.Amount == 0 || tm.Accuracy == 0 {
		return 0
	}

	return tm.Accuracy / tm.Amount
}

// ModelCost represents the pricing structure for a language model.
// Costs are expressed in USD per million tokens.
//
// Example usage:
//
//	modelCost := cost.ModelCost{
//	    InputCostPerMillion:       2.50,
//	    OutputCostPerMillion:      10.00,
//	    CachedInputCostPerMillion: 1.25,
//	    ReasoningCostPerMillion:   5.00,
//	}
type ModelCost struct {
	// InputCostPerMillion is the cost in USD per 1 million input tokens
	InputCostPerMillion float64 `json:"input_cost_per_million"`

	// OutputCostPerMillion is the cost in USD per 1 million output tokens
	OutputCostPerMillion float64 `json:"output_cost_per_million"`

	// CachedInputCostPerMillion is the cost in USD per 1 million cached input tokens
	// Some providers offer discounted rates for cached tokens (optional)
	CachedInputCostPerMillion float64 `json:"cached_input_cost_per_million,omitempty"`

	// ReasoningCostPerMillion is the cost in USD per 1 million reasoning tokens
	// Used by models like o1/o3 that perform chain-of-thought reasoning (optional)
	ReasoningCostPerMillion float64 `json:"reasoning_cost_per_million,omitempty"`

	// InputTiers, when non-empty, overrides InputCostPerMillion with volume
	// pricing (e.g. Gemini's >200k-token input tier) in
	// CalculateInputCostWithTiers. CalculateInputCost and CalculateTotalCost
	// always use the flat InputCostPerMillion rate.
	InputTiers []CostTier `json:"input_tiers,omitempty"`

	// OutputTiers, when non-empty, overrides OutputCostPerMillion with volume
	// pricing in CalculateOutputCostWithTiers. CalculateOutputCost and
	// CalculateTotalCost always use the flat OutputCostPerMillion rate.
	OutputTiers []CostTier `json:"output_tiers,omitempty"`
}

// ComputeCost prices the infrastructure time spent running an execution, independent
// of model or tool costs (e.g. the wall-clock cost of the VM or container hosting it).
type ComputeCost struct {
	// CostPerSecond is the price in USD per second of execution time.
	CostPerSecond float64 `json:"cost_per_second"`

	// Currency is the currency or unit for the cost, defaulting to "USD" when empty.
	Currency string `json:"currency,omitempty"`
}

// CalculateCost returns the compute cost for the given execution duration in seconds.
func (cc ComputeCost) CalculateCost(durationSeconds float64) float64 {
	return durationSeconds * cc.CostPerSecond
}

// CostTier represents a volume-pricing tier: tokens up to and including
// UpToTokens are billed at CostPerMillion. The last tier in a slice should
// normally have UpToTokens of 0, meaning "no upper bound".
type CostTier struct {
	// UpToTokens is the cumulative token count this tier applies up to.
	// A value of 0 means unbounded (catches all remaining tokens).
	UpToTokens int `json:"up_to_tokens"`

	// CostPerMillion is the price in USD per 1 million tokens within this tier.
	CostPerMillion float64 `json:"cost_per_million"`
}

// calculateTieredCost distributes tokens across tiers in order, billing each
// tier's share at its own rate. Falls back to flatRate when tiers is empty.
func calculateTieredCost(tokens int, tiers []CostTier, flatRate float64) float64 {
	if len(tiers) == 0 {
		return (float64(tokens) / 1_000_000.0) * flatRate
	}

	remaining := tokens
	billed := 0
	total := 0.0

	for _, tier := range tiers {
		if remaining <= 0 {
			break
		}

		tierCapacity := tier.UpToTokens - billed
		if tier.UpToTokens == 0 {
			tierCapacity = remaining
		}
		if tierCapacity <= 0 {
			continue
		}

		tokensInTier := remaining
		if tokensInTier > tierCapacity {
			tokensInTier = tierCapacity
		}

		total += (float64(tokensInTier) / 1_000_000.0) * tier.CostPerMillion
		billed += tokensInTier
		remaining -= tokensInTier
	}

	return total
}

// CalculateInputCost calculates the cost for the given number of input tokens.
func (mc ModelCost) CalculateInputCost(tokens int) float64 {
	return (float64(tokens) / 1_000_000.0) * mc.InputCostPerMillion
}

// CalculateInputCostWithTiers calculates input token cost, applying InputTiers
// volume pricing when configured and falling back to the flat
// InputCostPerMillion rate otherwise.
func (mc ModelCost) CalculateInputCostWithTiers(tokens int) float64 {
	return calculateTieredCost(tokens, mc.InputTiers, mc.InputCostPerMillion)
}

// CalculateOutputCostWithTiers calculates output token cost, applying OutputTiers
// volume pricing when configured and falling back to the flat
// OutputCostPerMillion rate otherwise.
func (mc ModelCost) CalculateOutputCostWithTiers(tokens int) float64 {
	return calculateTieredCost(tokens, mc.OutputTiers, mc.OutputCostPerMillion)
}

// CalculateOutputCost calculates the cost for the given number of output tokens.
func (mc ModelCost) CalculateOutputCost(tokens int) float64 {
	return (float64(tokens) / 1_000_000.0) * mc.OutputCostPerMillion
}

// CalculateCachedCost calculates the cost for the given number of cached tokens.
func (mc ModelCost) CalculateCachedCost(tokens int) float64 {
	return (float64(tokens) / 1_000_000.0) * mc.CachedInputCostPerMillion
}

// CalculateReasoningCost calculates the cost for the given number of reasoning tokens.
func (mc ModelCost) CalculateReasoningCost(tokens int) float64 {
	return (float64(tokens) / 1_000_000.0) * mc.ReasoningCostPerMillion
}

// CalculateTotalCost calculates the total cost for all token types.
func (mc ModelCost) CalculateTotalCost(inputTokens, outputTokens, cachedTokens, reasoningTokens int) float64 {
	total := mc.CalculateInputCost(inputTokens)
	total += mc.CalculateOutputCost(outputTokens)

	if mc.CachedInputCostPerMillion > 0 && cachedTokens > 0 {
		total += mc.CalculateCachedCost(cachedTokens)
	}

	if mc.ReasoningCostPerMillion > 0 && reasoningTokens > 0 {
		total += mc.CalculateReasoningCost(reasoningTokens)
	}

	return total
}

// String returns a formatted string representation of the model costs.
func (mc ModelCost) String() string {
	return fmt.Sprintf("Input: $%.6f/M, Output: $%.6f/M",
		mc.InputCostPerMillion, mc.OutputCostPerMillion)
}

// CostSummary provides a detailed breakdown of all costs during an execution.
type CostSummary struct {
	// ToolCosts maps tool names to their accumulated execution costs
	ToolCosts map[string]float64 `json:"tool_costs,omitempty"`

	// ToolExecutionCount tracks how many times each tool was called
	ToolExecutionCount map[string]int `json:"tool_execution_count,omitempty"`

	// TotalToolCost is the sum of all tool execution costs
	TotalToolCost float64 `json:"total_tool_cost"`

	// ModelInputCost is the cost from input tokens
	ModelInputCost float64 `json:"model_input_cost"`

	// ModelOutputCost is the cost from output tokens
	ModelOutputCost float64 `json:"model_output_cost"`

	// ModelCachedCost is the cost from cached tokens
	ModelCachedCost float64 `json:"model_cached_cost"`

	// ModelReasoningCost is the cost from reasoning tokens
	ModelReasoningCost float64 `json:"model_reasoning_cost"`

	// TotalModelCost is the sum of all model costs
	TotalModelCost float64 `json:"total_model_cost"`

	// ComputeCost is the infrastructure cost attributed to execution wall-clock time
	ComputeCost float64 `json:"compute_cost,omitempty"`

	// ExecutionDurationSeconds is the wall-clock duration the ComputeCost was calculated over
	ExecutionDurationSeconds float64 `json:"execution_duration_seconds,omitempty"`

	// TotalCost is the grand total (tools + model + compute)
	TotalCost float64 `json:"total_cost"`

	// Currency is always "USD" for consistency
	Currency string `json:"currency"`
}
