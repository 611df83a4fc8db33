package provider

import (
	"github.com/shopspring/decimal"

	"model-manager/internal/domain/model"
)

var tokensPerThousand = decimal.NewFromInt(1000)

// CalculateCost derives the cost of one call from the model's per-1k-token
// prices. Local models are always free regardless of token counts. Defined
// once here; provider implementations never override it.
func CalculateCost(info model.ModelInfo, inputTokens, outputTokens int) decimal.Decimal {
	if info.IsLocal {
		return decimal.Zero
	}
	inputCost := decimal.NewFromInt(int64(inputTokens)).Div(tokensPerThousand).Mul(info.CostPer1KInput)
	outputCost := decimal.NewFromInt(int64(outputTokens)).Div(tokensPerThousand).Mul(info.CostPer1KOutput)
	return inputCost.Add(outputCost)
}

// EstimateTokens approximates the token count of text when the backend does
// not report one. Four characters per token, rounded up; applied uniformly
// across providers so cost stays deterministic.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// EstimateMessageTokens sums the estimate over an ordered message list.
func EstimateMessageTokens(messages []model.Message) int {
	total := 0
	for _, m := range messages {
		total += EstimateTokens(m.Content)
	}
	return total
}
