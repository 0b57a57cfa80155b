package monitoring

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/jmaietta/promptgenius-backend/internal/config"
)

var (
	encOnce sync.Once
	encoder *tiktoken.Tiktoken
)

// EstimateTokens approximates the token count of text for telemetry.
// The cl100k_base encoding loads lazily; when it is unavailable (offline
// hosts) the chars/4 ratio is used instead. Estimates are recorded, never
// billed, so the approximation is acceptable.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}

	encOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			encoder = enc
		}
	})

	if encoder != nil {
		return len(encoder.Encode(text, nil, nil))
	}
	return len(text) / config.TokenEstimateRatio
}
