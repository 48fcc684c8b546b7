package promptfit

import (
	"fmt"
	"math"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter approximates the number of LLM tokens a string renders to.
// Per §9 Open Question (a), PromptFitter's correctness depends only on
// monotonicity (more text never yields fewer tokens), not exactness —
// both implementations below satisfy that, and either can back the fitter.
type TokenCounter interface {
	Count(text string) int
}

// defaultBytesPerToken is the fallback ratio when no BPE encoding is
// available; ~4 bytes/token is a widely cited approximation for English
// prose and source diffs.
const defaultBytesPerToken = 4.0

// RatioCounter approximates token count from byte length. It never fails
// and requires no external encoding tables, so it is the always-available
// fallback.
type RatioCounter struct {
	BytesPerToken float64
}

// NewRatioCounter returns a RatioCounter using defaultBytesPerToken.
func NewRatioCounter() RatioCounter {
	return RatioCounter{BytesPerToken: defaultBytesPerToken}
}

// Count implements TokenCounter.
func (c RatioCounter) Count(text string) int {
	ratio := c.BytesPerToken
	if ratio <= 0 {
		ratio = defaultBytesPerToken
	}

	return int(math.Ceil(float64(len(text)) / ratio))
}

// TiktokenCounter counts tokens with the real BPE encoding an LLM provider
// uses, via github.com/pkoukk/tiktoken-go. More accurate than RatioCounter,
// at the cost of requiring an encoding table for the target model family.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the named encoding (e.g. "cl100k_base").
func NewTiktokenCounter(encodingName string) (*TiktokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("promptfit: load encoding %q: %w", encodingName, err)
	}

	return &TiktokenCounter{enc: enc}, nil
}

// Count implements TokenCounter.
func (c *TiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}
