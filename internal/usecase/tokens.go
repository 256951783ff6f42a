package usecase

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"semanticheck/internal/domain"
)

// fallbackEncoding covers models tiktoken does not know by name.
const fallbackEncoding = "cl100k_base"

// TokenBudget caps how many tokens a single request may send to a remote
// model. The encoder is loaded on first use, and never when the budget is
// disabled. A nil *TokenBudget allows everything.
type TokenBudget struct {
	limit int
	model string

	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// NewTokenBudget creates a budget of limit tokens counted with model's
// encoding. limit <= 0 disables the check.
func NewTokenBudget(limit int, model string) *TokenBudget {
	return &TokenBudget{limit: limit, model: model}
}

// Enabled reports whether the budget enforces a limit.
func (b *TokenBudget) Enabled() bool { return b != nil && b.limit > 0 }

// Count returns the number of tokens in text.
func (b *TokenBudget) Count(text string) (int, error) {
	b.once.Do(func() {
		b.enc, b.err = tiktoken.EncodingForModel(b.model)
		if b.err != nil {
			b.enc, b.err = tiktoken.GetEncoding(fallbackEncoding)
		}
	})
	if b.err != nil {
		return 0, fmt.Errorf("load tokenizer: %w", b.err)
	}
	return len(b.enc.Encode(text, nil, nil)), nil
}

// Check returns domain.ErrInputTooLarge when texts together exceed the budget.
func (b *TokenBudget) Check(texts ...string) error {
	if !b.Enabled() {
		return nil
	}
	total := 0
	for _, t := range texts {
		n, err := b.Count(t)
		if err != nil {
			return err
		}
		total += n
	}
	if total > b.limit {
		return fmt.Errorf("%w: %d tokens, limit %d", domain.ErrInputTooLarge, total, b.limit)
	}
	return nil
}
