// Package tokens counts prompt tokens and checks them against a model's ceiling.
package tokens

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"fundbridge-gpt/internal/catalog"
)

// encodingName is the BPE encoding shared by the catalog models.
const encodingName = "cl100k_base"

// Counter counts tokens in text. Implementations must be deterministic.
type Counter interface {
	Count(text string) int
}

// TiktokenCounter counts tokens with the cl100k_base encoding.
// The encoding is loaded on first use.
type TiktokenCounter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

// NewTiktokenCounter creates a counter backed by tiktoken-go.
func NewTiktokenCounter() *TiktokenCounter {
	return &TiktokenCounter{}
}

// Count returns the number of tokens in text.
func (c *TiktokenCounter) Count(text string) int {
	c.init()
	if c.err != nil || c.enc == nil {
		// Rough estimate: 4 bytes per token.
		return len(text) / 4
	}
	return len(c.enc.Encode(text, nil, nil))
}

// Err reports why the encoding could not be loaded, if it could not.
func (c *TiktokenCounter) Err() error {
	c.init()
	return c.err
}

func (c *TiktokenCounter) init() {
	c.once.Do(func() {
		c.enc, c.err = tiktoken.GetEncoding(encodingName)
	})
}

// ErrBudgetExceeded is returned when a prompt is at or above the model's ceiling.
var ErrBudgetExceeded = errors.New("document too large for the selected model")

// BudgetError carries the estimate that blocked a delegation.
type BudgetError struct {
	Estimate Estimate
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("%v: %d tokens, %s allows fewer than %d", ErrBudgetExceeded, e.Estimate.Tokens, e.Estimate.Model, e.Estimate.Ceiling)
}

func (e *BudgetError) Unwrap() error {
	return ErrBudgetExceeded
}

// Estimate is the outcome of a budget check.
type Estimate struct {
	Model   string `json:"model"`
	Tokens  int    `json:"tokens"`
	Ceiling int    `json:"ceiling"`
}

// Allowed reports whether the estimate is strictly below the ceiling.
func (e Estimate) Allowed() bool {
	return e.Tokens < e.Ceiling
}

// Budget estimates prompts against model ceilings.
type Budget struct {
	counter Counter
}

// NewBudget creates a budget using the given counter.
func NewBudget(counter Counter) *Budget {
	return &Budget{counter: counter}
}

// Estimate counts text and pairs the count with the model's ceiling.
func (b *Budget) Estimate(text string, model catalog.Model) Estimate {
	return Estimate{
		Model:   model.ID,
		Tokens:  b.counter.Count(text),
		Ceiling: model.MaxTokens,
	}
}

// Check estimates text and returns a *BudgetError when it is not allowed.
// The estimate is returned in both cases.
func (b *Budget) Check(text string, model catalog.Model) (Estimate, error) {
	est := b.Estimate(text, model)
	if !est.Allowed() {
		return est, &BudgetError{Estimate: est}
	}
	return est, nil
}

// Count exposes the underlying counter.
func (b *Budget) Count(text string) int {
	return b.counter.Count(text)
}
