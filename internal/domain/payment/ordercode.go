package payment

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	OrderCodePrefix = "ORD-"
	// Digits and upper-case letters without 0, 1, I, L, O
	orderCodeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"
	orderCodeLength   = 8

	DefaultOrderCodeAttempts = 5
)

// ErrOrderCodeExhausted is returned when every generated candidate already exists
var ErrOrderCodeExhausted = errors.New("could not generate a unique order code")

// ExistsFunc reports whether an order code is already taken
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// OrderCodeGenerator produces short, human-readable order codes that are
// checked for uniqueness before being handed out
type OrderCodeGenerator struct {
	exists      ExistsFunc
	maxAttempts int
	random      io.Reader
}

// OrderCodeOption customises an OrderCodeGenerator
type OrderCodeOption func(*OrderCodeGenerator)

// WithMaxAttempts bounds the number of candidates tried per Generate call
func WithMaxAttempts(n int) OrderCodeOption {
	return func(g *OrderCodeGenerator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithRandomSource replaces crypto/rand, used by tests
func WithRandomSource(r io.Reader) OrderCodeOption {
	return func(g *OrderCodeGenerator) {
		g.random = r
	}
}

// NewOrderCodeGenerator creates a generator that re-checks candidates with exists
func NewOrderCodeGenerator(exists ExistsFunc, opts ...OrderCodeOption) *OrderCodeGenerator {
	g := &OrderCodeGenerator{
		exists:      exists,
		maxAttempts: DefaultOrderCodeAttempts,
		random:      rand.Reader,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns an order code that did not exist at the time of the check.
// The unique index on transactions.order_code still arbitrates concurrent inserts.
func (g *OrderCodeGenerator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		code, err := g.candidate()
		if err != nil {
			return "", fmt.Errorf("failed to generate order code: %w", err)
		}

		taken, err := g.exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check order code uniqueness: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrOrderCodeExhausted
}

// candidate draws orderCodeLength symbols using rejection sampling so every
// symbol of the alphabet is equally likely
func (g *OrderCodeGenerator) candidate() (string, error) {
	n := len(orderCodeAlphabet)
	limit := 256 - (256 % n)

	var sb strings.Builder
	sb.Grow(len(OrderCodePrefix) + orderCodeLength)
	sb.WriteString(OrderCodePrefix)

	buf := make([]byte, orderCodeLength*2)
	written := 0
	for written < orderCodeLength {
		if _, err := io.ReadFull(g.random, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			sb.WriteByte(orderCodeAlphabet[int(b)%n])
			written++
			if written == orderCodeLength {
				break
			}
		}
	}
	return sb.String(), nil
}

// IsOrderCode reports whether s has the shape of a generated order code
func IsOrderCode(s string) bool {
	if !strings.HasPrefix(s, OrderCodePrefix) || len(s) != len(OrderCodePrefix)+orderCodeLength {
		return false
	}
	for _, r := range s[len(OrderCodePrefix):] {
		if !strings.ContainsRune(orderCodeAlphabet, r) {
			return false
		}
	}
	return true
}
