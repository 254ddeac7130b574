// Package codegen генерирует случайные короткие коды и повторяет попытку при коллизии.
package codegen

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"shortlink/internal/domain/models"
)

const (
	DefaultLength     = 6
	DefaultAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	DefaultMaxRetries = 10

	MinLength = 4
	MaxLength = 32
)

var ErrInvalidConfig = errors.New("invalid code generator config")

// ClaimFunc пытается занять code. false означает, что код уже занят,
// и Generate вытягивает следующий.
type ClaimFunc func(ctx context.Context, code string) (bool, error)

type Generator struct {
	alphabet   string
	length     int
	maxRetries int
	random     io.Reader
}

type Option func(*Generator)

// WithRandom подменяет crypto/rand как источник случайности
func WithRandom(r io.Reader) Option {
	return func(g *Generator) {
		g.random = r
	}
}

func New(alphabet string, length, maxRetries int, opts ...Option) (*Generator, error) {
	if alphabet == "" {
		alphabet = DefaultAlphabet
	}
	if length == 0 {
		length = DefaultLength
	}
	if maxRetries == 0 {
		maxRetries = DefaultMaxRetries
	}

	if length < MinLength || length > MaxLength {
		return nil, fmt.Errorf("%w: length %d out of range [%d, %d]", ErrInvalidConfig, length, MinLength, MaxLength)
	}
	if maxRetries < 0 {
		return nil, fmt.Errorf("%w: negative retry budget", ErrInvalidConfig)
	}
	if err := checkAlphabet(alphabet); err != nil {
		return nil, err
	}

	g := &Generator{
		alphabet:   alphabet,
		length:     length,
		maxRetries: maxRetries,
		random:     rand.Reader,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *Generator) Length() int     { return g.length }
func (g *Generator) MaxRetries() int { return g.maxRetries }

// Draw возвращает один случайный код, хранилище не проверяется
func (g *Generator) Draw() (string, error) {
	var sb strings.Builder
	sb.Grow(g.length)

	// rand.Int равномерен на [0, len(alphabet)), без смещения по модулю
	limit := big.NewInt(int64(len(g.alphabet)))
	for i := 0; i < g.length; i++ {
		n, err := rand.Int(g.random, limit)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		sb.WriteByte(g.alphabet[n.Int64()])
	}
	return sb.String(), nil
}

// Generate тянет коды, пока claim не займет один из них или не кончатся попытки.
// nil claim принимает первый же код.
func (g *Generator) Generate(ctx context.Context, claim ClaimFunc) (string, error) {
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		code, err := g.Draw()
		if err != nil {
			return "", err
		}
		if claim == nil {
			return code, nil
		}

		ok, err := claim(ctx, code)
		if err != nil {
			return "", err
		}
		if ok {
			return code, nil
		}
	}

	return "", fmt.Errorf("%w: %d attempts at length %d", models.ErrGenerationExhausted, g.maxRetries, g.length)
}

func checkAlphabet(alphabet string) error {
	seen := make(map[rune]struct{}, len(alphabet))
	for _, r := range alphabet {
		if !isAliasSafe(r) {
			return fmt.Errorf("%w: alphabet symbol %q is not allowed", ErrInvalidConfig, r)
		}
		if _, dup := seen[r]; dup {
			return fmt.Errorf("%w: alphabet symbol %q repeated", ErrInvalidConfig, r)
		}
		seen[r] = struct{}{}
	}
	if len(seen) < 2 {
		return fmt.Errorf("%w: alphabet needs at least 2 symbols", ErrInvalidConfig)
	}
	return nil
}

func isAliasSafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_':
		return true
	}
	return false
}
