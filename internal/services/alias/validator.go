package alias

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"shortlink/internal/domain/models"
)

const MaxLength = 64

var aliasRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Алиасы, которые перекрыли бы маршруты HTTP слоя
var reserved = map[string]struct{}{
	"api":    {},
	"stats":  {},
	"ping":   {},
	"create": {},
	"health": {},
}

type CodeLookup interface {
	FindByCode(ctx context.Context, code string) (models.ShortLink, error)
}

type Validator struct {
	lookup CodeLookup
}

func NewValidator(lookup CodeLookup) *Validator {
	return &Validator{lookup: lookup}
}

// CheckFormat проверяет формат алиаса без обращения к хранилищу
func CheckFormat(alias string) error {
	if alias == "" {
		return models.ErrAliasEmpty
	}
	if len(alias) > MaxLength {
		return fmt.Errorf("%w: longer than %d", models.ErrAliasInvalidCharacters, MaxLength)
	}
	if !aliasRe.MatchString(alias) {
		return models.ErrAliasInvalidCharacters
	}
	if IsReserved(alias) {
		return fmt.Errorf("%w: %q is reserved", models.ErrAliasInvalidCharacters, alias)
	}
	return nil
}

// IsReserved - code совпадает с маршрутом HTTP слоя (без учета регистра)
func IsReserved(code string) bool {
	_, ok := reserved[strings.ToLower(code)]
	return ok
}

// Validate пропускает алиас, только если он корректен и еще не занят
func (v *Validator) Validate(ctx context.Context, alias string) error {
	if err := CheckFormat(alias); err != nil {
		return err
	}

	_, err := v.lookup.FindByCode(ctx, alias)
	switch {
	case err == nil:
		return models.ErrAliasTaken
	case errors.Is(err, models.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("failed to check alias: %w", err)
	}
}
