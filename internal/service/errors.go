package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ErrNotFound is returned when the addressed record does not exist.
var ErrNotFound = errors.New("record not found")

// ValidationError carries per-field messages. It is returned before any write.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "validation failed: " + strings.Join(keys, ", ")
}

func fieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// RuleError is a business-rule refusal with a single user-facing message.
// Forbidden marks refusals coming from the authorization policy.
type RuleError struct {
	Message   string
	Forbidden bool
}

func (e *RuleError) Error() string { return e.Message }

func ruleError(msg string) *RuleError { return &RuleError{Message: msg} }

func denied(msg string) *RuleError { return &RuleError{Message: msg, Forbidden: true} }

// notFound maps gorm's sentinel to ErrNotFound and passes other errors through.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Cache is the byte cache used for derived read models. A nil Cache disables caching.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
