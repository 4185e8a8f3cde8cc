// Package breeds validates cat breeds against an external vocabulary.
package breeds

import (
	"context"
	"strings"
)

// Validator answers whether a breed name is recognised. An error means the
// vocabulary could not be consulted, not that the breed is unknown.
type Validator interface {
	IsValid(ctx context.Context, breed string) (bool, error)
}

// Normalize is the comparison form of a breed name.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Static is a fixed vocabulary, used offline and in tests.
type Static map[string]struct{}

func NewStatic(names ...string) Static {
	s := make(Static, len(names))
	for _, n := range names {
		if n = Normalize(n); n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

func (s Static) IsValid(_ context.Context, breed string) (bool, error) {
	_, ok := s[Normalize(breed)]
	return ok, nil
}
