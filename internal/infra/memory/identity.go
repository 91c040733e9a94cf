package memory

import (
	"context"
	"errors"
)

// ErrUnknownUser is returned when no display name is registered for an id.
var ErrUnknownUser = errors.New("unknown user id")

// StaticIdentityProvider resolves display names from a fixed map. The
// real identity provider lives in the hosting environment; this stands
// in for it in tests and demos.
type StaticIdentityProvider struct {
	names map[string]string
}

func NewStaticIdentityProvider(names map[string]string) *StaticIdentityProvider {
	if names == nil {
		names = make(map[string]string)
	}
	return &StaticIdentityProvider{names: names}
}

func (p *StaticIdentityProvider) ResolveDisplayName(_ context.Context, userID string) (string, error) {
	if name, ok := p.names[userID]; ok {
		return name, nil
	}
	return "", ErrUnknownUser
}
