package client

import (
	"context"
	"fmt"
)

// Auth provides an API for managing auth tokens.
type Auth struct {
	api *api
}

// New creates a token for account. It requires the admin token.
func (a *Auth) New(ctx context.Context, account string) (string, error) {
	token, err := a.api.AuthNew(ctx, account)
	if err != nil {
		return "", fmt.Errorf("calling AuthNew: %v", err)
	}
	return token, nil
}

// Whoami returns the account the client authenticates as.
func (a *Auth) Whoami(ctx context.Context) (string, error) {
	account, err := a.api.AuthWhoami(ctx)
	if err != nil {
		return "", fmt.Errorf("calling AuthWhoami: %v", err)
	}
	return account, nil
}
