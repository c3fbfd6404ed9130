package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/textileio/marketgate/market"
	"github.com/textileio/marketgate/market/auth"
)

type ctxKey struct{}

type caller struct {
	account string
	admin   bool
}

// ErrUnauthenticated indicates the request didn't carry a valid token.
var ErrUnauthenticated = fmt.Errorf("%w: missing or invalid auth token", market.ErrUnauthorized)

// Handler authenticates JSON-RPC requests with bearer tokens and puts the
// caller account in the request context. The admin token authenticates
// the host account with admin rights. Requests without a token are
// forwarded anonymously, so only read methods succeed.
type Handler struct {
	Auth        *auth.Auth
	AdminToken  string
	HostAccount string
	Next        http.Handler
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	if token == "" {
		h.Next.ServeHTTP(w, r)
		return
	}

	var c caller
	if h.AdminToken != "" && token == h.AdminToken {
		c = caller{account: h.HostAccount, admin: true}
	} else {
		account, err := h.Auth.Get(token)
		if errors.Is(err, auth.ErrNotFound) {
			log.Warnf("rejected request with unknown token from %s", r.RemoteAddr)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err != nil {
			log.Errorf("checking auth token: %s", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		c = caller{account: account}
	}
	h.Next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, c)))
}

func callerOf(ctx context.Context) (caller, error) {
	c, ok := ctx.Value(ctxKey{}).(caller)
	if !ok || c.account == "" {
		return caller{}, ErrUnauthenticated
	}
	return c, nil
}
