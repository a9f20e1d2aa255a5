package identity

import (
	"net/http"
	"strings"

	"github.com/PabloGalante/assistant-chat/internal/domain"
	"github.com/PabloGalante/assistant-chat/internal/observability"
)

// Headers set by the upstream identity provider once it has authenticated
// the caller.
const (
	HeaderUserID    = "X-Auth-User-Id"
	HeaderUserEmail = "X-Auth-User-Email"

	localScheme = "Local "
)

// Resolver decides who is asking. Each request is resolved exactly once and
// the result is passed along; nothing downstream re-inspects credentials.
type Resolver struct {
	accounts *Accounts
}

// NewResolver accepts nil accounts, in which case local tokens are ignored.
func NewResolver(accounts *Accounts) *Resolver {
	return &Resolver{accounts: accounts}
}

// FromRequest checks a local token first, then provider headers. Anything
// else, including an unknown token, is anonymous.
func (r *Resolver) FromRequest(req *http.Request) domain.OwnerIdentity {
	ctx := req.Context()

	if auth := req.Header.Get("Authorization"); strings.HasPrefix(auth, localScheme) && r.accounts != nil {
		token := strings.TrimSpace(strings.TrimPrefix(auth, localScheme))
		owner, err := r.accounts.Lookup(ctx, token)
		if err == nil {
			return owner
		}
		observability.LoggerFromContext(ctx).Warn("ignoring local token", "error", err)
	}

	if id := strings.TrimSpace(req.Header.Get(HeaderUserID)); id != "" {
		return domain.ProvidedAccount(id, strings.TrimSpace(req.Header.Get(HeaderUserEmail)))
	}

	return domain.Anonymous()
}
