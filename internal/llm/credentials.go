package llm

import (
	"context"

	"golang.org/x/oauth2"
)

// resolvedAPIKeyKey is the context key under which a per-turn credential
// override is stashed, mirroring the teacher's resolvedAPIKeyKey /
// WithResolvedAPIKey context-scoped override in internal/agent/steering.go.
type resolvedAPIKeyKey struct{}

// WithAPIKey stashes a resolved credential in ctx so a Completer adapter
// can use it in place of its configured default for this call only.
func WithAPIKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, resolvedAPIKeyKey{}, key)
}

// APIKeyFromContext retrieves a per-call credential override, if any.
func APIKeyFromContext(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(resolvedAPIKeyKey{}).(string)
	return key, ok && key != ""
}

// WithoutAPIKey clears a per-call credential override. An adapter that
// rebuilds itself against the resolved key calls this first so the
// delegated call doesn't re-trigger the same override.
func WithoutAPIKey(ctx context.Context) context.Context {
	return context.WithValue(ctx, resolvedAPIKeyKey{}, "")
}

// CredentialResolver resolves a provider's current bearer credential,
// short-lived-token aware (spec §3's OrchestratorContext.APIKey override).
// Implementations typically wrap an oauth2.TokenSource per provider.
type CredentialResolver interface {
	Resolve(ctx context.Context, provider string) (string, error)
}

// TokenSourceResolver is a CredentialResolver backed by one
// oauth2.TokenSource per provider name, refreshing short-lived tokens
// through the standard oauth2 machinery instead of a static API key.
type TokenSourceResolver struct {
	sources map[string]oauth2.TokenSource
}

// NewTokenSourceResolver builds an empty resolver; register providers with
// Register before use.
func NewTokenSourceResolver() *TokenSourceResolver {
	return &TokenSourceResolver{sources: make(map[string]oauth2.TokenSource)}
}

// Register associates provider with the token source used to resolve its
// credential. A static, never-expiring key can be registered via
// oauth2.StaticTokenSource(&oauth2.Token{AccessToken: key}).
func (r *TokenSourceResolver) Register(provider string, source oauth2.TokenSource) {
	r.sources[provider] = source
}

// Resolve returns provider's current access token, calling through the
// oauth2.TokenSource so an expiring token is refreshed transparently.
func (r *TokenSourceResolver) Resolve(ctx context.Context, provider string) (string, error) {
	source, ok := r.sources[provider]
	if !ok {
		return "", nil
	}
	token, err := source.Token()
	if err != nil {
		return "", err
	}
	return token.AccessToken, nil
}
