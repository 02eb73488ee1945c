// Package principal turns opaque bearer credentials into verified principals.
package principal

import (
	"context"
	"crypto/rsa"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"

	"edconnekt/pkg/domain"
	dErrors "edconnekt/pkg/domain-errors"
)

// KeySource fetches the identity provider's current signing key set.
type KeySource interface {
	Fetch(ctx context.Context) (jwk.Set, error)
}

// JWKSFetcher fetches keys from a JWKS endpoint.
type JWKSFetcher struct {
	URL string
}

func (f *JWKSFetcher) Fetch(ctx context.Context) (jwk.Set, error) {
	set, err := jwk.Fetch(ctx, f.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks %s: %w", f.URL, err)
	}
	return set, nil
}

// Resolver verifies bearer credentials against the provider's signing keys
// and produces the request principal. The key set is cached; an unknown kid
// triggers at most one refetch per request so key rotation is picked up
// without hammering the provider. Concurrent refreshes for the same missing
// key are tolerated as redundant.
type Resolver struct {
	keys     KeySource
	issuer   string
	audience string
	timeout  time.Duration
	logger   *slog.Logger

	mu     sync.RWMutex
	cached jwk.Set
}

type Option func(r *Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// WithTimeout bounds credential verification including any key fetch.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) { r.timeout = d }
}

const defaultResolveTimeout = 5 * time.Second

func NewResolver(keys KeySource, issuer, audience string, opts ...Option) *Resolver {
	r := &Resolver{
		keys:     keys,
		issuer:   issuer,
		audience: audience,
		timeout:  defaultResolveTimeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// claims are the Keycloak realm token claims this platform relies on.
type claims struct {
	PreferredUsername string      `json:"preferred_username"`
	RealmAccess       realmAccess `json:"realm_access"`
	jwt.RegisteredClaims
}

type realmAccess struct {
	Roles []string `json:"roles"`
}

// errUnauthenticated is the single error surfaced for every verification
// failure. Expired, forged, wrong-audience and unknown-key credentials are
// indistinguishable to the caller so the endpoint leaks nothing.
func errUnauthenticated() error {
	return dErrors.New(dErrors.CodeUnauthenticated, "invalid or expired credential")
}

// Resolve verifies the credential and returns the principal it identifies.
func (r *Resolver) Resolve(ctx context.Context, credential string) (domain.Principal, error) {
	if credential == "" {
		return domain.Principal{}, errUnauthenticated()
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	refetched := false
	keyfunc := func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("token has no kid header")
		}
		key, err := r.signingKey(ctx, kid, &refetched)
		if err != nil {
			return nil, err
		}
		return key, nil
	}

	parsed, err := jwt.ParseWithClaims(credential, &claims{}, keyfunc,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(r.issuer),
		jwt.WithAudience(r.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		r.logger.DebugContext(ctx, "credential rejected", "error", err)
		return domain.Principal{}, errUnauthenticated()
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || c.Subject == "" {
		return domain.Principal{}, errUnauthenticated()
	}

	return domain.Principal{
		SubjectID:    c.Subject,
		DisplayLabel: c.PreferredUsername,
		Roles:        c.RealmAccess.Roles,
	}, nil
}

// signingKey resolves kid against the cached key set, refetching at most once
// when the kid is unknown (key rotation).
func (r *Resolver) signingKey(ctx context.Context, kid string, refetched *bool) (*rsa.PublicKey, error) {
	r.mu.RLock()
	set := r.cached
	r.mu.RUnlock()

	if set != nil {
		if key, ok := set.LookupKeyID(kid); ok {
			return rawRSA(key)
		}
	}

	if *refetched {
		return nil, fmt.Errorf("signing key %q not found", kid)
	}
	*refetched = true

	fresh, err := r.keys.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.cached = fresh
	r.mu.Unlock()

	key, ok := fresh.LookupKeyID(kid)
	if !ok {
		return nil, fmt.Errorf("signing key %q not found after refresh", kid)
	}
	return rawRSA(key)
}

func rawRSA(key jwk.Key) (*rsa.PublicKey, error) {
	var pub rsa.PublicKey
	if err := key.Raw(&pub); err != nil {
		return nil, fmt.Errorf("materialize public key: %w", err)
	}
	return &pub, nil
}
