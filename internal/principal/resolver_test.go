package principal

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"

	dErrors "edconnekt/pkg/domain-errors"
)

const (
	testIssuer   = "http://keycloak:8080/realms/EdConnect"
	testAudience = "edconnekt-api"
)

type signer struct {
	key *rsa.PrivateKey
	kid string
}

func newSigner(t *testing.T, kid string) *signer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return &signer{key: key, kid: kid}
}

func (s *signer) jwk(t *testing.T) jwk.Key {
	t.Helper()
	key, err := jwk.FromRaw(s.key.Public())
	if err != nil {
		t.Fatalf("build jwk: %v", err)
	}
	if err := key.Set(jwk.KeyIDKey, s.kid); err != nil {
		t.Fatalf("set kid: %v", err)
	}
	return key
}

type tokenOpts struct {
	issuer   string
	audience string
	expires  time.Time
	kid      string
}

func (s *signer) token(t *testing.T, opts tokenOpts) string {
	t.Helper()
	if opts.issuer == "" {
		opts.issuer = testIssuer
	}
	if opts.audience == "" {
		opts.audience = testAudience
	}
	if opts.expires.IsZero() {
		opts.expires = time.Now().Add(time.Hour)
	}
	if opts.kid == "" {
		opts.kid = s.kid
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims{
		PreferredUsername: "marie.dupont",
		RealmAccess:       realmAccess{Roles: []string{"ROLE_DIRECTEUR"}},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "kc-sub-1",
			Issuer:    opts.issuer,
			Audience:  jwt.ClaimStrings{opts.audience},
			ExpiresAt: jwt.NewNumericDate(opts.expires),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
	token.Header["kid"] = opts.kid

	signed, err := token.SignedString(s.key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

// staticKeys serves fixed key sets in order and counts fetches.
type staticKeys struct {
	sets    []jwk.Set
	fetches int
}

func (s *staticKeys) Fetch(context.Context) (jwk.Set, error) {
	i := s.fetches
	if i >= len(s.sets) {
		i = len(s.sets) - 1
	}
	s.fetches++
	return s.sets[i], nil
}

func setOf(t *testing.T, keys ...jwk.Key) jwk.Set {
	t.Helper()
	set := jwk.NewSet()
	for _, k := range keys {
		if err := set.AddKey(k); err != nil {
			t.Fatalf("add key: %v", err)
		}
	}
	return set
}

func TestResolveValidToken(t *testing.T) {
	s := newSigner(t, "key-1")
	keys := &staticKeys{sets: []jwk.Set{setOf(t, s.jwk(t))}}
	r := NewResolver(keys, testIssuer, testAudience)

	p, err := r.Resolve(context.Background(), s.token(t, tokenOpts{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.SubjectID != "kc-sub-1" || p.DisplayLabel != "marie.dupont" {
		t.Fatalf("wrong principal: %+v", p)
	}
	if !p.HasRole("ROLE_DIRECTEUR") {
		t.Fatalf("realm roles not mapped: %+v", p)
	}
}

func TestResolveEmptyCredential(t *testing.T) {
	r := NewResolver(&staticKeys{sets: []jwk.Set{jwk.NewSet()}}, testIssuer, testAudience)

	_, err := r.Resolve(context.Background(), "")
	if !dErrors.HasCode(err, dErrors.CodeUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestResolveExpiredToken(t *testing.T) {
	s := newSigner(t, "key-1")
	keys := &staticKeys{sets: []jwk.Set{setOf(t, s.jwk(t))}}
	r := NewResolver(keys, testIssuer, testAudience)

	_, err := r.Resolve(context.Background(), s.token(t, tokenOpts{expires: time.Now().Add(-time.Minute)}))
	if !dErrors.HasCode(err, dErrors.CodeUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestResolveWrongAudience(t *testing.T) {
	s := newSigner(t, "key-1")
	keys := &staticKeys{sets: []jwk.Set{setOf(t, s.jwk(t))}}
	r := NewResolver(keys, testIssuer, testAudience)

	_, err := r.Resolve(context.Background(), s.token(t, tokenOpts{audience: "other-api"}))
	if !dErrors.HasCode(err, dErrors.CodeUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestResolveWrongIssuer(t *testing.T) {
	s := newSigner(t, "key-1")
	keys := &staticKeys{sets: []jwk.Set{setOf(t, s.jwk(t))}}
	r := NewResolver(keys, testIssuer, testAudience)

	_, err := r.Resolve(context.Background(), s.token(t, tokenOpts{issuer: "http://evil"}))
	if !dErrors.HasCode(err, dErrors.CodeUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestResolveForgedSignature(t *testing.T) {
	s := newSigner(t, "key-1")
	forger := newSigner(t, "key-1")
	keys := &staticKeys{sets: []jwk.Set{setOf(t, s.jwk(t))}}
	r := NewResolver(keys, testIssuer, testAudience)

	_, err := r.Resolve(context.Background(), forger.token(t, tokenOpts{}))
	if !dErrors.HasCode(err, dErrors.CodeUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestResolveKeyRotationRefetchesOnce(t *testing.T) {
	old := newSigner(t, "key-old")
	rotated := newSigner(t, "key-new")
	keys := &staticKeys{sets: []jwk.Set{
		setOf(t, old.jwk(t)),
		setOf(t, old.jwk(t), rotated.jwk(t)),
	}}
	r := NewResolver(keys, testIssuer, testAudience)

	// Prime the cache with the old key set.
	if _, err := r.Resolve(context.Background(), old.token(t, tokenOpts{})); err != nil {
		t.Fatalf("priming resolve failed: %v", err)
	}

	// A token signed with the rotated key triggers exactly one refetch.
	before := keys.fetches
	p, err := r.Resolve(context.Background(), rotated.token(t, tokenOpts{}))
	if err != nil {
		t.Fatalf("rotated key not picked up: %v", err)
	}
	if p.SubjectID != "kc-sub-1" {
		t.Fatalf("wrong principal: %+v", p)
	}
	if keys.fetches != before+1 {
		t.Fatalf("expected one refetch, got %d", keys.fetches-before)
	}
}

func TestResolveUnknownKidFailsClosed(t *testing.T) {
	s := newSigner(t, "key-1")
	stranger := newSigner(t, "key-unknown")
	keys := &staticKeys{sets: []jwk.Set{setOf(t, s.jwk(t))}}
	r := NewResolver(keys, testIssuer, testAudience)

	before := keys.fetches
	_, err := r.Resolve(context.Background(), stranger.token(t, tokenOpts{}))
	if !dErrors.HasCode(err, dErrors.CodeUnauthenticated) {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
	// One refetch attempt, then fail closed; never a second.
	if keys.fetches != before+1 {
		t.Fatalf("expected exactly one refetch, got %d", keys.fetches-before)
	}
}
