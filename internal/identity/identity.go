// Package identity resolves who the session acts as: a signed-in principal, a
// guest bound to an owner through a share code, or nobody.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"firebase.google.com/go/v4/auth"
)

var (
	// ErrNotSignedIn reports a sign-out with no active principal or guest.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrSignedIn reports a guest join attempted while a principal is signed in.
	ErrSignedIn = errors.New("already signed in")
	// ErrInvalidCredential reports an empty or rejected credential.
	ErrInvalidCredential = errors.New("invalid credential")
)

// Principal is an authenticated user.
type Principal struct {
	UID         string
	DisplayName string
	AvatarURL   string
	Email       string
}

// Provider turns a credential into a Principal.
type Provider interface {
	SignIn(ctx context.Context, credential string) (Principal, error)
}

// Effective is the identity used to address storage. OwnerID is empty when
// there is none.
type Effective struct {
	OwnerID   string
	Guest     bool
	Principal *Principal
}

// None reports whether there is no effective identity.
func (e Effective) None() bool {
	return e.OwnerID == ""
}

// Owner reports whether the identity owns the catalog it addresses.
func (e Effective) Owner() bool {
	return e.OwnerID != "" && !e.Guest
}

// Label is a short description for status lines.
func (e Effective) Label() string {
	switch {
	case e.None():
		return "signed out"
	case e.Guest:
		return "guest of " + e.OwnerID
	case e.Principal != nil && e.Principal.DisplayName != "":
		return e.Principal.DisplayName
	default:
		return e.OwnerID
	}
}

// tokenVerifier is the subset of *auth.Client used by FirebaseProvider.
type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	GetUser(ctx context.Context, uid string) (*auth.UserRecord, error)
}

// FirebaseProvider verifies Firebase ID tokens and loads the user profile.
type FirebaseProvider struct {
	client tokenVerifier
}

var _ Provider = (*FirebaseProvider)(nil)

// NewFirebaseProvider wraps an initialised Firebase Auth client.
func NewFirebaseProvider(client *auth.Client) *FirebaseProvider {
	return &FirebaseProvider{client: client}
}

func (p *FirebaseProvider) SignIn(ctx context.Context, idToken string) (Principal, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return Principal{}, ErrInvalidCredential
	}
	token, err := p.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return Principal{}, fmt.Errorf("verify id token: %w: %v", ErrInvalidCredential, err)
	}
	principal := Principal{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		principal.Email = email
	}

	// Profile fields are best-effort; a verified token is enough to sign in.
	user, err := p.client.GetUser(ctx, token.UID)
	if err == nil && user != nil && user.UserInfo != nil {
		principal.DisplayName = user.DisplayName
		principal.AvatarURL = user.PhotoURL
		if user.Email != "" {
			principal.Email = user.Email
		}
	}
	return principal, nil
}

// StaticProvider accepts the credential as the uid. It serves the memory and
// redis backends, which have no identity service.
type StaticProvider struct{}

var _ Provider = StaticProvider{}

func (StaticProvider) SignIn(_ context.Context, uid string) (Principal, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return Principal{}, ErrInvalidCredential
	}
	return Principal{UID: uid, DisplayName: uid}, nil
}

// GuestStore persists the guest-session marker.
type GuestStore interface {
	GuestOwner() string
	SetGuestOwner(ownerID string) error
	ClearGuestOwner() error
}

// Session tracks the signed-in principal and the guest marker. It is safe for
// concurrent use.
type Session struct {
	provider Provider
	guests   GuestStore

	mu         sync.Mutex
	principal  *Principal
	guestOwner string
}

// NewSession returns a signed-out session.
func NewSession(provider Provider, guests GuestStore) *Session {
	return &Session{provider: provider, guests: guests}
}

// Restore reloads the guest marker saved by an earlier run.
func (s *Session) Restore() Effective {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.principal == nil {
		s.guestOwner = s.guests.GuestOwner()
	}
	return s.effectiveLocked()
}

// SignIn authenticates with credential. Any guest session is dropped.
func (s *Session) SignIn(ctx context.Context, credential string) (Effective, error) {
	principal, err := s.provider.SignIn(ctx, credential)
	if err != nil {
		return s.Effective(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.principal = &principal
	s.guestOwner = ""
	if err := s.guests.ClearGuestOwner(); err != nil {
		return s.effectiveLocked(), fmt.Errorf("clear guest marker: %w", err)
	}
	return s.effectiveLocked(), nil
}

// JoinAsGuest binds the session to ownerID. It fails while signed in.
func (s *Session) JoinAsGuest(ownerID string) (Effective, error) {
	ownerID = strings.TrimSpace(ownerID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.principal != nil {
		return s.effectiveLocked(), ErrSignedIn
	}
	if ownerID == "" {
		return s.effectiveLocked(), errors.New("join as guest: owner id is empty")
	}
	if err := s.guests.SetGuestOwner(ownerID); err != nil {
		return s.effectiveLocked(), fmt.Errorf("save guest marker: %w", err)
	}
	s.guestOwner = ownerID
	return s.effectiveLocked(), nil
}

// SignOut leaves the guest session, or signs the principal out.
func (s *Session) SignOut() (Effective, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.principal != nil:
		s.principal = nil
	case s.guestOwner != "":
		s.guestOwner = ""
		if err := s.guests.ClearGuestOwner(); err != nil {
			return s.effectiveLocked(), fmt.Errorf("clear guest marker: %w", err)
		}
	default:
		return s.effectiveLocked(), ErrNotSignedIn
	}
	return s.effectiveLocked(), nil
}

// Effective returns the identity storage operations should use.
func (s *Session) Effective() Effective {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effectiveLocked()
}

func (s *Session) effectiveLocked() Effective {
	if s.principal != nil {
		p := *s.principal
		return Effective{OwnerID: p.UID, Principal: &p}
	}
	if s.guestOwner != "" {
		return Effective{OwnerID: s.guestOwner, Guest: true}
	}
	return Effective{}
}
