package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"firebase.google.com/go/auth"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/techagentng/findmenow/config"
	errs "github.com/techagentng/findmenow/errors"
	"github.com/techagentng/findmenow/localstore"
	"github.com/techagentng/findmenow/models"
	"github.com/techagentng/findmenow/services/jwt"
)

// Change is delivered to subscribers on sign-in and sign-out. Identity is nil after sign-out.
type Change struct {
	Identity *models.Identity
}

// AuthService is the identity provider.
type AuthService interface {
	SignIn(ctx context.Context, creds models.Credentials) (*models.Session, error)
	SignOut(ctx context.Context, token string) error
	// Current returns the identity behind token, or an auth error if it is invalid, expired or revoked.
	Current(ctx context.Context, token string) (*models.Identity, error)
	Subscribe(fn func(Change)) (unsubscribe func())
}

type subscribers struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(Change)
}

func (s *subscribers) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func(Change))
	}
	id := s.next
	s.next++
	s.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.fns, id)
			s.mu.Unlock()
		})
	}
}

func (s *subscribers) publish(c Change) {
	s.mu.Lock()
	fns := make([]func(Change), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

func isAdmin(conf *config.Config, id string) bool {
	return conf.IsAdmin(id)
}

// FirebaseAuth is the part of the Firebase auth client used here.
type FirebaseAuth interface {
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*auth.Token, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

type firebaseAuthService struct {
	subscribers
	Config *config.Config
	client FirebaseAuth
	log    *logrus.Logger
}

// NewFirebaseAuthService verifies Firebase ID tokens issued to clients.
func NewFirebaseAuthService(client FirebaseAuth, conf *config.Config, log *logrus.Logger) AuthService {
	return &firebaseAuthService{Config: conf, client: client, log: log}
}

func (a *firebaseAuthService) identityFrom(tok *auth.Token) *models.Identity {
	id := &models.Identity{ID: tok.UID}
	if name, ok := tok.Claims["name"].(string); ok {
		id.DisplayName = name
	}
	if email, ok := tok.Claims["email"].(string); ok {
		id.Email = email
	}
	admin, _ := tok.Claims["admin"].(bool)
	id.Admin = admin || isAdmin(a.Config, tok.UID)
	return id
}

func (a *firebaseAuthService) SignIn(ctx context.Context, creds models.Credentials) (*models.Session, error) {
	token := strings.TrimSpace(creds.IDToken)
	if token == "" {
		return nil, errs.Auth("id_token is required", nil)
	}
	identity, err := a.Current(ctx, token)
	if err != nil {
		return nil, err
	}
	a.publish(Change{Identity: identity})
	return &models.Session{Identity: *identity, AccessToken: token}, nil
}

func (a *firebaseAuthService) SignOut(ctx context.Context, token string) error {
	identity, err := a.Current(ctx, token)
	if err != nil {
		return err
	}
	if err := a.client.RevokeRefreshTokens(ctx, identity.ID); err != nil {
		return errs.Auth("sign out failed", err)
	}
	a.log.WithField("user_id", identity.ID).Info("refresh tokens revoked")
	a.publish(Change{})
	return nil
}

func (a *firebaseAuthService) Current(ctx context.Context, token string) (*models.Identity, error) {
	tok, err := a.client.VerifyIDTokenAndCheckRevoked(ctx, token)
	if err != nil {
		return nil, errs.Auth("invalid or expired token", err)
	}
	return a.identityFrom(tok), nil
}

type localAuthService struct {
	subscribers
	Config    *config.Config
	blacklist localstore.Expiring
	now       func() time.Time
	log       *logrus.Logger
}

// identityNamespace derives stable local user ids from display names.
var identityNamespace = uuid.MustParse("6f1b1f8e-3c1a-4f55-9a57-2b0d3f7c9e10")

// NewLocalAuthService issues HS256 tokens signed with the configured secret.
// A display name alone never grants admin: moderators also present FINDMENOW_ADMIN_TOKEN.
// Signed-out tokens are remembered in blacklist until they expire.
func NewLocalAuthService(blacklist localstore.Expiring, conf *config.Config, log *logrus.Logger) AuthService {
	return &localAuthService{Config: conf, blacklist: blacklist, now: time.Now, log: log}
}

func blacklistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "fm_revoked_" + hex.EncodeToString(sum[:])
}

func (a *localAuthService) checkAdminToken(presented string) error {
	want := a.Config.AdminToken
	if want == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(want)) != 1 {
		return errs.Auth("invalid admin token", nil)
	}
	return nil
}

func (a *localAuthService) SignIn(ctx context.Context, creds models.Credentials) (*models.Session, error) {
	name := strings.TrimSpace(creds.DisplayName)
	if name == "" {
		return nil, errs.Auth("display_name is required", nil)
	}

	admin := false
	if creds.AdminToken != "" {
		if err := a.checkAdminToken(creds.AdminToken); err != nil {
			a.log.WithField("display_name", name).Warn("admin sign in rejected")
			return nil, err
		}
		admin = true
	}

	id := uuid.NewSHA1(identityNamespace, []byte(strings.ToLower(name))).String()
	token, err := jwt.GenerateToken(id, name, admin, a.Config.JWTSecret, a.now())
	if err != nil {
		return nil, errs.Auth("sign in failed", err)
	}

	identity := models.Identity{ID: id, DisplayName: name, Admin: admin}
	a.log.WithField("user_id", id).WithField("admin", admin).Info("signed in")
	a.publish(Change{Identity: &identity})
	return &models.Session{Identity: identity, AccessToken: token}, nil
}

func (a *localAuthService) SignOut(ctx context.Context, token string) error {
	claims, err := a.claims(ctx, token)
	if err != nil {
		return err
	}
	// the entry only has to outlive the token
	ttl := jwt.ExpiresAt(claims).Sub(a.now())
	if ttl > 0 {
		if err := a.blacklist.SetWithTTL(ctx, blacklistKey(token), a.now().UTC().Format(time.RFC3339), ttl); err != nil {
			return errs.Auth("sign out failed", err)
		}
	}
	a.publish(Change{})
	return nil
}

func (a *localAuthService) claims(ctx context.Context, token string) (map[string]interface{}, error) {
	if token == "" {
		return nil, errs.Auth("Unauthorized", nil)
	}
	claims, err := jwt.ValidateAndGetClaims(token, a.Config.JWTSecret)
	if err != nil {
		return nil, errs.Auth("invalid or expired token", err)
	}

	_, revoked, err := a.blacklist.Get(ctx, blacklistKey(token))
	if err != nil {
		return nil, errs.Auth("unable to check token", err)
	}
	if revoked {
		return nil, errs.Auth("token has been revoked", nil)
	}
	return claims, nil
}

func (a *localAuthService) Current(ctx context.Context, token string) (*models.Identity, error) {
	claims, err := a.claims(ctx, token)
	if err != nil {
		return nil, err
	}
	id, _ := claims["id"].(string)
	name, _ := claims["name"].(string)
	if id == "" {
		return nil, errs.Auth("invalid token claims", nil)
	}
	admin, _ := claims["admin"].(bool)
	return &models.Identity{ID: id, DisplayName: name, Admin: admin}, nil
}
