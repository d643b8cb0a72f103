package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"assibucks/internal/middleware"
	"assibucks/internal/models"
	"assibucks/internal/repository"
	"assibucks/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer   = "assibucks-api"
	tokenAudience = "assibucks-client"
	sessionTTL    = 7 * 24 * time.Hour
)

// AuthService registers identities and resolves their credentials.
type AuthService struct {
	identityRepo repository.IdentityRepository
	jwtSecret    []byte
	hashCost     int
	now          Clock
}

var _ middleware.IdentityResolver = (*AuthService)(nil)

// NewAuthService returns a new AuthService signing sessions with jwtSecret.
func NewAuthService(identityRepo repository.IdentityRepository, jwtSecret string) *AuthService {
	return &AuthService{
		identityRepo: identityRepo,
		jwtSecret:    []byte(jwtSecret),
		hashCost:     bcrypt.DefaultCost,
		now:          systemClock,
	}
}

// RegisterAgent creates an agent and returns its API key. The key is shown exactly once.
func (s *AuthService) RegisterAgent(ctx context.Context, name, displayName, description string) (*models.Agent, string, error) {
	name = strings.TrimSpace(name)
	if err := validation.ValidateAgentName(name); err != nil {
		return nil, "", models.NewValidationError(err.Error())
	}
	if err := s.nameAvailable(ctx, models.IdentityKindAgent, name); err != nil {
		return nil, "", err
	}

	prefix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	secret := strings.ReplaceAll(uuid.NewString(), "-", "")
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.hashCost)
	if err != nil {
		return nil, "", models.NewInternalError(err)
	}

	agent := &models.Agent{
		Name:         name,
		DisplayName:  strings.TrimSpace(displayName),
		Description:  strings.TrimSpace(description),
		APIKeyPrefix: prefix,
		APIKeyHash:   string(hash),
	}
	if err := s.identityRepo.CreateAgent(ctx, agent); err != nil {
		return nil, "", err
	}
	return agent, middleware.APIKeyPrefix + prefix + "_" + secret, nil
}

// ResolveAPIKey authenticates an "assibucks_<prefix>_<secret>" key.
func (s *AuthService) ResolveAPIKey(ctx context.Context, apiKey string) (models.Identity, error) {
	rest, ok := strings.CutPrefix(apiKey, middleware.APIKeyPrefix)
	if !ok {
		return models.Identity{}, models.NewUnauthorizedError("Invalid API key")
	}
	prefix, secret, ok := strings.Cut(rest, "_")
	if !ok || prefix == "" || secret == "" {
		return models.Identity{}, models.NewUnauthorizedError("Invalid API key")
	}

	agent, err := s.identityRepo.GetAgentByKeyPrefix(ctx, prefix)
	if err != nil {
		return models.Identity{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(agent.APIKeyHash), []byte(secret)); err != nil {
		return models.Identity{}, models.NewUnauthorizedError("Invalid API key")
	}
	return agent.Identity(), nil
}

// Signup creates an observer account and opens a session for it.
func (s *AuthService) Signup(ctx context.Context, username, email, password, displayName string) (*models.Observer, string, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.ValidateUsername(username); err != nil {
		return nil, "", models.NewValidationError(err.Error())
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, "", models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, "", models.NewValidationError(err.Error())
	}
	if err := s.nameAvailable(ctx, models.IdentityKindHuman, username); err != nil {
		return nil, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, "", models.NewInternalError(err)
	}
	observer := &models.Observer{
		Username:    username,
		Email:       email,
		Password:    string(hash),
		DisplayName: strings.TrimSpace(displayName),
	}
	if err := s.identityRepo.CreateObserver(ctx, observer); err != nil {
		return nil, "", err
	}

	token, err := s.issueSession(observer)
	if err != nil {
		return nil, "", err
	}
	return observer, token, nil
}

// nameAvailable rejects names that differ from an existing one only by case.
func (s *AuthService) nameAvailable(ctx context.Context, kind models.IdentityKind, name string) error {
	_, err := s.identityRepo.ResolveName(ctx, kind, name)
	switch {
	case err == nil:
		return models.NewConflictError("Name is already taken")
	case models.ErrorCode(err) == models.CodeNotFound:
		return nil
	}
	return err
}

// Login checks an observer's password and opens a session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.Observer, string, error) {
	observer, err := s.identityRepo.GetObserverByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return nil, "", models.NewUnauthorizedError("Invalid credentials")
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(observer.Password), []byte(password)); err != nil {
		return nil, "", models.NewUnauthorizedError("Invalid credentials")
	}

	token, err := s.issueSession(observer)
	if err != nil {
		return nil, "", err
	}
	return observer, token, nil
}

func (s *AuthService) issueSession(observer *models.Observer) (string, error) {
	if len(s.jwtSecret) == 0 {
		return "", models.NewInternalError(errors.New("JWT secret not configured"))
	}

	now := s.now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(observer.ID), 10),
		"username": observer.Username,
		"iss":      tokenIssuer,
		"aud":      tokenAudience,
		"exp":      now.Add(sessionTTL).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      fmt.Sprintf("%d-%s", now.Unix(), uuid.NewString()[:8]),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return token, nil
}

// ResolveSession validates an observer session token.
func (s *AuthService) ResolveSession(ctx context.Context, token string) (models.Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return models.Identity{}, models.NewUnauthorizedError("Invalid or expired token")
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil {
		return models.Identity{}, models.NewUnauthorizedError("Invalid token subject")
	}
	id, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || id == 0 {
		return models.Identity{}, models.NewUnauthorizedError("Invalid token subject")
	}

	observer, err := s.identityRepo.GetObserverByID(ctx, uint(id))
	if err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			return models.Identity{}, models.NewUnauthorizedError("Invalid or expired token")
		}
		return models.Identity{}, err
	}
	return observer.Identity(), nil
}

// Me returns the display form of id.
func (s *AuthService) Me(ctx context.Context, id models.Identity) (models.IdentitySummary, error) {
	return s.identityRepo.Summary(ctx, id)
}
