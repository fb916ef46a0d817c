package app

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"ecoloquiz-service/internal/domain"
)

// CapabilityPlayer gates the player-facing routes. Admin routes declare
// finer-grained capabilities (gifts.read, stats.read).
const CapabilityPlayer = "player"

// Principal is the authenticated identity carried through a request.
type Principal struct {
	UserID       string
	PlayerID     string
	Capabilities []string
}

// Can reports whether the principal holds the capability.
func (p Principal) Can(capability string) bool {
	for _, c := range p.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

type tokenClaims struct {
	PlayerID     string   `json:"playerId,omitempty"`
	Capabilities []string `json:"caps,omitempty"`
	jwt.RegisteredClaims
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Email       string
	Password    string
	DisplayName string
	Zone        string
}

// AuthResult carries the issued token and the created/known identity.
type AuthResult struct {
	Token       string `json:"token"`
	UserID      string `json:"userId"`
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
}

// AuthService registers users, verifies credentials and issues JWTs.
// Token transport and session middleware live in the HTTP layer.
type AuthService struct {
	users    UserRepository
	players  PlayerRepository
	catalog  CatalogRepository
	secret   []byte
	tokenTTL time.Duration
	clock    func() time.Time
	log      *logrus.Logger
}

func NewAuthService(users UserRepository, players PlayerRepository, catalog CatalogRepository, secret []byte, tokenTTL time.Duration, log *logrus.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{
		users:    users,
		players:  players,
		catalog:  catalog,
		secret:   secret,
		tokenTTL: tokenTTL,
		clock:    time.Now,
		log:      log,
	}
}

// Register creates the user and their player profile, starting at the
// lowest level with zero points.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (AuthResult, error) {
	if _, err := s.users.GetUserByEmail(ctx, in.Email); err == nil {
		return AuthResult{}, domain.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResult{}, err
	}

	now := s.clock()
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		PasswordHash: string(hash),
		Capabilities: []string{CapabilityPlayer},
		CreatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return AuthResult{}, err
	}

	player := domain.Player{
		ID:          uuid.NewString(),
		UserID:      user.ID,
		Email:       in.Email,
		DisplayName: in.DisplayName,
		Zone:        in.Zone,
		LevelID:     s.startingLevel(ctx),
		CreatedAt:   now,
	}
	if err := s.players.CreatePlayer(ctx, player); err != nil {
		return AuthResult{}, err
	}

	token, err := s.issueToken(user, player.ID)
	if err != nil {
		return AuthResult{}, err
	}
	s.log.WithField("user", user.ID).Info("player registered")
	return AuthResult{Token: token, UserID: user.ID, PlayerID: player.ID, DisplayName: player.DisplayName}, nil
}

// Login verifies credentials and issues a fresh token.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return AuthResult{}, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return AuthResult{}, domain.ErrInvalidCredentials
	}

	player, err := s.players.GetPlayerByUser(ctx, user.ID)
	if err != nil && !errors.Is(err, domain.ErrPlayerNotFound) {
		return AuthResult{}, err
	}

	token, err := s.issueToken(user, player.ID)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: token, UserID: user.ID, PlayerID: player.ID, DisplayName: player.DisplayName}, nil
}

// ParseToken validates a bearer token and extracts its principal.
func (s *AuthService) ParseToken(raw string) (Principal, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrUnauthenticated
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return Principal{}, domain.ErrUnauthenticated
	}
	return Principal{
		UserID:       claims.Subject,
		PlayerID:     claims.PlayerID,
		Capabilities: claims.Capabilities,
	}, nil
}

func (s *AuthService) issueToken(user domain.User, playerID string) (string, error) {
	now := s.clock()
	claims := tokenClaims{
		PlayerID:     playerID,
		Capabilities: user.Capabilities,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *AuthService) startingLevel(ctx context.Context) string {
	levels, err := s.catalog.ListLevels(ctx)
	if err != nil || len(levels) == 0 {
		return ""
	}
	lowest := levels[0]
	for _, level := range levels[1:] {
		if level.Rank < lowest.Rank {
			lowest = level
		}
	}
	return lowest.ID
}
