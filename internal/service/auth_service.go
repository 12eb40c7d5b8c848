package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/amorempixels/amor_server/config"
	"github.com/amorempixels/amor_server/internal/model"
	"github.com/amorempixels/amor_server/internal/model/dto"
	"github.com/amorempixels/amor_server/internal/pkg/jwt"
	"github.com/amorempixels/amor_server/internal/pkg/oauth"
	"github.com/amorempixels/amor_server/internal/pkg/pubsub"
	"github.com/amorempixels/amor_server/internal/pkg/queue"
	"github.com/amorempixels/amor_server/internal/repository"
)

var (
	ErrEmailExists        = errors.New("E-mail já cadastrado")
	ErrInvalidCredentials = errors.New("E-mail ou senha incorretos")
	ErrUserNotFound       = errors.New("Usuário não encontrado")
	ErrOAuthDisabled      = errors.New("Login com GitHub indisponível")
	ErrOAuthFailed        = errors.New("Não foi possível entrar com o GitHub")
)

type AuthService struct {
	userRepo    *repository.UserRepository
	tokens      *repository.TokenRepository
	states      *oauth.StateStore
	githubOAuth *oauth.GithubOAuth
	publisher   *pubsub.Publisher
	queue       *queue.Queue
	log         *zap.Logger
	cfg         *config.Config
}

func NewAuthService(
	userRepo *repository.UserRepository,
	tokens *repository.TokenRepository,
	states *oauth.StateStore,
	publisher *pubsub.Publisher,
	q *queue.Queue,
	log *zap.Logger,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		tokens:      tokens,
		states:      states,
		githubOAuth: oauth.NewGithubOAuth(&cfg.OAuth.Github),
		publisher:   publisher,
		queue:       q,
		log:         log,
		cfg:         cfg,
	}
}

func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	exists, err := s.userRepo.ExistsByEmail(email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	passwordStr := string(hashedPassword)

	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	user := &model.User{
		Email:        email,
		PasswordHash: &passwordStr,
		DisplayName:  name,
	}
	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	s.welcome(ctx, user)
	return s.signIn(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// accounts created through GitHub have no password
	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.signIn(ctx, user)
}

// Logout revokes the token until it would have expired and tells the user's
// other connections.
func (s *AuthService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if err := s.tokens.Revoke(ctx, claims.ID, claims.TTL(time.Now())); err != nil {
		return err
	}
	s.announce(ctx, pubsub.EventSignedOut, claims.UserID)
	return nil
}

func (s *AuthService) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return s.tokens.IsRevoked(ctx, tokenID)
}

func (s *AuthService) GetUserByID(id int64) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.buildUserInfo(user), nil
}

func (s *AuthService) signIn(ctx context.Context, user *model.User) (*dto.LoginResponse, error) {
	token, err := jwt.GenerateToken(user.ID, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, pubsub.EventSignedIn, user.ID)
	return &dto.LoginResponse{
		Token: token,
		User:  s.buildUserInfo(user),
	}, nil
}

func (s *AuthService) announce(ctx context.Context, eventType string, userID int64) {
	if err := s.publisher.Publish(ctx, &pubsub.UserEvent{Type: eventType, UserID: userID}); err != nil {
		s.log.Warn("failed to publish user event", zap.String("type", eventType), zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (s *AuthService) welcome(ctx context.Context, user *model.User) {
	msg := &queue.Notification{Kind: queue.KindWelcome, Email: user.Email, Name: user.DisplayName}
	if err := s.queue.Push(ctx, msg); err != nil {
		s.log.Warn("failed to enqueue welcome email", zap.Int64("user_id", user.ID), zap.Error(err))
	}
}

func (s *AuthService) buildUserInfo(user *model.User) *dto.UserInfo {
	return &dto.UserInfo{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		CreatedAt:   user.CreatedAt.Format(time.RFC3339),
	}
}

// GithubAuthURL starts the OAuth dance; returnTo is handed back after the callback.
func (s *AuthService) GithubAuthURL(ctx context.Context, returnTo string) (string, error) {
	if !s.githubOAuth.Enabled() {
		return "", ErrOAuthDisabled
	}
	state, err := s.states.Generate(ctx, returnTo)
	if err != nil {
		return "", err
	}
	return s.githubOAuth.AuthURL(state), nil
}

// GithubCallback finishes the OAuth dance. Accounts are matched by GitHub id
// first, then by e-mail, and created otherwise.
func (s *AuthService) GithubCallback(ctx context.Context, code, state string) (*dto.LoginResponse, string, error) {
	returnTo, err := s.states.Consume(ctx, state)
	if err != nil {
		return nil, "", err
	}

	token, err := s.githubOAuth.Exchange(ctx, code)
	if err != nil {
		s.log.Warn("github code exchange failed", zap.Error(err))
		return nil, "", ErrOAuthFailed
	}

	githubUser, err := s.githubOAuth.GetUser(ctx, token)
	if err != nil {
		s.log.Warn("github user lookup failed", zap.Error(err))
		return nil, "", ErrOAuthFailed
	}

	user, err := s.findOrCreateGithubUser(ctx, githubUser)
	if err != nil {
		return nil, "", err
	}

	resp, err := s.signIn(ctx, user)
	if err != nil {
		return nil, "", err
	}
	return resp, returnTo, nil
}

func (s *AuthService) findOrCreateGithubUser(ctx context.Context, gh *oauth.GithubUser) (*model.User, error) {
	githubIDStr := fmt.Sprintf("%d", gh.ID)

	user, err := s.userRepo.GetByGithubID(githubIDStr)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	email := strings.ToLower(gh.Email)
	if email == "" {
		return nil, ErrOAuthFailed
	}

	user, err = s.userRepo.GetByEmail(email)
	switch {
	case err == nil:
		if err := s.userRepo.LinkGithub(user, githubIDStr, gh.AvatarURL); err != nil {
			return nil, err
		}
		return user, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	user = &model.User{
		Email:       email,
		DisplayName: gh.DisplayName(),
		AvatarURL:   gh.AvatarURL,
		GithubID:    &githubIDStr,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.welcome(ctx, user)
	return user, nil
}
