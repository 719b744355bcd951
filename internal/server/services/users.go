package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/bugsheriff/internal/common"
	"github.com/dmitrijs2005/bugsheriff/internal/dbx"
	"github.com/dmitrijs2005/bugsheriff/internal/server/auth"
	"github.com/dmitrijs2005/bugsheriff/internal/server/config"
	"github.com/dmitrijs2005/bugsheriff/internal/server/models"
	"github.com/dmitrijs2005/bugsheriff/internal/server/repositories/repomanager"
	"golang.org/x/crypto/bcrypt"
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Username       string
	Password       string
	SecretQuestion string
	SecretAnswer   string
}

// ResetPasswordInput identifies the account by username and proves
// ownership with the recovery question and answer.
type ResetPasswordInput struct {
	Username       string
	Password       string
	SecretQuestion string
	SecretAnswer   string
}

// ProfileUpdate lists optional profile changes; nil fields are left as is.
type ProfileUpdate struct {
	Password       *string
	SecretQuestion *string
	SecretAnswer   *string
	IBAN           *string
}

type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	bcryptCost                   int
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		bcryptCost:                   bcrypt.DefaultCost,
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func tooLong(s string, max int) bool {
	return utf8.RuneCountInString(s) > max
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func checkSecretLength(question, answer string) error {
	if tooLong(question, common.MaxSecretLength) || tooLong(answer, common.MaxSecretLength) {
		return fmt.Errorf("%w: Secret question and answer must be at most %d characters", common.ErrorValidation, common.MaxSecretLength)
	}
	return nil
}

func (s *UserService) hashPassword(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return hash, nil
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if blank(in.Username) || blank(in.Password) || blank(in.SecretQuestion) || blank(in.SecretAnswer) {
		return nil, fmt.Errorf("%w: All fields must be filled", common.ErrorValidation)
	}
	if tooLong(in.Username, common.MaxUsernameLength) {
		return nil, fmt.Errorf("%w: Username must be at most %d characters", common.ErrorValidation, common.MaxUsernameLength)
	}
	if err := checkSecretLength(in.SecretQuestion, in.SecretAnswer); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	_, err := repo.GetByUsername(ctx, in.Username)
	if err == nil {
		return nil, fmt.Errorf("%w: User already exists.", common.ErrorConflict)
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	role := common.RoleUser
	if in.Username == common.AdminUserName {
		role = common.RoleAdmin
	}

	user, err := repo.Create(ctx, &models.User{
		UserName:       in.Username,
		PasswordHash:   hash,
		Role:           role,
		SecretQuestion: in.SecretQuestion,
		SecretAnswer:   in.SecretAnswer,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, fmt.Errorf("%w: User already exists.", common.ErrorConflict)
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return user, nil
}

func (s *UserService) Login(ctx context.Context, userName string, password string) (*TokenPair, error) {

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByUsername(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: Wrong username or password.", common.ErrorUnauthorized)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)) != nil {
		return nil, fmt.Errorf("%w: Wrong username or password.", common.ErrorUnauthorized)
	}

	return s.generateTokenPair(ctx, s.db, user)
}

// RefreshToken exchanges a stored refresh token for a new pair. The old token
// is deleted and the new one stored in the same transaction.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {

	token, err := s.repomanager.RefreshTokens(s.db).Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: unknown refresh token", common.ErrorUnauthorized)
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}

	if token.Expired(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: unknown refresh token", common.ErrorUnauthorized)
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	var tokenPair *TokenPair

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		// Only the redemption whose delete removes the row may issue a pair.
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return fmt.Errorf("%w: refresh token already used", common.ErrorUnauthorized)
			}
			return fmt.Errorf("error deleting refresh token: %w", err)
		}

		tokenPair, err = s.generateTokenPair(ctx, tx, user)
		if err != nil {
			return fmt.Errorf("error generating token pair: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return tokenPair, nil
}

func (s *UserService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("%w: User doesn't exist", common.ErrorValidation)
		}
		return fmt.Errorf("error searching user: %w", err)
	}

	if blank(in.Password) || blank(in.SecretQuestion) || blank(in.SecretAnswer) {
		return fmt.Errorf("%w: All fields must be filled", common.ErrorValidation)
	}

	if user.SecretQuestion != in.SecretQuestion || user.SecretAnswer != in.SecretAnswer {
		return fmt.Errorf("%w: Secret question/answer doesn't match!", common.ErrorValidation)
	}

	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(in.Password)) == nil {
		return fmt.Errorf("%w: New password must be different from the old password!", common.ErrorValidation)
	}

	hash, err := s.hashPassword(in.Password)
	if err != nil {
		return err
	}

	// A reset also signs the account out everywhere.
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).UpdatePassword(ctx, user.ID, hash); err != nil {
			return fmt.Errorf("error updating password: %w", err)
		}
		if _, err := s.repomanager.RefreshTokens(tx).DeleteByUser(ctx, user.ID); err != nil {
			return fmt.Errorf("error revoking sessions: %w", err)
		}
		return nil
	})
}

func (s *UserService) UpdateProfile(ctx context.Context, username string, upd ProfileUpdate) error {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("%w: User not found.", common.ErrorNotFound)
		}
		return fmt.Errorf("error searching user: %w", err)
	}

	if upd.IBAN != nil && tooLong(*upd.IBAN, common.MaxIBANLength) {
		return fmt.Errorf("%w: IBAN must be less than or equal to %d characters", common.ErrorValidation, common.MaxIBANLength)
	}
	if err := checkSecretLength(deref(upd.SecretQuestion), deref(upd.SecretAnswer)); err != nil {
		return err
	}

	if upd.Password != nil && *upd.Password != "" {
		hash, err := s.hashPassword(*upd.Password)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
	}
	if upd.SecretQuestion != nil && *upd.SecretQuestion != "" {
		user.SecretQuestion = *upd.SecretQuestion
	}
	if upd.SecretAnswer != nil && *upd.SecretAnswer != "" {
		user.SecretAnswer = *upd.SecretAnswer
	}
	if upd.IBAN != nil && *upd.IBAN != "" {
		user.IBAN = *upd.IBAN
	}

	if err := repo.UpdateProfile(ctx, user); err != nil {
		return fmt.Errorf("error updating profile: %w", err)
	}
	return nil
}

// GetProfile returns the caller's own account record.
func (s *UserService) GetProfile(ctx context.Context, username string) (*models.User, error) {
	user, err := s.Resolve(ctx, username)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Resolve loads the user named by a verified token subject.
func (s *UserService) Resolve(ctx context.Context, username string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("%w: User not found.", common.ErrorNotFound)
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	return user, nil
}

func (s *UserService) generateAccessToken(username string) (string, error) {
	token, err := auth.GenerateToken(username, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *UserService) generateRefreshToken() (string, error) {
	token, err := common.MakeRandHexString(32)
	if err != nil {
		return "", err
	}
	return token, nil
}

func (s *UserService) generateTokenPair(ctx context.Context, db dbx.DBTX, user *models.User) (*TokenPair, error) {
	accessToken, err := s.generateAccessToken(user.UserName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	refreshtoken, err := s.generateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	refreshTokenRepo := s.repomanager.RefreshTokens(db)
	err = refreshTokenRepo.Create(ctx, user.ID, refreshtoken, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshtoken}, nil
}
