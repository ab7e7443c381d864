package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Causertragique/financeautonome2-sub001/internal/config"
	"github.com/Causertragique/financeautonome2-sub001/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidSignIn       = errors.New("invalid email or password")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
	ErrAccountNotFound     = errors.New("account not found")
)

// Session is the outcome of a completed sign-in: the authenticated identity
// plus the token pair minted for it.
type Session struct {
	Identity     Identity
	AccessToken  string
	RefreshToken string
}

// Service is the gorm-backed identity provider: password and Google sign-in,
// token issuance, and credential link/unlink. It implements Provider.
type Service struct {
	db       *gorm.DB
	cfg      *config.Config
	verifier *JWKSVerifier
}

func NewService(db *gorm.DB, cfg *config.Config) *Service {
	return &Service{
		db:       db,
		cfg:      cfg,
		verifier: NewJWKSVerifier(cfg.GoogleJWKSURL, cfg.GoogleIssuer, cfg.GoogleClientID),
	}
}

func (s *Service) Register(ctx context.Context, email, password, displayName string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(password) < 8 {
		return nil, errors.New("email required and password must be at least 8 characters")
	}

	var existing models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if displayName == "" {
		displayName = strings.Split(email, "@")[0]
	}

	user := models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tx.Create(&models.Credential{
			ID:        uuid.New(),
			UserID:    user.ID,
			Kind:      string(KindPassword),
			SubjectID: email,
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.newSession(ctx, &user)
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, ErrInvalidSignIn
	}

	if user.PasswordHash == "" {
		return nil, ErrInvalidSignIn
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidSignIn
	}

	return s.newSession(ctx, &user)
}

// GoogleSignIn verifies the ID token, then finds the account by the Google
// subject, falling back to the verified email so an existing password account
// picks up the Google credential instead of spawning a duplicate.
func (s *Service) GoogleSignIn(ctx context.Context, idToken, fullName string) (*Session, error) {
	if idToken == "" {
		return nil, errors.New("identity token is required")
	}

	claims, err := s.verifier.Verify(idToken)
	if err != nil {
		return nil, &Error{Kind: ErrInvalidCredentials, Op: "google-sign-in", Err: err}
	}

	email := strings.ToLower(claims.Email)
	if email == "" {
		return nil, &Error{Kind: ErrInvalidCredentials, Op: "google-sign-in", Err: errors.New("token carries no email claim")}
	}

	var user models.User
	var cred models.Credential
	err = s.db.WithContext(ctx).
		Where("kind = ? AND subject_id = ?", string(KindGoogle), claims.Sub).
		First(&cred).Error

	switch {
	case err == nil:
		if err := s.db.WithContext(ctx).First(&user, "id = ?", cred.UserID).Error; err != nil {
			return nil, fmt.Errorf("credential owner not found: %w", err)
		}

	case errors.Is(err, gorm.ErrRecordNotFound):
		lookupErr := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
		if lookupErr != nil && !errors.Is(lookupErr, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to look up user: %w", lookupErr)
		}

		createUser := errors.Is(lookupErr, gorm.ErrRecordNotFound)
		if createUser {
			displayName := fullName
			if displayName == "" {
				displayName = claims.Name
			}
			if displayName == "" {
				displayName = strings.Split(email, "@")[0]
			}
			user = models.User{
				ID:          uuid.New(),
				Email:       email,
				DisplayName: displayName,
				AvatarURL:   claims.Picture,
			}
		}

		// User and credential land together or not at all. A user row with no
		// password hash and no credential row would be unreachable by any
		// sign-in method while still claiming the email.
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if createUser {
				if err := tx.Create(&user).Error; err != nil {
					return err
				}
			}
			return tx.Create(&models.Credential{
				ID:        uuid.New(),
				UserID:    user.ID,
				Kind:      string(KindGoogle),
				SubjectID: claims.Sub,
			}).Error
		})
		if err != nil {
			return nil, fmt.Errorf("failed to bind google credential: %w", err)
		}

	default:
		return nil, fmt.Errorf("failed to look up credential: %w", err)
	}

	return s.newSession(ctx, &user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	tokenHash := hashToken(refreshToken)

	var stored models.RefreshToken
	if err := s.db.WithContext(ctx).
		Where("token_hash = ? AND revoked = false", tokenHash).
		First(&stored).Error; err != nil {
		return nil, ErrInvalidRefreshToken
	}

	if time.Now().After(stored.ExpiresAt) {
		s.db.WithContext(ctx).Model(&stored).Update("revoked", true)
		return nil, ErrInvalidRefreshToken
	}

	s.db.WithContext(ctx).Model(&stored).Update("revoked", true)

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", stored.UserID).Error; err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	return s.newSession(ctx, &user)
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	tokenHash := hashToken(refreshToken)
	return s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", tokenHash).
		Update("revoked", true).Error
}

func (s *Service) GetIdentity(ctx context.Context, accountID uuid.UUID) (Identity, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", accountID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Identity{}, ErrAccountNotFound
		}
		return Identity{}, storeErr("get-identity", err)
	}
	return s.identityFor(ctx, &user)
}

func (s *Service) ResolveCredential(ctx context.Context, current Identity, material CredentialMaterial) (Credential, uuid.UUID, error) {
	var cred Credential
	switch material.Kind {
	case KindPassword:
		cred = Credential{Kind: KindPassword, SubjectID: current.Email}
	case KindGoogle:
		claims, err := s.verifier.Verify(material.IDToken)
		if err != nil {
			return Credential{}, uuid.Nil, &Error{Kind: ErrInvalidCredentials, Op: "resolve-credential", Err: err}
		}
		cred = Credential{Kind: KindGoogle, SubjectID: claims.Sub}
	default:
		return Credential{}, uuid.Nil, &Error{Kind: ErrUnsupported, Op: "resolve-credential", Err: fmt.Errorf("unknown provider kind %q", material.Kind)}
	}

	var row models.Credential
	err := s.db.WithContext(ctx).
		Where("kind = ? AND subject_id = ?", string(cred.Kind), cred.SubjectID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return cred, uuid.Nil, nil
	}
	if err != nil {
		return Credential{}, uuid.Nil, storeErr("resolve-credential", err)
	}
	return cred, row.UserID, nil
}

func (s *Service) LinkCredential(ctx context.Context, accountID uuid.UUID, material CredentialMaterial) (Credential, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", accountID).Error; err != nil {
		return Credential{}, storeErr("link-credential", err)
	}

	switch material.Kind {
	case KindPassword:
		if len(material.Password) < 8 {
			return Credential{}, &Error{Kind: ErrInvalidCredentials, Op: "link-credential", Err: errors.New("password must be at least 8 characters")}
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(material.Password), bcrypt.DefaultCost)
		if err != nil {
			return Credential{}, fmt.Errorf("failed to hash password: %w", err)
		}
		cred := Credential{Kind: KindPassword, SubjectID: user.Email}
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&user).Update("password_hash", string(hash)).Error; err != nil {
				return err
			}
			return tx.Create(&models.Credential{
				ID:        uuid.New(),
				UserID:    user.ID,
				Kind:      string(KindPassword),
				SubjectID: user.Email,
			}).Error
		})
		if err != nil {
			return Credential{}, linkErr(err)
		}
		return cred, nil

	case KindGoogle:
		claims, err := s.verifier.Verify(material.IDToken)
		if err != nil {
			return Credential{}, &Error{Kind: ErrInvalidCredentials, Op: "link-credential", Err: err}
		}
		cred := Credential{Kind: KindGoogle, SubjectID: claims.Sub}
		if err := s.db.WithContext(ctx).Create(&models.Credential{
			ID:        uuid.New(),
			UserID:    user.ID,
			Kind:      string(KindGoogle),
			SubjectID: claims.Sub,
		}).Error; err != nil {
			return Credential{}, linkErr(err)
		}
		return cred, nil

	default:
		return Credential{}, &Error{Kind: ErrUnsupported, Op: "link-credential", Err: fmt.Errorf("unknown provider kind %q", material.Kind)}
	}
}

func (s *Service) UnlinkCredential(ctx context.Context, accountID uuid.UUID, kind ProviderKind) error {
	var row models.Credential
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND kind = ?", accountID, string(kind)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Error{Kind: ErrUnsupported, Op: "unlink-credential", Err: fmt.Errorf("no %s credential linked", kind)}
	}
	if err != nil {
		return storeErr("unlink-credential", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if kind == KindPassword {
			if err := tx.Model(&models.User{}).
				Where("id = ?", accountID).
				Update("password_hash", "").Error; err != nil {
				return err
			}
		}
		return tx.Delete(&row).Error
	})
}

func (s *Service) identityFor(ctx context.Context, user *models.User) (Identity, error) {
	var rows []models.Credential
	if err := s.db.WithContext(ctx).Where("user_id = ?", user.ID).Find(&rows).Error; err != nil {
		return Identity{}, storeErr("get-identity", err)
	}

	set := make(CredentialSet, 0, len(rows))
	for _, row := range rows {
		set = append(set, Credential{Kind: ProviderKind(row.Kind), SubjectID: row.SubjectID})
	}

	return Identity{
		AccountID:   user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		Credentials: set,
	}, nil
}

func (s *Service) newSession(ctx context.Context, user *models.User) (*Session, error) {
	id, err := s.identityFor(ctx, user)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.generateRefreshToken(ctx, user)
	if err != nil {
		return nil, err
	}

	return &Session{
		Identity:     id,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *Service) generateAccessToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(s.cfg.JWTAccessExpiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *Service) generateRefreshToken(ctx context.Context, user *models.User) (string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	rawToken := base64.URLEncoding.EncodeToString(rawBytes)
	tokenHash := hashToken(rawToken)

	record := models.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: tokenHash,
		ExpiresAt: time.Now().Add(s.cfg.JWTRefreshExpiry),
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return rawToken, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}

// linkErr folds a unique-index violation into the already-in-use kind.
func linkErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &Error{Kind: ErrAlreadyInUse, Op: "link-credential", Err: err}
	}
	return storeErr("link-credential", err)
}

// storeErr classifies a database failure by SQLSTATE the same way the
// document store does: connectivity trouble is retryable, authorization
// rejections are not, and anything else Postgres reports deliberately is a
// permanent internal fault. Errors carrying no SQLSTATE (dial failures,
// timeouts) are treated as retryable.
func storeErr(op string, err error) error {
	kind := ErrTransient
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "42501" || strings.HasPrefix(pgErr.Code, "28"):
			kind = ErrPermission
		case strings.HasPrefix(pgErr.Code, "08") ||
			strings.HasPrefix(pgErr.Code, "53") ||
			strings.HasPrefix(pgErr.Code, "57"):
			kind = ErrTransient
		default:
			kind = ErrInternal
		}
	}
	return &Error{Kind: kind, Op: op, Err: err}
}
