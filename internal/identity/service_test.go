package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/Causertragique/financeautonome2-sub001/internal/config"
	"github.com/Causertragique/financeautonome2-sub001/internal/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestStoreErrClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"connection failure", &pgconn.PgError{Code: "08006"}, ErrTransient},
		{"too many connections", &pgconn.PgError{Code: "53300"}, ErrTransient},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, ErrTransient},
		{"insufficient privilege", &pgconn.PgError{Code: "42501"}, ErrPermission},
		{"bad authentication", &pgconn.PgError{Code: "28P01"}, ErrPermission},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, ErrInternal},
		{"invalid text representation", &pgconn.PgError{Code: "22P02"}, ErrInternal},
		{"no sqlstate", errors.New("dial tcp: connection refused"), ErrTransient},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := storeErr("test-op", tc.err)
			assert.Equal(t, tc.want, KindOf(err))
			assert.True(t, errors.Is(err, tc.err))
		})
	}
}

func TestLinkErrDuplicateCredential(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505"}
	assert.Equal(t, ErrAlreadyInUse, KindOf(linkErr(dup)))

	// Other failures keep the store classification.
	assert.Equal(t, ErrTransient, KindOf(linkErr(&pgconn.PgError{Code: "08006"})))
	assert.Equal(t, ErrInternal, KindOf(linkErr(&pgconn.PgError{Code: "23503"})))
}

// The tests below run against a real database and are skipped unless
// TEST_DATABASE_URL points at a disposable Postgres instance.

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Credential{}, &models.RefreshToken{}))

	t.Cleanup(func() {
		db.Exec("DELETE FROM refresh_tokens")
		db.Exec("DELETE FROM credentials")
		db.Exec("DELETE FROM users")
	})
	return db
}

func testService(t *testing.T, db *gorm.DB, key *rsa.PrivateKey) *Service {
	t.Helper()

	srv := newTestJWKSServer(t, key)
	return &Service{
		db: db,
		cfg: &config.Config{
			JWTSecret:        "test-secret",
			JWTAccessExpiry:  time.Hour,
			JWTRefreshExpiry: 24 * time.Hour,
		},
		verifier: NewJWKSVerifier(srv.URL, testIssuer, testAudience),
	}
}

func TestGoogleSignInCreatesUserWithCredential(t *testing.T) {
	db := testDB(t)
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	svc := testService(t, db, key)

	session, err := svc.GoogleSignIn(context.Background(), signTestToken(t, key, nil), "")
	require.NoError(t, err)

	assert.Equal(t, "marie@example.com", session.Identity.Email)
	require.Len(t, session.Identity.Credentials, 1)
	assert.Equal(t, KindGoogle, session.Identity.Credentials[0].Kind)
	assert.Equal(t, "g-108234", session.Identity.Credentials[0].SubjectID)
}

func TestGoogleSignInLinksExistingEmailAccount(t *testing.T) {
	db := testDB(t)
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	svc := testService(t, db, key)

	existing, err := svc.Register(context.Background(), "marie@example.com", "hunter2hunter2", "Marie")
	require.NoError(t, err)

	session, err := svc.GoogleSignIn(context.Background(), signTestToken(t, key, nil), "")
	require.NoError(t, err)

	assert.Equal(t, existing.Identity.AccountID, session.Identity.AccountID)
	assert.True(t, session.Identity.Credentials.HasKind(KindPassword))
	assert.True(t, session.Identity.Credentials.HasKind(KindGoogle))
}

func TestGoogleSignInRollsBackUserWhenCredentialBindFails(t *testing.T) {
	db := testDB(t)
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	svc := testService(t, db, key)

	// Reject the credential insert so the sign-in fails between the two
	// writes. The user row from the same call must not survive.
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("reject_credential_creates", func(tx *gorm.DB) {
		if tx.Statement.Table == "credentials" {
			tx.AddError(errors.New("credential insert rejected"))
		}
	}))
	t.Cleanup(func() {
		_ = db.Callback().Create().Remove("reject_credential_creates")
	})

	_, err = svc.GoogleSignIn(context.Background(), signTestToken(t, key, nil), "")
	require.Error(t, err)

	var users int64
	require.NoError(t, db.Model(&models.User{}).Where("email = ?", "marie@example.com").Count(&users).Error)
	assert.Zero(t, users, "sign-in failure must not leave a credential-less user claiming the email")
}
