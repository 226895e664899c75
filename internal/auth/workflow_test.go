package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"stroke_rehab_backend/internal/common"
	"stroke_rehab_backend/internal/user"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&user.User{}, &user.Profile{}))
	return db
}

// recordingSender captures deliveries on channels so the async send can be
// awaited or its absence asserted.
type recordingSender struct {
	verifications chan string
	resets        chan string
}

func newRecordingSender() *recordingSender {
	return &recordingSender{
		verifications: make(chan string, 8),
		resets:        make(chan string, 8),
	}
}

func (r *recordingSender) SendVerificationEmail(ctx context.Context, to, token string) error {
	r.verifications <- to
	return nil
}

func (r *recordingSender) SendPasswordResetEmail(ctx context.Context, to, token string) error {
	r.resets <- to
	return nil
}

type workflowFixture struct {
	workflow WorkflowService
	repo     user.Repository
	tokens   *JWTService
	sender   *recordingSender
}

func newWorkflowFixture(t *testing.T) *workflowFixture {
	t.Helper()
	repo := user.NewGORMRepository(newTestDB(t))
	tokens := newTestTokenService()
	sender := newRecordingSender()
	return &workflowFixture{
		workflow: NewWorkflowService(repo, tokens, sender, zap.NewNop()),
		repo:     repo,
		tokens:   tokens,
		sender:   sender,
	}
}

func seedLocalUser(t *testing.T, repo user.Repository, email string, verified bool) *user.User {
	t.Helper()
	hash, err := common.HashPassword("originalpassword")
	require.NoError(t, err)
	u := &user.User{
		Email:        &email,
		Username:     email[:len(email)-len("@example.com")],
		PasswordHash: &hash,
		Role:         common.RolePatient,
		IsActive:     true,
		IsVerified:   verified,
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestRequestEmailVerification_UnknownEmailIsSilent(t *testing.T) {
	f := newWorkflowFixture(t)

	err := f.workflow.RequestEmailVerification(context.Background(), "ghost@example.com")
	require.NoError(t, err)

	select {
	case <-f.sender.verifications:
		t.Fatal("no email should be sent for an unknown address")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRequestEmailVerification_AlreadyVerifiedIsSilent(t *testing.T) {
	f := newWorkflowFixture(t)
	seedLocalUser(t, f.repo, "done@example.com", true)

	require.NoError(t, f.workflow.RequestEmailVerification(context.Background(), "done@example.com"))

	select {
	case <-f.sender.verifications:
		t.Fatal("no email should be sent for a verified account")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestConfirmEmailVerification_HappyPath(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	u := seedLocalUser(t, f.repo, "pending@example.com", false)

	require.NoError(t, f.workflow.RequestEmailVerification(ctx, "pending@example.com"))
	select {
	case <-f.sender.verifications:
	case <-time.After(2 * time.Second):
		t.Fatal("verification email was never sent")
	}

	stored, err := f.repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.VerificationToken)

	require.NoError(t, f.workflow.ConfirmEmailVerification(ctx, *stored.VerificationToken))

	verified, err := f.repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)
	assert.Nil(t, verified.VerificationToken)
	assert.Nil(t, verified.VerificationTokenExpires)
}

func TestConfirmEmailVerification_ReplayIsIdempotent(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	u := seedLocalUser(t, f.repo, "replay@example.com", false)

	require.NoError(t, f.workflow.RequestEmailVerification(ctx, "replay@example.com"))
	stored, err := f.repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	token := *stored.VerificationToken

	require.NoError(t, f.workflow.ConfirmEmailVerification(ctx, token))
	require.NoError(t, f.workflow.ConfirmEmailVerification(ctx, token))
}

func TestConfirmEmailVerification_SupersededToken(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	u := seedLocalUser(t, f.repo, "twice@example.com", false)

	require.NoError(t, f.workflow.RequestEmailVerification(ctx, "twice@example.com"))
	stored, err := f.repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	firstToken := *stored.VerificationToken

	// Tokens embed issued-at seconds; keep the two requests in distinct
	// signing windows.
	time.Sleep(1100 * time.Millisecond)
	require.NoError(t, f.workflow.RequestEmailVerification(ctx, "twice@example.com"))
	stored, err = f.repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotEqual(t, firstToken, *stored.VerificationToken)

	err = f.workflow.ConfirmEmailVerification(ctx, firstToken)
	assert.ErrorIs(t, err, common.ErrStoredTokenMismatch)
}

func TestConfirmEmailVerification_WrongTokenType(t *testing.T) {
	f := newWorkflowFixture(t)
	u := seedLocalUser(t, f.repo, "wrongtype@example.com", false)

	resetToken, _, err := f.tokens.GeneratePasswordResetToken(u.ID)
	require.NoError(t, err)

	err = f.workflow.ConfirmEmailVerification(context.Background(), resetToken)
	assert.ErrorIs(t, err, common.ErrInvalidTokenType)

	accessToken, _, err := f.tokens.GenerateAccessToken(u.ID)
	require.NoError(t, err)
	err = f.workflow.ConfirmEmailVerification(context.Background(), accessToken)
	assert.ErrorIs(t, err, common.ErrInvalidTokenType)
}

func TestConfirmPasswordReset_HappyPathAndSingleUse(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	u := seedLocalUser(t, f.repo, "reset@example.com", true)

	require.NoError(t, f.workflow.RequestPasswordReset(ctx, "reset@example.com"))
	select {
	case <-f.sender.resets:
	case <-time.After(2 * time.Second):
		t.Fatal("reset email was never sent")
	}

	stored, err := f.repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PasswordResetToken)
	token := *stored.PasswordResetToken

	require.NoError(t, f.workflow.ConfirmPasswordReset(ctx, token, "brandnewpassword"))

	updated, err := f.repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.PasswordHash)
	assert.True(t, common.CheckPasswordHash("brandnewpassword", *updated.PasswordHash))
	assert.Nil(t, updated.PasswordResetToken)
	assert.Nil(t, updated.PasswordResetExpires)

	err = f.workflow.ConfirmPasswordReset(ctx, token, "anotherpassword")
	assert.ErrorIs(t, err, common.ErrStoredTokenMismatch)
}

func TestConfirmPasswordReset_StoredExpiryEnforced(t *testing.T) {
	f := newWorkflowFixture(t)
	ctx := context.Background()
	u := seedLocalUser(t, f.repo, "stale@example.com", true)

	// The signed token is still valid; only the stored expiry has passed.
	token, _, err := f.tokens.GeneratePasswordResetToken(u.ID)
	require.NoError(t, err)
	u.SetPasswordResetToken(token, time.Now().Add(-time.Minute))
	require.NoError(t, f.repo.Update(ctx, u))

	err = f.workflow.ConfirmPasswordReset(ctx, token, "brandnewpassword")
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestConfirmPasswordReset_WrongTokenType(t *testing.T) {
	f := newWorkflowFixture(t)
	u := seedLocalUser(t, f.repo, "mistype@example.com", true)

	verificationToken, _, err := f.tokens.GenerateEmailVerificationToken(u.ID)
	require.NoError(t, err)

	err = f.workflow.ConfirmPasswordReset(context.Background(), verificationToken, "brandnewpassword")
	assert.ErrorIs(t, err, common.ErrInvalidTokenType)
}
