package user

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"stroke_rehab_backend/internal/common"
	"stroke_rehab_backend/internal/config"
	"stroke_rehab_backend/internal/shared"
)

// stubTokenService issues predictable tokens without signing.
type stubTokenService struct {
	counter int
}

func (s *stubTokenService) issue(prefix string, userID uint) (string, time.Time, error) {
	s.counter++
	return fmt.Sprintf("%s-%d-%d", prefix, userID, s.counter), time.Now().Add(time.Hour), nil
}

func (s *stubTokenService) GenerateAccessToken(userID uint) (string, time.Time, error) {
	return s.issue("access", userID)
}

func (s *stubTokenService) GenerateEmailVerificationToken(userID uint) (string, time.Time, error) {
	return s.issue("verify", userID)
}

func (s *stubTokenService) GeneratePasswordResetToken(userID uint) (string, time.Time, error) {
	return s.issue("reset", userID)
}

func (s *stubTokenService) DecodeToken(tokenString string) (*shared.Claims, error) {
	return nil, common.ErrTokenInvalid
}

// recordingSender captures sends on a channel so async delivery can be
// awaited.
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

func newTestService(t *testing.T) (*ServiceImplementation, Repository, *recordingSender) {
	t.Helper()
	repo := NewGORMRepository(newTestDB(t))
	sender := newRecordingSender()
	svc := NewService(repo, &stubTokenService{}, sender, &config.Config{}, zap.NewNop())
	return svc, repo, sender
}

func TestService_Register(t *testing.T) {
	svc, repo, sender := newTestService(t)
	ctx := context.Background()

	created, token, err := svc.Register(ctx, RegisterRequest{
		Email:    "new@example.com",
		Username: "newuser",
		Password: "longenoughpassword",
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.False(t, created.IsVerified)
	assert.Equal(t, common.RolePatient, created.Role)
	require.NotNil(t, created.PasswordHash)
	assert.True(t, common.CheckPasswordHash("longenoughpassword", *created.PasswordHash))

	stored, err := repo.FindByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	require.NotNil(t, stored.VerificationToken)
	assert.Equal(t, token, *stored.VerificationToken)
	require.NotNil(t, stored.VerificationTokenExpires)

	profile, err := repo.FindProfileByUserID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, profile.UserID)

	select {
	case to := <-sender.verifications:
		assert.Equal(t, "new@example.com", to)
	case <-time.After(2 * time.Second):
		t.Fatal("verification email was never sent")
	}
}

func TestService_Register_Duplicates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, RegisterRequest{Email: "a@example.com", Username: "alpha", Password: "longenoughpassword"})
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, RegisterRequest{Email: "a@example.com", Username: "beta", Password: "longenoughpassword"})
	assert.ErrorIs(t, err, common.ErrDuplicateEmail)

	_, _, err = svc.Register(ctx, RegisterRequest{Email: "b@example.com", Username: "alpha", Password: "longenoughpassword"})
	assert.ErrorIs(t, err, common.ErrDuplicateUsername)
}

func TestService_Login(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.Register(ctx, RegisterRequest{Email: "login@example.com", Username: "loginuser", Password: "longenoughpassword"})
	require.NoError(t, err)

	byEmail, token, err := svc.Login(ctx, "login@example.com", "longenoughpassword")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	byUsername, _, err := svc.Login(ctx, "loginuser", "longenoughpassword")
	require.NoError(t, err)
	assert.Equal(t, byEmail.ID, byUsername.ID)

	_, _, err = svc.Login(ctx, "login@example.com", "wrongpassword")
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, _, err = svc.Login(ctx, "ghost@example.com", "longenoughpassword")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestService_ReconcileFederated_CreatesUser(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	created, token, err := svc.ReconcileFederated(ctx, shared.FederatedProfile{
		ProviderID:    "google-123",
		Email:         "Fed.User@Example.com",
		EmailVerified: true,
		FirstName:     "Fed",
		LastName:      "User",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, created.IsVerified)
	assert.Nil(t, created.PasswordHash)
	assert.Equal(t, "fed-user", created.Username)

	stored, err := repo.FindByGoogleID(ctx, "google-123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, stored.ID)

	profile, err := repo.FindProfileByUserID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, profile.UserID)
}

func TestService_ReconcileFederated_LinksByEmail(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	local, _, err := svc.Register(ctx, RegisterRequest{Email: "linked@example.com", Username: "linked", Password: "longenoughpassword"})
	require.NoError(t, err)
	assert.False(t, local.IsVerified)

	reconciled, _, err := svc.ReconcileFederated(ctx, shared.FederatedProfile{
		ProviderID:    "google-456",
		Email:         "linked@example.com",
		EmailVerified: true,
	})
	require.NoError(t, err)
	assert.Equal(t, local.ID, reconciled.ID)
	assert.True(t, reconciled.IsVerified)

	stored, err := repo.FindByGoogleID(ctx, "google-456")
	require.NoError(t, err)
	assert.Equal(t, local.ID, stored.ID)
}

func TestService_ReconcileFederated_FindsByProviderID(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	first, _, err := svc.ReconcileFederated(ctx, shared.FederatedProfile{
		ProviderID: "google-789", Email: "repeat@example.com", EmailVerified: true,
	})
	require.NoError(t, err)

	second, _, err := svc.ReconcileFederated(ctx, shared.FederatedProfile{
		ProviderID: "google-789", Email: "repeat@example.com", EmailVerified: true,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestService_ReconcileFederated_UsernameSuffixes(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	seedUser(t, repo, "a1@example.com", "alice")
	seedUser(t, repo, "a2@example.com", "alice1")

	created, _, err := svc.ReconcileFederated(ctx, shared.FederatedProfile{
		ProviderID: "google-alice", Email: "alice@elsewhere.com", EmailVerified: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "alice2", created.Username)
}

func TestService_ReconcileFederated_IncompleteProfile(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, _, err := svc.ReconcileFederated(ctx, shared.FederatedProfile{ProviderID: "", Email: "x@example.com"})
	assert.ErrorIs(t, err, common.ErrFederatedProfileIncomplete)

	_, _, err = svc.ReconcileFederated(ctx, shared.FederatedProfile{ProviderID: "google-1", Email: ""})
	assert.ErrorIs(t, err, common.ErrFederatedProfileIncomplete)
}

func TestService_UpdateMe_PasswordChange(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, _, err := svc.Register(ctx, RegisterRequest{Email: "me@example.com", Username: "meuser", Password: "originalpassword"})
	require.NoError(t, err)

	wrong := "notmypassword"
	next := "replacementpassword"
	_, err = svc.UpdateMe(ctx, created.ID, UpdateMeRequest{CurrentPassword: &wrong, NewPassword: &next})
	assert.ErrorIs(t, err, common.ErrBadRequest)

	current := "originalpassword"
	updated, err := svc.UpdateMe(ctx, created.ID, UpdateMeRequest{CurrentPassword: &current, NewPassword: &next})
	require.NoError(t, err)
	require.NotNil(t, updated.PasswordHash)
	assert.True(t, common.CheckPasswordHash(next, *updated.PasswordHash))
}

func TestService_GetProfile_LazyCreates(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	u := seedUser(t, repo, "noprofile@example.com", "noprofile")

	profile, err := svc.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, profile.UserID)

	again, err := svc.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, profile.ID, again.ID)
}
