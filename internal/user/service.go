package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"stroke_rehab_backend/internal/common"
	"stroke_rehab_backend/internal/config"
	"stroke_rehab_backend/internal/email"
	"stroke_rehab_backend/internal/shared"
)

// Service defines the registration and reconciliation engine.
type Service interface {
	// Register creates a local account and returns the user together with
	// the issued email-verification token.
	Register(ctx context.Context, req RegisterRequest) (*User, string, error)
	// Login verifies credentials (login may be an email or a username) and
	// returns the user with a fresh access token.
	Login(ctx context.Context, login, password string) (*User, string, error)
	// ReconcileFederated resolves a verified federated profile to a local
	// user, linking or creating an account as needed.
	ReconcileFederated(ctx context.Context, profile shared.FederatedProfile) (*User, string, error)
	GetUserByID(ctx context.Context, id uint) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateMe(ctx context.Context, userID uint, req UpdateMeRequest) (*User, error)
	GetProfile(ctx context.Context, userID uint) (*Profile, error)
	UpdateProfile(ctx context.Context, userID uint, req UpdateProfileRequest) (*Profile, error)
}

// ServiceImplementation implements Service.
type ServiceImplementation struct {
	repo         Repository
	tokenService shared.TokenService
	sender       email.Sender
	cfg          *config.Config
	logger       *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new user service.
func NewService(
	repo Repository,
	tokenService shared.TokenService,
	sender email.Sender,
	cfg *config.Config,
	logger *zap.Logger,
) *ServiceImplementation {
	return &ServiceImplementation{
		repo:         repo,
		tokenService: tokenService,
		sender:       sender,
		cfg:          cfg,
		logger:       logger,
	}
}

func (s *ServiceImplementation) Register(ctx context.Context, req RegisterRequest) (*User, string, error) {
	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, "", common.ErrDuplicateEmail
	} else if !errors.Is(err, common.ErrUserNotFound) {
		return nil, "", fmt.Errorf("failed to check existing user by email: %w", err)
	}
	if _, err := s.repo.FindByUsername(ctx, req.Username); err == nil {
		return nil, "", common.ErrDuplicateUsername
	} else if !errors.Is(err, common.ErrUserNotFound) {
		return nil, "", fmt.Errorf("failed to check existing user by username: %w", err)
	}

	hashed, err := common.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("Failed to hash password during registration", zap.Error(err))
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))
	dbUser := &User{
		Email:        &emailAddr,
		Username:     req.Username,
		PasswordHash: &hashed,
		Role:         common.RolePatient,
		IsActive:     true,
		IsVerified:   false,
	}
	if req.FirstName != "" {
		firstName := req.FirstName
		dbUser.FirstName = &firstName
	}
	if req.LastName != "" {
		lastName := req.LastName
		dbUser.LastName = &lastName
	}

	// The insert is the authoritative uniqueness check; the pre-checks
	// above only give friendlier errors on the common path.
	if err := s.repo.Create(ctx, dbUser); err != nil {
		if apiErr, ok := common.IsAPIError(err); ok {
			return nil, "", apiErr
		}
		s.logger.Error("Failed to create user", zap.Error(err), zap.String("email", emailAddr))
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	if _, err := s.repo.CreateProfile(ctx, dbUser.ID); err != nil {
		s.logger.Error("Failed to create profile at registration", zap.Error(err), zap.Uint("userID", dbUser.ID))
		return nil, "", fmt.Errorf("failed to create profile: %w", err)
	}

	verificationToken, expires, err := s.tokenService.GenerateEmailVerificationToken(dbUser.ID)
	if err != nil {
		s.logger.Error("Failed to issue verification token", zap.Error(err), zap.Uint("userID", dbUser.ID))
		return nil, "", fmt.Errorf("failed to issue verification token: %w", err)
	}
	dbUser.SetVerificationToken(verificationToken, expires)
	if err := s.repo.Update(ctx, dbUser); err != nil {
		s.logger.Error("Failed to persist verification token", zap.Error(err), zap.Uint("userID", dbUser.ID))
		return nil, "", fmt.Errorf("failed to persist verification token: %w", err)
	}

	// Delivery is out-of-band. A mail failure must not lose the account,
	// so it is logged and never rolled back.
	s.deliverVerificationEmail(emailAddr, verificationToken)

	s.logger.Info("User registered", zap.Uint("userID", dbUser.ID), zap.String("username", dbUser.Username))
	return dbUser, verificationToken, nil
}

func (s *ServiceImplementation) deliverVerificationEmail(to, token string) {
	go func() {
		if err := s.sender.SendVerificationEmail(context.Background(), to, token); err != nil {
			s.logger.Warn("Verification email delivery failed", zap.Error(err), zap.String("email", to))
		}
	}()
}

func (s *ServiceImplementation) Login(ctx context.Context, login, password string) (*User, string, error) {
	dbUser, err := s.repo.FindByEmail(ctx, login)
	if errors.Is(err, common.ErrUserNotFound) {
		dbUser, err = s.repo.FindByUsername(ctx, login)
	}
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			return nil, "", common.ErrUnauthorized.WithDetails("Incorrect login or password.")
		}
		s.logger.Error("Error finding user during login", zap.Error(err))
		return nil, "", common.ErrInternalServer.WithDetails("Login failed due to an internal error.")
	}

	// A nil hash means a federated-only account; local verification is an
	// unconditional failure, not an error.
	if dbUser.PasswordHash == nil || !common.CheckPasswordHash(password, *dbUser.PasswordHash) {
		return nil, "", common.ErrUnauthorized.WithDetails("Incorrect login or password.")
	}
	if !dbUser.IsActive {
		return nil, "", common.ErrUnauthorized.WithDetails("Incorrect login or password.")
	}

	accessToken, _, err := s.tokenService.GenerateAccessToken(dbUser.ID)
	if err != nil {
		s.logger.Error("Failed to generate access token on login", zap.Error(err), zap.Uint("userID", dbUser.ID))
		return nil, "", common.ErrInternalServer.WithDetails("Could not generate access token.")
	}

	s.logger.Info("User logged in", zap.Uint("userID", dbUser.ID))
	return dbUser, accessToken, nil
}

func (s *ServiceImplementation) ReconcileFederated(ctx context.Context, profile shared.FederatedProfile) (*User, string, error) {
	if profile.ProviderID == "" || profile.Email == "" {
		return nil, "", common.ErrFederatedProfileIncomplete
	}

	dbUser, err := s.resolveFederated(ctx, profile)
	if err != nil {
		return nil, "", err
	}

	accessToken, _, err := s.tokenService.GenerateAccessToken(dbUser.ID)
	if err != nil {
		s.logger.Error("Failed to generate access token after reconciliation", zap.Error(err), zap.Uint("userID", dbUser.ID))
		return nil, "", common.ErrInternalServer.WithDetails("Could not generate access token.")
	}
	return dbUser, accessToken, nil
}

// resolveFederated applies the resolution order: provider id, then email
// (account linking), then a fresh account. Each step short-circuits.
func (s *ServiceImplementation) resolveFederated(ctx context.Context, profile shared.FederatedProfile) (*User, error) {
	dbUser, err := s.repo.FindByGoogleID(ctx, profile.ProviderID)
	if err == nil {
		if profile.EmailVerified && !dbUser.IsVerified {
			dbUser.IsVerified = true
			if err := s.repo.Update(ctx, dbUser); err != nil {
				s.logger.Warn("Failed to backfill verification flag", zap.Error(err), zap.Uint("userID", dbUser.ID))
			}
		}
		return dbUser, nil
	}
	if !errors.Is(err, common.ErrUserNotFound) {
		return nil, err
	}

	dbUser, err = s.repo.FindByEmail(ctx, profile.Email)
	if err == nil {
		// Attach the provider id to the existing local account.
		providerID := profile.ProviderID
		dbUser.GoogleID = &providerID
		if profile.EmailVerified {
			dbUser.IsVerified = true
		}
		if err := s.repo.Update(ctx, dbUser); err != nil {
			if _, ok := common.IsAPIError(err); ok {
				return nil, common.ErrReconciliationConflict
			}
			return nil, err
		}
		s.logger.Info("Federated identity linked to existing account", zap.Uint("userID", dbUser.ID))
		return dbUser, nil
	}
	if !errors.Is(err, common.ErrUserNotFound) {
		return nil, err
	}

	return s.createFederatedUser(ctx, profile)
}

func (s *ServiceImplementation) createFederatedUser(ctx context.Context, profile shared.FederatedProfile) (*User, error) {
	username, err := s.deriveUsername(ctx, profile.Email)
	if err != nil {
		return nil, err
	}

	emailAddr := strings.ToLower(strings.TrimSpace(profile.Email))
	providerID := profile.ProviderID
	dbUser := &User{
		Email:      &emailAddr,
		Username:   username,
		GoogleID:   &providerID,
		Role:       common.RolePatient,
		IsActive:   true,
		IsVerified: profile.EmailVerified,
	}
	if profile.FirstName != "" {
		firstName := profile.FirstName
		dbUser.FirstName = &firstName
	}
	if profile.LastName != "" {
		lastName := profile.LastName
		dbUser.LastName = &lastName
	}

	if err := s.repo.Create(ctx, dbUser); err != nil {
		if _, ok := common.IsAPIError(err); !ok {
			return nil, err
		}
		// Lost an insert race. Re-run the provider-id lookup once; a
		// concurrent request may have created the same federated account.
		existing, findErr := s.repo.FindByGoogleID(ctx, profile.ProviderID)
		if findErr == nil {
			return existing, nil
		}
		return nil, common.ErrReconciliationConflict
	}

	if _, err := s.repo.CreateProfile(ctx, dbUser.ID); err != nil {
		s.logger.Error("Failed to create profile for federated user", zap.Error(err), zap.Uint("userID", dbUser.ID))
		return nil, err
	}

	s.logger.Info("Federated user created", zap.Uint("userID", dbUser.ID), zap.String("username", username))
	return dbUser, nil
}

// deriveUsername builds a username from the local part of the email and
// appends an increasing integer suffix until a free one is found.
func (s *ServiceImplementation) deriveUsername(ctx context.Context, emailAddr string) (string, error) {
	localPart := emailAddr
	if at := strings.Index(emailAddr, "@"); at > 0 {
		localPart = emailAddr[:at]
	}
	base := slug.Make(localPart)
	if base == "" {
		base = "user"
	}

	candidate := base
	for counter := 1; ; counter++ {
		_, err := s.repo.FindByUsername(ctx, candidate)
		if errors.Is(err, common.ErrUserNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s%d", base, counter)
	}
}

func (s *ServiceImplementation) GetUserByID(ctx context.Context, id uint) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *ServiceImplementation) GetUserByEmail(ctx context.Context, emailAddr string) (*User, error) {
	return s.repo.FindByEmail(ctx, emailAddr)
}

func (s *ServiceImplementation) UpdateMe(ctx context.Context, userID uint, req UpdateMeRequest) (*User, error) {
	dbUser, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Email != nil {
		newEmail := strings.ToLower(strings.TrimSpace(*req.Email))
		if dbUser.Email == nil || *dbUser.Email != newEmail {
			if _, err := s.repo.FindByEmail(ctx, newEmail); err == nil {
				return nil, common.ErrDuplicateEmail
			} else if !errors.Is(err, common.ErrUserNotFound) {
				return nil, err
			}
			dbUser.Email = &newEmail
		}
	}

	if req.NewPassword != nil {
		if req.CurrentPassword == nil {
			return nil, common.ErrBadRequest.WithDetails("Current password is required to set a new password.")
		}
		if dbUser.PasswordHash == nil || !common.CheckPasswordHash(*req.CurrentPassword, *dbUser.PasswordHash) {
			return nil, common.ErrBadRequest.WithDetails("Current password is incorrect.")
		}
		hashed, err := common.HashPassword(*req.NewPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to hash new password: %w", err)
		}
		dbUser.PasswordHash = &hashed
	}

	if req.FirstName != nil {
		dbUser.FirstName = req.FirstName
	}
	if req.LastName != nil {
		dbUser.LastName = req.LastName
	}

	if err := s.repo.Update(ctx, dbUser); err != nil {
		if apiErr, ok := common.IsAPIError(err); ok {
			return nil, apiErr
		}
		return nil, err
	}
	return dbUser, nil
}

// GetProfile returns the user's profile, creating the empty row on first
// read if registration predates lazy profile creation.
func (s *ServiceImplementation) GetProfile(ctx context.Context, userID uint) (*Profile, error) {
	profile, err := s.repo.FindProfileByUserID(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		return s.repo.CreateProfile(ctx, userID)
	}
	return profile, err
}

func (s *ServiceImplementation) UpdateProfile(ctx context.Context, userID uint, req UpdateProfileRequest) (*Profile, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.DateOfBirth != nil {
		profile.DateOfBirth = req.DateOfBirth
	}
	if req.Gender != nil {
		profile.Gender = req.Gender
	}
	if req.Height != nil {
		profile.Height = req.Height
	}
	if req.Weight != nil {
		profile.Weight = req.Weight
	}
	if req.MedicalHistory != nil {
		profile.MedicalHistory = req.MedicalHistory
	}
	if req.Allergies != nil {
		profile.Allergies = req.Allergies
	}
	if req.Medications != nil {
		profile.Medications = req.Medications
	}
	if req.EmergencyContactName != nil {
		profile.EmergencyContactName = req.EmergencyContactName
	}
	if req.EmergencyContactPhone != nil {
		profile.EmergencyContactPhone = req.EmergencyContactPhone
	}
	if req.DoctorName != nil {
		profile.DoctorName = req.DoctorName
	}
	if req.DoctorPhone != nil {
		profile.DoctorPhone = req.DoctorPhone
	}
	if req.StrokeDate != nil {
		profile.StrokeDate = req.StrokeDate
	}
	if req.StrokeType != nil {
		profile.StrokeType = req.StrokeType
	}
	if req.AffectedSide != nil {
		profile.AffectedSide = req.AffectedSide
	}
	if req.MobilityAid != nil {
		profile.MobilityAid = req.MobilityAid
	}
	if req.TherapyGoals != nil {
		profile.TherapyGoals = req.TherapyGoals
	}

	if err := s.repo.UpdateProfile(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}
