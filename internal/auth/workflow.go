package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"stroke_rehab_backend/internal/common"
	"stroke_rehab_backend/internal/email"
	"stroke_rehab_backend/internal/shared"
	"stroke_rehab_backend/internal/user"
)

// WorkflowService drives the email-verification and password-reset
// workflows. Both redeem steps require the presented token to equal the
// single stored token for the user, so issuing a new token supersedes any
// earlier one and redemption is single-use.
type WorkflowService interface {
	// RequestEmailVerification issues and stores a fresh verification token
	// and emails it. Unknown and already-verified addresses are silent
	// no-ops so the endpoint does not reveal which accounts exist.
	RequestEmailVerification(ctx context.Context, emailAddr string) error
	// ConfirmEmailVerification redeems a verification token. Succeeds
	// without error when the account is already verified.
	ConfirmEmailVerification(ctx context.Context, token string) error
	// RequestPasswordReset issues and stores a fresh reset token and emails
	// it. Unknown addresses are a silent no-op.
	RequestPasswordReset(ctx context.Context, emailAddr string) error
	// ConfirmPasswordReset redeems a reset token and installs the new
	// password. The stored token pair is cleared in the same transaction.
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
}

type workflowService struct {
	repo         user.Repository
	tokenService shared.TokenService
	sender       email.Sender
	logger       *zap.Logger
}

var _ WorkflowService = (*workflowService)(nil)

// NewWorkflowService creates a new workflow service.
func NewWorkflowService(
	repo user.Repository,
	tokenService shared.TokenService,
	sender email.Sender,
	logger *zap.Logger,
) WorkflowService {
	return &workflowService{
		repo:         repo,
		tokenService: tokenService,
		sender:       sender,
		logger:       logger,
	}
}

func (s *workflowService) RequestEmailVerification(ctx context.Context, emailAddr string) error {
	dbUser, err := s.repo.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			s.logger.Debug("Verification requested for unknown email", zap.String("email", emailAddr))
			return nil
		}
		return err
	}
	if dbUser.IsVerified {
		return nil
	}

	token, expires, err := s.tokenService.GenerateEmailVerificationToken(dbUser.ID)
	if err != nil {
		return fmt.Errorf("failed to generate verification token: %w", err)
	}
	dbUser.SetVerificationToken(token, expires)
	if err := s.repo.Update(ctx, dbUser); err != nil {
		return fmt.Errorf("failed to store verification token: %w", err)
	}

	s.deliver(emailAddr, func(ctx context.Context) error {
		return s.sender.SendVerificationEmail(ctx, emailAddr, token)
	})
	return nil
}

func (s *workflowService) ConfirmEmailVerification(ctx context.Context, token string) error {
	claims, err := s.tokenService.DecodeToken(token)
	if err != nil {
		return err
	}
	if claims.TokenType != shared.TokenTypeEmailVerification {
		return common.ErrInvalidTokenType
	}
	userID, err := claims.UserID()
	if err != nil {
		return common.ErrTokenInvalid
	}

	return s.repo.Transaction(ctx, func(txRepo user.Repository) error {
		dbUser, err := txRepo.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, common.ErrUserNotFound) {
				return common.ErrTokenInvalid
			}
			return err
		}
		if dbUser.IsVerified {
			// Replays of an already-redeemed link are harmless.
			return nil
		}
		if dbUser.VerificationToken == nil || *dbUser.VerificationToken != token {
			return common.ErrStoredTokenMismatch
		}
		if dbUser.VerificationTokenExpires == nil || dbUser.VerificationTokenExpires.Before(time.Now()) {
			return common.ErrTokenExpired
		}

		dbUser.IsVerified = true
		dbUser.ClearVerificationToken()
		if err := txRepo.Update(ctx, dbUser); err != nil {
			return err
		}
		s.logger.Info("Email verified", zap.Uint("userID", dbUser.ID))
		return nil
	})
}

func (s *workflowService) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	dbUser, err := s.repo.FindByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, common.ErrUserNotFound) {
			s.logger.Debug("Password reset requested for unknown email", zap.String("email", emailAddr))
			return nil
		}
		return err
	}

	token, expires, err := s.tokenService.GeneratePasswordResetToken(dbUser.ID)
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	dbUser.SetPasswordResetToken(token, expires)
	if err := s.repo.Update(ctx, dbUser); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	s.deliver(emailAddr, func(ctx context.Context) error {
		return s.sender.SendPasswordResetEmail(ctx, emailAddr, token)
	})
	return nil
}

func (s *workflowService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	claims, err := s.tokenService.DecodeToken(token)
	if err != nil {
		return err
	}
	if claims.TokenType != shared.TokenTypePasswordReset {
		return common.ErrInvalidTokenType
	}
	userID, err := claims.UserID()
	if err != nil {
		return common.ErrTokenInvalid
	}

	hashed, err := common.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	return s.repo.Transaction(ctx, func(txRepo user.Repository) error {
		dbUser, err := txRepo.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, common.ErrUserNotFound) {
				return common.ErrTokenInvalid
			}
			return err
		}
		if dbUser.PasswordResetToken == nil || *dbUser.PasswordResetToken != token {
			return common.ErrStoredTokenMismatch
		}
		if dbUser.PasswordResetExpires == nil || dbUser.PasswordResetExpires.Before(time.Now()) {
			return common.ErrTokenExpired
		}

		dbUser.PasswordHash = &hashed
		dbUser.ClearPasswordResetToken()
		if err := txRepo.Update(ctx, dbUser); err != nil {
			return err
		}
		s.logger.Info("Password reset completed", zap.Uint("userID", dbUser.ID))
		return nil
	})
}

// deliver sends mail off the request path. A delivery failure is logged
// and never surfaced to the caller.
func (s *workflowService) deliver(to string, send func(context.Context) error) {
	go func() {
		if err := send(context.Background()); err != nil {
			s.logger.Warn("Email delivery failed", zap.Error(err), zap.String("email", to))
		}
	}()
}
