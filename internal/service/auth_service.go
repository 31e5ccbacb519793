package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"marketplace/internal/model"
	"marketplace/internal/pkg/lockout"
	"marketplace/internal/pkg/metrics"
	"marketplace/internal/repository"
	"marketplace/internal/session"

	"github.com/nrednav/cuid2"
	"gorm.io/gorm"
)

const (
	invalidCredentialsMessage = "Invalid email or password"
	loginRequiredMessage      = "Please log in to continue"
	rememberTokenBytes        = 32
)

// DTOs for Request validation
type RegisterRequest struct {
	Name            string `json:"name" form:"name" binding:"required,max=100"`
	Surname         string `json:"surname" form:"surname" binding:"required,max=100"`
	Email           string `json:"email" form:"email" binding:"required,email,max=255"`
	Password        string `json:"password" form:"password" binding:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password" binding:"required,eqfield=Password"`
	UserType        string `json:"user_type" form:"user_type" binding:"required,oneof=buyer seller both"`
	Phone           string `json:"phone" form:"phone" binding:"max=30"`
	AddressLine     string `json:"address_line" form:"address_line" binding:"max=255"`
	City            string `json:"city" form:"city" binding:"max=100"`
	Province        string `json:"province" form:"province" binding:"max=100"`
	PostalCode      string `json:"postal_code" form:"postal_code" binding:"max=20"`
	ReferralCode    string `json:"referral_code" form:"referral_code" binding:"max=32"`
	Avatar          string `json:"avatar" form:"avatar" binding:"omitempty,url,max=512"`
}

type LoginRequest struct {
	Email      string `json:"email" form:"email" binding:"required,email"`
	Password   string `json:"password" form:"password" binding:"required"`
	RememberMe bool   `json:"remember_me" form:"remember_me"`
}

// DTO for returning User without exposing sensitive data (e.g. password)
type UserResponse struct {
	ID            uint    `json:"id"`
	Name          string  `json:"name"`
	Surname       string  `json:"surname"`
	Email         string  `json:"email"`
	UserType      string  `json:"user_type"`
	Phone         string  `json:"phone,omitempty"`
	City          string  `json:"city,omitempty"`
	Province      string  `json:"province,omitempty"`
	Avatar        string  `json:"avatar,omitempty"`
	ReferralCode  string  `json:"referral_code"`
	Status        string  `json:"status"`
	EmailVerified bool    `json:"email_verified"`
	CreatedAt     string  `json:"created_at"`
	LastLogin     *string `json:"last_login,omitempty"`
}

type ActivityResponse struct {
	ID        uint   `json:"id"`
	Action    string `json:"action"`
	IPAddress string `json:"ip_address,omitempty"`
	Details   string `json:"details,omitempty"`
	CreatedAt string `json:"created_at"`
}

// LoginGuard limits login attempts per identity. Reserve must count the
// attempt atomically before any password is verified.
type LoginGuard interface {
	Reserve(ctx context.Context, identity string) (lockout.Status, error)
	Reset(ctx context.Context, identity string) error
}

// SessionRotator changes session identifiers. *session.Manager implements it.
type SessionRotator interface {
	Regenerate(ctx context.Context, s *session.Session) error
	Reset(ctx context.Context, s *session.Session) error
}

// CartMerger folds a guest cart into a user's cart at login.
type CartMerger interface {
	MergeGuestCart(ctx context.Context, sess *session.Session, userID uint) error
}

type AuthOptions struct {
	RememberLifetime time.Duration
}

// AuthService authenticates users and binds them to sessions.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest, ip string) (*UserResponse, error)
	Authenticate(ctx context.Context, email, password, ip string) (*model.User, error)
	CreateSession(ctx context.Context, sess *session.Session, user *model.User, rememberMe bool) (string, error)
	DestroySession(ctx context.Context, sess *session.Session, rememberToken, flash string) error
	ResumeSession(ctx context.Context, sess *session.Session, rememberToken, ip string) (string, error)
	CurrentUser(ctx context.Context, sess *session.Session) (*UserResponse, error)
	Activity(ctx context.Context, sess *session.Session, page, limit int) ([]ActivityResponse, int64, error)
}

type authService struct {
	users     repository.UserRepository
	remember  repository.RememberTokenRepository
	auditRepo repository.AuditRepository
	guard     LoginGuard
	sessions  SessionRotator
	hasher    PasswordHasher
	merger    CartMerger
	logger    *slog.Logger
	opts      AuthOptions
	dummyHash string
	now       func() time.Time
}

// NewAuthService returns a new instance of AuthService. merger may be nil.
func NewAuthService(
	users repository.UserRepository,
	remember repository.RememberTokenRepository,
	auditRepo repository.AuditRepository,
	guard LoginGuard,
	sessions SessionRotator,
	hasher PasswordHasher,
	merger CartMerger,
	logger *slog.Logger,
	opts AuthOptions,
) (AuthService, error) {
	if opts.RememberLifetime <= 0 {
		opts.RememberLifetime = 30 * 24 * time.Hour
	}
	// Unknown emails are checked against this hash so they cost as much as real ones.
	dummy, err := hasher.Hash("not-a-real-password-" + cuid2.Generate())
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}
	return &authService{
		users:     users,
		remember:  remember,
		auditRepo: auditRepo,
		guard:     guard,
		sessions:  sessions,
		hasher:    hasher,
		merger:    merger,
		logger:    logger,
		opts:      opts,
		dummyHash: dummy,
		now:       time.Now,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ToUserResponse maps a user to its public representation.
func ToUserResponse(u *model.User) *UserResponse {
	res := &UserResponse{
		ID:            u.ID,
		Name:          u.Name,
		Surname:       u.Surname,
		Email:         u.Email,
		UserType:      u.UserType,
		Phone:         u.Phone,
		City:          u.City,
		Province:      u.Province,
		Avatar:        u.Avatar,
		ReferralCode:  u.ReferralCode,
		Status:        u.Status,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt.Format(time.RFC3339),
	}
	if u.LastLogin != nil {
		s := u.LastLogin.Format(time.RFC3339)
		res.LastLogin = &s
	}
	return res
}

// inactiveReason explains why a correctly authenticated user may not log in.
func inactiveReason(status string) string {
	switch status {
	case model.UserStatusPending:
		return "Your account is pending activation"
	case model.UserStatusSuspended:
		return "Your account has been suspended. Please contact support"
	case model.UserStatusBanned:
		return "Your account has been banned"
	default:
		return "Your account is not active"
	}
}

func (s *authService) Register(ctx context.Context, req RegisterRequest, ip string) (*UserResponse, error) {
	email := normalizeEmail(req.Email)
	if req.Password != req.ConfirmPassword {
		return nil, validationError("Passwords do not match")
	}

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		return nil, persistenceError(err)
	}
	if exists {
		return nil, validationError("An account with this email already exists")
	}

	var referredBy *uint
	if code := strings.TrimSpace(req.ReferralCode); code != "" {
		referrer, err := s.users.GetByReferralCode(ctx, code)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, validationError("Invalid referral code")
			}
			return nil, persistenceError(err)
		}
		referredBy = &referrer.ID
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, persistenceError(fmt.Errorf("hash password: %w", err))
	}

	user := &model.User{
		Name:          strings.TrimSpace(req.Name),
		Surname:       strings.TrimSpace(req.Surname),
		Email:         email,
		PasswordHash:  hash,
		UserType:      req.UserType,
		Phone:         req.Phone,
		AddressLine:   req.AddressLine,
		City:          req.City,
		Province:      req.Province,
		PostalCode:    req.PostalCode,
		Avatar:        strings.TrimSpace(req.Avatar),
		ReferralCode:  cuid2.Generate(),
		ReferredBy:    referredBy,
		Status:        model.UserStatusActive,
		EmailVerified: false,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, persistenceError(err)
	}

	s.audit(ctx, &user.ID, model.ActionRegister, user, ip, nil)
	return ToUserResponse(user), nil
}

func (s *authService) Authenticate(ctx context.Context, email, password, ip string) (*model.User, error) {
	email = normalizeEmail(email)

	status, err := s.guard.Reserve(ctx, email)
	if err != nil {
		return nil, persistenceError(err)
	}
	if status.Locked {
		metrics.LoginAttempts.WithLabelValues("locked").Inc()
		s.audit(ctx, nil, model.ActionLoginLocked, nil, ip, map[string]any{"email": email})
		minutes := int(math.Ceil(status.RetryAfter.Minutes()))
		if minutes < 1 {
			minutes = 1
		}
		return nil, authError(fmt.Sprintf("Too many failed login attempts. Please try again in %d minutes", minutes))
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, persistenceError(err)
	}

	hash := s.dummyHash
	if user != nil {
		hash = user.PasswordHash
	}
	matched := s.hasher.Compare(hash, password)

	if user == nil || !matched {
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		var userID *uint
		if user != nil {
			userID = &user.ID
		}
		s.audit(ctx, userID, model.ActionLoginFailed, nil, ip, map[string]any{"email": email})
		return nil, authError(invalidCredentialsMessage)
	}

	// The caller proved who they are; the counter no longer applies.
	if err := s.guard.Reset(ctx, email); err != nil {
		s.logger.Error("reset login failures", "error", err)
	}

	if user.Status != model.UserStatusActive {
		metrics.LoginAttempts.WithLabelValues("inactive").Inc()
		return nil, authError(inactiveReason(user.Status))
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, persistenceError(err)
	}
	user.LastLogin = &now

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	s.audit(ctx, &user.ID, model.ActionLoginSuccess, user, ip, nil)
	return user, nil
}

// CreateSession rotates the session id, moves the guest cart to the user and
// stores the identity. It returns a raw remember token when rememberMe is set.
func (s *authService) CreateSession(ctx context.Context, sess *session.Session, user *model.User, rememberMe bool) (string, error) {
	if err := s.sessions.Regenerate(ctx, sess); err != nil {
		return "", persistenceError(err)
	}

	if s.merger != nil && !sess.IsAuthenticated() {
		if err := s.merger.MergeGuestCart(ctx, sess, user.ID); err != nil {
			s.logger.Warn("merge guest cart failed", "user_id", user.ID, "error", err)
		}
	}

	sess.SetIdentity(session.Identity{
		UserID:   user.ID,
		UserType: user.UserType,
		Name:     user.DisplayName(),
		Avatar:   user.Avatar,
	}, s.now())

	if !rememberMe {
		return "", nil
	}
	return s.issueRememberToken(ctx, user.ID)
}

func (s *authService) issueRememberToken(ctx context.Context, userID uint) (string, error) {
	raw := make([]byte, rememberTokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", persistenceError(fmt.Errorf("generate remember token: %w", err))
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	rec := &model.RememberToken{
		UserID:    userID,
		TokenHash: hashRememberToken(token),
		ExpiresAt: s.now().Add(s.opts.RememberLifetime),
	}
	if err := s.remember.Create(ctx, rec); err != nil {
		return "", persistenceError(err)
	}
	return token, nil
}

func hashRememberToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// DestroySession logs the session out: the remember token is revoked, all
// session state is cleared and the session continues under a new id.
func (s *authService) DestroySession(ctx context.Context, sess *session.Session, rememberToken, flash string) error {
	userID := sess.UserID()

	if rememberToken != "" {
		if err := s.remember.DeleteByHash(ctx, hashRememberToken(rememberToken)); err != nil {
			s.logger.Error("revoke remember token", "user_id", userID, "error", err)
		}
	}

	if err := s.sessions.Reset(ctx, sess); err != nil {
		return persistenceError(err)
	}
	if flash != "" {
		sess.AddFlash(flash)
	}

	if userID != 0 {
		s.audit(ctx, &userID, model.ActionLogout, nil, "", nil)
	}
	return nil
}

// ResumeSession logs a guest session in from a remember token and returns the
// replacement token.
func (s *authService) ResumeSession(ctx context.Context, sess *session.Session, rememberToken, ip string) (string, error) {
	if rememberToken == "" {
		return "", authError(loginRequiredMessage)
	}

	tokenHash := hashRememberToken(rememberToken)
	rec, err := s.remember.FindValid(ctx, tokenHash, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", authError(loginRequiredMessage)
		}
		return "", persistenceError(err)
	}

	// Each token works once; a new one is issued below.
	if err := s.remember.DeleteByHash(ctx, tokenHash); err != nil {
		return "", persistenceError(err)
	}

	user, err := s.users.GetByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", authError(loginRequiredMessage)
		}
		return "", persistenceError(err)
	}
	if user.Status != model.UserStatusActive {
		return "", authError(inactiveReason(user.Status))
	}

	token, err := s.CreateSession(ctx, sess, user, true)
	if err != nil {
		return "", err
	}

	now := s.now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Error("update last login", "user_id", user.ID, "error", err)
	}
	s.audit(ctx, &user.ID, model.ActionLoginResumed, user, ip, nil)
	return token, nil
}

func (s *authService) CurrentUser(ctx context.Context, sess *session.Session) (*UserResponse, error) {
	if !sess.IsAuthenticated() {
		return nil, authError(loginRequiredMessage)
	}
	user, err := s.users.GetByID(ctx, sess.UserID())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, authError(loginRequiredMessage)
		}
		return nil, persistenceError(err)
	}
	return ToUserResponse(user), nil
}

func (s *authService) Activity(ctx context.Context, sess *session.Session, page, limit int) ([]ActivityResponse, int64, error) {
	if !sess.IsAuthenticated() {
		return nil, 0, authError(loginRequiredMessage)
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	logs, total, err := s.auditRepo.ListByUser(ctx, sess.UserID(), page, limit)
	if err != nil {
		return nil, 0, persistenceError(err)
	}

	res := make([]ActivityResponse, 0, len(logs))
	for _, l := range logs {
		res = append(res, ActivityResponse{
			ID:        l.ID,
			Action:    l.Action,
			IPAddress: l.IPAddress,
			Details:   l.Details,
			CreatedAt: l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return res, total, nil
}

// audit records an account event. Failures are logged and never fail the caller.
func (s *authService) audit(ctx context.Context, userID *uint, action string, user *model.User, ip string, details map[string]any) {
	entry := &model.AuditLog{
		UserID:    userID,
		Action:    action,
		IPAddress: ip,
	}
	if user != nil {
		entry.EntityID = strconv.FormatUint(uint64(user.ID), 10)
		entry.EntityName = user.Email
	}
	if details != nil {
		b, _ := json.Marshal(details)
		entry.Details = string(b)
	}
	if err := s.auditRepo.Log(ctx, entry); err != nil {
		s.logger.Error("failed to write audit log", "action", action, "error", err)
	}
}
