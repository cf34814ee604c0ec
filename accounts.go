package accounts

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Accounts is the account lifecycle service: registration, email
// verification, credential authentication with lockout, session backed
// token issuance, and the cached profile read path.
type Accounts struct {
	config       Config
	repo         RepositoryManager
	hasher       PasswordHasher
	tokens       TokenService
	sessions     SessionStore
	profiles     *ProfileCache
	publisher    EventPublisher
	stateMachine UserStateMachine
	logger       Logger
	now          func() time.Time
	newToken     func() string
}

// Option customizes service construction
type Option func(*Accounts)

// WithLogger overrides the service logger
func WithLogger(logger Logger) Option {
	return func(a *Accounts) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithClock injects a custom clock (useful for tests)
func WithClock(clock func() time.Time) Option {
	return func(a *Accounts) {
		if clock != nil {
			a.now = clock
		}
	}
}

// WithEventPublisher sets the lifecycle event publisher
func WithEventPublisher(publisher EventPublisher) Option {
	return func(a *Accounts) {
		if publisher != nil {
			a.publisher = publisher
		}
	}
}

// WithSessionStore overrides the session store built from the cache
func WithSessionStore(sessions SessionStore) Option {
	return func(a *Accounts) {
		if sessions != nil {
			a.sessions = sessions
		}
	}
}

// WithStateMachine overrides the lifecycle state machine
func WithStateMachine(sm UserStateMachine) Option {
	return func(a *Accounts) {
		if sm != nil {
			a.stateMachine = sm
		}
	}
}

// WithVerificationTokenGenerator overrides verification token generation
func WithVerificationTokenGenerator(gen func() string) Option {
	return func(a *Accounts) {
		if gen != nil {
			a.newToken = gen
		}
	}
}

// New wires the accounts service. The cache backs both the session
// store and the profile read-through cache unless overridden.
func New(cfg Config, repo RepositoryManager, hasher PasswordHasher, tokens TokenService, cache Cache, opts ...Option) (*Accounts, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid accounts configuration")
	}

	a := &Accounts{
		config:    cfg,
		repo:      repo,
		hasher:    hasher,
		tokens:    tokens,
		publisher: NoopPublisher{},
		logger:    defLogger{},
		now:       time.Now,
		newToken:  func() string { return uuid.New().String() },
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	if a.sessions == nil {
		a.sessions = NewCacheSessionStore(cache, cfg.SessionTTL, WithSessionLogger(a.logger))
	}

	if a.stateMachine == nil {
		a.stateMachine = NewUserStateMachine(repo.Users(), WithStateMachineLogger(a.logger))
	}

	a.profiles = NewProfileCache(cache, func(ctx context.Context, userID int64) (*Profile, error) {
		user, err := repo.Users().FindByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		return user.Profile(), nil
	}, cfg.ProfileCacheTTL, WithProfileCacheLogger(a.logger))

	return a, nil
}

// RegisterPayload carries the registration request
type RegisterPayload struct {
	FullName    string     `json:"full_name"`
	Email       string     `json:"email"`
	Password    string     `json:"password"`
	Phone       string     `json:"phone,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
}

// Validate checks the structural shape of the payload. Domain rules
// like the password policy run inside Register with configured limits.
func (r RegisterPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.Required),
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// Created is the registration result
type Created struct {
	UserID  int64  `json:"user_id"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// LoginPayload carries the credential login request
type LoginPayload struct {
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Device   DeviceInfo `json:"device,omitempty"`
}

// Validate checks the structural shape of the payload
func (l LoginPayload) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Email, validation.Required),
		validation.Field(&l.Password, validation.Required),
	)
}

// LoginResult carries the issued tokens and the profile projection
type LoginResult struct {
	Tokens  *TokenPair `json:"tokens"`
	Profile *Profile   `json:"user"`
}

// Register creates a pending account. Validation runs in declaration
// order so callers get deterministic first-failure reporting, the
// password is hashed off the caller's goroutine, and the verification
// token travels only inside the user.registered event.
func (a *Accounts) Register(ctx context.Context, payload RegisterPayload) (*Created, error) {
	if err := payload.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload").
			WithCode(goerrors.CodeBadRequest)
	}

	email := normalizeEmail(payload.Email)

	if err := ValidateEmail(email); err != nil {
		return nil, err
	}

	// the email conflict is reported before the password policy runs;
	// the transaction re-checks uniqueness to close the race
	taken, err := a.repo.Users().ExistsByEmail(ctx, email)
	if err != nil {
		return nil, a.normalizeError(err, "user registration failed")
	}
	if taken {
		return nil, ErrEmailTaken
	}

	if err := ValidatePassword(payload.Password, a.config.MinPasswordLength); err != nil {
		return nil, err
	}
	if err := ValidateFullName(payload.FullName, a.config.MaxNameLength); err != nil {
		return nil, err
	}
	if payload.Phone != "" {
		if err := ValidatePhone(payload.Phone); err != nil {
			return nil, err
		}
	}
	if payload.DateOfBirth != nil {
		if err := ValidateAge(payload.DateOfBirth, a.config.MinimumAge, a.now()); err != nil {
			return nil, err
		}
	}

	hash, err := a.hasher.Hash(ctx, payload.Password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	firstName, lastName := SplitFullName(payload.FullName)
	username := UsernameFromEmail(email)

	now := a.now()
	tokenExpiry := now.Add(a.config.VerificationTokenTTL)

	user := &User{
		Role:                    RoleCustomer,
		FirstName:               firstName,
		LastName:                lastName,
		Username:                username,
		Email:                   email,
		Phone:                   payload.Phone,
		PasswordHash:            hash,
		DateOfBirth:             payload.DateOfBirth,
		Status:                  UserStatusPending,
		VerificationToken:       a.newToken(),
		VerificationTokenExpiry: &tokenExpiry,
	}

	err = a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		taken, err := a.repo.Users().ExistsByEmailTx(ctx, tx, email)
		if err != nil {
			return err
		}
		if taken {
			return ErrEmailTaken
		}

		taken, err = a.repo.Users().ExistsByUsernameTx(ctx, tx, username)
		if err != nil {
			return err
		}
		if taken {
			return ErrUsernameTaken
		}

		if payload.Phone != "" {
			taken, err = a.repo.Users().ExistsByPhoneTx(ctx, tx, payload.Phone)
			if err != nil {
				return err
			}
			if taken {
				return ErrPhoneTaken
			}
		}

		user, err = a.repo.Users().CreateTx(ctx, tx, user)
		return err
	})

	if err != nil {
		return nil, a.normalizeError(err, "user registration failed")
	}

	a.publishRegistered(ctx, user)

	return &Created{
		UserID:  user.ID,
		Email:   user.Email,
		Message: "registration successful, check your email to verify your account",
	}, nil
}

// VerifyEmail redeems a verification token. Tokens are single-use: the
// update clears them so a replay hits the not-found path.
func (a *Accounts) VerifyEmail(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrVerificationNotFound
	}

	err := a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := a.repo.Users().FindByVerificationTokenTx(ctx, tx, token)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrVerificationNotFound
			}
			return err
		}

		if user.IsVerified() {
			return ErrAlreadyVerified
		}

		now := a.now()
		if user.VerificationTokenExpiry == nil || now.After(*user.VerificationTokenExpiry) {
			return ErrVerificationExpired
		}

		user.EmailVerifiedAt = &now
		user.Status = UserStatusActive
		user.VerificationToken = ""
		user.VerificationTokenExpiry = nil

		_, err = a.repo.Users().UpdateTx(ctx, tx, user,
			"email_verified_at",
			"status",
			"verification_token",
			"verification_token_expiry",
		)
		return err
	})

	if err != nil {
		return a.normalizeError(err, "email verification failed")
	}

	return nil
}

// ResendVerification rotates the verification token, subject to the
// hourly resend cap. A resend window older than the configured interval
// resets the effective count before the limit check.
func (a *Accounts) ResendVerification(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)

	var token string

	err := a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := a.repo.Users().FindByEmailTx(ctx, tx, email)
		if err != nil {
			return err
		}

		if user.IsVerified() {
			return ErrAlreadyVerified
		}

		now := a.now()

		count := user.VerificationResendCount
		if user.LastVerificationResendAt == nil || now.Sub(*user.LastVerificationResendAt) >= a.config.VerificationResendWindow {
			count = 0
		}

		if count >= a.config.VerificationResendLimit {
			return ErrResendLimit.WithMetadata(map[string]any{
				"limit":  a.config.VerificationResendLimit,
				"window": a.config.VerificationResendWindow.String(),
			})
		}

		token = a.newToken()
		tokenExpiry := now.Add(a.config.VerificationTokenTTL)

		user.VerificationToken = token
		user.VerificationTokenExpiry = &tokenExpiry
		user.VerificationResendCount = count + 1
		user.LastVerificationResendAt = &now

		_, err = a.repo.Users().UpdateTx(ctx, tx, user,
			"verification_token",
			"verification_token_expiry",
			"verification_resend_count",
			"last_verification_resend_at",
		)
		if err != nil {
			return err
		}

		a.publishRegistered(ctx, user)
		return nil
	})

	if err != nil {
		return "", a.normalizeError(err, "verification resend failed")
	}

	return token, nil
}

// Login authenticates credentials. Misses and mismatches collapse into
// the same generic error so the endpoint cannot be used to probe which
// emails are registered. The failed attempt penalty is written in its
// own committed transaction so it survives the login failure.
func (a *Accounts) Login(ctx context.Context, payload LoginPayload) (*LoginResult, error) {
	if err := payload.Validate(); err != nil {
		return nil, ErrInvalidCredentials
	}

	email := normalizeEmail(payload.Email)

	var user *User
	var loginErr error

	err := a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		found, err := a.repo.Users().FindByEmailTx(ctx, tx, email)
		if err != nil {
			if goerrors.IsNotFound(err) {
				loginErr = ErrInvalidCredentials
				return nil
			}
			return err
		}

		now := a.now()

		if err := AccountMustNotBeLocked(found.AccountLockedUntil, now); err != nil {
			loginErr = err
			return nil
		}

		if !found.IsActive() {
			loginErr = ErrAccountInactive
			return nil
		}

		if err := a.hasher.Compare(ctx, payload.Password, found.PasswordHash); err != nil {
			if !goerrors.Is(err, ErrPasswordMismatch) {
				return err
			}

			decision := a.config.Lockout.OnFailedAttempt(found.FailedLoginAttempts, found.LastFailedLoginAt, now)
			if err := a.repo.Users().TrackFailedLoginTx(ctx, tx, found, decision); err != nil {
				return err
			}

			if decision.Locked {
				a.logger.Warn("account locked after repeated failed logins",
					"user_id", found.ID,
					"attempts", decision.Attempts,
				)
			}

			loginErr = ErrInvalidCredentials
			return nil
		}

		if err := a.repo.Users().TrackSuccessfulLoginTx(ctx, tx, found); err != nil {
			return err
		}

		user = found
		return nil
	})

	if err != nil {
		return nil, a.normalizeError(err, "login failed")
	}
	if loginErr != nil {
		return nil, loginErr
	}

	session, err := a.sessions.Create(ctx, user, payload.Device)
	if err != nil {
		return nil, a.normalizeError(err, "failed to create session")
	}

	pair, err := a.tokens.IssuePair(user.ID, session.SessionID)
	if err != nil {
		return nil, a.normalizeError(err, "failed to issue tokens")
	}

	a.publishLoggedIn(ctx, user, session.SessionID, payload.Device)

	return &LoginResult{
		Tokens:  pair,
		Profile: user.Profile(),
	}, nil
}

// Refresh exchanges a valid refresh token for a new pair. The session
// record must still exist, logout revokes it and invalidates every
// outstanding refresh token carrying that session id.
func (a *Accounts) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := a.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	session, err := a.sessions.Validate(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}

	user, err := a.repo.Users().FindByID(ctx, claims.UserID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrSessionRevoked
		}
		return nil, a.normalizeError(err, "refresh failed")
	}

	if !user.IsActive() {
		return nil, ErrAccountInactive
	}

	pair, err := a.tokens.IssuePair(user.ID, session.SessionID)
	if err != nil {
		return nil, a.normalizeError(err, "failed to issue tokens")
	}

	return &LoginResult{
		Tokens:  pair,
		Profile: user.Profile(),
	}, nil
}

// Logout revokes the session and evicts the cached profile. Both are
// idempotent, a second logout with the same session id is a no-op.
func (a *Accounts) Logout(ctx context.Context, userID int64, sessionID string) error {
	if err := a.sessions.Delete(ctx, sessionID); err != nil {
		return a.normalizeError(err, "logout failed")
	}

	a.profiles.Invalidate(ctx, userID)

	return nil
}

// GetProfile returns the profile projection through the read cache
func (a *Accounts) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	return a.profiles.Get(ctx, userID)
}

// UpdatePayload carries a partial account update. Nil fields are left
// untouched.
type UpdatePayload struct {
	FullName *string    `json:"full_name,omitempty"`
	Email    *string    `json:"email,omitempty"`
	Phone    *string    `json:"phone,omitempty"`
	Avatar   *string    `json:"avatar,omitempty"`
	DOB      *time.Time `json:"date_of_birth,omitempty"`
}

// UpdateUser applies a partial update and evicts the cached profile
func (a *Accounts) UpdateUser(ctx context.Context, userID int64, payload UpdatePayload) (*User, error) {
	var user *User

	err := a.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		found, err := a.repo.Users().FindByIDTx(ctx, tx, userID)
		if err != nil {
			return err
		}

		columns := []string{}

		if payload.FullName != nil {
			if err := ValidateFullName(*payload.FullName, a.config.MaxNameLength); err != nil {
				return err
			}
			found.FirstName, found.LastName = SplitFullName(*payload.FullName)
			columns = append(columns, "first_name", "last_name")
		}

		if payload.Email != nil {
			email := normalizeEmail(*payload.Email)
			if err := ValidateEmail(email); err != nil {
				return err
			}
			if email != found.Email {
				taken, err := a.repo.Users().ExistsByEmailTx(ctx, tx, email)
				if err != nil {
					return err
				}
				if taken {
					return ErrEmailTaken
				}
				found.Email = email
				columns = append(columns, "email")
			}
		}

		if payload.Phone != nil {
			if *payload.Phone != "" {
				if err := ValidatePhone(*payload.Phone); err != nil {
					return err
				}
				if *payload.Phone != found.Phone {
					taken, err := a.repo.Users().ExistsByPhoneTx(ctx, tx, *payload.Phone)
					if err != nil {
						return err
					}
					if taken {
						return ErrPhoneTaken
					}
				}
			}
			found.Phone = *payload.Phone
			columns = append(columns, "phone_number")
		}

		if payload.Avatar != nil {
			found.Avatar = *payload.Avatar
			columns = append(columns, "avatar")
		}

		if payload.DOB != nil {
			if err := ValidateAge(payload.DOB, a.config.MinimumAge, a.now()); err != nil {
				return err
			}
			found.DateOfBirth = payload.DOB
			columns = append(columns, "date_of_birth")
		}

		if len(columns) == 0 {
			user = found
			return nil
		}

		user, err = a.repo.Users().UpdateTx(ctx, tx, found, columns...)
		return err
	})

	if err != nil {
		return nil, a.normalizeError(err, "user update failed")
	}

	a.profiles.Invalidate(ctx, userID)

	return user, nil
}

// DeleteUser soft deletes the account and evicts the cached profile
func (a *Accounts) DeleteUser(ctx context.Context, userID int64) error {
	if err := a.repo.Users().SoftDelete(ctx, userID); err != nil {
		return a.normalizeError(err, "user delete failed")
	}

	a.profiles.Invalidate(ctx, userID)

	return nil
}

// Deactivate moves the account to inactive through the state machine
func (a *Accounts) Deactivate(ctx context.Context, actor ActorRef, userID int64, opts ...TransitionOption) (*User, error) {
	return a.transition(ctx, actor, userID, UserStatusInactive, opts...)
}

// Reinstate moves an inactive account back to active
func (a *Accounts) Reinstate(ctx context.Context, actor ActorRef, userID int64, opts ...TransitionOption) (*User, error) {
	return a.transition(ctx, actor, userID, UserStatusActive, opts...)
}

func (a *Accounts) transition(ctx context.Context, actor ActorRef, userID int64, target UserStatus, opts ...TransitionOption) (*User, error) {
	user, err := a.repo.Users().FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user, err = a.stateMachine.Transition(ctx, actor, user, target, opts...)
	if err != nil {
		return nil, err
	}

	a.profiles.Invalidate(ctx, userID)

	return user, nil
}

func (a *Accounts) publishRegistered(ctx context.Context, user *User) {
	createdAt := a.now()
	if user.CreatedAt != nil {
		createdAt = *user.CreatedAt
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.PublishTimeout)
	defer cancel()

	err := a.publisher.PublishUserRegistered(ctx, UserRegisteredEvent{
		UserID:            user.ID,
		Email:             user.Email,
		DisplayName:       user.DisplayName(),
		VerificationToken: user.VerificationToken,
		CreatedAt:         createdAt,
	})
	if err != nil {
		a.logger.Error("failed to publish user.registered event", "user_id", user.ID, "error", err)
	}
}

func (a *Accounts) publishLoggedIn(ctx context.Context, user *User, sessionID string, device DeviceInfo) {
	var deviceInfo *DeviceInfo
	if device != (DeviceInfo{}) {
		deviceInfo = &device
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.PublishTimeout)
	defer cancel()

	err := a.publisher.PublishUserLoggedIn(ctx, UserLoggedInEvent{
		UserID:     user.ID,
		Email:      user.Email,
		SessionID:  sessionID,
		DeviceInfo: deviceInfo,
		OccurredAt: a.now(),
	})
	if err != nil {
		a.logger.Error("failed to publish user.logged_in event", "user_id", user.ID, "error", err)
	}
}

// normalizeError passes rich errors through untouched and wraps
// everything else as internal.
func (a *Accounts) normalizeError(err error, msg string) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, msg)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
