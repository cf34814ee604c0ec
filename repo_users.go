package accounts

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// Users is the persistence surface for accounts. Every lookup and
// mutation has a Tx variant so callers can compose them inside a
// transaction, the plain variants run against the root DB handle.
type Users interface {
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByIDTx(ctx context.Context, tx bun.IDB, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	FindByVerificationToken(ctx context.Context, token string) (*User, error)
	FindByVerificationTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error)

	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByEmailTx(ctx context.Context, tx bun.IDB, email string) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByUsernameTx(ctx context.Context, tx bun.IDB, username string) (bool, error)
	ExistsByPhone(ctx context.Context, phone string) (bool, error)
	ExistsByPhoneTx(ctx context.Context, tx bun.IDB, phone string) (bool, error)

	Create(ctx context.Context, record *User) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)
	Update(ctx context.Context, record *User, columns ...string) (*User, error)
	UpdateTx(ctx context.Context, tx bun.IDB, record *User, columns ...string) (*User, error)
	UpdateStatus(ctx context.Context, id int64, status UserStatus) error
	UpdateStatusTx(ctx context.Context, tx bun.IDB, id int64, status UserStatus) error

	TrackFailedLogin(ctx context.Context, user *User, decision LockDecision) error
	TrackFailedLoginTx(ctx context.Context, tx bun.IDB, user *User, decision LockDecision) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error

	List(ctx context.Context, limit, offset int) ([]*User, int, error)
	SoftDelete(ctx context.Context, id int64) error
	SoftDeleteTx(ctx context.Context, tx bun.IDB, id int64) error
}

type users struct {
	db  *bun.DB
	now func() time.Time
}

var _ Users = (*users)(nil)

// UsersOption customizes repository construction
type UsersOption func(*users)

// WithUsersClock injects a custom clock for mutation timestamps
func WithUsersClock(clock func() time.Time) UsersOption {
	return func(u *users) {
		if clock != nil {
			u.now = clock
		}
	}
}

func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := &users{
		db:  db,
		now: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo
}

func (a *users) FindByID(ctx context.Context, id int64) (*User, error) {
	return a.FindByIDTx(ctx, a.db, id)
}

func (a *users) FindByIDTx(ctx context.Context, tx bun.IDB, id int64) (*User, error) {
	return a.findOne(ctx, tx, "id", id)
}

func (a *users) FindByEmail(ctx context.Context, email string) (*User, error) {
	return a.FindByEmailTx(ctx, a.db, email)
}

func (a *users) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	return a.findOne(ctx, tx, "email", email)
}

func (a *users) FindByVerificationToken(ctx context.Context, token string) (*User, error) {
	return a.FindByVerificationTokenTx(ctx, a.db, token)
}

func (a *users) FindByVerificationTokenTx(ctx context.Context, tx bun.IDB, token string) (*User, error) {
	return a.findOne(ctx, tx, "verification_token", token)
}

func (a *users) findOne(ctx context.Context, tx bun.IDB, column string, value any) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias."+column+" = ?", value).
		Where("?TableAlias.is_deleted = ?", false).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if goerrors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound.WithMetadata(map[string]any{
				column: value,
			})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to query user")
	}

	return record, nil
}

func (a *users) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return a.ExistsByEmailTx(ctx, a.db, email)
}

func (a *users) ExistsByEmailTx(ctx context.Context, tx bun.IDB, email string) (bool, error) {
	return a.exists(ctx, tx, "email", email)
}

func (a *users) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return a.ExistsByUsernameTx(ctx, a.db, username)
}

func (a *users) ExistsByUsernameTx(ctx context.Context, tx bun.IDB, username string) (bool, error) {
	return a.exists(ctx, tx, "username", username)
}

func (a *users) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	return a.ExistsByPhoneTx(ctx, a.db, phone)
}

func (a *users) ExistsByPhoneTx(ctx context.Context, tx bun.IDB, phone string) (bool, error) {
	return a.exists(ctx, tx, "phone_number", phone)
}

func (a *users) exists(ctx context.Context, tx bun.IDB, column string, value any) (bool, error) {
	exists, err := tx.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias."+column+" = ?", value).
		Where("?TableAlias.is_deleted = ?", false).
		Exists(ctx)

	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check user existence")
	}

	return exists, nil
}

func (a *users) Create(ctx context.Context, record *User) (*User, error) {
	return a.CreateTx(ctx, a.db, record)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	prepareUserDefaults(record, a.now())

	_, err := tx.NewInsert().
		Model(record).
		Returning("*").
		Exec(ctx)

	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create user")
	}

	return record, nil
}

func (a *users) Update(ctx context.Context, record *User, columns ...string) (*User, error) {
	return a.UpdateTx(ctx, a.db, record, columns...)
}

func (a *users) UpdateTx(ctx context.Context, tx bun.IDB, record *User, columns ...string) (*User, error) {
	now := a.now()
	record.UpdatedAt = &now

	q := tx.NewUpdate().
		Model(record).
		WherePK().
		Returning("*")

	if len(columns) > 0 {
		q = q.Column(append(columns, "updated_at")...)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user")
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, ErrAccountNotFound.WithMetadata(map[string]any{
			"id": record.ID,
		})
	}

	return record, nil
}

func (a *users) UpdateStatus(ctx context.Context, id int64, status UserStatus) error {
	return a.UpdateStatusTx(ctx, a.db, id, status)
}

func (a *users) UpdateStatusTx(ctx context.Context, tx bun.IDB, id int64, status UserStatus) error {
	res, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", a.now()).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.is_deleted = ?", false).
		Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user status")
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrAccountNotFound.WithMetadata(map[string]any{"id": id})
	}

	return nil
}

func (a *users) TrackFailedLogin(ctx context.Context, user *User, decision LockDecision) error {
	return a.TrackFailedLoginTx(ctx, a.db, user, decision)
}

// TrackFailedLoginTx persists the failed attempt counter and, when the
// decision carries a lock, the lock expiry. Raw SQL so a nil lock expiry
// actually clears the column instead of being skipped as a zero value.
func (a *users) TrackFailedLoginTx(ctx context.Context, tx bun.IDB, user *User, decision LockDecision) error {
	now := a.now()
	_, err := tx.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"failed_login_attempts" = ?,
			"last_failed_login_at" = ?,
			"account_locked_until" = ?,
			"updated_at" = ?
		WHERE
			("usr".id = ?)
			AND "usr"."is_deleted" = FALSE;
	`, decision.Attempts, now, decision.LockedUntil, now, user.ID).Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record login attempt")
	}

	user.FailedLoginAttempts = decision.Attempts
	user.LastFailedLoginAt = &now
	user.AccountLockedUntil = decision.LockedUntil

	return nil
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, user)
}

func (a *users) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	now := a.now()
	_, err := tx.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"last_login_at" = ?,
			"failed_login_attempts" = 0,
			"last_failed_login_at" = NULL,
			"account_locked_until" = NULL,
			"updated_at" = ?
		WHERE
			("usr".id = ?)
			AND "usr"."is_deleted" = FALSE;
	`, now, now, user.ID).Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record successful login")
	}

	user.LastLoginAt = &now
	user.FailedLoginAttempts = 0
	user.LastFailedLoginAt = nil
	user.AccountLockedUntil = nil

	return nil
}

func (a *users) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	records := []*User{}

	total, err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.is_deleted = ?", false).
		Order("usr.id ASC").
		Limit(limit).
		Offset(offset).
		ScanAndCount(ctx)

	if err != nil {
		return nil, 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list users")
	}

	return records, total, nil
}

func (a *users) SoftDelete(ctx context.Context, id int64) error {
	return a.SoftDeleteTx(ctx, a.db, id)
}

func (a *users) SoftDeleteTx(ctx context.Context, tx bun.IDB, id int64) error {
	now := a.now()
	res, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("is_deleted = ?", true).
		Set("status = ?", UserStatusInactive).
		Set("deleted_at = ?", now).
		Set("updated_at = ?", now).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.is_deleted = ?", false).
		Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete user")
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrAccountNotFound.WithMetadata(map[string]any{"id": id})
	}

	return nil
}

func prepareUserDefaults(record *User, now time.Time) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleCustomer
	}

	record.EnsureStatus()

	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}
	if record.UpdatedAt == nil {
		record.UpdatedAt = &now
	}
}
