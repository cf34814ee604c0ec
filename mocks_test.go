package accounts_test

import (
	"context"
	"errors"
	"sync"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// capturePublisher records published lifecycle events
type capturePublisher struct {
	mu          sync.Mutex
	registered  []accounts.UserRegisteredEvent
	loggedIn    []accounts.UserLoggedInEvent
	failWith    error
	sawDeadline bool
}

func (p *capturePublisher) PublishUserRegistered(ctx context.Context, event accounts.UserRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := ctx.Deadline(); ok {
		p.sawDeadline = true
	}
	if p.failWith != nil {
		return p.failWith
	}
	p.registered = append(p.registered, event)
	return nil
}

func (p *capturePublisher) PublishUserLoggedIn(ctx context.Context, event accounts.UserLoggedInEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := ctx.Deadline(); ok {
		p.sawDeadline = true
	}
	if p.failWith != nil {
		return p.failWith
	}
	p.loggedIn = append(p.loggedIn, event)
	return nil
}

func (p *capturePublisher) SawDeadline() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sawDeadline
}

func (p *capturePublisher) Registered() []accounts.UserRegisteredEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]accounts.UserRegisteredEvent{}, p.registered...)
}

func (p *capturePublisher) LoggedIn() []accounts.UserLoggedInEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]accounts.UserLoggedInEvent{}, p.loggedIn...)
}

// failingCache errors on every operation, for fail-open paths
type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("cache unavailable")
}

func (failingCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("cache unavailable")
}

func (failingCache) Delete(context.Context, string) (bool, error) {
	return false, errors.New("cache unavailable")
}

// MockHasher implements accounts.PasswordHasher
type MockHasher struct {
	mock.Mock
}

func (m *MockHasher) Hash(ctx context.Context, password string) (string, error) {
	args := m.Called(ctx, password)
	return args.String(0), args.Error(1)
}

func (m *MockHasher) Compare(ctx context.Context, password, encodedHash string) error {
	args := m.Called(ctx, password, encodedHash)
	return args.Error(0)
}

// MockSessionStore implements accounts.SessionStore
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Create(ctx context.Context, user *accounts.User, device accounts.DeviceInfo) (*accounts.SessionRecord, error) {
	args := m.Called(ctx, user, device)
	record, _ := args.Get(0).(*accounts.SessionRecord)
	return record, args.Error(1)
}

func (m *MockSessionStore) Validate(ctx context.Context, sessionID string) (*accounts.SessionRecord, error) {
	args := m.Called(ctx, sessionID)
	record, _ := args.Get(0).(*accounts.SessionRecord)
	return record, args.Error(1)
}

func (m *MockSessionStore) Delete(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// MockUsers implements accounts.Users
type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) FindByID(ctx context.Context, id int64) (*accounts.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) FindByIDTx(ctx context.Context, tx bun.IDB, id int64) (*accounts.User, error) {
	args := m.Called(ctx, tx, id)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) FindByEmail(ctx context.Context, email string) (*accounts.User, error) {
	args := m.Called(ctx, email)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*accounts.User, error) {
	args := m.Called(ctx, tx, email)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) FindByVerificationToken(ctx context.Context, token string) (*accounts.User, error) {
	args := m.Called(ctx, token)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) FindByVerificationTokenTx(ctx context.Context, tx bun.IDB, token string) (*accounts.User, error) {
	args := m.Called(ctx, tx, token)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) ExistsByEmailTx(ctx context.Context, tx bun.IDB, email string) (bool, error) {
	args := m.Called(ctx, tx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) ExistsByUsernameTx(ctx context.Context, tx bun.IDB, username string) (bool, error) {
	args := m.Called(ctx, tx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) ExistsByPhone(ctx context.Context, phone string) (bool, error) {
	args := m.Called(ctx, phone)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) ExistsByPhoneTx(ctx context.Context, tx bun.IDB, phone string) (bool, error) {
	args := m.Called(ctx, tx, phone)
	return args.Bool(0), args.Error(1)
}

func (m *MockUsers) Create(ctx context.Context, record *accounts.User) (*accounts.User, error) {
	args := m.Called(ctx, record)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *accounts.User) (*accounts.User, error) {
	args := m.Called(ctx, tx, record)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) Update(ctx context.Context, record *accounts.User, columns ...string) (*accounts.User, error) {
	args := m.Called(ctx, record, columns)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) UpdateTx(ctx context.Context, tx bun.IDB, record *accounts.User, columns ...string) (*accounts.User, error) {
	args := m.Called(ctx, tx, record, columns)
	user, _ := args.Get(0).(*accounts.User)
	return user, args.Error(1)
}

func (m *MockUsers) UpdateStatus(ctx context.Context, id int64, status accounts.UserStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockUsers) UpdateStatusTx(ctx context.Context, tx bun.IDB, id int64, status accounts.UserStatus) error {
	args := m.Called(ctx, tx, id, status)
	return args.Error(0)
}

func (m *MockUsers) TrackFailedLogin(ctx context.Context, user *accounts.User, decision accounts.LockDecision) error {
	args := m.Called(ctx, user, decision)
	return args.Error(0)
}

func (m *MockUsers) TrackFailedLoginTx(ctx context.Context, tx bun.IDB, user *accounts.User, decision accounts.LockDecision) error {
	args := m.Called(ctx, tx, user, decision)
	return args.Error(0)
}

func (m *MockUsers) TrackSuccessfulLogin(ctx context.Context, user *accounts.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUsers) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *accounts.User) error {
	args := m.Called(ctx, tx, user)
	return args.Error(0)
}

func (m *MockUsers) List(ctx context.Context, limit, offset int) ([]*accounts.User, int, error) {
	args := m.Called(ctx, limit, offset)
	users, _ := args.Get(0).([]*accounts.User)
	return users, args.Int(1), args.Error(2)
}

func (m *MockUsers) SoftDelete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUsers) SoftDeleteTx(ctx context.Context, tx bun.IDB, id int64) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}
