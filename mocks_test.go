package jobs_test

import (
	"context"
	"database/sql"

	jobs "github.com/goliatone/go-jobs"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// testLogger swallows log output so test runs stay quiet.
type testLogger struct{}

func (testLogger) Debug(format string, args ...any) {}
func (testLogger) Info(format string, args ...any)  {}
func (testLogger) Warn(format string, args ...any)  {}
func (testLogger) Error(format string, args ...any) {}

// MockRepositoryManager implements jobs.RepositoryManager. RunInTx executes
// the callback directly so service flows run against the mocked
// repositories.
type MockRepositoryManager struct {
	mock.Mock
	MockUsers *MockUsers
	MockJobs  *MockJobs
	MockRoles *MockRoles
}

func NewMockRepositoryManager() *MockRepositoryManager {
	return &MockRepositoryManager{
		MockUsers: &MockUsers{},
		MockJobs:  &MockJobs{},
		MockRoles: &MockRoles{},
	}
}

func (m *MockRepositoryManager) Validate() error { return nil }

func (m *MockRepositoryManager) MustValidate() {}

func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) Users() jobs.Users { return m.MockUsers }

func (m *MockRepositoryManager) Jobs() jobs.Jobs { return m.MockJobs }

func (m *MockRepositoryManager) Roles() jobs.Roles { return m.MockRoles }

// MockUsers implements jobs.Users
type MockUsers struct {
	mock.Mock
}

func userArg(args mock.Arguments, i int) *jobs.User {
	if u, ok := args.Get(i).(*jobs.User); ok {
		return u
	}
	return nil
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*jobs.User, error) {
	args := m.Called(ctx, email)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*jobs.User, error) {
	args := m.Called(ctx, tx, email)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUsers) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*jobs.User, error) {
	args := m.Called(ctx, tx, id)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUsers) GetByVerificationKey(ctx context.Context, key string) (*jobs.User, error) {
	args := m.Called(ctx, key)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUsers) Register(ctx context.Context, user *jobs.User) (*jobs.User, error) {
	args := m.Called(ctx, user)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUsers) RegisterTx(ctx context.Context, tx bun.IDB, user *jobs.User) (*jobs.User, error) {
	args := m.Called(ctx, tx, user)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUsers) Update(ctx context.Context, user *jobs.User) (*jobs.User, error) {
	args := m.Called(ctx, user)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUsers) UpdateTx(ctx context.Context, tx bun.IDB, user *jobs.User) (*jobs.User, error) {
	args := m.Called(ctx, tx, user)
	return userArg(args, 0), args.Error(1)
}

func (m *MockUsers) StoreTokensTx(ctx context.Context, tx bun.IDB, id uuid.UUID, authToken, rememberMeToken *string) error {
	args := m.Called(ctx, tx, id, authToken, rememberMeToken)
	return args.Error(0)
}

func (m *MockUsers) ClearTokensTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

// MockJobs implements jobs.Jobs
type MockJobs struct {
	mock.Mock
}

func jobArg(args mock.Arguments, i int) *jobs.Job {
	if j, ok := args.Get(i).(*jobs.Job); ok {
		return j
	}
	return nil
}

func (m *MockJobs) CreateTx(ctx context.Context, tx bun.IDB, job *jobs.Job) (*jobs.Job, error) {
	args := m.Called(ctx, tx, job)
	return jobArg(args, 0), args.Error(1)
}

func (m *MockJobs) FindOwned(ctx context.Context, id uuid.UUID, p *jobs.Principal) (*jobs.Job, error) {
	args := m.Called(ctx, id, p)
	return jobArg(args, 0), args.Error(1)
}

func (m *MockJobs) FindOwnedTx(ctx context.Context, tx bun.IDB, id uuid.UUID, p *jobs.Principal) (*jobs.Job, error) {
	args := m.Called(ctx, tx, id, p)
	return jobArg(args, 0), args.Error(1)
}

func (m *MockJobs) CurrentOfferStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (jobs.OfferStatus, error) {
	args := m.Called(ctx, tx, id)
	return args.Get(0).(jobs.OfferStatus), args.Error(1)
}

func (m *MockJobs) UpdateTx(ctx context.Context, tx bun.IDB, job *jobs.Job) (*jobs.Job, error) {
	args := m.Called(ctx, tx, job)
	return jobArg(args, 0), args.Error(1)
}

func (m *MockJobs) DeleteTx(ctx context.Context, tx bun.IDB, job *jobs.Job) error {
	args := m.Called(ctx, tx, job)
	return args.Error(0)
}

func (m *MockJobs) AppendStatusEventTx(ctx context.Context, tx bun.IDB, event *jobs.StatusEvent) error {
	args := m.Called(ctx, tx, event)
	return args.Error(0)
}

func (m *MockJobs) Search(ctx context.Context, p *jobs.Principal, filter jobs.JobSearchFilter, page, size int) (*jobs.JobPage, error) {
	args := m.Called(ctx, p, filter, page, size)
	if page, ok := args.Get(0).(*jobs.JobPage); ok {
		return page, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockJobs) StatusCounts(ctx context.Context, p *jobs.Principal) (map[jobs.OfferStatus]int64, error) {
	args := m.Called(ctx, p)
	if counts, ok := args.Get(0).(map[jobs.OfferStatus]int64); ok {
		return counts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockJobs) CountByOfferStatus(ctx context.Context, p *jobs.Principal, status jobs.OfferStatus) (int64, error) {
	args := m.Called(ctx, p, status)
	return args.Get(0).(int64), args.Error(1)
}

// MockRoles implements jobs.Roles
type MockRoles struct {
	mock.Mock
}

func roleArg(args mock.Arguments, i int) *jobs.Role {
	if r, ok := args.Get(i).(*jobs.Role); ok {
		return r
	}
	return nil
}

func (m *MockRoles) GetByName(ctx context.Context, name string) (*jobs.Role, error) {
	args := m.Called(ctx, name)
	return roleArg(args, 0), args.Error(1)
}

func (m *MockRoles) GetByNameTx(ctx context.Context, tx bun.IDB, name string) (*jobs.Role, error) {
	args := m.Called(ctx, tx, name)
	return roleArg(args, 0), args.Error(1)
}

// MockMailer implements jobs.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendMail(ctx context.Context, msg jobs.Email) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}
