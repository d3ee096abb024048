package jobs

import (
	"context"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the identity repository surface the services depend on.
type Users interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	GetByVerificationKey(ctx context.Context, key string) (*User, error)
	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	Update(ctx context.Context, user *User) (*User, error)
	UpdateTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	StoreTokensTx(ctx context.Context, tx bun.IDB, id uuid.UUID, authToken, rememberMeToken *string) error
	ClearTokensTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var _ Users = (*users)(nil)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Relation("Role").
		Where("?TableAlias.email = ?", strings.TrimSpace(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"identifier": email})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Relation("Role").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"identifier": id.String()})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) GetByVerificationKey(ctx context.Context, key string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Relation("Role").
		Where("?TableAlias.email_verification_key = ?", key).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound()
		}
		return nil, err
	}

	return record, nil
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	prepareUserDefaults(user)
	return a.Repository.CreateTx(ctx, tx, user)
}

func (a *users) Update(ctx context.Context, user *User) (*User, error) {
	return a.UpdateTx(ctx, a.db, user)
}

func (a *users) UpdateTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	return a.Repository.UpdateTx(ctx, tx, user, repository.UpdateByID(user.ID.String()))
}

// StoreTokensTx replaces the stored credential pair in one statement.
func (a *users) StoreTokensTx(ctx context.Context, tx bun.IDB, id uuid.UUID, authToken, rememberMeToken *string) error {
	_, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("auth_token = ?", authToken).
		Set("remember_me_token = ?", rememberMeToken).
		Where("id = ?", id).
		Exec(ctx)

	return err
}

// ClearTokensTx drops both stored tokens together; called on every
// authentication failure and on explicit revoke.
func (a *users) ClearTokensTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("auth_token = NULL").
		Set("remember_me_token = NULL").
		Where("id = ?", id).
		Exec(ctx)

	return err
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
