package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/user"
)

type userRow struct {
	ID           string      `db:"id"`
	Name         string      `db:"name"`
	Username     null.String `db:"username"`
	Email        null.String `db:"email"`
	Role         string      `db:"role"`
	IsActive     null.Bool   `db:"is_active"`
	PasswordHash null.Bytes  `db:"password_hash"`
	CreatedAt    time.Time   `db:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at"`
	LastLogin    null.Time   `db:"last_login"`
}

type userRepository struct {
	crud[userRow]
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db sqlx.ExtContext) *userRepository {
	return &userRepository{crud[userRow]{
		db:    db,
		table: user.Collection,
		columns: []string{
			"id", "name", "username", "email", "role", "is_active", "password_hash", "created_at", "updated_at", "last_login",
		},
		orderable: []string{"name", "username", "email", "role", "created_at", "last_login"},
		notFound:  user.ErrNotFound,
	}}
}

func (repo userRepository) values(usr user.User) map[string]interface{} {
	return map[string]interface{}{
		"id":            usr.ID,
		"name":          usr.Name,
		"username":      null.NewString(usr.Username, usr.Username != ""),
		"email":         null.NewString(usr.Email, usr.Email != ""),
		"role":          usr.Role,
		"is_active":     null.BoolFromPtr(usr.IsActive),
		"password_hash": null.BytesFrom(usr.PasswordHash),
		"created_at":    usr.CreatedAt.UTC(),
		"updated_at":    usr.UpdatedAt.UTC(),
		"last_login":    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) unrow(r userRow) user.User {
	return user.User{
		ID:           r.ID,
		Name:         r.Name,
		Username:     r.Username.String,
		Email:        r.Email.String,
		Role:         r.Role,
		IsActive:     r.IsActive.Ptr(),
		PasswordHash: r.PasswordHash.Bytes,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
		LastLogin:    r.LastLogin.Time.UTC(),
	}
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	or := sq.Or{}
	if username != "" {
		or = append(or, sq.Eq{"username": username})
	}
	if email != "" {
		or = append(or, sq.Eq{"email": email})
	}
	if len(or) == 0 {
		return nil
	}

	builder := psql.Select("COUNT(*)").From(repo.table).Where(or)
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		builder = builder.Where(sq.NotEq{"id": ids})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}

	var cnt int
	if err = sqlx.GetContext(ctx, repo.db, &cnt, query, args...); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	if cnt > 0 {
		return user.ErrUserExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	if err := repo.insert(ctx, repo.values(usr)); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var where []sq.Sqlizer
	if filter != nil {
		if filter.Search != "" {
			where = append(where, search(filter.Search, "name", "username", "email"))
		}
		if len(filter.Roles) > 0 {
			where = append(where, sq.Eq{"role": filter.Roles})
		}
		if filter.IsActive != nil {
			if *filter.IsActive {
				where = append(where, sq.Eq{"is_active": true})
			} else {
				where = append(where, sq.Or{sq.Eq{"is_active": false}, sq.Eq{"is_active": nil}})
			}
		}
		if !filter.CreatedFrom.IsZero() {
			where = append(where, sq.GtOrEq{"created_at": filter.CreatedFrom.UTC()})
		}
		if !filter.CreatedTo.IsZero() {
			where = append(where, sq.LtOrEq{"created_at": filter.CreatedTo.UTC()})
		}
	}

	rows, err := repo.query(ctx, where, ordering, core.DBOrdering{Field: "created_at"})
	if err != nil {
		return nil, err
	}
	users := make([]user.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, repo.unrow(r))
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var (
		r   userRow
		err error
	)
	switch {
	case filter.ID != "":
		r, err = repo.get(ctx, filter.ID)
	case filter.Username != "":
		r, err = repo.getWhere(ctx, sq.Eq{"username": filter.Username})
	case filter.Email != "":
		r, err = repo.getWhere(ctx, sq.Eq{"email": filter.Email})
	case len(filter.UsernameOrEmail) > 0:
		uname, email := filter.UsernameOrEmail[0], filter.UsernameOrEmail[0]
		if len(filter.UsernameOrEmail) == 2 && filter.UsernameOrEmail[1] != "" {
			email = filter.UsernameOrEmail[1]
			if uname == "" {
				uname = email
			}
		}
		if uname == "" {
			return user.User{}, user.ErrNotFound
		}
		r, err = repo.getWhere(ctx, sq.Or{sq.Eq{"username": uname}, sq.Eq{"email": email}})
	default:
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, err
	}
	return repo.unrow(r), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	if err := repo.update(ctx, usr.ID, repo.values(usr)); err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr)
	}
	return repo.UpdateUser(ctx, usr)
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	return repo.delete(ctx, ids...)
}
