package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/user"
)

type userRepository struct {
	db *table[user.User]
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db.users}
}

var userFields = map[string]comparer[user.User]{
	"name":       func(a, b user.User) int { return compareStrings(a.Name, b.Name) },
	"username":   func(a, b user.User) int { return compareStrings(a.Username, b.Username) },
	"email":      func(a, b user.User) int { return compareStrings(a.Email, b.Email) },
	"role":       func(a, b user.User) int { return user.RolePriority(a.Role) - user.RolePriority(b.Role) },
	"created_at": func(a, b user.User) int { return compareTimes(a.CreatedAt, b.CreatedAt) },
	"last_login": func(a, b user.User) int { return compareTimes(a.LastLogin, b.LastLogin) },
}

func (repo *userRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excludedUsers ...user.User) error {
	excluded := make(map[string]bool, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded[u.ID] = true
	}
	matches := repo.db.filter(func(usr user.User) bool {
		if excluded[usr.ID] {
			return false
		}
		return (username != "" && usr.Username == username) || (email != "" && usr.Email == email)
	})
	if len(matches) > 0 {
		return user.ErrUserExists
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	usr.ID = uuid.New().String()
	repo.db.insert(ctx, usr.ID, usr)
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	users := repo.db.filter(func(usr user.User) bool {
		if filter == nil {
			return true
		}
		if filter.Search != "" && !contains(filter.Search, usr.Name, usr.Username, usr.Email) {
			return false
		}
		if len(filter.Roles) > 0 && !in(usr.Role, filter.Roles) {
			return false
		}
		if filter.IsActive != nil && usr.Active() != *filter.IsActive {
			return false
		}
		if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom) {
			return false
		}
		if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo) {
			return false
		}
		return true
	})
	sortRows(users, ordering, userFields, byCreatedAtDesc...)
	return users, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	if filter.ID != "" {
		if usr, ok := repo.db.get(filter.ID); ok {
			return usr, nil
		}
		return user.User{}, user.ErrNotFound
	}

	var match func(user.User) bool
	switch {
	case filter.Username != "":
		match = func(usr user.User) bool { return usr.Username == filter.Username }
	case filter.Email != "":
		match = func(usr user.User) bool { return usr.Email == filter.Email }
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
		match = func(usr user.User) bool {
			return (usr.Username != "" && usr.Username == uname) || (usr.Email != "" && usr.Email == email)
		}
	default:
		return user.User{}, user.ErrNotFound
	}

	if users := repo.db.filter(match); len(users) > 0 {
		return users[0], nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	if !repo.db.update(ctx, usr.ID, usr) {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr)
	}
	return repo.UpdateUser(ctx, usr)
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids ...string) (int, error) {
	return repo.db.delete(ctx, ids...), nil
}
