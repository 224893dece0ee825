package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/deepweb1970/gestionchantier-sub001/core"
	"github.com/deepweb1970/gestionchantier-sub001/core/client"
)

type clientRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Kind      string    `db:"kind"`
	Email     string    `db:"email"`
	Phone     string    `db:"phone"`
	Address   string    `db:"address"`
	Siret     string    `db:"siret"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type clientRepository struct {
	crud[clientRow]
}

var _ client.Repository = (*clientRepository)(nil) // interface compliance check

func NewClientRepository(db sqlx.ExtContext) *clientRepository {
	return &clientRepository{crud[clientRow]{
		db:        db,
		table:     client.Collection,
		columns:   []string{"id", "name", "kind", "email", "phone", "address", "siret", "created_at", "updated_at"},
		orderable: []string{"name", "kind", "created_at"},
		notFound:  client.ErrNotFound,
	}}
}

func (repo clientRepository) values(c client.Client) map[string]interface{} {
	return map[string]interface{}{
		"id":         c.ID,
		"name":       c.Name,
		"kind":       c.Kind,
		"email":      c.Email,
		"phone":      c.Phone,
		"address":    c.Address,
		"siret":      c.Siret,
		"created_at": c.CreatedAt.UTC(),
		"updated_at": c.UpdatedAt.UTC(),
	}
}

func (repo clientRepository) unrow(r clientRow) client.Client {
	return client.Client{
		ID:        r.ID,
		Name:      r.Name,
		Kind:      r.Kind,
		Email:     r.Email,
		Phone:     r.Phone,
		Address:   r.Address,
		Siret:     r.Siret,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func (repo clientRepository) CreateClient(ctx context.Context, c client.Client) (client.Client, error) {
	c.ID = uuid.New().String()
	if err := repo.insert(ctx, repo.values(c)); err != nil {
		return client.Client{}, err
	}
	return c, nil
}

func (repo clientRepository) QueryClients(ctx context.Context, filter *client.QueryFilter, ordering []core.DBOrdering) ([]client.Client, error) {
	var where []sq.Sqlizer
	if filter != nil {
		if filter.Search != "" {
			where = append(where, search(filter.Search, "name", "email", "siret"))
		}
		if len(filter.Kinds) > 0 {
			where = append(where, sq.Eq{"kind": filter.Kinds})
		}
	}

	rows, err := repo.query(ctx, where, ordering, core.DBOrdering{Field: "name", Ascending: true})
	if err != nil {
		return nil, err
	}
	clients := make([]client.Client, 0, len(rows))
	for _, r := range rows {
		clients = append(clients, repo.unrow(r))
	}
	return clients, nil
}

func (repo clientRepository) GetClient(ctx context.Context, id string) (client.Client, error) {
	r, err := repo.get(ctx, id)
	if err != nil {
		return client.Client{}, err
	}
	return repo.unrow(r), nil
}

func (repo clientRepository) UpdateClient(ctx context.Context, c client.Client) (client.Client, error) {
	if err := repo.update(ctx, c.ID, repo.values(c)); err != nil {
		return client.Client{}, err
	}
	return c, nil
}

func (repo clientRepository) DeleteClientsByID(ctx context.Context, ids ...string) (int, error) {
	return repo.delete(ctx, ids...)
}
