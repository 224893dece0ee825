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
	"github.com/deepweb1970/gestionchantier-sub001/core/facture"
)

const factureSequencesTable = "facture_sequences"

type factureRow struct {
	ID         string    `db:"id"`
	Number     string    `db:"number"`
	ClientID   string    `db:"client_id"`
	ChantierID string    `db:"chantier_id"`
	IssueDate  time.Time `db:"issue_date"`
	DueDate    time.Time `db:"due_date"`
	AmountHT   float64   `db:"amount_ht"`
	VATRate    float64   `db:"vat_rate"`
	Status     string    `db:"status"`
	SentAt     null.Time `db:"sent_at"`
	PaidAt     null.Time `db:"paid_at"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

type factureRepository struct {
	crud[factureRow]
}

var _ facture.Repository = (*factureRepository)(nil) // interface compliance check

func NewFactureRepository(db sqlx.ExtContext) *factureRepository {
	return &factureRepository{crud[factureRow]{
		db:    db,
		table: facture.Collection,
		columns: []string{
			"id", "number", "client_id", "chantier_id", "issue_date", "due_date", "amount_ht", "vat_rate", "status",
			"sent_at", "paid_at", "created_at", "updated_at",
		},
		orderable: []string{"number", "issue_date", "due_date", "amount_ht", "status", "created_at"},
		notFound:  facture.ErrNotFound,
	}}
}

func (repo factureRepository) values(f facture.Facture) map[string]interface{} {
	return map[string]interface{}{
		"id":          f.ID,
		"number":      f.Number,
		"client_id":   f.ClientID,
		"chantier_id": f.ChantierID,
		"issue_date":  f.IssueDate.UTC(),
		"due_date":    f.DueDate.UTC(),
		"amount_ht":   f.AmountHT,
		"vat_rate":    f.VATRate,
		"status":      f.Status,
		"sent_at":     null.TimeFromPtr(f.SentAt),
		"paid_at":     null.TimeFromPtr(f.PaidAt),
		"created_at":  f.CreatedAt.UTC(),
		"updated_at":  f.UpdatedAt.UTC(),
	}
}

func (repo factureRepository) unrow(r factureRow) facture.Facture {
	return facture.Facture{
		ID:         r.ID,
		Number:     r.Number,
		ClientID:   r.ClientID,
		ChantierID: r.ChantierID,
		IssueDate:  r.IssueDate.UTC(),
		DueDate:    r.DueDate.UTC(),
		AmountHT:   r.AmountHT,
		VATRate:    r.VATRate,
		Status:     r.Status,
		SentAt:     utcPtr(r.SentAt),
		PaidAt:     utcPtr(r.PaidAt),
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

func (repo factureRepository) CreateFacture(ctx context.Context, f facture.Facture) (facture.Facture, error) {
	f.ID = uuid.New().String()
	if err := repo.insert(ctx, repo.values(f)); err != nil {
		return facture.Facture{}, err
	}
	return f, nil
}

func (repo factureRepository) QueryFactures(ctx context.Context, filter *facture.QueryFilter, ordering []core.DBOrdering) ([]facture.Facture, error) {
	var where []sq.Sqlizer
	if filter != nil {
		if filter.Search != "" {
			where = append(where, search(filter.Search, "number"))
		}
		if len(filter.Statuses) > 0 {
			where = append(where, sq.Eq{"status": filter.Statuses})
		}
		if filter.ClientID != "" {
			where = append(where, sq.Eq{"client_id": filter.ClientID})
		}
		if filter.ChantierID != "" {
			where = append(where, sq.Eq{"chantier_id": filter.ChantierID})
		}
		if !filter.DueBefore.IsZero() {
			where = append(where, sq.Lt{"due_date": filter.DueBefore.UTC()})
		}
	}

	rows, err := repo.query(ctx, where, ordering, core.DBOrdering{Field: "number"})
	if err != nil {
		return nil, err
	}
	list := make([]facture.Facture, 0, len(rows))
	for _, r := range rows {
		list = append(list, repo.unrow(r))
	}
	return list, nil
}

func (repo factureRepository) GetFacture(ctx context.Context, id string) (facture.Facture, error) {
	r, err := repo.get(ctx, id)
	if err != nil {
		return facture.Facture{}, err
	}
	return repo.unrow(r), nil
}

func (repo factureRepository) UpdateFacture(ctx context.Context, f facture.Facture) (facture.Facture, error) {
	if err := repo.update(ctx, f.ID, repo.values(f)); err != nil {
		return facture.Facture{}, err
	}
	return f, nil
}

func (repo factureRepository) DeleteFacturesByID(ctx context.Context, ids ...string) (int, error) {
	return repo.delete(ctx, ids...)
}

// NextNumber atomically increments the sequence of `year`, creating it on first use.
func (repo factureRepository) NextNumber(ctx context.Context, year int) (int, error) {
	query, args, err := nextNumberQuery(year)
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}

	var last int
	if err = sqlx.GetContext(ctx, repo.db, &last, query, args...); err != nil {
		return 0, errors.Wrap(err, "incrementing invoice sequence")
	}
	return last, nil
}

func nextNumberQuery(year int) (string, []interface{}, error) {
	return psql.Insert(factureSequencesTable).
		Columns("year", "last").
		Values(year, 1).
		Suffix("ON CONFLICT (year) DO UPDATE SET last = " + factureSequencesTable + ".last + 1 RETURNING last").
		ToSql()
}
