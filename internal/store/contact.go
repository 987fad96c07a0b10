package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/contactbook/apiserver/types"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
)

const (
	contactsTable    = "contacts"
	contactsEmailKey = "contacts_email_lower_key"
)

var contactColumns = []any{
	"id", "name", "lastname", "email", "phone", "active", "created_at", "updated_at",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContactRepository handles persistence for contacts.
type ContactRepository struct {
	db      *sqlx.DB
	dialect goqu.DialectWrapper
}

func NewContactRepository(db *sqlx.DB) *ContactRepository {
	return &ContactRepository{db: db, dialect: goqu.Dialect("postgres")}
}

// ListActive returns active contacts in ascending id order.
func (r *ContactRepository) ListActive(ctx context.Context, filter types.ContactFilter) ([]types.Contact, error) {
	ds := r.dialect.From(contactsTable).
		Select(contactColumns...).
		Where(goqu.C("active").IsTrue())

	if term := strings.TrimSpace(filter.Search); term != "" {
		pattern := "%" + likeEscaper.Replace(term) + "%"
		ds = ds.Where(goqu.Or(
			goqu.C("name").ILike(pattern),
			goqu.C("lastname").ILike(pattern),
			goqu.C("email").ILike(pattern),
			goqu.C("phone").ILike(pattern),
		))
	}

	return r.selectContacts(ctx, ds.Order(goqu.C("id").Asc()))
}

// ListAll returns every contact, active or not, in ascending id order.
func (r *ContactRepository) ListAll(ctx context.Context) ([]types.Contact, error) {
	ds := r.dialect.From(contactsTable).
		Select(contactColumns...).
		Order(goqu.C("id").Asc())
	return r.selectContacts(ctx, ds)
}

func (r *ContactRepository) Get(ctx context.Context, id int64) (types.Contact, error) {
	ds := r.dialect.From(contactsTable).
		Select(contactColumns...).
		Where(goqu.C("id").Eq(id))
	return r.getContact(ctx, r.db, ds)
}

// FindByEmail looks up a contact by email, ignoring case and active state.
func (r *ContactRepository) FindByEmail(ctx context.Context, email string) (types.Contact, error) {
	ds := r.dialect.From(contactsTable).
		Select(contactColumns...).
		Where(goqu.L("LOWER(email) = LOWER(?)", email)).
		Limit(1)
	return r.getContact(ctx, r.db, ds)
}

func (r *ContactRepository) Create(ctx context.Context, contact types.Contact) (types.Contact, error) {
	query, args, err := r.dialect.Insert(contactsTable).
		Rows(goqu.Record{
			"name":       contact.Name,
			"lastname":   nullString(contact.Lastname),
			"email":      contact.Email,
			"phone":      nullString(contact.Phone),
			"active":     contact.Active,
			"created_at": contact.CreatedAt,
			"updated_at": nullTime(contact.UpdatedAt),
		}).
		Returning("id").
		Prepared(true).
		ToSQL()
	if err != nil {
		return types.Contact{}, fmt.Errorf("build insert contact: %w", err)
	}

	if err := r.db.QueryRowxContext(ctx, query, args...).Scan(&contact.ID); err != nil {
		if isUniqueViolation(err, contactsEmailKey) {
			return types.Contact{}, ErrDuplicateEmail
		}
		return types.Contact{}, err
	}
	return contact, nil
}

// Modify loads the contact under a row lock, lets mutate change it and writes
// the result back in the same transaction. An error from mutate rolls back.
// ID and CreatedAt are never written.
func (r *ContactRepository) Modify(ctx context.Context, id int64, mutate func(*types.Contact) error) (types.Contact, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return types.Contact{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	lockDS := r.dialect.From(contactsTable).
		Select(contactColumns...).
		Where(goqu.C("id").Eq(id)).
		ForUpdate(exp.Wait)
	current, err := r.getContact(ctx, tx, lockDS)
	if err != nil {
		return types.Contact{}, err
	}

	next := current
	if err := mutate(&next); err != nil {
		return types.Contact{}, err
	}

	query, args, err := r.dialect.Update(contactsTable).
		Set(goqu.Record{
			"name":       next.Name,
			"lastname":   nullString(next.Lastname),
			"email":      next.Email,
			"phone":      nullString(next.Phone),
			"active":     next.Active,
			"updated_at": nullTime(next.UpdatedAt),
		}).
		Where(goqu.C("id").Eq(id)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return types.Contact{}, fmt.Errorf("build update contact: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err, contactsEmailKey) {
			return types.Contact{}, ErrDuplicateEmail
		}
		return types.Contact{}, err
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err, contactsEmailKey) {
			return types.Contact{}, ErrDuplicateEmail
		}
		return types.Contact{}, err
	}
	committed = true

	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	return next, nil
}

func (r *ContactRepository) selectContacts(ctx context.Context, ds *goqu.SelectDataset) ([]types.Contact, error) {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select contacts: %w", err)
	}

	contacts := make([]types.Contact, 0)
	if err := r.db.SelectContext(ctx, &contacts, query, args...); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *ContactRepository) getContact(ctx context.Context, q sqlx.QueryerContext, ds *goqu.SelectDataset) (types.Contact, error) {
	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return types.Contact{}, fmt.Errorf("build select contact: %w", err)
	}

	var contact types.Contact
	if err := sqlx.GetContext(ctx, q, &contact, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Contact{}, ErrNotFound
		}
		return types.Contact{}, err
	}
	return contact, nil
}

func nullString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return *value
}
