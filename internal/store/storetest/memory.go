// Package storetest provides in-memory repositories that mirror the
// constraints of the Postgres store for use in tests.
package storetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/contactbook/apiserver/internal/store"
	"github.com/contactbook/apiserver/types"
)

// Contacts is an in-memory contact repository. Email uniqueness is enforced
// case-insensitively across active and inactive rows.
type Contacts struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]types.Contact

	// FailWith, when set, is returned by every call.
	FailWith error
}

func NewContacts() *Contacts {
	return &Contacts{rows: make(map[int64]types.Contact)}
}

// Seed stores contact as-is, assigning an id when it has none.
func (c *Contacts) Seed(contact types.Contact) types.Contact {
	c.mu.Lock()
	defer c.mu.Unlock()
	if contact.ID == 0 {
		c.nextID++
		contact.ID = c.nextID
	} else if contact.ID > c.nextID {
		c.nextID = contact.ID
	}
	c.rows[contact.ID] = clone(contact)
	return contact
}

// Len reports how many rows exist, active or not.
func (c *Contacts) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.rows)
}

func (c *Contacts) ListActive(_ context.Context, filter types.ContactFilter) ([]types.Contact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailWith != nil {
		return nil, c.FailWith
	}

	term := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]types.Contact, 0, len(c.rows))
	for _, row := range c.sorted() {
		if !row.Active {
			continue
		}
		if term != "" && !matches(row, term) {
			continue
		}
		out = append(out, clone(row))
	}
	return out, nil
}

func (c *Contacts) ListAll(_ context.Context) ([]types.Contact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailWith != nil {
		return nil, c.FailWith
	}

	out := make([]types.Contact, 0, len(c.rows))
	for _, row := range c.sorted() {
		out = append(out, clone(row))
	}
	return out, nil
}

func (c *Contacts) Get(_ context.Context, id int64) (types.Contact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailWith != nil {
		return types.Contact{}, c.FailWith
	}

	row, ok := c.rows[id]
	if !ok {
		return types.Contact{}, store.ErrNotFound
	}
	return clone(row), nil
}

func (c *Contacts) FindByEmail(_ context.Context, email string) (types.Contact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailWith != nil {
		return types.Contact{}, c.FailWith
	}

	for _, row := range c.sorted() {
		if strings.EqualFold(row.Email, email) {
			return clone(row), nil
		}
	}
	return types.Contact{}, store.ErrNotFound
}

func (c *Contacts) Create(_ context.Context, contact types.Contact) (types.Contact, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailWith != nil {
		return types.Contact{}, c.FailWith
	}

	if c.emailTaken(contact.Email, 0) {
		return types.Contact{}, store.ErrDuplicateEmail
	}
	c.nextID++
	contact.ID = c.nextID
	c.rows[contact.ID] = clone(contact)
	return clone(contact), nil
}

// Modify releases the lock while mutate runs so that mutate may read back
// through the repository, then re-checks the row before writing.
func (c *Contacts) Modify(_ context.Context, id int64, mutate func(*types.Contact) error) (types.Contact, error) {
	c.mu.Lock()
	if c.FailWith != nil {
		c.mu.Unlock()
		return types.Contact{}, c.FailWith
	}
	current, ok := c.rows[id]
	c.mu.Unlock()
	if !ok {
		return types.Contact{}, store.ErrNotFound
	}

	next := clone(current)
	if err := mutate(&next); err != nil {
		return types.Contact{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.rows[id]; !ok {
		return types.Contact{}, store.ErrNotFound
	}
	if c.emailTaken(next.Email, id) {
		return types.Contact{}, store.ErrDuplicateEmail
	}

	next.ID = current.ID
	next.CreatedAt = current.CreatedAt
	c.rows[id] = clone(next)
	return clone(next), nil
}

func (c *Contacts) emailTaken(email string, selfID int64) bool {
	for id, row := range c.rows {
		if id != selfID && strings.EqualFold(row.Email, email) {
			return true
		}
	}
	return false
}

func (c *Contacts) sorted() []types.Contact {
	rows := make([]types.Contact, 0, len(c.rows))
	for _, row := range c.rows {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows
}

func matches(row types.Contact, term string) bool {
	fields := []string{row.Name, row.Email}
	if row.Lastname != nil {
		fields = append(fields, *row.Lastname)
	}
	if row.Phone != nil {
		fields = append(fields, *row.Phone)
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

func clone(c types.Contact) types.Contact {
	if c.Lastname != nil {
		v := *c.Lastname
		c.Lastname = &v
	}
	if c.Phone != nil {
		v := *c.Phone
		c.Phone = &v
	}
	if c.UpdatedAt != nil {
		v := *c.UpdatedAt
		c.UpdatedAt = &v
	}
	return c
}

// Users is an in-memory login user repository.
type Users struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]types.User
}

func NewUsers() *Users {
	return &Users{rows: make(map[int64]types.User)}
}

func (u *Users) GetByID(_ context.Context, id int64) (types.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.rows[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (u *Users) GetByUsername(_ context.Context, username string) (types.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, user := range u.rows {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (u *Users) Create(_ context.Context, user types.User) (types.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, existing := range u.rows {
		if existing.Username == user.Username {
			return types.User{}, store.ErrDuplicateUsername
		}
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Roles = types.NormalizeRoles(user.Roles)
	u.nextID++
	user.ID = u.nextID
	u.rows[user.ID] = user
	return user, nil
}
