package types

import "time"

// Contact is an address-book entry.
// A contact starts active and becomes read-only once soft deleted.
type Contact struct {
	// ID is assigned by the store and never changes.
	ID int64 `json:"id" db:"id"`

	// Name is the contact's first name.
	Name string `json:"name" db:"name"`

	// Lastname is optional; nil means unset.
	Lastname *string `json:"lastname" db:"lastname"`

	// Email is unique across all contacts, including soft-deleted ones.
	// It is stored exactly as submitted and compared case-insensitively.
	Email string `json:"email" db:"email"`

	// Phone is optional and, when set, in E.164 form.
	Phone *string `json:"phone" db:"phone"`

	// Active is false once the contact has been soft deleted.
	Active bool `json:"active" db:"active"`

	// CreatedAt is set when the contact is first persisted.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is nil until the first mutation after creation.
	UpdatedAt *time.Time `json:"updatedAt" db:"updated_at"`
}

// ContactFilter narrows a listing of active contacts.
type ContactFilter struct {
	// Search is matched case-insensitively against name, lastname, email and phone.
	Search string
}
