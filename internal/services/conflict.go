package services

import (
	"context"
	"errors"
	"strings"

	"github.com/contactbook/apiserver/internal/store"
	"github.com/contactbook/apiserver/types"
)

const duplicateEmailMessage = "A contact with this email already exists"

// EmailLookup finds a contact by email regardless of case or active state.
type EmailLookup interface {
	FindByEmail(ctx context.Context, email string) (types.Contact, error)
}

// CheckEmailAvailable returns a conflict error when email belongs to a contact
// other than selfID. Pass selfID 0 for a contact that does not exist yet.
// The store's unique index remains the final guard against races.
func CheckEmailAvailable(ctx context.Context, lookup EmailLookup, email string, selfID int64) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}

	existing, err := lookup.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	if selfID != 0 && existing.ID == selfID {
		return nil
	}
	return Conflict("email", duplicateEmailMessage)
}
