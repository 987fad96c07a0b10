package services_test

import (
	"context"
	"testing"

	"github.com/contactbook/apiserver/internal/services"
	"github.com/contactbook/apiserver/internal/store/storetest"
	"github.com/contactbook/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckEmailAvailable(t *testing.T) {
	repo := storetest.NewContacts()
	ana := repo.Seed(types.Contact{Name: "Ana", Email: "Ana@Example.com", Active: false})
	ctx := context.Background()

	err := services.CheckEmailAvailable(ctx, repo, "ana@example.com", 0)
	requireKind(t, err, services.KindConflict)

	assert.NoError(t, services.CheckEmailAvailable(ctx, repo, "ANA@EXAMPLE.COM", ana.ID), "a contact does not conflict with itself")

	err = services.CheckEmailAvailable(ctx, repo, "ana@example.com", ana.ID+1)
	requireKind(t, err, services.KindConflict)

	require.NoError(t, services.CheckEmailAvailable(ctx, repo, "bob@example.com", 0))
}
