package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetgrid/fleetgrid/internal/db/models"
)

func seedImplications(t *testing.T, deps *DependencyResolver, edges map[string][]string) {
	t.Helper()

	for from, targets := range edges {
		for _, to := range targets {
			err := deps.store.db.Create(&models.PermissionImplication{
				PermissionCode: from,
				ImpliesCode:    to,
			}).Error
			require.NoError(t, err, "failed to seed implication")
		}
	}
}

func codeSet(codes ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		set[code] = struct{}{}
	}

	return set
}

func TestDependencyResolverExpand(t *testing.T) {
	db := setupTestDB(t)
	deps := NewDependencyResolver(NewStore(db))

	seedImplications(t, deps, map[string][]string{
		"invoice.void":   {"invoice.read"},
		"invoice.read":   {"client.read"},
		"payment.refund": {"payment.process"},
	})

	expanded, err := deps.Expand(codeSet("invoice.void"))
	require.NoError(t, err)

	assert.Equal(t, codeSet("invoice.void", "invoice.read", "client.read"), expanded)
}

func TestDependencyResolverExpandIdempotent(t *testing.T) {
	db := setupTestDB(t)
	deps := NewDependencyResolver(NewStore(db))

	seedImplications(t, deps, map[string][]string{
		"report.export": {"report.read"},
		"report.read":   {"dashboard.view"},
	})

	once, err := deps.Expand(codeSet("report.export", "quote.create"))
	require.NoError(t, err)

	twice, err := deps.Expand(once)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestDependencyResolverExpandCycleTerminates(t *testing.T) {
	db := setupTestDB(t)
	deps := NewDependencyResolver(NewStore(db))

	seedImplications(t, deps, map[string][]string{
		"a.read": {"b.read"},
		"b.read": {"c.read"},
		"c.read": {"a.read"},
	})

	expanded, err := deps.Expand(codeSet("a.read"))
	require.NoError(t, err)

	assert.Equal(t, codeSet("a.read", "b.read", "c.read"), expanded)
}

func TestDependencyResolverExpandEmptyInput(t *testing.T) {
	db := setupTestDB(t)
	deps := NewDependencyResolver(NewStore(db))

	expanded, err := deps.Expand(codeSet())
	require.NoError(t, err)
	assert.Empty(t, expanded)
}
