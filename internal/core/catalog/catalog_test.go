package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fleetcore/fleet-api/internal/core/domain"
)

func TestCatalog_IsValid(t *testing.T) {
	require.NoError(t, Validate(All()))
}

func TestCatalog_Lookup(t *testing.T) {
	def, ok := Lookup("services")
	require.True(t, ok)
	require.Equal(t, "SERVICE", def.Singular)
	require.Equal(t, "active", def.Defaults["status"])
	require.ElementsMatch(t, []string{"name", "description", "category", "price"}, def.RequiredFields)

	_, ok = Lookup("spaceships")
	require.False(t, ok)
}

func TestCatalog_AllReturnsCopy(t *testing.T) {
	defs := All()
	defs[0].Name = "mutated"

	_, ok := Lookup("mutated")
	require.False(t, ok)
}

func TestValidate_RejectsDuplicates(t *testing.T) {
	defs := []domain.Definition{
		{Name: "a", Singular: "A", Collection: "shared"},
		{Name: "b", Singular: "B", Collection: "shared"},
	}
	require.Error(t, Validate(defs))

	defs = []domain.Definition{
		{Name: "a", Singular: "A"},
		{Name: "a", Singular: "A2", Collection: "other"},
	}
	require.Error(t, Validate(defs))
}
