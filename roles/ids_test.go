package roles

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDForRole(t *testing.T) {
	require.Equal(t, CustomerID, IDForRole("customer"))
	require.Equal(t, WorkerID, IDForRole("worker"))
	require.Equal(t, AdminID, IDForRole("admin"))

	// Unknown slugs still derive deterministically.
	require.Equal(t, IDFromSlug("dispatcher"), IDForRole("dispatcher"))
}

func TestRoleIDsAreStableAndDistinct(t *testing.T) {
	require.Equal(t, IDFromSlug("worker"), IDFromSlug("worker"))
	require.NotEqual(t, CustomerID, WorkerID)
	require.NotEqual(t, WorkerID, AdminID)
	require.NotEqual(t, CustomerID, AdminID)
}
