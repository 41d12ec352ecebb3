package roles

import "github.com/google/uuid"

// NamespaceRoleIDs is the UUID namespace used to derive stable role IDs from slugs.
//
// Role IDs are computed as UUIDv5(namespace, "role:"+slug). Slugs are treated as immutable identity.
var NamespaceRoleIDs = uuid.MustParse("8f2a6c1e-4b8d-5f3a-9c21-7d5e09a4f6b3")

func IDFromSlug(slug string) uuid.UUID {
	return uuid.NewSHA1(NamespaceRoleIDs, []byte("role:"+slug))
}

// Stable IDs for the marketplace role taxonomy.
var (
	CustomerID = IDFromSlug("customer")
	WorkerID   = IDFromSlug("worker")
	AdminID    = IDFromSlug("admin")
)

// IDForRole resolves a role slug to its stable ID, deriving on the fly for
// slugs outside the known taxonomy.
func IDForRole(slug string) uuid.UUID {
	switch slug {
	case "customer":
		return CustomerID
	case "worker":
		return WorkerID
	case "admin":
		return AdminID
	}
	return IDFromSlug(slug)
}
