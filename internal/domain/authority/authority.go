// Package authority models identifier-assigning authorities such as GLN or GTIN.
package authority

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// Authority is a named identifier namespace. Namespaces are dotted OIDs;
// a partner-scoped authority lives beneath a base authority namespace.
type Authority struct {
	ID          uuid.UUID
	Name        string
	Namespace   string
	Description string
}

// ChildNamespace returns the namespace of the partner-scoped child authority
func (a *Authority) ChildNamespace(partnerCode string) string {
	return a.Namespace + "." + strings.TrimSpace(partnerCode)
}

// URN returns the namespace as an OID URN
func (a *Authority) URN() string {
	return "urn:oid:" + a.Namespace
}

// Repository is the port for authority lookups.
// Both methods return shared.ErrNotFound when nothing matches.
type Repository interface {
	Get(ctx context.Context, name string) (*Authority, error)
	FindByNamespace(ctx context.Context, namespace string) (*Authority, error)
}
