package policy

import (
	"context"

	"github.com/diewo77/portfolio-pilot/gate"
	"github.com/google/uuid"
)

// Ownable is an interface for resources that have an owner.
// Implement this on your models to enable ownership-based authorization.
type Ownable interface {
	GetOwnerID() uuid.UUID
}

// OwnershipPolicy allows an action only on resources the user owns.
type OwnershipPolicy struct{}

func NewOwnershipPolicy() *OwnershipPolicy {
	return &OwnershipPolicy{}
}

// Can checks if the user owns the resource.
// For list/create actions (resource is nil) it returns true; the route
// already restricts access.
func (p *OwnershipPolicy) Can(_ context.Context, userID uuid.UUID, _ gate.Action, resource any) bool {
	if resource == nil {
		return true
	}
	ownable, ok := resource.(Ownable)
	if !ok {
		// deny resources without an owner
		return false
	}
	return ownable.GetOwnerID() == userID
}
