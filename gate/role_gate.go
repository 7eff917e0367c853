package gate

import (
	"context"
	"fmt"
)

// RoleGate combines a stored-role requirement with resource-specific policies.
// Authorization flow:
//  1. Check if user is valid (non-zero)
//  2. Resolve the user's subject
//  3. If a role is required, check it by exact match
//  4. If a resource policy exists and resource is provided, check it
type RoleGate[U comparable] struct {
	resolver SubjectResolver[U]
	policies map[string]Policy[U]
}

// NewRoleGate creates a role gate with the given subject resolver.
func NewRoleGate[U comparable](resolver SubjectResolver[U]) *RoleGate[U] {
	return &RoleGate[U]{
		resolver: resolver,
		policies: make(map[string]Policy[U]),
	}
}

// Register adds a resource-specific policy (ownership, email binding, ...).
func (g *RoleGate[U]) Register(resourceType string, p Policy[U]) {
	g.policies[resourceType] = p
}

// Subject resolves the subject for user. Resolver failures are returned as-is
// so a broken store is not mistaken for a denial.
func (g *RoleGate[U]) Subject(ctx context.Context, user U) (Subject, error) {
	var zero U
	if user == zero {
		return nil, ErrUnauthenticated
	}
	s, err := g.resolver.Resolve(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("resolve subject: %w", err)
	}
	return s, nil
}

// Authorize checks:
//  1. User is valid (non-zero)
//  2. The subject holds required (skipped when required is empty)
//  3. If a resource policy exists and resource is provided, the policy allows it
func (g *RoleGate[U]) Authorize(ctx context.Context, user U, required Role, action Action, resourceType string, resource any) error {
	s, err := g.Subject(ctx, user)
	if err != nil {
		return err
	}
	if s == nil {
		return ErrForbidden
	}
	if required != "" && !HasRole(s, required) {
		return ErrForbidden
	}

	if resource != nil {
		if policy, ok := g.policies[resourceType]; ok {
			if !policy.Can(ctx, user, action, resource) {
				return ErrForbidden
			}
		}
	}
	return nil
}

// CanRole checks only the stored role, without any resource policy.
// Useful for screens that must be gated before any resource is loaded.
func (g *RoleGate[U]) CanRole(ctx context.Context, user U, required Role) bool {
	s, err := g.Subject(ctx, user)
	if err != nil {
		return false
	}
	return HasRole(s, required)
}
