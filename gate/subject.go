package gate

import (
	"context"
	"strings"
	"sync"
)

// Role is a single stored role name. A subject holds exactly one.
type Role string

// Subject is the authorization view of a user: one role and the email the
// identity provider vouches for.
type Subject interface {
	Role() Role
	Email() string
}

// SubjectResolver resolves a user key to its Subject.
// A nil Subject with a nil error means the user is unknown.
type SubjectResolver[U any] interface {
	Resolve(ctx context.Context, user U) (Subject, error)
}

// HasRole reports whether s holds exactly the required role.
// Roles do not form a hierarchy: no role implies another.
func HasRole(s Subject, required Role) bool {
	if s == nil || required == "" {
		return false
	}
	return s.Role() == required
}

// StaticSubject is a simple in-memory Subject implementation.
type StaticSubject struct {
	role  Role
	email string
}

// NewStaticSubject creates a subject with the given role and email.
func NewStaticSubject(role Role, email string) *StaticSubject {
	return &StaticSubject{role: role, email: strings.ToLower(strings.TrimSpace(email))}
}

func (s *StaticSubject) Role() Role    { return s.role }
func (s *StaticSubject) Email() string { return s.email }

// StaticResolver is a simple in-memory resolver for tests and fixed setups.
type StaticResolver[U comparable] struct {
	mu       sync.RWMutex
	subjects map[U]Subject
}

// NewStaticResolver creates an empty resolver.
func NewStaticResolver[U comparable]() *StaticResolver[U] {
	return &StaticResolver[U]{subjects: make(map[U]Subject)}
}

// Set assigns a subject to a user.
func (r *StaticResolver[U]) Set(user U, s Subject) {
	r.mu.Lock()
	r.subjects[user] = s
	r.mu.Unlock()
}

// Resolve returns the subject for the given user, or nil if unknown.
func (r *StaticResolver[U]) Resolve(_ context.Context, user U) (Subject, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.subjects[user]; ok {
		return s, nil
	}
	return nil, nil
}
