// Package gate provides a small role/policy authorization kernel.
// RoleGate checks a stored role by exact match and then any resource policy
// registered for the resource type. The package has no dependencies on
// domain models.
//
// The package uses generics to allow any user/subject key type:
//   - RoleGate[uint] for numeric user ids
//   - RoleGate[uuid.UUID] for identity-provider ids
package gate
