package authroles

import (
	"sort"

	domainauth "github.com/eduhub/authbroker/internal/domain/auth"
)

// Package authroles holds the static role-to-permission table. The table is
// configuration data: adding a role means adding an entry here, nothing else.

var rolePermissions = map[domainauth.Role][]string{
	domainauth.RoleStudent: {},
	domainauth.RoleTeacher: {
		"user:data:read",
		"course:testList", "course:test:read", "course:userList", "course:user:add",
		"course:user:del", "course:add",
		"quest:list:read", "quest:read", "quest:create",
	},
	domainauth.RoleAdmin: {
		"user:list:read", "user:fullName:write", "user:data:read", "user:roles:read",
		"user:roles:write", "user:block:read", "user:block:write",
		"course:info:write", "course:testList", "course:test:read", "course:test:write",
		"course:test:add", "course:test:del", "course:userList", "course:user:add",
		"course:user:del", "course:add", "course:del",
		"quest:list:read", "quest:read", "quest:update", "quest:create", "quest:del",
		"test:quest:del", "test:quest:add", "test:quest:update", "test:answer:read",
		"answer:read", "answer:update", "answer:del",
	},
}

// StaticResolver resolves permissions from the built-in role table.
type StaticResolver struct{}

// Resolve returns the sorted, deduplicated union of permissions granted by the
// given roles. Roles without a table entry contribute nothing; that is not an
// error, so a record carrying a retired role still resolves.
func (StaticResolver) Resolve(roles []domainauth.Role) []string {
	seen := make(map[string]struct{})
	for _, role := range roles {
		for _, perm := range rolePermissions[role] {
			seen[perm] = struct{}{}
		}
	}

	perms := make([]string, 0, len(seen))
	for perm := range seen {
		perms = append(perms, perm)
	}
	sort.Strings(perms)
	return perms
}
