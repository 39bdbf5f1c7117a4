package authroles

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/eduhub/authbroker/internal/domain/auth"
)

func TestResolveStudentHasNoPermissions(t *testing.T) {
	perms := StaticResolver{}.Resolve([]domainauth.Role{domainauth.RoleStudent})
	assert.Empty(t, perms)
}

func TestResolveTeacher(t *testing.T) {
	perms := StaticResolver{}.Resolve([]domainauth.Role{domainauth.RoleTeacher})

	assert.Contains(t, perms, "course:test:read")
	assert.Contains(t, perms, "quest:create")
	assert.Contains(t, perms, "user:data:read")
	assert.NotContains(t, perms, "course:del")
	assert.NotContains(t, perms, "user:roles:write")
}

func TestResolveAdminIsSupersetOfTeacher(t *testing.T) {
	resolver := StaticResolver{}
	teacher := resolver.Resolve([]domainauth.Role{domainauth.RoleTeacher})
	admin := resolver.Resolve([]domainauth.Role{domainauth.RoleAdmin})

	for _, perm := range teacher {
		assert.Contains(t, admin, perm)
	}
	assert.Contains(t, admin, "course:del")
	assert.Contains(t, admin, "user:block:write")
	assert.Contains(t, admin, "answer:update")
}

func TestResolveUnionIsDeduplicatedAndSorted(t *testing.T) {
	perms := StaticResolver{}.Resolve([]domainauth.Role{
		domainauth.RoleTeacher, domainauth.RoleAdmin, domainauth.RoleTeacher,
	})

	assert.True(t, sort.StringsAreSorted(perms))
	seen := make(map[string]int)
	for _, p := range perms {
		seen[p]++
	}
	for p, n := range seen {
		assert.Equal(t, 1, n, "permission %s appears more than once", p)
	}
}

func TestResolveUnknownRoleContributesNothing(t *testing.T) {
	resolver := StaticResolver{}
	assert.Empty(t, resolver.Resolve([]domainauth.Role{domainauth.Role("Alumni")}))

	withUnknown := resolver.Resolve([]domainauth.Role{domainauth.RoleTeacher, domainauth.Role("Alumni")})
	teacherOnly := resolver.Resolve([]domainauth.Role{domainauth.RoleTeacher})
	assert.Equal(t, teacherOnly, withUnknown)
}
