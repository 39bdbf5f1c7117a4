package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrimaryRole(t *testing.T) {
	tests := []struct {
		name  string
		roles []Role
		want  Role
	}{
		{name: "empty defaults to student", roles: nil, want: RoleStudent},
		{name: "single student", roles: []Role{RoleStudent}, want: RoleStudent},
		{name: "teacher outranks student", roles: []Role{RoleStudent, RoleTeacher}, want: RoleTeacher},
		{name: "admin outranks all", roles: []Role{RoleTeacher, RoleAdmin, RoleStudent}, want: RoleAdmin},
		{name: "order does not matter", roles: []Role{RoleAdmin, RoleStudent}, want: RoleAdmin},
		{name: "unknown role ranks below student", roles: []Role{Role("Alumni"), RoleStudent}, want: RoleStudent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PrimaryRole(tt.roles))
		})
	}
}

func TestNormalizeIdentity(t *testing.T) {
	tests := []struct {
		name string
		in   Identity
		want Identity
	}{
		{
			name: "complete profile unchanged",
			in: Identity{
				Provider: "github", ExternalID: "1", Login: "octo",
				Email: "octo@example.com", DisplayName: "Octo Cat",
			},
			want: Identity{
				Provider: "github", ExternalID: "1", Login: "octo",
				Email: "octo@example.com", DisplayName: "Octo Cat",
			},
		},
		{
			name: "missing email synthesized from login and provider",
			in:   Identity{Provider: "github", ExternalID: "1", Login: "octo", DisplayName: "Octo"},
			want: Identity{Provider: "github", ExternalID: "1", Login: "octo", Email: "octo@github", DisplayName: "Octo"},
		},
		{
			name: "missing display name falls back to login",
			in:   Identity{Provider: "yandex", ExternalID: "9", Login: "ivan", Email: "ivan@ya.ru"},
			want: Identity{Provider: "yandex", ExternalID: "9", Login: "ivan", Email: "ivan@ya.ru", DisplayName: "ivan"},
		},
		{
			name: "missing login falls back to external ID",
			in:   Identity{Provider: "sso", ExternalID: "abc-123"},
			want: Identity{Provider: "sso", ExternalID: "abc-123", Login: "abc-123", Email: "abc-123@sso", DisplayName: "abc-123"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeIdentity(tt.in))
		})
	}
}
