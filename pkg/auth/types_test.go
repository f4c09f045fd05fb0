package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleSuperAdmin.Valid())
	assert.True(t, RoleCustomerAdmin.Valid())
	assert.True(t, RoleEndUser.Valid())
	assert.False(t, Role("ADMIN").Valid())
	assert.False(t, Role("").Valid())
}

func TestUser_IsSSOOnly(t *testing.T) {
	assert.True(t, (&User{PasswordHash: SSOPasswordSentinel}).IsSSOOnly())
	assert.False(t, (&User{PasswordHash: "$2a$10$abcdefg"}).IsSSOOnly())
	assert.False(t, (&User{}).IsSSOOnly())
}

func TestUser_FullName(t *testing.T) {
	tests := []struct {
		name  string
		first string
		last  string
		want  string
	}{
		{"both names", "Ada", "Lovelace", "Ada Lovelace"},
		{"first only", "Ada", "", "Ada"},
		{"last only", "", "Lovelace", "Lovelace"},
		{"neither", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{FirstName: tt.first, LastName: tt.last}
			assert.Equal(t, tt.want, u.FullName())
		})
	}
}

func TestDashboardPath(t *testing.T) {
	assert.Equal(t, "/super-admin-dashboard.html", DashboardPath(RoleSuperAdmin))
	assert.Equal(t, "/customer-admin-dashboard.html", DashboardPath(RoleCustomerAdmin))
	assert.Equal(t, "/end-user-dashboard.html", DashboardPath(RoleEndUser))
	assert.Equal(t, "/login.html", DashboardPath(Role("UNKNOWN")))
}
