package authz_test

import (
	"testing"

	"github.com/dalemusser/membersonly/internal/app/system/authz"
	"github.com/stretchr/testify/assert"
)

func TestFromFlags_AnonymousIgnoresFlags(t *testing.T) {
	r := authz.FromFlags(false, true, true)
	assert.Equal(t, authz.Anonymous, r)
	assert.True(t, r.IsAnonymous())
	assert.False(t, r.IsMember())
	assert.False(t, r.IsAdmin())
	assert.False(t, r.CanPost())
	assert.False(t, r.CanDelete())
}

func TestFromFlags_Combinations(t *testing.T) {
	tests := []struct {
		name          string
		member, admin bool
		wantMember    bool
		wantAdmin     bool
		wantString    string
	}{
		{"plain user", false, false, false, false, "identified"},
		{"member", true, false, true, false, "identified+member"},
		{"admin only", false, true, false, true, "identified+admin"},
		{"admin and member", true, true, true, true, "identified+member+admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := authz.FromFlags(true, tt.member, tt.admin)
			assert.False(t, r.IsAnonymous())
			assert.Equal(t, tt.wantMember, r.IsMember())
			assert.Equal(t, tt.wantAdmin, r.IsAdmin())
			assert.True(t, r.CanPost())
			assert.True(t, r.CanJoin())
			assert.Equal(t, tt.wantAdmin, r.CanDelete())
			assert.Equal(t, tt.wantMember, r.CanSeeAuthors())
			assert.Equal(t, tt.wantString, r.String())
		})
	}
}

func TestAdminDoesNotImplyMember(t *testing.T) {
	r := authz.FromFlags(true, false, true)
	assert.True(t, r.CanDelete())
	assert.False(t, r.CanSeeAuthors(), "admin without passphrase must not see authors")
}

func TestAnonymousString(t *testing.T) {
	assert.Equal(t, "anonymous", authz.Anonymous.String())
}
