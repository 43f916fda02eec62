// internal/app/system/authz/roles.go
package authz

import "strings"

// Role is the set of standings a request holds. It is built from the two
// persisted flags (is_admin, is_member) plus whether an identity is present.
//
// Admin and Member are independent: an admin who never entered the join
// passphrase is not a member, and a member is never an admin.
type Role uint8

const (
	// Identified means the request carries an authenticated user.
	Identified Role = 1 << iota
	// Member means the session's cached is_member flag is set.
	Member
	// Admin means the session's cached is_admin flag is set.
	Admin
)

// Anonymous is the zero Role: no identity, no flags.
const Anonymous Role = 0

// FromFlags builds a Role. Flags are ignored when there is no identity, so an
// anonymous request can never carry member or admin standing.
func FromFlags(identified, isMember, isAdmin bool) Role {
	if !identified {
		return Anonymous
	}
	r := Identified
	if isMember {
		r |= Member
	}
	if isAdmin {
		r |= Admin
	}
	return r
}

// Has reports whether every bit of want is present.
func (r Role) Has(want Role) bool {
	return r&want == want
}

// IsAnonymous reports whether there is no identity.
func (r Role) IsAnonymous() bool { return !r.Has(Identified) }

// IsMember reports member standing.
func (r Role) IsMember() bool { return r.Has(Identified | Member) }

// IsAdmin reports admin standing.
func (r Role) IsAdmin() bool { return r.Has(Identified | Admin) }

// CanPost reports whether the request may submit a message.
// Any identified user may post; membership only affects what they can see.
func (r Role) CanPost() bool { return r.Has(Identified) }

// CanJoin reports whether the request may attempt the join passphrase.
func (r Role) CanJoin() bool { return r.Has(Identified) }

// CanDelete reports whether the request may delete messages.
func (r Role) CanDelete() bool { return r.IsAdmin() }

// CanSeeAuthors reports whether author names and dates are shown on the board.
func (r Role) CanSeeAuthors() bool { return r.IsMember() }

// String renders the role for logs, e.g. "identified+member".
func (r Role) String() string {
	if r.IsAnonymous() {
		return "anonymous"
	}
	parts := []string{"identified"}
	if r.Has(Member) {
		parts = append(parts, "member")
	}
	if r.Has(Admin) {
		parts = append(parts, "admin")
	}
	return strings.Join(parts, "+")
}
