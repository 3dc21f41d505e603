// Package models defines the client-side domain types shared by the API
// client, the session store and the views.
package models

// Profile is the signed-in user's identity as returned by the backend.
type Profile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role,omitempty"`
}

// ProfilePatch carries the fields to change; nil fields are left alone.
type ProfilePatch struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
}

// Apply merges the non-nil fields of the patch into p.
func (pp ProfilePatch) Apply(p Profile) Profile {
	if pp.Username != nil {
		p.Username = *pp.Username
	}
	if pp.Email != nil {
		p.Email = *pp.Email
	}
	return p
}

// Empty reports whether the patch changes nothing.
func (pp ProfilePatch) Empty() bool {
	return pp.Username == nil && pp.Email == nil
}

// PatchFrom builds a patch that sets the non-empty fields of p.
func PatchFrom(p Profile) ProfilePatch {
	var pp ProfilePatch
	if p.Username != "" {
		pp.Username = &p.Username
	}
	if p.Email != "" {
		pp.Email = &p.Email
	}
	return pp
}

// Or fills the fields pp leaves nil from fallback.
func (pp ProfilePatch) Or(fallback ProfilePatch) ProfilePatch {
	if pp.Username == nil {
		pp.Username = fallback.Username
	}
	if pp.Email == nil {
		pp.Email = fallback.Email
	}
	return pp
}

type SignupInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is a successful login: a bearer token plus the profile.
type LoginResult struct {
	Token   string
	Profile Profile
}
