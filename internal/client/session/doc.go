// Package session holds the signed-in identity of the client.
//
// A Store starts in StatusUnknown (loading) and resolves exactly once, via
// Restore, to StatusAuthenticated or StatusAnonymous. After that only Login
// (Anonymous → Authenticated) and Logout/Reject (Authenticated → Anonymous)
// move it. The token and the profile live in one immutable Snapshot swapped
// atomically, so a reader never sees one without the other. Both are
// persisted under the "token" and "user" keys and written or cleared in one
// transaction.
package session
