// Package cli provides the interactive polls command-line client.
//
// It wires the session store, API services and views into a REPL. Pages
// that need a signed-in user go through the route guard; a command bounced
// to the login prompt runs once the user has logged in.
//
// Key features:
//   - Signup / Login / Logout, profile editing
//   - List, show, create, close and delete polls
//   - Vote, and watch results update live
//   - Dashboard with the user's own polls and the ones they voted on
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
