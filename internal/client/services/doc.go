// Package services holds the client's use cases on top of the API client
// and the session store: poll browsing and authoring, voting, the dashboard
// and profile editing. Every write takes the acting user from the session.
package services
