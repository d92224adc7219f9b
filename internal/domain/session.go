package domain

// Session is the client-side view of an authenticated backend session.
// The token is opaque to every consumer except the session manager.
type Session struct {
	Token    string
	Username string
}

// Authenticated reports whether the session carries a complete credential
// pair. Both fields must be present; partial state counts as logged out.
func (s Session) Authenticated() bool {
	return s.Token != "" && s.Username != ""
}
