package release

// Identity is the verified caller. It is passed into every operation
// instead of being read from shared state.
type Identity struct {
	UserID      int64
	Username    string
	DisplayName string
	Email       string
}

// Authenticated reports whether the identity refers to an account.
func (i Identity) Authenticated() bool {
	return i.UserID > 0
}
