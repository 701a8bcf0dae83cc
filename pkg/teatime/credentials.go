package teatime

// Credentials is the closed set of authentication modes a login flow accepts.
// The variants are NoAuth, APIKey, UserPass, and UserPassTwoFactor; no other
// type can satisfy the interface. A Credentials value is immutable and is
// consumed once by Login to produce a session Token.
type Credentials interface {
	credentials()
}

// NoAuth requests an unauthenticated session. Login with NoAuth always
// succeeds, never touches the network, and clears any stored token.
type NoAuth struct{}

func (NoAuth) credentials() {}

// APIKey carries a pre-issued secret such as a personal access token. Login
// with APIKey stores the key locally and never makes a network call; the
// binding decides which header encodes it.
type APIKey struct {
	Key string
}

func (APIKey) credentials() {}

// UserPass carries a username and password for a password-grant style login.
type UserPass struct {
	Username string
	Password string
}

func (UserPass) credentials() {}

// UserPassTwoFactor is UserPass plus a one-time code for vendors that require
// a second factor during the password grant.
type UserPassTwoFactor struct {
	Username    string
	Password    string
	OneTimeCode string
}

func (UserPassTwoFactor) credentials() {}
