package services

// TokenClaims is what the core asks the token layer to embed. Till open
// returns a token carrying the new session id; till close clears it.
type TokenClaims struct {
	TenantKey     string
	StaffID       string
	Roles         []string
	BranchID      string
	TillSessionID string
}

// TokenIssuer mints authorization tokens. Implemented at the transport
// layer; the core only decides the claims.
type TokenIssuer interface {
	Issue(claims TokenClaims) (string, error)
}
