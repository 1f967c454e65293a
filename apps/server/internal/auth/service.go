package auth

// Identity is who a session belongs to. ID is what tables store as a player
// or host id.
type Identity struct {
	ID    string `json:"user_id"`
	Name  string `json:"username"`
	Guest bool   `json:"guest"`
}

// Service is the auth/session contract consumed by gateway and HTTP handlers.
type Service interface {
	Register(username, password string) (Identity, string, error)
	Login(username, password string) (Identity, string, error)
	// Guest creates a throwaway account named displayName and signs it in.
	Guest(displayName string) (Identity, string, error)
	ResolveSession(token string) (Identity, bool)
	Logout(token string)
	Close() error
}
