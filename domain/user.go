package domain

// User is the acting identity supplied by the gateway on every request.
// Credentials and sessions live outside this service.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
