package domain

// User is an account that can sign in with the shared catalog password.
type User struct {
	Record
	Username      string `json:"username" validate:"required,min=3"`
	FavoriteGenre string `json:"favorite_genre" validate:"required"`
}

// Identity is what a signed credential asserts about its bearer.
type Identity struct {
	Username string `json:"username"`
	ID       string `json:"id"`
}

// Identity returns the claims embedded in this user's credentials.
func (u *User) Identity() Identity {
	return Identity{Username: u.Username, ID: u.ID}
}
