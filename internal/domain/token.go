package domain

// Token is an issued login credential.
type Token struct {
	Value string `json:"value"`
}
