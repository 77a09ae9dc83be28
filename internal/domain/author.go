package domain

// Author is a person credited on one or more books.
// Name is the natural key: lookups, find-or-create and edits all go by exact name.
type Author struct {
	Record
	Name string `json:"name" validate:"required,min=4"`
	Born *int   `json:"born,omitempty"`
}

// NewAuthor returns an author with timestamps initialized and no birth year.
func NewAuthor(id, name string) *Author {
	a := &Author{Name: name}
	a.ID = id
	a.InitTimestamps()
	return a
}

// SetBorn records the author's birth year.
func (a *Author) SetBorn(year int) {
	a.Born = &year
	a.Touch()
}
