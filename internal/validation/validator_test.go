package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libraryapp/library-server/internal/domain"
	domainerrors "github.com/libraryapp/library-server/internal/errors"
	"github.com/libraryapp/library-server/internal/validation"
)

func TestValidator_ValidRecords(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Validate(&domain.Author{Name: "Robert Martin"}))
	assert.NoError(t, v.Validate(&domain.Book{Title: "Clean Code", Published: 2008, AuthorID: "author-1"}))
	assert.NoError(t, v.Validate(&domain.User{Username: "mluukkai", FavoriteGenre: "refactoring"}))
}

func TestValidator_Constraints(t *testing.T) {
	v := validation.New()

	//nolint:govet // fieldalignment: test table
	tests := []struct {
		name    string
		record  any
		wantMsg string
	}{
		{
			name:    "author name too short",
			record:  &domain.Author{Name: "Bob"},
			wantMsg: "Author validation failed: name: must be at least 4 characters",
		},
		{
			name:    "book title too short",
			record:  &domain.Book{Title: "Code", Published: 2008, AuthorID: "author-1"},
			wantMsg: "Book validation failed: title: must be at least 5 characters",
		},
		{
			name:    "book without author",
			record:  &domain.Book{Title: "Clean Code", Published: 2008},
			wantMsg: "Book validation failed: author_id: is required",
		},
		{
			name:    "user without favorite genre",
			record:  &domain.User{Username: "mluukkai"},
			wantMsg: "User validation failed: favorite_genre: is required",
		},
		{
			name:    "user name too short",
			record:  &domain.User{Username: "ml", FavoriteGenre: "crime"},
			wantMsg: "User validation failed: username: must be at least 3 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.record)
			require.Error(t, err)
			assert.ErrorIs(t, err, domainerrors.ErrValidation)
			assert.Equal(t, tt.wantMsg, err.Error())
		})
	}
}

func TestValidator_ReportsEveryField(t *testing.T) {
	v := validation.New()

	err := v.Validate(&domain.Book{})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	fields, ok := domainErr.Extensions["fields"].(map[string]string)
	require.True(t, ok)
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "author_id")
	assert.NotContains(t, fields, "published", "year 0 is a valid publication year")
}
