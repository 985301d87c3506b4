package knowledge

import "errors"

var (
	// ErrNoCategories indicates the source declared no categories at all.
	ErrNoCategories = errors.New("knowledge base has no categories")

	// ErrEmptyCategory indicates a category or subcategory with no terms.
	ErrEmptyCategory = errors.New("empty term list")

	// ErrMissingCategory indicates a required category is absent.
	ErrMissingCategory = errors.New("missing category")

	// ErrDuplicateCategory indicates a category declared twice.
	ErrDuplicateCategory = errors.New("duplicate category")

	// ErrEmptyName indicates a blank category or subcategory key.
	ErrEmptyName = errors.New("empty category name")

	// ErrMalformed indicates a structurally invalid document.
	ErrMalformed = errors.New("malformed knowledge base")
)
