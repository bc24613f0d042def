package research

import "errors"

var (
	// ErrEmptyQuery indicates the query was empty after trimming
	ErrEmptyQuery = errors.New("query is empty")

	// ErrMalformedOutput indicates the model's terminal answer could not be
	// parsed into the structured result schema
	ErrMalformedOutput = errors.New("malformed structured output")
)
