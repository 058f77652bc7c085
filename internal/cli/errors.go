package cli

import "fmt"

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

func errNotFound(kind, id string) error {
	return notFoundError{kind: kind, id: id}
}

type indexError struct {
	index int
	len   int
}

func (e indexError) Error() string {
	return fmt.Sprintf("index out of range: %d (list has %d items)", e.index, e.len)
}
