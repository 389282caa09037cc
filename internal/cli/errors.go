package cli

import (
	"fmt"
	"strconv"
)

type notFoundError struct {
	kind string
	id   int64
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, strconv.FormatInt(e.id, 10))
}

func errNotFound(kind string, id int64) error {
	return notFoundError{kind: kind, id: id}
}
