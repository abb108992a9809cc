package ports

// ErrNotFound is returned by BackingStore.Get for missing or expired keys.
type notFoundError struct{}

func (notFoundError) Error() string { return "key not found" }

var ErrNotFound error = notFoundError{}
