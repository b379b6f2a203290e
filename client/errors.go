package client

import "errors"

// Store errors. Each satisfies errors.Is, so a caller can tell an
// input-validation failure (re-render the form, no side effects) apart
// from an unexpected one.
var (
	// ErrNotFound is returned when a scoped lookup (friend, node, email)
	// matches no row for the given user.
	ErrNotFound = errors.New("client: not found")

	// ErrUnauthorized is returned by GetUser when the given password
	// does not match the account's stored hash (or the account does not
	// exist — the two are not distinguished, to avoid leaking which).
	ErrUnauthorized = errors.New("client: unauthorized")

	// ErrDuplicateFriend is returned by AddFriend when the username or
	// public key already belongs to a friend.
	ErrDuplicateFriend = errors.New("client: friend already exists")

	// ErrDuplicateNode is returned by AddNode when the address is
	// already configured.
	ErrDuplicateNode = errors.New("client: node already exists")

	// ErrPageOutOfRange is returned by NewPagination when currentPage is
	// past the result set's last page.
	ErrPageOutOfRange = errors.New("client: page out of range")
)
