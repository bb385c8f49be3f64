package auth

import "todosync/internal/service"

// Phase is the coarse authentication state.
type Phase int

const (
	Unauthenticated Phase = iota
	Loading
	Authenticated
	Failed
)

func (p Phase) String() string {
	switch p {
	case Unauthenticated:
		return "unauthenticated"
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	case Failed:
		return "error"
	default:
		return "unknown"
	}
}

// State is the authentication signal consumed by the front end.
// User is set only when Authenticated, Message only when Failed.
type State struct {
	Phase   Phase
	User    service.User
	Message string
}
