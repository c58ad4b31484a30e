package core

import "github.com/dkeye/Meet/internal/domain"

// MemberSession binds an authenticated user and its transport endpoint.
// This is what rooms fan out to.
type MemberSession interface {
	Conn() domain.ConnID
	User() *domain.User
	Signal() SignalConnection
}
