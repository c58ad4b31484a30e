package core

import "github.com/dkeye/Meet/internal/domain"

// memberSession implements MemberSession by pairing identity + transport.
type memberSession struct {
	conn   domain.ConnID
	user   *domain.User
	signal SignalConnection
}

func NewMemberSession(conn domain.ConnID, user *domain.User, signal SignalConnection) MemberSession {
	return &memberSession{conn: conn, user: user, signal: signal}
}

func (m *memberSession) Conn() domain.ConnID      { return m.conn }
func (m *memberSession) User() *domain.User       { return m.user }
func (m *memberSession) Signal() SignalConnection { return m.signal }
