package auth

import (
	"errors"
	"time"

	"github.com/dkeye/Meet/internal/domain"
	lkauth "github.com/livekit/protocol/auth"
)

var ErrSFUDisabled = errors.New("sfu is not configured")

// SFUTokens issues LiveKit join tokens for SFU-routed meetings. The media
// path itself is handled by LiveKit.
type SFUTokens struct {
	URL    string
	key    string
	secret string
	ttl    time.Duration
}

func NewSFUTokens(url, key, secret string, ttl time.Duration) *SFUTokens {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SFUTokens{URL: url, key: key, secret: secret, ttl: ttl}
}

func (s *SFUTokens) Enabled() bool {
	return s != nil && s.URL != "" && s.key != "" && s.secret != ""
}

func (s *SFUTokens) Issue(room domain.RoomID, user domain.UserID) (string, error) {
	if !s.Enabled() {
		return "", ErrSFUDisabled
	}
	at := lkauth.NewAccessToken(s.key, s.secret)
	at.SetVideoGrant(&lkauth.VideoGrant{
		RoomJoin: true,
		Room:     string(room),
	}).
		SetIdentity(string(user)).
		SetValidFor(s.ttl)
	return at.ToJWT()
}
