package ports

import "github.com/gridpool/gridpool/core"

// Tokenizer converts between sessions and signed token strings
type Tokenizer interface {
	SessionToAccessToken(session *core.Session) (string, error)
	AccessTokenToSession(token string) (*core.Session, error)
	SessionToRefreshToken(session *core.Session) (string, error)
	RefreshTokenToSession(token string) (*core.Session, error)
}
