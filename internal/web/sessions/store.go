package sessions

import (
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/porthealth/porthealth/internal/krypto"
)

const CookieName = "ph-session"

// maxAge is the lifetime of the session cookie in seconds.
const maxAge = 60 * 60 * 24 * 30

type Store struct {
	store sessions.Store
}

func NewStore(store sessions.Store) *Store {
	return &Store{store: store}
}

// NewCookieStore creates a store that keeps sessions in signed cookies.
// The first key signs new cookies, the other keys are only used to verify
// existing cookies so keys can be rotated.
func NewCookieStore(keys []krypto.Key, secure bool) *Store {
	pairs := make([][]byte, 0, len(keys)*2)
	for _, k := range keys {
		// Cookies only carry an opaque identifier, they are signed but not encrypted.
		pairs = append(pairs, k.SecretValue(), nil)
	}

	store := sessions.NewCookieStore(pairs...)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return NewStore(store)
}

// Get returns the session of the request. Cookies that can't be decoded,
// for example because they were signed with a key that was rotated out,
// result in a new session.
func (s *Store) Get(r *http.Request) (*Session, error) {
	base, err := s.store.Get(r, CookieName)
	if err != nil && base == nil {
		return nil, err
	}

	return &Session{base: base}, nil
}

func (s *Store) Save(r *http.Request, w http.ResponseWriter, sess *Session) error {
	err := s.store.Save(r, w, sess.base)
	if err != nil {
		return err
	}

	sess.needsSave = false
	return nil
}
