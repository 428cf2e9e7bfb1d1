package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"moneytracker/internal/cache"
	"moneytracker/internal/core"
	"moneytracker/internal/services"
)

const sessionCookie = "mt_session"

// session holds the form state of one browser. Controllers are created on
// first use of a kind.
type session struct {
	mu    sync.Mutex
	forms map[core.RecordKind]*services.FormController
}

func newSession() *session {
	return &session{forms: make(map[core.RecordKind]*services.FormController)}
}

func (s *session) controller(kind core.RecordKind, sub *services.RecordSubmitter) *services.FormController {
	s.mu.Lock()
	defer s.mu.Unlock()

	fc, ok := s.forms[kind]
	if !ok {
		fc = services.NewFormController(sub)
		s.forms[kind] = fc
	}
	return fc
}

// sessionStore keeps sessions in an LRU cache with a sliding TTL. An evicted
// session simply starts over with fresh form values.
type sessionStore struct {
	cache *cache.LRUCache[*session]
	ttl   time.Duration
}

func newSessionStore(maxSessions int, ttl time.Duration) *sessionStore {
	return &sessionStore{
		cache: cache.NewLRUCache[*session](maxSessions, ttl),
		ttl:   ttl,
	}
}

// lookup returns the live session named by the request cookie.
func (st *sessionStore) lookup(r *http.Request) (*session, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, false
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return nil, false
	}
	return st.cache.Get(c.Value)
}

// resolve returns the request's session, starting a new one with a fresh id
// when the cookie is missing, malformed or expired. Client supplied ids are
// never adopted. The cookie is reissued on every call so it expires together
// with the session.
func (st *sessionStore) resolve(w http.ResponseWriter, r *http.Request) *session {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if sess, ok := st.lookup(r); ok {
			st.setCookie(w, r, c.Value)
			return sess
		}
	}

	id := uuid.NewString()
	sess, _ := st.cache.GetOrCreate(id, newSession)
	st.setCookie(w, r, id)
	return sess
}

func (st *sessionStore) setCookie(w http.ResponseWriter, r *http.Request, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(st.ttl.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (st *sessionStore) Size() int {
	return st.cache.Size()
}
