package handlers

import (
	"net/http"

	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
)

const sessionCookie = "dashboard_session"

// SessionResolver binds each browser to a session through a cookie,
// starting a fresh session when the cookie is missing or has expired.
type SessionResolver struct {
	store  *services.SessionStore
	secure bool
}

func NewSessionResolver(store *services.SessionStore, secureCookie bool) *SessionResolver {
	return &SessionResolver{store: store, secure: secureCookie}
}

func (sr *SessionResolver) Resolve(w http.ResponseWriter, r *http.Request) (*services.Session, *http.Request, error) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if s, ok := sr.store.Get(c.Value); ok {
			return s, r.WithContext(observability.WithSessionID(r.Context(), s.ID)), nil
		}
	}

	s, err := sr.store.Create(r.Context())
	if err != nil {
		return nil, r, err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   sr.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return s, r.WithContext(observability.WithSessionID(r.Context(), s.ID)), nil
}
