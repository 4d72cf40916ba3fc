// Package session vends the server-side request session: the signed-in principal
// and the flash messages queued for the next rendered page. Session state lives on
// the server (gorilla FilesystemStore); the cookie carries only the session id.
package session

import (
	"net/http"

	"github.com/gorilla/sessions"
	log "github.com/sirupsen/logrus"

	se "hivepages.io/hive/errors"
	md "hivepages.io/hive/models"
)

const (
	sessionName = "hive_session"
	keyUserID   = "userID"
	keyIsAdmin  = "isAdmin"

	// flash kinds
	KindError   = "error"
	KindSuccess = "success"

	// sessions idle out after a day; dashboard expiry checks cover the rest
	sessionMaxAgeSec = 86400
)

// Flashes carries the transient messages queued for the next render.
type Flashes struct {
	Errors    []string
	Successes []string
}

type Manager struct {
	store *sessions.FilesystemStore
	name  string
}

// NewManager builds a Manager persisting sessions under dir (the OS temp dir when
// empty). secure controls the cookie Secure attribute and follows the production
// flag of the deployment.
func NewManager(secret, dir string, secure bool) *Manager {
	st := sessions.NewFilesystemStore(dir, []byte(secret))
	st.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAgeSec,
		HttpOnly: true,
		Secure:   secure,
	}
	return &Manager{store: st, name: sessionName}
}

// Principal returns the identity attached to the request, nil for anonymous
// requesters. An undecodable or tampered session counts as anonymous.
func (m *Manager) Principal(r *http.Request) *md.Principal {
	s, err := m.store.Get(r, m.name)
	if err != nil {
		log.WithError(err).Debug("error decoding session, treating requester as anonymous")
		return nil
	}
	id, ok := s.Values[keyUserID].(string)
	if !ok || id == "" {
		return nil
	}
	admin, _ := s.Values[keyIsAdmin].(bool)
	return &md.Principal{ID: id, Admin: admin}
}

// SignIn attaches the principal to the request's session.
func (m *Manager) SignIn(w http.ResponseWriter, r *http.Request, p *md.Principal) *se.Err {
	s, _ := m.store.Get(r, m.name)
	s.Values[keyUserID] = p.ID
	s.Values[keyIsAdmin] = p.Admin
	if err := s.Save(r, w); err != nil {
		return se.NewServiceFailure("error establishing session").WithCause(err)
	}
	return nil
}

// SignOut destroys the request's session.
func (m *Manager) SignOut(w http.ResponseWriter, r *http.Request) *se.Err {
	s, _ := m.store.Get(r, m.name)
	delete(s.Values, keyUserID)
	delete(s.Values, keyIsAdmin)
	s.Options.MaxAge = -1
	if err := s.Save(r, w); err != nil {
		return se.NewServiceFailure("error destroying session").WithCause(err)
	}
	return nil
}

// Flash queues a message of the given kind for the next rendered page.
func (m *Manager) Flash(w http.ResponseWriter, r *http.Request, kind, msg string) {
	s, _ := m.store.Get(r, m.name)
	s.AddFlash(msg, kind)
	if err := s.Save(r, w); err != nil {
		log.WithError(err).Error("error queueing flash message")
	}
}

// ConsumeFlashes drains and returns the queued messages.
func (m *Manager) ConsumeFlashes(w http.ResponseWriter, r *http.Request) Flashes {
	s, _ := m.store.Get(r, m.name)
	f := Flashes{}
	for _, v := range s.Flashes(KindError) {
		if msg, ok := v.(string); ok {
			f.Errors = append(f.Errors, msg)
		}
	}
	for _, v := range s.Flashes(KindSuccess) {
		if msg, ok := v.(string); ok {
			f.Successes = append(f.Successes, msg)
		}
	}
	if err := s.Save(r, w); err != nil {
		log.WithError(err).Error("error draining flash messages")
	}
	return f
}
