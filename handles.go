package main

import (
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	hr "github.com/julienschmidt/httprouter"
	"github.com/segmentio/ksuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"hivepages.io/hive/common/logging"
	cst "hivepages.io/hive/constants"
	"hivepages.io/hive/creds"
	se "hivepages.io/hive/errors"
	md "hivepages.io/hive/models"
	ss "hivepages.io/hive/stores/session"
)

const (
	msgLoginRequired  = "please log in first"
	msgAdminOnly      = "access denied, admin only"
	msgGenericFailure = "something went wrong, please try again"
	msgPageNotFound   = "page not found"
	// edit and delete report the same message for absent and foreign pages, so that
	// non-owners learn nothing about what exists on disk
	msgPageNotOwned = "page not found in your hive"
)

// authedHandle is a handle that additionally receives the signed-in principal
type authedHandle func(w http.ResponseWriter, r *http.Request, p hr.Params, prin *md.Principal)

// requireUser gates a handle to signed-in requesters. Anonymous requesters get a
// flash message and a redirect to the login page.
func (s *hiveServer) requireUser(h authedHandle) hr.Handle {
	return func(w http.ResponseWriter, r *http.Request, p hr.Params) {
		prin := s.SM.Principal(r)
		if prin.Anonymous() {
			s.failTo(w, r, "/login", se.NewUnauthenticated(msgLoginRequired))
			return
		}
		h(w, r, p, prin)
	}
}

// requireAdmin gates a handle to the admin principal. Everyone else gets a flash
// message and a redirect to the home page.
func (s *hiveServer) requireAdmin(h authedHandle) hr.Handle {
	return func(w http.ResponseWriter, r *http.Request, p hr.Params) {
		prin := s.SM.Principal(r)
		if prin.Anonymous() || !prin.Admin {
			s.failTo(w, r, "/", se.NewForbidden(msgAdminOnly))
			return
		}
		h(w, r, p, prin)
	}
}

// failTo queues the error as a flash message and redirects to dest. This is the
// single propagation path for handler failures: nothing crashes the request,
// the user sees the message on the next render.
func (s *hiveServer) failTo(w http.ResponseWriter, r *http.Request, dest string, err *se.Err) {
	s.SM.Flash(w, r, ss.KindError, err.Error())
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

func (s *hiveServer) succeedTo(w http.ResponseWriter, r *http.Request, dest, msg string) {
	s.SM.Flash(w, r, ss.KindSuccess, msg)
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

func (s *hiveServer) HandleTaskGetHomePage(tmpl *template.Template) hr.Handle {
	clog := logging.WithFuncName()
	type View struct {
		Principal *md.Principal
		Flashes   ss.Flashes
	}
	return func(w http.ResponseWriter, r *http.Request, _ hr.Params) {
		v := View{
			Principal: s.SM.Principal(r),
			Flashes:   s.SM.ConsumeFlashes(w, r),
		}
		execTemplateLog(tmpl, w, v, clog)
	}
}

func (s *hiveServer) HandleTaskGetRegisterPage(tmpl *template.Template) hr.Handle {
	clog := logging.WithFuncName()
	type View struct {
		Flashes ss.Flashes
	}
	return func(w http.ResponseWriter, r *http.Request, _ hr.Params) {
		if !s.SM.Principal(r).Anonymous() {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		execTemplateLog(tmpl, w, View{Flashes: s.SM.ConsumeFlashes(w, r)}, clog)
	}
}

func (s *hiveServer) HandleTaskRegister() hr.Handle {
	clog := logging.WithFuncName()
	return func(w http.ResponseWriter, r *http.Request, _ hr.Params) {
		if err := r.ParseForm(); err != nil {
			s.failTo(w, r, "/register", se.NewBadInput("error parsing form data").WithCause(err))
			return
		}
		id, passwd := r.FormValue("id"), r.FormValue("password")
		if err := s.createUser(id, passwd); err != nil {
			clog.WithError(err).WithField("userID", id).Error("error registering user")
			s.failTo(w, r, "/register", err)
			return
		}
		clog.WithField("userID", id).Info("user registered")
		s.succeedTo(w, r, "/login", "registration succeeded, please log in")
	}
}

// createUser validates, checks for duplicates and appends a fresh record with an
// empty page list and a full membership period. Shared by self-registration and
// admin-add.
func (s *hiveServer) createUser(id, passwd string) *se.Err {
	if err := md.ValidateCredentials(id, passwd); err != nil {
		return err
	}
	us, err := s.US.Load()
	if err != nil {
		return err
	}
	if us.Find(id) != nil {
		return se.NewExisted("id already exists")
	}
	hash, err := creds.Hash(passwd)
	if err != nil {
		return err
	}
	u := &md.User{ID: id, Hash: hash, Pages: []string{}}
	u.Renew(time.Now())
	return s.US.Save(append(us, u))
}

func (s *hiveServer) HandleTaskGetLoginPage(tmpl *template.Template) hr.Handle {
	clog := logging.WithFuncName()
	type View struct {
		Flashes ss.Flashes
	}
	return func(w http.ResponseWriter, r *http.Request, _ hr.Params) {
		if !s.SM.Principal(r).Anonymous() {
			http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
			return
		}
		execTemplateLog(tmpl, w, View{Flashes: s.SM.ConsumeFlashes(w, r)}, clog)
	}
}

func (s *hiveServer) HandleAuthLogin() hr.Handle {
	clog := logging.WithFuncName()
	return func(w http.ResponseWriter, r *http.Request, _ hr.Params) {
		if err := r.ParseForm(); err != nil {
			s.failTo(w, r, "/login", se.NewBadInput("error parsing form data").WithCause(err))
			return
		}
		id, passwd := r.FormValue("id"), r.FormValue("password")
		if id == "" || passwd == "" {
			s.failTo(w, r, "/login", se.NewBadInput("id and password are required"))
			return
		}
		// admin branch: compared against static configuration, never the user collection
		if s.Admin.Match(id, passwd) {
			if err := s.SM.SignIn(w, r, &md.Principal{ID: id, Admin: true}); err != nil {
				clog.WithError(err).Error("error establishing admin session")
				s.failTo(w, r, "/login", se.NewServiceFailure(msgGenericFailure))
				return
			}
			http.Redirect(w, r, "/admin", http.StatusSeeOther)
			return
		}
		us, err := s.US.Load()
		if err != nil {
			clog.WithError(err).Error("error loading user collection")
			s.failTo(w, r, "/login", se.NewServiceFailure(msgGenericFailure))
			return
		}
		u := us.Find(id)
		if u == nil {
			s.failTo(w, r, "/login", se.NewUnauthenticated("id does not exist"))
			return
		}
		if !creds.Verify(passwd, u.Hash) {
			s.failTo(w, r, "/login", se.NewUnauthenticated("wrong password"))
			return
		}
		if err := s.SM.SignIn(w, r, &md.Principal{ID: u.ID}); err != nil {
			clog.WithError(err).WithField("userID", id).Error("error establishing session")
			s.failTo(w, r, "/login", se.NewServiceFailure(msgGenericFailure))
			return
		}
		clog.WithField("userID", id).Info("user logged in")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	}
}

func (s *hiveServer) HandleAuthLogout() hr.Handle {
	clog := logging.WithFuncName()
	return func(w http.ResponseWriter, r *http.Request, _ hr.Params) {
		if err := s.SM.SignOut(w, r); err != nil {
			clog.WithError(err).Error("error destroying session")
		}
		s.succeedTo(w, r, "/", "you have been logged out")
	}
}

func (s *hiveServer) HandleTaskGetDashboard(tmpl *template.Template) hr.Handle {
	clog := logging.WithFuncName()
	type View struct {
		User    *md.User
		Flashes ss.Flashes
	}
	return s.requireUser(func(w http.ResponseWriter, r *http.Request, _ hr.Params, prin *md.Principal) {
		// re-fetch the record: sessions outlive both deletion and expiry
		u, err := s.currentUser(prin)
		if err != nil {
			s.SM.SignOut(w, r)
			s.failTo(w, r, "/login", err)
			return
		}
		if u.Expired() {
			clog.WithField("userID", u.ID).Info("membership lapsed, revoking session")
			s.SM.SignOut(w, r)
			s.failTo(w, r, "/", se.NewForbidden("membership expired, contact the admin"))
			return
		}
		execTemplateLog(tmpl, w, View{User: u, Flashes: s.SM.ConsumeFlashes(w, r)}, clog)
	})
}

// currentUser re-fetches the principal's record from the user collection
func (s *hiveServer) currentUser(prin *md.Principal) (*md.User, *se.Err) {
	us, err := s.US.Load()
	if err != nil {
		return nil, se.NewServiceFailure(msgGenericFailure).WithCause(err)
	}
	u := us.Find(prin.ID)
	if u == nil {
		return nil, se.NewNotFound("account no longer exists")
	}
	return u, nil
}

func (s *hiveServer) HandleTaskSavePage() hr.Handle {
	clog := logging.WithFuncName()
	maxReqBodySize := viper.GetInt64(cst.EnvReqBodySizeMaxByte)
	return s.requireUser(func(w http.ResponseWriter, r *http.Request, _ hr.Params, prin *md.Principal) {
		r.Body = http.MaxBytesReader(w, r.Body, maxReqBodySize)
		if err := r.ParseForm(); err != nil {
			s.failTo(w, r, "/dashboard", se.NewBadInput("error parsing form data").WithCause(err))
			return
		}
		content := r.FormValue("html")
		if content == "" {
			s.failTo(w, r, "/dashboard", se.NewBadInput("html content is required"))
			return
		}
		us, lerr := s.US.Load()
		if lerr != nil {
			clog.WithError(lerr).Error("error loading user collection")
			s.failTo(w, r, "/dashboard", se.NewServiceFailure(msgGenericFailure))
			return
		}
		u := us.Find(prin.ID)
		if u == nil {
			s.SM.SignOut(w, r)
			s.failTo(w, r, "/login", se.NewNotFound("account no longer exists"))
			return
		}
		if u.AtQuota() {
			s.failTo(w, r, "/dashboard", se.NewQuotaExceeded("page limit of 5 reached"))
			return
		}
		// mint the page name once at creation time, independent of content
		kid, err := ksuid.NewRandom()
		if err != nil {
			clog.WithError(err).Error("fail to generate page name")
			s.failTo(w, r, "/dashboard", se.NewServiceFailure(msgGenericFailure))
			return
		}
		name := kid.String() + md.PageSuffix
		plog := clog.WithFields(logrus.Fields{"userID": u.ID, "page": name})
		ref := s.FS.Ref(name)
		if err := s.FS.Save(ref, strings.NewReader(content)); err != nil {
			plog.WithError(err).Error("error saving page content")
			s.failTo(w, r, "/dashboard", err)
			return
		}
		u.Pages = append(u.Pages, name)
		if err := s.US.Save(us); err != nil {
			plog.WithError(err).Error("error saving user collection, dropping orphan page")
			s.FS.Delete(ref)
			s.failTo(w, r, "/dashboard", se.NewServiceFailure(msgGenericFailure))
			return
		}
		plog.Info("page saved")
		s.succeedTo(w, r, "/view/"+name, "page saved")
	})
}

func (s *hiveServer) HandleTaskViewPage() hr.Handle {
	clog := logging.WithFuncName()
	return func(w http.ResponseWriter, r *http.Request, ps hr.Params) {
		// viewing is public, but only generated names ever reach the filesystem
		name := ps.ByName("file")
		if !md.ValidPageName(name) {
			s.failTo(w, r, "/", se.NewNotFound(msgPageNotFound))
			return
		}
		plog := clog.WithField("page", name)
		content, err := s.pageContent(name)
		if err != nil {
			if err.Code != se.ErrCodeNotFound {
				plog.WithError(err).Error("error reading page content")
			}
			s.failTo(w, r, "/", se.NewNotFound(msgPageNotFound))
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := w.Write(content); err != nil {
			plog.WithError(err).Error("error sending page content to requester")
		}
	}
}

// pageContent reads page bytes through the LRU view cache
func (s *hiveServer) pageContent(name string) ([]byte, *se.Err) {
	if v, err := s.Cache.Get(name); err == nil {
		return v.([]byte), nil
	}
	rc, err := s.FS.Get(s.FS.Ref(name))
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	b, rerr := io.ReadAll(rc)
	if rerr != nil {
		return nil, se.NewServiceFailure("error reading page content").WithCause(rerr)
	}
	s.Cache.Set(name, b)
	return b, nil
}

func (s *hiveServer) HandleTaskGetEditPage(tmpl *template.Template) hr.Handle {
	clog := logging.WithFuncName()
	type View struct {
		Filename string
		Content  string
		Flashes  ss.Flashes
	}
	return s.requireUser(func(w http.ResponseWriter, r *http.Request, ps hr.Params, prin *md.Principal) {
		name := ps.ByName("filename")
		if err := s.checkOwnership(prin, name); err != nil {
			s.failTo(w, r, "/dashboard", err)
			return
		}
		content, err := s.pageContent(name)
		if err != nil {
			clog.WithError(err).WithField("page", name).Error("error reading page content")
			s.failTo(w, r, "/dashboard", se.NewNotFound(msgPageNotFound))
			return
		}
		v := View{
			Filename: name,
			Content:  string(content),
			Flashes:  s.SM.ConsumeFlashes(w, r),
		}
		execTemplateLog(tmpl, w, v, clog)
	})
}

func (s *hiveServer) HandleTaskEditPage() hr.Handle {
	clog := logging.WithFuncName()
	maxReqBodySize := viper.GetInt64(cst.EnvReqBodySizeMaxByte)
	return s.requireUser(func(w http.ResponseWriter, r *http.Request, ps hr.Params, prin *md.Principal) {
		name := ps.ByName("filename")
		if err := s.checkOwnership(prin, name); err != nil {
			s.failTo(w, r, "/dashboard", err)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxReqBodySize)
		if err := r.ParseForm(); err != nil {
			s.failTo(w, r, "/dashboard", se.NewBadInput("error parsing form data").WithCause(err))
			return
		}
		content := r.FormValue("html")
		if content == "" {
			s.failTo(w, r, "/edit/"+name, se.NewBadInput("html content is required"))
			return
		}
		if err := s.FS.Save(s.FS.Ref(name), strings.NewReader(content)); err != nil {
			clog.WithError(err).WithField("page", name).Error("error updating page content")
			s.failTo(w, r, "/dashboard", err)
			return
		}
		s.Cache.Remove(name)
		clog.WithFields(logrus.Fields{"userID": prin.ID, "page": name}).Info("page updated")
		s.succeedTo(w, r, "/dashboard", "page updated")
	})
}

// checkOwnership re-fetches the caller's record and verifies the named page sits in
// its page list. Foreign and absent pages are indistinguishable to the caller.
func (s *hiveServer) checkOwnership(prin *md.Principal, name string) *se.Err {
	if !md.ValidPageName(name) {
		return se.NewNotOwner(msgPageNotOwned)
	}
	u, err := s.currentUser(prin)
	if err != nil {
		return err
	}
	if !u.Owns(name) {
		return se.NewNotOwner(msgPageNotOwned)
	}
	return nil
}

func (s *hiveServer) HandleTaskDeletePage() hr.Handle {
	clog := logging.WithFuncName()
	return s.requireUser(func(w http.ResponseWriter, r *http.Request, _ hr.Params, prin *md.Principal) {
		if err := r.ParseForm(); err != nil {
			s.failTo(w, r, "/dashboard", se.NewBadInput("error parsing form data").WithCause(err))
			return
		}
		name := r.FormValue("filename")
		us, lerr := s.US.Load()
		if lerr != nil {
			clog.WithError(lerr).Error("error loading user collection")
			s.failTo(w, r, "/dashboard", se.NewServiceFailure(msgGenericFailure))
			return
		}
		u := us.Find(prin.ID)
		if u == nil {
			s.SM.SignOut(w, r)
			s.failTo(w, r, "/login", se.NewNotFound("account no longer exists"))
			return
		}
		if !u.RemovePage(name) {
			s.failTo(w, r, "/dashboard", se.NewNotOwner(msgPageNotOwned))
			return
		}
		plog := clog.WithFields(logrus.Fields{"userID": u.ID, "page": name})
		if err := s.FS.Delete(s.FS.Ref(name)); err != nil {
			plog.WithError(err).Error("error removing page content")
			s.failTo(w, r, "/dashboard", se.NewServiceFailure(msgGenericFailure))
			return
		}
		s.Cache.Remove(name)
		if err := s.US.Save(us); err != nil {
			plog.WithError(err).Error("error saving user collection")
			s.failTo(w, r, "/dashboard", se.NewServiceFailure(msgGenericFailure))
			return
		}
		plog.Info("page deleted")
		s.succeedTo(w, r, "/dashboard", "page deleted")
	})
}

func (s *hiveServer) HandleHealth() hr.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ hr.Params) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}
}

func (s *hiveServer) HandleNotFound(tmpl *template.Template) http.Handler {
	clog := logging.WithFuncName()
	type View struct {
		Flashes ss.Flashes
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// drain flashes before the status goes out, their cookie rides the header
		v := View{Flashes: s.SM.ConsumeFlashes(w, r)}
		w.WriteHeader(http.StatusNotFound)
		execTemplateLog(tmpl, w, v, clog)
	})
}

// -------------- utils --------------
func execTemplateLog(t *template.Template, w io.Writer, data interface{}, log *logrus.Entry) {
	if err := t.Execute(w, data); err != nil {
		log.WithError(err).Error("error executing html template")
	}
}
