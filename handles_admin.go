package main

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	hr "github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"

	"hivepages.io/hive/common/logging"
	se "hivepages.io/hive/errors"
	md "hivepages.io/hive/models"
	ss "hivepages.io/hive/stores/session"
)

/*
 Admin console handlers. All of them sit behind requireAdmin; the admin principal
 comes from static configuration and has no record in the user collection, so none
 of the user-only paths (dashboard, save, edit, delete) ever admit it.
*/

func (s *hiveServer) HandleAdminGetConsole(tmpl *template.Template) hr.Handle {
	clog := logging.WithFuncName()
	type View struct {
		Users   md.Users
		Flashes ss.Flashes
	}
	return s.requireAdmin(func(w http.ResponseWriter, r *http.Request, _ hr.Params, _ *md.Principal) {
		us, err := s.US.Load()
		if err != nil {
			clog.WithError(err).Error("error loading user collection")
			s.failTo(w, r, "/", se.NewServiceFailure(msgGenericFailure))
			return
		}
		execTemplateLog(tmpl, w, View{Users: us, Flashes: s.SM.ConsumeFlashes(w, r)}, clog)
	})
}

func (s *hiveServer) HandleAdminAddUser() hr.Handle {
	clog := logging.WithFuncName()
	return s.requireAdmin(func(w http.ResponseWriter, r *http.Request, _ hr.Params, _ *md.Principal) {
		if err := r.ParseForm(); err != nil {
			s.failTo(w, r, "/admin", se.NewBadInput("error parsing form data").WithCause(err))
			return
		}
		id, passwd := r.FormValue("id"), r.FormValue("password")
		if err := s.createUser(id, passwd); err != nil {
			clog.WithError(err).WithField("userID", id).Error("error adding user")
			s.failTo(w, r, "/admin", err)
			return
		}
		clog.WithField("userID", id).Info("user added by admin")
		s.succeedTo(w, r, "/admin", "user added")
	})
}

func (s *hiveServer) HandleAdminDeleteUser() hr.Handle {
	clog := logging.WithFuncName()
	return s.requireAdmin(func(w http.ResponseWriter, r *http.Request, _ hr.Params, _ *md.Principal) {
		if err := r.ParseForm(); err != nil {
			s.failTo(w, r, "/admin", se.NewBadInput("error parsing form data").WithCause(err))
			return
		}
		id := r.FormValue("id")
		us, lerr := s.US.Load()
		if lerr != nil {
			clog.WithError(lerr).Error("error loading user collection")
			s.failTo(w, r, "/admin", se.NewServiceFailure(msgGenericFailure))
			return
		}
		u := us.Find(id)
		if u == nil {
			s.failTo(w, r, "/admin", se.NewNotFound("user not found"))
			return
		}
		// cascade: every page the record references goes with it
		for _, name := range u.Pages {
			if err := s.FS.Delete(s.FS.Ref(name)); err != nil {
				clog.WithError(err).WithFields(logrus.Fields{"userID": id, "page": name}).
					Error("error removing page content during cascade delete")
			}
			s.Cache.Remove(name)
		}
		us.Remove(id)
		if err := s.US.Save(us); err != nil {
			clog.WithError(err).WithField("userID", id).Error("error saving user collection")
			s.failTo(w, r, "/admin", se.NewServiceFailure(msgGenericFailure))
			return
		}
		clog.WithField("userID", id).Info("user deleted by admin")
		s.succeedTo(w, r, "/admin", "user deleted")
	})
}

func (s *hiveServer) HandleAdminRenewUser() hr.Handle {
	clog := logging.WithFuncName()
	return s.requireAdmin(func(w http.ResponseWriter, r *http.Request, _ hr.Params, _ *md.Principal) {
		if err := r.ParseForm(); err != nil {
			s.failTo(w, r, "/admin", se.NewBadInput("error parsing form data").WithCause(err))
			return
		}
		id := r.FormValue("id")
		us, lerr := s.US.Load()
		if lerr != nil {
			clog.WithError(lerr).Error("error loading user collection")
			s.failTo(w, r, "/admin", se.NewServiceFailure(msgGenericFailure))
			return
		}
		u := us.Find(id)
		if u == nil {
			s.failTo(w, r, "/admin", se.NewNotFound("user not found"))
			return
		}
		u.Renew(time.Now())
		if err := s.US.Save(us); err != nil {
			clog.WithError(err).WithField("userID", id).Error("error saving user collection")
			s.failTo(w, r, "/admin", se.NewServiceFailure(msgGenericFailure))
			return
		}
		clog.WithField("userID", id).Info("membership renewed by admin")
		s.succeedTo(w, r, "/admin", fmt.Sprintf("membership of %s renewed", id))
	})
}
