package main

import (
	"html/template"
	"net/http"
	"path/filepath"

	hr "github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	mw "hivepages.io/hive/common/middleware"
	cst "hivepages.io/hive/constants"
)

// set up routes
func (s *hiveServer) SetupMux() error {
	r := hr.New()
	inst, err := mw.NewInstrumenter(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	// every route gets access logging, metrics and panic containment
	wrap := func(route string, h hr.Handle) hr.Handle {
		return mw.Chain(h, inst.Instrument(route), mw.AccessLogger(), mw.PanicRecoverer())
	}
	tmpl := loadTemplates()

	r.GET("/", wrap("/", s.HandleTaskGetHomePage(tmpl["home"])))
	r.GET("/register", wrap("/register", s.HandleTaskGetRegisterPage(tmpl["register"])))
	r.POST("/register", wrap("/register", s.HandleTaskRegister()))
	r.GET("/login", wrap("/login", s.HandleTaskGetLoginPage(tmpl["login"])))
	r.POST("/login", wrap("/login", s.HandleAuthLogin()))
	r.GET("/logout", wrap("/logout", s.HandleAuthLogout()))
	r.GET("/dashboard", wrap("/dashboard", s.HandleTaskGetDashboard(tmpl["dashboard"])))
	r.POST("/save", wrap("/save", s.HandleTaskSavePage()))
	r.GET("/view/:file", wrap("/view/:file", s.HandleTaskViewPage()))
	r.GET("/edit/:filename", wrap("/edit/:filename", s.HandleTaskGetEditPage(tmpl["edit"])))
	r.POST("/edit/:filename", wrap("/edit/:filename", s.HandleTaskEditPage()))
	r.POST("/delete", wrap("/delete", s.HandleTaskDeletePage()))
	// admin console
	r.GET("/admin", wrap("/admin", s.HandleAdminGetConsole(tmpl["admin"])))
	r.POST("/admin/add", wrap("/admin/add", s.HandleAdminAddUser()))
	r.POST("/admin/delete", wrap("/admin/delete", s.HandleAdminDeleteUser()))
	r.POST("/admin/renew", wrap("/admin/renew", s.HandleAdminRenewUser()))
	// ops
	r.GET("/health", wrap("/health", s.HandleHealth()))
	r.Handler(http.MethodGet, "/metrics", promhttp.Handler())
	// static assets share the page directory, mirroring the original deployment layout
	r.Handler(
		http.MethodGet,
		"/static/*filepath",
		http.StripPrefix("/static/", http.FileServer(http.Dir(viper.GetString(cst.EnvDataDir)))),
	)
	r.NotFound = s.HandleNotFound(tmpl["404"])

	s.Router = r
	return nil
}

func loadTemplates() map[string]*template.Template {
	tmpl := map[string]*template.Template{}
	for _, name := range []string{"home", "register", "login", "dashboard", "edit", "admin", "404"} {
		path := filepath.Join("templates", name+".html")
		t, err := template.ParseFiles(path)
		if err != nil {
			// fail early since rendering is critical path
			log.WithError(err).WithField("templatePath", path).Fatal("html template not loaded")
		}
		tmpl[name] = t
	}
	return tmpl
}
