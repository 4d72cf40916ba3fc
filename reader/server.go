package main

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"hivepages.io/hive/common/logging"
	cst "hivepages.io/hive/constants"
	se "hivepages.io/hive/errors"
	md "hivepages.io/hive/models"
	st "hivepages.io/hive/stores"
)

// reader handles the public read traffic of hive: serving stored pages by name.
// It shares the page directory with the main server and can be scaled out
// independently since it never touches the user collection.
type reader struct {
	FS     st.FileStore
	Router *gin.Engine
}

func serve() error {
	viper.AutomaticEnv()
	viper.SetDefault(cst.EnvDataDir, "public")
	viper.SetDefault(cst.EnvReaderAddr, ":3001")
	logging.SetupLog("HiveReader")

	r := setup(&st.LocalFileStore{Dir: viper.GetString(cst.EnvDataDir)})
	addr := viper.GetString(cst.EnvReaderAddr)
	log.WithField("addr", addr).Info("hive reader is starting up")
	return r.Router.Run(addr)
}

func setup(fs st.FileStore) *reader {
	r := &reader{FS: fs}
	r.SetupRoutes()
	return r
}

func (r *reader) SetupRoutes() {
	rt := gin.Default()

	rt.GET("/view/:file", r.HandleTaskViewPage)
	rt.GET("/health", r.HandleHealth)
	r.Router = rt
}

func (r *reader) HandleTaskViewPage(ctx *gin.Context) {
	// only generated page names ever reach the filesystem
	name := ctx.Param("file")
	if !md.ValidPageName(name) {
		ctx.String(http.StatusNotFound, "page not found")
		return
	}
	rc, err := r.FS.Get(r.FS.Ref(name))
	if err != nil {
		if err.Code != se.ErrCodeNotFound {
			log.WithError(err).WithField("page", name).Error("error reading page content")
		}
		ctx.String(err.StatusCode(), "page not found")
		return
	}
	defer rc.Close()
	ctx.Status(http.StatusOK)
	ctx.Header("Content-Type", "text/html; charset=utf-8")
	if _, cerr := io.Copy(ctx.Writer, rc); cerr != nil {
		log.WithError(cerr).WithField("page", name).Error("error sending page content to requester")
	}
}

func (r *reader) HandleHealth(ctx *gin.Context) {
	ctx.String(http.StatusOK, "OK")
}
