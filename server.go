package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/bluele/gcache"
	"github.com/go-redis/redis"
	"github.com/julienschmidt/httprouter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"hivepages.io/hive/common/logging"
	rt "hivepages.io/hive/common/retry"
	cst "hivepages.io/hive/constants"
	"hivepages.io/hive/creds"
	se "hivepages.io/hive/errors"
	st "hivepages.io/hive/stores"
	ss "hivepages.io/hive/stores/session"
)

// a combination of web and application server since it serves both application logic and web page rendering
type hiveServer struct {
	US     st.UserStore
	FS     st.FileStore
	SM     *ss.Manager
	Admin  creds.Admin
	Cache  gcache.Cache
	Router *httprouter.Router
}

func (s *hiveServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

// start up application server and serve incoming requests
func serve() error {
	// read configuration from env vars
	viper.AutomaticEnv()
	setConfigDefaults()
	logging.SetupLog("HiveServer")
	// initialize dependencies in data layer
	us, err := setupUserStore()
	if err != nil {
		return err
	}
	defer us.Close()
	fs, err := setupFileStore()
	if err != nil {
		return err
	}
	defer fs.Close()

	svr := &hiveServer{}
	svr.US = us
	svr.FS = fs
	svr.SM = ss.NewManager(
		viper.GetString(cst.EnvSessionSecret),
		viper.GetString(cst.EnvSessionDir),
		viper.GetBool(cst.EnvProd),
	)
	svr.Admin = creds.Admin{
		ID:     viper.GetString(cst.EnvAdminID),
		Passwd: viper.GetString(cst.EnvAdminPasswd),
	}
	svr.Cache = gcache.New(viper.GetInt(cst.EnvViewCacheSize)).LRU().Build()
	if err := svr.SetupMux(); err != nil {
		return err
	}

	host, port := viper.GetString(cst.EnvAppHost), viper.GetString(cst.EnvAppPort)
	log.WithFields(log.Fields{
		"host": host,
		"port": port,
	}).Infof("hive server is starting up")
	addr := fmt.Sprintf("%s:%s", host, port)
	return http.ListenAndServe(addr, svr)
}

func setConfigDefaults() {
	viper.SetDefault(cst.EnvAppPort, "3000")
	viper.SetDefault(cst.EnvSessionSecret, "secretkey")
	viper.SetDefault(cst.EnvUserStoreKind, cst.UserStoreKindFile)
	viper.SetDefault(cst.EnvUsersFile, "users.json")
	viper.SetDefault(cst.EnvDataDir, "public")
	viper.SetDefault(cst.EnvViewCacheSize, 128)
	viper.SetDefault(cst.EnvPageSizeMaxByte, 1<<18)
	viper.SetDefault(cst.EnvReqBodySizeMaxByte, 1<<20)
}

func setupUserStore() (st.UserStore, error) {
	kind := viper.GetString(cst.EnvUserStoreKind)
	switch kind {
	case cst.UserStoreKindFile:
		return &st.FileUserStore{Path: viper.GetString(cst.EnvUsersFile)}, nil
	case cst.UserStoreKindRedis:
		retryOpts := []rt.RetryOption{
			rt.WithTimeout(3 * time.Second),
			rt.WithBaseDelay(100 * time.Millisecond),
			rt.WithExp(2.0),
			rt.WithRetryOn(rt.IsDepOffline),
		}
		redisClient := redis.NewClient(&redis.Options{
			Addr:       fmt.Sprintf("%s:%s", viper.GetString(cst.EnvRedisHost), viper.GetString(cst.EnvRedisPort)),
			Password:   viper.GetString(cst.EnvRedisPasswd),
			DB:         viper.GetInt(cst.EnvRedisDB),
			MaxRetries: 3,
		})
		// verify the client is up correctly
		pingFn := func() error {
			_, err := redisClient.Ping().Result()
			return err
		}
		if err := rt.Retry(pingFn, retryOpts...); err != nil {
			return nil, se.NewServiceFailure("failed initializing Redis").WithCause(err)
		}
		return &st.RedisUserStore{DB: redisClient, Key: "users"}, nil
	default:
		return nil, se.NewBadInput(fmt.Sprintf("unknown user store kind %s", kind))
	}
}

func setupFileStore() (st.FileStore, error) {
	return &st.LocalFileStore{Dir: viper.GetString(cst.EnvDataDir)}, nil
}
