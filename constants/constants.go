// Package constants vends constants used in various components of hive service, e.g., env var names
package constants

import "time"

const (
	// -------------- env vars --------------
	// common
	EnvVerbose = "HIVE_VERBOSE"
	EnvProd    = "HIVE_PROD"
	// stores
	EnvRedisHost     = "REDIS_HOST"
	EnvRedisPort     = "REDIS_PORT"
	EnvRedisPasswd   = "REDIS_PASSWD"
	EnvRedisDB       = "REDIS_DB"
	EnvUserStoreKind = "HIVE_USER_STORE"
	EnvUsersFile     = "HIVE_USERS_FILE"
	EnvDataDir       = "HIVE_DATA_DIR"
	// server
	EnvAppHost            = "HIVE_HOST"
	EnvAppPort            = "HIVE_PORT"
	EnvSessionSecret      = "HIVE_SESSION_SECRET"
	EnvSessionDir         = "HIVE_SESSION_DIR"
	EnvAdminID            = "HIVE_ADMIN_ID"
	EnvAdminPasswd        = "HIVE_ADMIN_PASS"
	EnvReqBodySizeMaxByte = "HIVE_REQ_BODY_SIZE_MAX_BYTE"
	EnvPageSizeMaxByte    = "HIVE_PAGE_SIZE_MAX_BYTE"
	EnvViewCacheSize      = "HIVE_VIEW_CACHE_SIZE"
	// reader
	EnvReaderAddr = "HIVE_READER_ADDR"

	// -------------- user store kinds --------------
	UserStoreKindFile  = "file"
	UserStoreKindRedis = "redis"

	// -------------- domain limits --------------
	// MaxPagesPerUser caps the number of pages a single user can own.
	MaxPagesPerUser = 5
	// MembershipPeriod is the subscription extension granted on registration and renewal.
	MembershipPeriod = 30 * 24 * time.Hour

	// -------------- error messages --------------
	ErrMsgRequestBodyTooLarge = "request body too large"

	// -------------- log fields --------------
	LogFieldFuncName = "funcName"
)
