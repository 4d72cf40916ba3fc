package stores

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/go-redis/redis"
	log "github.com/sirupsen/logrus"

	se "hivepages.io/hive/errors"
	md "hivepages.io/hive/models"
)

// UserStore vends whole-collection access to the user records. Callers load the
// collection, mutate it in memory and save it back within one logical operation;
// there is no partial update and no cross-request arbitration, so concurrent
// saves can overwrite each other. That limitation is inherited and documented,
// not a contract.
type UserStore interface {
	// Load returns the full user collection, empty if the backing record is absent
	Load() (md.Users, *se.Err)
	// Save persists the full collection, atomically overwriting prior content
	Save(us md.Users) *se.Err
	Close() *se.Err
}

// FileUserStore implements UserStore backed by a single JSON file
type FileUserStore struct {
	Path string
}

func (s *FileUserStore) Load() (md.Users, *se.Err) {
	b, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return md.Users{}, nil
		}
		log.WithError(err).WithField("path", s.Path).Error("error reading user collection file")
		return nil, se.NewServiceFailure("error loading user collection").WithCause(err)
	}
	var us md.Users
	if err := json.Unmarshal(b, &us); err != nil {
		log.WithError(err).WithField("path", s.Path).Error("error decoding user collection file")
		return nil, se.NewServiceFailure("error decoding user collection").WithCause(err)
	}
	return us, nil
}

func (s *FileUserStore) Save(us md.Users) *se.Err {
	b, err := json.MarshalIndent(us, "", "  ")
	if err != nil {
		return se.NewServiceFailure("error encoding user collection").WithCause(err)
	}
	// write to a temp file in the same dir then rename, so that a crash mid-write
	// never leaves a truncated collection behind
	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.Path)+".*")
	if err != nil {
		return se.NewServiceFailure("error allocating user collection file").WithCause(err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return se.NewServiceFailure("error writing user collection file").WithCause(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return se.NewServiceFailure("error writing user collection file").WithCause(err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		os.Remove(tmp.Name())
		return se.NewServiceFailure("error replacing user collection file").WithCause(err)
	}
	return nil
}

func (s *FileUserStore) Close() *se.Err {
	return nil
}

// RedisUserStore implements UserStore with the whole collection held as a single
// JSON value under one key. It deliberately keeps the load-mutate-save contract
// of the file backend instead of going per-record.
type RedisUserStore struct {
	DB  *redis.Client
	Key string
}

func (s *RedisUserStore) Load() (md.Users, *se.Err) {
	b, err := s.DB.Get(s.Key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return md.Users{}, nil
		}
		log.WithError(err).WithField("key", s.Key).Error("error reading user collection from redis")
		return nil, se.NewServiceFailure("error loading user collection").WithCause(err)
	}
	var us md.Users
	if err := json.Unmarshal(b, &us); err != nil {
		log.WithError(err).WithField("key", s.Key).Error("error decoding user collection from redis")
		return nil, se.NewServiceFailure("error decoding user collection").WithCause(err)
	}
	return us, nil
}

func (s *RedisUserStore) Save(us md.Users) *se.Err {
	b, err := json.Marshal(us)
	if err != nil {
		return se.NewServiceFailure("error encoding user collection").WithCause(err)
	}
	if _, err := s.DB.Set(s.Key, b, 0).Result(); err != nil {
		log.WithError(err).WithField("key", s.Key).Error("error saving user collection to redis")
		return se.NewServiceFailure("error saving user collection").WithCause(err)
	}
	return nil
}

func (s *RedisUserStore) Close() *se.Err {
	if err := s.DB.Close(); err != nil {
		return se.NewServiceFailure("error closing redis client").WithCause(err)
	}
	return nil
}

// MemUserStore implements UserStore in memory for tests. Load hands back a deep
// copy so that callers observe the same decode-fresh semantics as the durable
// backends.
type MemUserStore struct {
	users md.Users
}

func (s *MemUserStore) Load() (md.Users, *se.Err) {
	b, err := json.Marshal(s.users)
	if err != nil {
		return nil, se.NewServiceFailure("error encoding user collection").WithCause(err)
	}
	us := md.Users{}
	if err := json.Unmarshal(b, &us); err != nil {
		return nil, se.NewServiceFailure("error decoding user collection").WithCause(err)
	}
	return us, nil
}

func (s *MemUserStore) Save(us md.Users) *se.Err {
	s.users = us
	return nil
}

func (s *MemUserStore) Close() *se.Err {
	return nil
}
