package workouts

import (
	"fmt"
	"strings"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const recordsCacheExpireSeconds = 5 * 60

// RecordsCache keeps computed record query responses so that repeated
// chart refreshes do not re-scan the sets. Entries expire after a few
// minutes and the whole cache is dropped on any write to the workouts.
type RecordsCache struct {
	cache *freecache.Cache
}

func NewRecordsCache(sizeMegabytes int) *RecordsCache {
	megabyte := 1024 * 1024
	return &RecordsCache{
		cache: freecache.NewCache(sizeMegabytes * megabyte),
	}
}

func recordsCacheKey(userID int, exercise, query string) []byte {
	return []byte(fmt.Sprintf("%d::%s::%s", userID, strings.ToLower(exercise), query))
}

func (rc *RecordsCache) Get(userID int, exercise, query string) ([]byte, bool) {
	value, err := rc.cache.Get(recordsCacheKey(userID, exercise, query))
	if err != nil {
		return nil, false
	}
	return value, true
}

func (rc *RecordsCache) Set(userID int, exercise, query string, value []byte) {
	if err := rc.cache.Set(recordsCacheKey(userID, exercise, query), value, recordsCacheExpireSeconds); err != nil {
		log.Errorf("failed to write records cache for %s [%s]: %s", exercise, query, err)
	}
}

// Clear drops every cached record. Called after workout create / delete
// and after a dev wipe; invalidating per user and exercise is not worth
// the bookkeeping at this scale.
func (rc *RecordsCache) Clear() {
	rc.cache.Clear()
}
