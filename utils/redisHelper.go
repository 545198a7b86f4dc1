package utils

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/config"
)

var seqMutex sync.Mutex

func GetCacheLifespan() time.Duration {
	lifespan, err := strconv.Atoi(os.Getenv("CACHE_LIFESPAN"))
	if err != nil {
		lifespan = 1
	}
	return time.Duration(lifespan) * time.Hour
}

/* generic functions */

func GetTypeName[T any]() string {
	var v T
	typeOfT := reflect.TypeOf(v)
	return typeOfT.Name()
}

/* Redis */

// Balances change with every posting, so cached accounts and suppliers expire.
func typeHasExpiration(typeName string) bool {
	expirableTypes := map[string]bool{
		"MoneyAccount": true,
		"Supplier":     true,
	}
	return expirableTypes[typeName]
}

// store instance, obj should be a pointer
func StoreRedis[T any](obj any, id int) error {
	typeName := GetTypeName[T]()
	key := typeName + ":" + fmt.Sprint(id)

	var duration time.Duration
	if typeHasExpiration(typeName) {
		duration = GetCacheLifespan()
	}
	return config.SetRedisObject(key, &obj, duration)
}

// get from redis
// returns nil if does not exist
func RetrieveRedis[T any](id int) (*T, error) {
	var result *T
	key := GetTypeName[T]() + ":" + fmt.Sprint(id)
	exists, err := config.GetRedisObject(key, &result)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return result, nil
}

// drop cached instance, Type:$id
func ClearRedis[T any](id int) error {
	key := GetTypeName[T]() + ":" + fmt.Sprint(id)
	return config.RemoveRedisKey(key)
}

// GetSequence allocates the next per-business document sequence for T. The
// hot path is a redis INCR; a cold or wiped counter is reseeded from the
// table's max(sequence_no), and every candidate is re-checked against the
// table so a stale counter can never hand out a number twice.
func GetSequence[T any](ctx context.Context, businessId string) (int64, error) {
	var model T
	seqMutex.Lock()
	defer seqMutex.Unlock()
	cacheKey := businessId + "-" + strings.ToLower(GetTypeName[T]()) + "_seq"
	db := config.GetDB()

	for {
		seqNo, err := config.GetRedisCounter(ctx, cacheKey)
		if err != nil {
			return 0, err
		}
		// counter absent or fresh: seed from the table
		if seqNo <= 1 {
			var dbSeq *int64
			if err := db.WithContext(ctx).Model(&model).Select("max(sequence_no)").
				Where("business_id = ?", businessId).
				Scan(&dbSeq).Error; err != nil {
				return 0, err
			}
			if dbSeq != nil {
				seqNo = *dbSeq
			} else {
				seqNo = 0
			}
			seqNo++
			if err := config.SetRedisObject(cacheKey, &seqNo, 0); err != nil {
				return 0, err
			}
		}
		err = ValidateUnique[T](ctx, businessId, "sequence_no", fmt.Sprint(seqNo), 0)
		if err == nil {
			return seqNo, nil
		}
		if !errors.Is(err, ErrorDuplicateValue) {
			return 0, err
		}
	}
}
