package common

import (
	"abm/src/lib"
	"abm/src/models"
	"context"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const feeRateSettingKey = "platform_fee_rate"

// GetFeeRate returns the platform fee rate: the settings row when an
// operator has overridden it, otherwise the fallback. The value is
// cached in redis for an hour; payment paths call this per payment so
// overrides apply without a process restart.
func GetFeeRate(db *gorm.DB, fallback float64) float64 {
	rdb := lib.GetRedisClient()
	if rdb != nil {
		cached, err := rdb.Get(context.Background(), "settings:"+feeRateSettingKey).Result()
		if err == nil {
			if rate, perr := strconv.ParseFloat(cached, 64); perr == nil {
				return rate
			}
		} else if err != redis.Nil {
			log.Printf("Error reading fee rate from cache: %s\n", err.Error())
		}
	}

	var setting models.Setting
	err := db.Model(&models.Setting{}).
		Where(&models.Setting{SettingKey: feeRateSettingKey}).
		First(&setting).
		Error
	if err != nil {
		return fallback
	}
	rate, err := strconv.ParseFloat(setting.SettingValue, 64)
	if err != nil || rate < 0 || rate >= 1 {
		log.Printf("Invalid fee rate setting %q, using default\n", setting.SettingValue)
		return fallback
	}
	if rdb != nil {
		if err := rdb.Set(context.Background(), "settings:"+feeRateSettingKey, setting.SettingValue, time.Hour).Err(); err != nil {
			log.Printf("Error caching fee rate: %s\n", err.Error())
		}
	}
	return rate
}
