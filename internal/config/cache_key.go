package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// DeviceSessionKey returns the key of the single in-progress session slot of a device.
func (r *CacheKeyStruct) DeviceSessionKey(deviceID string) string {
	return fmt.Sprintf("device:%s:exam_session", deviceID)
}

// ExamListKey returns the cache key for the open exam lobby.
func (r *CacheKeyStruct) ExamListKey() string {
	return "exams:open"
}

// ExamMonitorChannel returns the Redis PubSub channel name for an exam monitor
func (r *CacheKeyStruct) ExamMonitorChannel(examID string) string {
	return fmt.Sprintf("exam:%s:monitor", examID)
}

var CacheKey = NewCacheKeyStruct()
