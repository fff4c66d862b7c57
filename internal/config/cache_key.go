package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// QuestionPoolKey returns the cache key holding every question of a category.
func (r *CacheKeyStruct) QuestionPoolKey(category string) string {
	return fmt.Sprintf("questions:%s:pool", category)
}

// UserActiveSessionKey marks that a user has a live interview stream for a kind.
func (r *CacheKeyStruct) UserActiveSessionKey(userID int, kind string) string {
	return fmt.Sprintf("user:%d:interview:%s:active", userID, kind)
}

// UserProgressKey returns the cache key for a user's progress record.
func (r *CacheKeyStruct) UserProgressKey(userID int) string {
	return fmt.Sprintf("user:%d:progress", userID)
}

var CacheKey = NewCacheKeyStruct()
