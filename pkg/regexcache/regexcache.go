// Package regexcache keeps compiled regular expressions keyed by pattern so
// rule tables and user patterns are compiled once per process.
//
//	re, err := regexcache.Get(`(?i)react[.-]dom`)
//	if err != nil {
//	    return err
//	}
package regexcache

import (
	"regexp"
	"sync"
)

var cache sync.Map

// Get returns the compiled form of pattern, compiling it on first use.
func Get(pattern string) (*regexp.Regexp, error) {
	if cached, ok := cache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	actual, _ := cache.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp), nil
}

// GetWithFlags compiles pattern with the given inline RE2 flags (any of
// "imsU"). An empty flag set is the same as Get.
func GetWithFlags(pattern, flags string) (*regexp.Regexp, error) {
	if flags == "" {
		return Get(pattern)
	}
	return Get("(?" + flags + ")" + pattern)
}

// MustGet is Get for patterns known at compile time. It panics on error.
func MustGet(pattern string) *regexp.Regexp {
	re, err := Get(pattern)
	if err != nil {
		panic(err)
	}
	return re
}

// Precompile warms the cache and returns the errors of patterns that failed.
func Precompile(patterns ...string) []error {
	var errs []error
	for _, pattern := range patterns {
		if _, err := Get(pattern); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Clear empties the cache.
func Clear() {
	cache.Range(func(key, _ any) bool {
		cache.Delete(key)
		return true
	})
}

// Size returns the number of cached expressions.
func Size() int {
	count := 0
	cache.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}
