// Package intern tracks how many times the encoder has seen each string
// offered for "auto" interning, so it can decide when a string has earned a
// dictionary slot. It is the encoder-side counterpart to package dict: dict
// holds strings that have been promoted, Cache holds the candidates that
// haven't (yet).
//
// Counts are kept in hash buckets rather than a map keyed directly by the
// candidate string, so that hashing (not string comparison) dominates the
// hot path for the common case of a handful of distinct strings per bucket.
// A bucket collision never corrupts a count: each bucket holds a small
// slice of (string, count) pairs checked by equality.
package intern

import "github.com/cespare/xxhash/v2"

type entry struct {
	s     string
	count int
}

// Cache counts observations of strings passed through the encoder's "auto"
// intern hint, promoting a string once its count reaches threshold.
type Cache struct {
	buckets   map[uint64][]entry
	threshold int
	size      int
}

// New creates a Cache that promotes a string once it has been observed
// threshold times.
func New(threshold int) *Cache {
	return &Cache{
		buckets:   make(map[uint64][]entry),
		threshold: threshold,
	}
}

// Observe records one more occurrence of s and returns its running count.
func (c *Cache) Observe(s string) int {
	h := xxhash.Sum64String(s)
	bucket := c.buckets[h]

	for i := range bucket {
		if bucket[i].s == s {
			bucket[i].count++

			return bucket[i].count
		}
	}

	c.buckets[h] = append(bucket, entry{s: s, count: 1})
	c.size++

	return 1
}

// ReachedThreshold reports whether s's count is at or above the promotion
// threshold.
func (c *Cache) ReachedThreshold(s string) bool {
	return c.lookup(s) >= c.threshold
}

func (c *Cache) lookup(s string) int {
	for _, e := range c.buckets[xxhash.Sum64String(s)] {
		if e.s == s {
			return e.count
		}
	}

	return 0
}

// Size returns the number of distinct strings currently being counted.
func (c *Cache) Size() int {
	return c.size
}

// Reset clears all counts, called whenever the encoder emits a dict-clear
// and starts a fresh epoch.
func (c *Cache) Reset() {
	for k := range c.buckets {
		delete(c.buckets, k)
	}
	c.size = 0
}
