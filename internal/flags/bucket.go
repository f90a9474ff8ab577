package flags

import (
	"math"

	"github.com/cespare/xxhash/v2"
)

// Buckets is the resolution of percentage rollouts (0.01% steps).
const Buckets = 10000

// Bucket maps a principal onto [0, Buckets) for one flag.  The flag name
// is part of the key so rollouts of different flags are independent.
func Bucket(flag, principalID string) uint32 {
	return uint32(xxhash.Sum64String(flag+"/"+principalID) % Buckets)
}

// InRollout reports whether bucket falls under pct percent.  pct is
// rounded to the nearest bucket, so 0.29 covers exactly 29 buckets.
func InRollout(pct float64, bucket uint32) bool {
	if pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	return bucket < uint32(math.Round(pct*Buckets/100))
}
