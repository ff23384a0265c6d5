package abi

import (
	"strconv"
	"time"
)

// The abi package contains definitions of all types that cross the program boundary and are used
// within program code.

// Timestamp is a wall-clock instant in unix seconds, as reported by the ledger clock.
type Timestamp int64

func (t Timestamp) String() string {
	return strconv.FormatInt(int64(t), 10)
}

func (t Timestamp) Time() time.Time {
	return time.Unix(int64(t), 0).UTC()
}

// Sub returns the signed number of seconds from o to t.
func (t Timestamp) Sub(o Timestamp) Duration {
	return Duration(t - o)
}

func (t Timestamp) Add(d Duration) Timestamp {
	return t + Timestamp(d)
}

// Duration is a span of time in seconds.
type Duration int64

const (
	Second Duration = 1
	Minute          = 60 * Second
	Hour            = 60 * Minute
	Day             = 24 * Hour
	Year            = 365 * Day
)

func (d Duration) String() string {
	return (time.Duration(d) * time.Second).String()
}

// TokenAmount is a quantity of the smallest unit of a token.
type TokenAmount = uint64

// BasisPoints expresses a fraction in ten-thousandths.
type BasisPoints = uint16

// BasisPointsTotal is the denominator of every basis-point fraction.
const BasisPointsTotal BasisPoints = 10_000
