// Package expiry computes expiry timestamps and the active status they imply.
package expiry

import (
	"fmt"
	"strings"
	"time"

	"github.com/Kosench/go-url-tracker/internal/model"
)

// Mode selects the offset added to a record's input time.
type Mode string

const (
	// ModeShort keeps full timestamp precision and is meant for fast manual verification.
	ModeShort Mode = "short"
	// ModeLong truncates expiry to the UTC calendar day.
	ModeLong Mode = "long"
)

const (
	DefaultShortOffset = time.Minute
	DefaultLongOffset  = 100 * 24 * time.Hour
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeShort:
		return ModeShort, nil
	case ModeLong:
		return ModeLong, nil
	default:
		return "", fmt.Errorf("unknown duration mode %q (expected %q or %q)", s, ModeShort, ModeLong)
	}
}

type Calculator struct {
	Mode        Mode
	ShortOffset time.Duration
	LongOffset  time.Duration
}

func NewCalculator(mode Mode, shortOffset, longOffset time.Duration) (*Calculator, error) {
	if mode != ModeShort && mode != ModeLong {
		return nil, fmt.Errorf("unknown duration mode %q", mode)
	}
	if shortOffset <= 0 {
		shortOffset = DefaultShortOffset
	}
	if longOffset <= 0 {
		longOffset = DefaultLongOffset
	}

	return &Calculator{
		Mode:        mode,
		ShortOffset: shortOffset,
		LongOffset:  longOffset,
	}, nil
}

func (c *Calculator) Offset() time.Duration {
	if c.Mode == ModeLong {
		return c.LongOffset
	}
	return c.ShortOffset
}

// ExpireAt returns the expiry for a record created at input.
func (c *Calculator) ExpireAt(input time.Time) time.Time {
	expire := input.UTC().Add(c.Offset())
	if c.Mode == ModeLong {
		return time.Date(expire.Year(), expire.Month(), expire.Day(), 0, 0, 0, 0, time.UTC)
	}
	return expire
}

// StatusAt is inactive once now has reached expire.
func StatusAt(now, expire time.Time) model.ActiveStatus {
	if !now.Before(expire) {
		return model.StatusInactive
	}
	return model.StatusActive
}
