package service

import (
	"time"

	"github.com/kpango/glg"
	"github.com/pkg/errors"
)

// validateRequestTime checks that now falls inside the declared request
// validity window widened by the clock tolerance on both ends. Every
// operation passes through this gate before any other processing.
//
// A missing created or expires value is a schema contract breach, the
// transport layer is required to have rejected such a request already.
func validateRequestTime(hdr RequestHeader, tolerance time.Duration, now time.Time) error {
	if hdr.Created.IsZero() || hdr.Expires.IsZero() {
		return errors.Wrap(ErrInternal, "request header misses created or expires")
	}

	start := hdr.Created.Add(-tolerance)
	end := hdr.Expires.Add(tolerance)

	if now.Before(start) || !now.Before(end) {
		glg.Warnf("clock-skew: request window [%s, %s) with tolerance %s does not contain now %s",
			start.Format(time.RFC3339Nano), end.Format(time.RFC3339Nano), tolerance, now.Format(time.RFC3339Nano))
		return errors.Wrapf(ErrExpired, "window [%s, %s) does not contain %s",
			start.Format(time.RFC3339Nano), end.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	}
	return nil
}
