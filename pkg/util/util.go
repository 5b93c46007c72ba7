package util

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// error

type Error struct {
	orig error
	msg  string
	code error
}

func (e *Error) Error() string {
	if e.orig != nil {
		return fmt.Sprintf("%s", e.msg)
	}

	return e.msg
}

func (e *Error) Unwrap() error {
	return e.orig
}

// Is lets errors.Is match the wrapped code, so callers can test a result
// against the sentinel errors below without unwrapping by hand.
func (e *Error) Is(target error) bool {
	return e.code == target
}

func WrapErrorf(orig error, code error, format string, a ...interface{}) error {
	return &Error{
		code: code,
		orig: orig,
		msg:  fmt.Sprintf(format, a...),
	}
}

func (e *Error) Code() error {
	return e.code
}

var (
	ErrInternalServerError = errors.New("internal server error")
	ErrNotFound            = errors.New("no road segment found near the query point")
	ErrNoPath              = errors.New("no path between origin and destination")
	ErrNoMatch             = errors.New("no plausible road sequence for the gps trace")
	ErrMatrixTooLarge      = errors.New("matrix query exceeds the configured cell limit")
	ErrVersionMismatch     = errors.New("graph file version is not supported")
	ErrCorruptGraph        = errors.New("graph file is truncated or corrupt")
	ErrBadParamInput       = errors.New("given param is not valid")
)

func DegreeToRadians(angle float64) float64 {
	return angle * (math.Pi / 180.0)
}

func RadiansToDegree(rad float64) float64 {
	return 180.0 * rad / math.Pi
}

func ReverseG[T any](arr []T) []T {
	copyArr := make([]T, len(arr)) // should do on the copy )
	copy(copyArr, arr)
	for i, j := 0, len(copyArr)-1; i < j; i, j = i+1, j-1 {
		copyArr[i], copyArr[j] = copyArr[j], copyArr[i]
	}
	return copyArr
}

func MinG[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func MaxG[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

func StopConcurrentOperation(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
