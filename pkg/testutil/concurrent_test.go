package testutil

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	dErrors "dcptck/pkg/domain-errors"
)

func TestRunConcurrent_BucketsByCode(t *testing.T) {
	result := RunConcurrent(8, func(idx int) error {
		switch idx % 4 {
		case 0:
			return nil
		case 1:
			return dErrors.New(dErrors.CodeUnauthorized, "JTI already used")
		case 2:
			return dErrors.New(dErrors.CodeNotFound, "No credentials found")
		default:
			return errors.New("boom")
		}
	})

	assert.Equal(t, int32(2), result.Successes)
	assert.Equal(t, int32(2), result.Unauthorized)
	assert.Equal(t, int32(2), result.NotFounds)
	assert.Equal(t, int32(2), result.Errors)
	assert.Equal(t, int32(8), result.Total())
	assert.Equal(t, int32(6), result.Failures())
}

func TestRunConcurrent_SingleWinner(t *testing.T) {
	var claimed atomic.Bool
	result := RunConcurrent(50, func(int) error {
		if claimed.CompareAndSwap(false, true) {
			return nil
		}
		return dErrors.New(dErrors.CodeUnauthorized, "already claimed")
	})

	assert.Equal(t, int32(1), result.Successes)
	assert.Equal(t, int32(49), result.Unauthorized)
}

func TestRunConcurrentCollect(t *testing.T) {
	successes, errs := RunConcurrentCollect(4, func(idx int) error {
		if idx == 0 {
			return errors.New("first")
		}
		return nil
	})

	assert.Equal(t, int32(3), successes)
	assert.Len(t, errs, 1)
}
