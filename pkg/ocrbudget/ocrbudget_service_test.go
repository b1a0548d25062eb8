package ocrbudget

import (
	"context"
	"testing"
	"time"

	"github.com/obratrack/obratrack/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ocrBudgetRepo = NewStubOcrBudgetRepo()
	mockClock     = &utils.MockClock{FixedNow: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
	ocrCtx        = context.Background()
)

func setup(t *testing.T) func() {
	mockClock.SetNow(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))
	return func() {
		ocrBudgetRepo.Cleanup()
	}
}

func TestGovernorImpl(t *testing.T) {

	t.Run("should deny the call that would push spend past the cap", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		// given a cap of 1000 and three calls costing 400 each
		governor := NewGovernor(ocrBudgetRepo, mockClock, 1000)

		// when / then
		for i := 0; i < 2; i++ {
			allowed, err := governor.Authorize(ocrCtx, 400)
			require.NoError(t, err)
			assert.True(t, allowed)
			require.NoError(t, governor.Record(ocrCtx, 400))
		}

		allowed, err := governor.Authorize(ocrCtx, 400)
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("should allow spend exactly at the cap", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		// given
		governor := NewGovernor(ocrBudgetRepo, mockClock, 1000)
		require.NoError(t, governor.Record(ocrCtx, 900))

		// when
		allowed, err := governor.Authorize(ocrCtx, 100)

		// then
		require.NoError(t, err)
		assert.True(t, allowed)
	})

	t.Run("should charge a recorded cost even after a denied authorization", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		// given a failed extraction whose external call was still made
		governor := NewGovernor(ocrBudgetRepo, mockClock, 1000)
		require.NoError(t, governor.Record(ocrCtx, 700))

		// when
		require.NoError(t, governor.Record(ocrCtx, 300))

		// then
		status, err := governor.Status(ocrCtx)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), status.SpentCents)
		assert.Equal(t, int64(2), status.CallCount)
		assert.Zero(t, status.RemainingCents)
	})

	t.Run("should start a fresh counter when the month rolls over", func(t *testing.T) {
		teardown := setup(t)
		defer teardown()
		// given an exhausted March budget
		governor := NewGovernor(ocrBudgetRepo, mockClock, 1000)
		require.NoError(t, governor.Record(ocrCtx, 1000))
		allowed, err := governor.Authorize(ocrCtx, 10)
		require.NoError(t, err)
		require.False(t, allowed)

		// when April begins
		mockClock.SetNow(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))

		// then
		allowed, err = governor.Authorize(ocrCtx, 10)
		require.NoError(t, err)
		assert.True(t, allowed)

		status, err := governor.Status(ocrCtx)
		require.NoError(t, err)
		assert.Equal(t, "2026-04", status.Month)
		assert.Zero(t, status.SpentCents)
	})
}
