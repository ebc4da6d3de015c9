package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestOrderNumberFormat(t *testing.T) {
	assert.Equal(t, "KHI-20260825-0001", FormatOrderNumber("KHI", "20260825", 1))
	assert.Equal(t, "KHI-20260825-0042", FormatOrderNumber("KHI", "20260825", 42))
	// Beyond four digits the number grows instead of truncating.
	assert.Equal(t, "KHI-20260825-12345", FormatOrderNumber("KHI", "20260825", 12345))
}

func TestOrderNumbersSequencePerDay(t *testing.T) {
	counters := newFakeCounters()
	numbers := NewOrderNumbers(counters)
	branchID := primitive.NewObjectID()
	ctx := context.Background()

	day1 := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	n1, err := numbers.Next(ctx, newTenant(), branchID, "KHI", day1)
	require.NoError(t, err)
	n2, err := numbers.Next(ctx, newTenant(), branchID, "KHI", day1)
	require.NoError(t, err)
	n3, err := numbers.Next(ctx, newTenant(), branchID, "KHI", day2)
	require.NoError(t, err)

	assert.Equal(t, "KHI-20260825-0001", n1)
	assert.Equal(t, "KHI-20260825-0002", n2)
	// The counter resets with the date key.
	assert.Equal(t, "KHI-20260826-0001", n3)
}

func TestOrderNumbersSeparatePerBranch(t *testing.T) {
	counters := newFakeCounters()
	numbers := NewOrderNumbers(counters)
	ctx := context.Background()
	at := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)

	a, err := numbers.Next(ctx, newTenant(), primitive.NewObjectID(), "A", at)
	require.NoError(t, err)
	b, err := numbers.Next(ctx, newTenant(), primitive.NewObjectID(), "B", at)
	require.NoError(t, err)

	assert.Equal(t, "A-20260825-0001", a)
	assert.Equal(t, "B-20260825-0001", b)
}

func TestOrderNumbersConcurrentAllocation(t *testing.T) {
	counters := newFakeCounters()
	numbers := NewOrderNumbers(counters)
	branchID := primitive.NewObjectID()
	at := time.Date(2026, 8, 25, 18, 0, 0, 0, time.UTC)

	const workers = 32
	results := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := numbers.Next(context.Background(), newTenant(), branchID, "KHI", at)
			assert.NoError(t, err)
			results <- n
		}()
	}
	wg.Wait()
	close(results)

	// The counter is the sole coordination point; every winner gets a
	// distinct number and the day's sequence has no duplicates.
	seen := make(map[string]bool, workers)
	for n := range results {
		assert.False(t, seen[n], "duplicate order number %s", n)
		seen[n] = true
	}
	assert.Len(t, seen, workers)
	assert.True(t, seen[FormatOrderNumber("KHI", "20260825", 1)])
	assert.True(t, seen[FormatOrderNumber("KHI", "20260825", workers)])
}

func TestOrderNumbersDefaultPrefix(t *testing.T) {
	counters := newFakeCounters()
	numbers := NewOrderNumbers(counters)

	n, err := numbers.Next(context.Background(), newTenant(), primitive.NewObjectID(), "", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "POS-20260102-0001", n)
}
