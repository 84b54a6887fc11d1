package pricefeed_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StrathCole/medianizer-go/pkg/pricefeed"
	"github.com/StrathCole/medianizer-go/pkg/pricefeed/pricefeedtest"
)

func TestTakeSnapshot(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	m := newMedianizer(t, pricefeed.ModeMedian,
		mock(wei("1"), wei("25"), at(100)),
		mock(wei("2"), wei("57"), at(50000)),
		mock(wei("9"), wei("10"), at(25)),
	)

	snap := pricefeed.TakeSnapshot("LUNC/USD", m, now)

	assert.Equal(t, "LUNC/USD", snap.Name)
	require.NotNil(t, snap.Price)
	assert.Equal(t, "2000000000000000000", *snap.Price)
	require.NotNil(t, snap.Value)
	assert.Equal(t, "2", *snap.Value)
	require.NotNil(t, snap.LastUpdateTime)
	assert.Equal(t, int64(50000), *snap.LastUpdateTime)
	require.NotNil(t, snap.Decimals)
	assert.Equal(t, int32(18), *snap.Decimals)
	assert.Equal(t, int64(3600), snap.Lookback)
	assert.Empty(t, snap.DecimalsError)
}

func TestTakeSnapshot_MissingAndMismatch(t *testing.T) {
	m := newMedianizer(t, pricefeed.ModeMedian,
		mock(wei("1"), nil, at(100)),
		pricefeedtest.Empty().WithDecimals(8),
	)

	snap := pricefeed.TakeSnapshot("broken", m, time.Now())

	assert.Nil(t, snap.Price)
	assert.Nil(t, snap.Value)
	assert.Nil(t, snap.LastUpdateTime)
	assert.Nil(t, snap.Decimals)
	assert.Contains(t, snap.DecimalsError, "decimals mismatch")
}

func TestTakeSnapshots_UsesFeedNames(t *testing.T) {
	named := pricefeedtest.Empty().WithName("named")
	snaps := pricefeed.TakeSnapshots([]pricefeed.PriceFeed{named, pricefeedtest.Empty()}, time.Now())

	require.Len(t, snaps, 2)
	assert.Equal(t, "named", snaps[0].Name)
	assert.Equal(t, "feed[1]", snaps[1].Name)
}
