package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StrathCole/medianizer-go/pkg/logging"
	"github.com/StrathCole/medianizer-go/pkg/pricefeed"
	"github.com/StrathCole/medianizer-go/pkg/pricefeed/pricefeedtest"
)

type recordingPublisher struct {
	mu    sync.Mutex
	calls [][]pricefeed.Snapshot
}

func (p *recordingPublisher) Publish(snapshots []pricefeed.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, snapshots)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func TestNew_InvalidSchedule(t *testing.T) {
	_, err := New("every now and then", time.Second, nil, logging.NewNoopLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schedule")
}

func TestRunOnce_UpdatesAndPublishes(t *testing.T) {
	a := pricefeedtest.New(pricefeedtest.Wei("1"), nil, pricefeedtest.Time(10)).WithName("a")
	b := pricefeedtest.New(pricefeedtest.Wei("2"), nil, pricefeedtest.Time(20)).WithName("b")
	b.SetUpdateError(errors.New("upstream down"))

	pub := &recordingPublisher{}
	s, err := New("@every 1m", time.Second, []pricefeed.PriceFeed{a, b}, logging.NewNoopLogger(), pub)
	require.NoError(t, err)

	snaps := s.RunOnce(context.Background())

	assert.Equal(t, 1, a.UpdateCalled())
	assert.Equal(t, 1, b.UpdateCalled())
	require.Len(t, snaps, 2)
	assert.Equal(t, "a", snaps[0].Name)
	assert.Equal(t, "b", snaps[1].Name)
	require.NotNil(t, snaps[1].Value)
	assert.Equal(t, "2", *snaps[1].Value)

	require.Equal(t, 1, pub.count())
	assert.Equal(t, snaps, s.Last())
}

func TestStart_RunsOnSchedule(t *testing.T) {
	feed := pricefeedtest.Empty()
	pub := &recordingPublisher{}
	s, err := New("@every 1s", time.Second, []pricefeed.PriceFeed{feed}, logging.NewNoopLogger(), pub)
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return feed.UpdateCalled() >= 1 && pub.count() >= 1
	}, 5*time.Second, 50*time.Millisecond)
}
