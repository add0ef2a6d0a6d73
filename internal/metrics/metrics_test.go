package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"moviedb/pkg/database"
)

var _ database.Observer = StoreObserver{}

func TestRecordCommand(t *testing.T) {
	before := testutil.ToFloat64(CommandsTotal.WithLabelValues("get_movie", "NotFoundError"))
	RecordCommand("get_movie", "NotFoundError", 3*time.Millisecond)
	after := testutil.ToFloat64(CommandsTotal.WithLabelValues("get_movie", "NotFoundError"))
	assert.Equal(t, before+1, after)
}

func TestStoreObserver(t *testing.T) {
	var o StoreObserver

	timeouts := testutil.ToFloat64(StoreAcquireTimeouts.WithLabelValues(database.SideWrite))
	o.ObserveAcquire(database.SideWrite, time.Millisecond, true)
	assert.Equal(t, timeouts, testutil.ToFloat64(StoreAcquireTimeouts.WithLabelValues(database.SideWrite)))
	o.ObserveAcquire(database.SideWrite, time.Second, false)
	assert.Equal(t, timeouts+1, testutil.ToFloat64(StoreAcquireTimeouts.WithLabelValues(database.SideWrite)))

	retries := testutil.ToFloat64(StoreWriteRetries)
	o.ObserveWriteRetry()
	assert.Equal(t, retries+1, testutil.ToFloat64(StoreWriteRetries))
}
