package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordMutation(t *testing.T) {
	before := testutil.ToFloat64(storeMutations.WithLabelValues("maps", "add"))
	RecordMutation("maps", "add")
	RecordMutation("maps", "add")
	assert.Equal(t, before+2, testutil.ToFloat64(storeMutations.WithLabelValues("maps", "add")))
}

func TestRecordPersist(t *testing.T) {
	RecordPersist("ok", 1234)
	assert.Equal(t, float64(1234), testutil.ToFloat64(storeDocumentBytes))

	before := testutil.ToFloat64(storePersist.WithLabelValues("error"))
	RecordPersist("error", 0)
	assert.Equal(t, before+1, testutil.ToFloat64(storePersist.WithLabelValues("error")))
	assert.Equal(t, float64(1234), testutil.ToFloat64(storeDocumentBytes), "failed persist keeps last size")
}

func TestRecordBackup(t *testing.T) {
	okBefore := testutil.ToFloat64(backupRuns.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(backupRuns.WithLabelValues("error"))
	RecordBackup(nil)
	RecordBackup(errors.New("disk full"))
	assert.Equal(t, okBefore+1, testutil.ToFloat64(backupRuns.WithLabelValues("ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(backupRuns.WithLabelValues("error")))
}

func TestHandler(t *testing.T) {
	ObserveHTTP(http.MethodGet, "/api/v1/maps", http.StatusOK, 3*time.Millisecond)

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `dnd_master_http_requests_total{method="GET",route="/api/v1/maps",status="200"}`)
	assert.Contains(t, w.Body.String(), "dnd_master_store_document_bytes")
}
