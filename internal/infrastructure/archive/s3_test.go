package archive

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/erp/gs1bridge/internal/domain/delivery"
	"github.com/erp/gs1bridge/internal/domain/gs1"
	"github.com/erp/gs1bridge/internal/infrastructure/config"
)

func TestNewS3Archive_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3Archive(context.Background(), nil)
		assert.ErrorContains(t, err, "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		_, err := NewS3Archive(context.Background(), &config.StorageConfig{})
		assert.ErrorContains(t, err, "bucket is required")
	})
}

func TestNew_DisabledIsNoop(t *testing.T) {
	a, err := New(context.Background(), &config.StorageConfig{Enabled: false, Bucket: "ignored"})
	require.NoError(t, err)
	assert.IsType(t, NoopArchive{}, a)
	assert.NoError(t, a.Store(context.Background(), delivery.Record{ID: "x"}))
}

func TestS3Archive_Key(t *testing.T) {
	at := time.Date(2026, 3, 7, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	rec := delivery.Record{ID: "DESADV-1", Kind: gs1.KindDespatchAdvice, Direction: delivery.DirectionInbound, At: at}

	plain := &S3Archive{}
	assert.Equal(t, "inbound/despatchAdvice/2026/03/08/DESADV-1.xml", plain.Key(rec))

	prefixed := &S3Archive{prefix: "gs1"}
	assert.Equal(t, "gs1/inbound/despatchAdvice/2026/03/08/DESADV-1.xml", prefixed.Key(rec))

	rec.ID = "../../etc/passwd"
	assert.Equal(t, "inbound/despatchAdvice/2026/03/08/.._.._etc_passwd.xml", plain.Key(rec))

	rec.ID = ""
	assert.Equal(t, "inbound/despatchAdvice/2026/03/08/unnamed.xml", plain.Key(rec))
}

type fakeS3 struct {
	mu      sync.Mutex
	puts    map[string][]byte
	headers map[string]http.Header
	status  int
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusOK)
		return
	}
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.puts[r.URL.Path] = body
	f.headers[r.URL.Path] = r.Header.Clone()
	status := f.status
	f.mu.Unlock()
	if status != 0 {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("ETag", `"etag"`)
	w.WriteHeader(http.StatusOK)
}

func newFakeArchive(t *testing.T) (*S3Archive, *fakeS3) {
	fake := &fakeS3{puts: map[string][]byte{}, headers: map[string]http.Header{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	a, err := NewS3Archive(context.Background(), &config.StorageConfig{
		Enabled:         true,
		Bucket:          "gs1-archive",
		Region:          "eu-west-1",
		Endpoint:        srv.URL,
		Prefix:          "/bridge/",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		UsePathStyle:    true,
	}, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return a, fake
}

func TestS3Archive_Store(t *testing.T) {
	a, fake := newFakeArchive(t)
	assert.Equal(t, "gs1-archive", a.Bucket())

	rec := delivery.Record{
		ID:        "ORDER-42",
		Kind:      gs1.KindOrder,
		Direction: delivery.DirectionOutbound,
		Body:      []byte("<orderMessage/>"),
		Status:    "delivered",
		At:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, a.Store(context.Background(), rec))

	path := "/gs1-archive/bridge/outbound/order/2026/01/02/ORDER-42.xml"
	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Contains(t, fake.puts, path)
	assert.Equal(t, "<orderMessage/>", string(fake.puts[path]))
	h := fake.headers[path]
	assert.Equal(t, "application/xml", h.Get("Content-Type"))
	assert.Equal(t, "order", h.Get("X-Amz-Meta-Gs1-Kind"))
	assert.Equal(t, "delivered", h.Get("X-Amz-Meta-Gs1-Status"))
}

func TestS3Archive_StoreFailure(t *testing.T) {
	a, fake := newFakeArchive(t)
	fake.status = http.StatusForbidden

	err := a.Store(context.Background(), delivery.Record{ID: "X", Kind: gs1.KindOrder, Direction: delivery.DirectionInbound})
	assert.ErrorContains(t, err, "failed to archive")
}
