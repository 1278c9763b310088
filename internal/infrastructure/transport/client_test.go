package transport

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/erp/gs1bridge/internal/domain/delivery"
	"github.com/erp/gs1bridge/internal/domain/gs1"
	"github.com/erp/gs1bridge/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Config Tests
// ---------------------------------------------------------------------------

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{name: "valid", config: Config{BrokerAddress: "https://broker.example.org/gs1"}},
		{name: "missing broker", config: Config{}, wantErr: ErrConfigMissingBroker},
		{name: "relative broker", config: Config{BrokerAddress: "broker/gs1"}, wantErr: ErrConfigInvalidBroker},
		{name: "unsupported scheme", config: Config{BrokerAddress: "ftp://broker"}, wantErr: ErrConfigInvalidBroker},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultTimeout, tt.config.Timeout)
		})
	}
}

// ---------------------------------------------------------------------------
// Client Tests
// ---------------------------------------------------------------------------

type capturedRequest struct {
	path        string
	contentType string
	user, pass  string
	hasAuth     bool
	principal   string
	messageID   string
	traceparent string
	body        []byte
	form        map[string][]byte
	formType    string
	formFile    string
}

type broker struct {
	mu       sync.Mutex
	requests []capturedRequest
	status   int
}

func (b *broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c := capturedRequest{
		path:        r.URL.Path,
		contentType: r.Header.Get("Content-Type"),
		principal:   r.Header.Get("X-Principal"),
		messageID:   r.Header.Get("X-Message-Id"),
		traceparent: r.Header.Get("traceparent"),
	}
	c.user, c.pass, c.hasAuth = r.BasicAuth()
	if err := r.ParseMultipartForm(1 << 20); err == nil {
		c.form = map[string][]byte{}
		for name, files := range r.MultipartForm.File {
			f, _ := files[0].Open()
			data, _ := io.ReadAll(f)
			_ = f.Close()
			c.form[name] = data
			c.formType = files[0].Header.Get("Content-Type")
			c.formFile = files[0].Filename
		}
	} else {
		c.body, _ = io.ReadAll(r.Body)
	}

	b.mu.Lock()
	b.requests = append(b.requests, c)
	status := b.status
	b.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if status >= 300 {
		_, _ = io.WriteString(w, "order rejected by partner")
	}
}

func (b *broker) last(t *testing.T) capturedRequest {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.requests)
	return b.requests[len(b.requests)-1]
}

func newBroker(t *testing.T) (*broker, *httptest.Server) {
	b := &broker{}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	return b, srv
}

func sampleMessages() []gs1.Message {
	header := gs1.DocumentHeader{DocumentIdentification: gs1.DocumentIdentification{InstanceIdentifier: "DOC-1"}}
	return []gs1.Message{
		gs1.NewOrder(&gs1.OrderMessage{Header: header}),
		gs1.NewDespatchAdvice(&gs1.DespatchAdviceMessage{Header: header}),
		gs1.NewReceivingAdvice(&gs1.ReceivingAdviceMessage{Header: header}),
		gs1.NewOrderResponse(&gs1.OrderResponseMessage{Header: header}),
	}
}

func TestClient_SendXML(t *testing.T) {
	b, srv := newBroker(t)
	c, err := NewClient(Config{BrokerAddress: srv.URL + "/gs1/"}, nil)
	require.NoError(t, err)

	want := map[gs1.Kind]string{
		gs1.KindOrder:           "/gs1/orderRequest",
		gs1.KindDespatchAdvice:  "/gs1/despatchAdvice",
		gs1.KindReceivingAdvice: "/gs1/receivingAdvice",
		gs1.KindOrderResponse:   "/gs1/orderResponse",
	}
	for _, msg := range sampleMessages() {
		t.Run(string(msg.Kind), func(t *testing.T) {
			require.NoError(t, c.Send(context.Background(), msg))
			req := b.last(t)
			assert.Equal(t, want[msg.Kind], req.path)
			assert.Equal(t, "application/xml", req.contentType)
			assert.False(t, req.hasAuth)
			assert.Equal(t, "DOC-1", req.messageID)

			var doc struct {
				XMLName xml.Name
			}
			require.NoError(t, xml.Unmarshal(req.body, &doc))
			assert.Equal(t, string(msg.Kind)+"Message", doc.XMLName.Local)
		})
	}
}

func TestClient_SendAS2Multipart(t *testing.T) {
	b, srv := newBroker(t)
	c, err := NewClient(Config{
		BrokerAddress:      srv.URL,
		Username:           "partner",
		Password:           "s3cret",
		UseAS2MimeEncoding: true,
	}, nil)
	require.NoError(t, err)

	ctx := delivery.WithPrincipal(context.Background(), delivery.SystemPrincipal)
	require.NoError(t, c.Send(ctx, sampleMessages()[0]))

	req := b.last(t)
	assert.Equal(t, "/orderRequest", req.path)
	assert.Contains(t, req.contentType, "multipart/form-data")
	assert.True(t, req.hasAuth)
	assert.Equal(t, "partner", req.user)
	assert.Equal(t, "s3cret", req.pass)
	assert.Equal(t, "system", req.principal)
	require.Contains(t, req.form, "body")
	assert.Equal(t, "edi/xml", req.formType)
	assert.Equal(t, "body.edi", req.formFile)
	assert.Contains(t, string(req.form["body"]), "<orderMessage>")
}

func TestClient_SendFailures(t *testing.T) {
	t.Run("non-2xx response", func(t *testing.T) {
		b, srv := newBroker(t)
		b.status = http.StatusBadGateway
		c, err := NewClient(Config{BrokerAddress: srv.URL}, nil)
		require.NoError(t, err)

		err = c.Send(context.Background(), sampleMessages()[1])
		require.ErrorIs(t, err, shared.ErrTransport)
		assert.Contains(t, err.Error(), "HTTP 502")
		assert.Contains(t, err.Error(), "order rejected by partner")
	})

	t.Run("broker unreachable", func(t *testing.T) {
		_, srv := newBroker(t)
		srv.Close()
		c, err := NewClient(Config{BrokerAddress: srv.URL}, nil)
		require.NoError(t, err)

		err = c.Send(context.Background(), sampleMessages()[0])
		assert.ErrorIs(t, err, shared.ErrTransport)
	})

	t.Run("request timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer srv.Close()
		defer close(release)

		c, err := NewClient(Config{BrokerAddress: srv.URL, Timeout: 20 * time.Millisecond}, nil)
		require.NoError(t, err)
		err = c.Send(context.Background(), sampleMessages()[0])
		assert.ErrorIs(t, err, shared.ErrTransport)
	})

	t.Run("malformed message", func(t *testing.T) {
		_, srv := newBroker(t)
		c, err := NewClient(Config{BrokerAddress: srv.URL}, nil)
		require.NoError(t, err)

		err = c.Send(context.Background(), gs1.Message{Kind: gs1.KindOrder})
		assert.ErrorIs(t, err, shared.ErrTransport)
	})
}

func TestClient_SendIsTraced(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	originalTP, originalProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(originalTP)
		otel.SetTextMapPropagator(originalProp)
		_ = tp.Shutdown(context.Background())
	})

	b, srv := newBroker(t)
	client, err := NewClient(Config{BrokerAddress: srv.URL}, nil)
	require.NoError(t, err)
	require.NoError(t, client.Send(context.Background(), sampleMessages()[1]))

	var send, post sdktrace.ReadOnlySpan
	for _, s := range sr.Ended() {
		switch s.Name() {
		case "TransportClient.Send":
			send = s
		case "broker POST /despatchAdvice":
			post = s
		}
	}
	require.NotNil(t, send)
	require.NotNil(t, post)
	assert.Equal(t, trace.SpanKindClient, post.SpanKind())
	assert.Equal(t, send.SpanContext().SpanID(), post.Parent().SpanID())
	assert.Contains(t, b.last(t).traceparent, post.SpanContext().TraceID().String())
}
