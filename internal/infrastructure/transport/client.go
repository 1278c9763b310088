package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/erp/gs1bridge/internal/domain/delivery"
	"github.com/erp/gs1bridge/internal/domain/gs1"
	"github.com/erp/gs1bridge/internal/domain/shared"
	"github.com/erp/gs1bridge/internal/infrastructure/logger"
	"github.com/erp/gs1bridge/internal/infrastructure/telemetry"
)

const (
	// maxErrorBodySize caps how much of a failed response is kept
	maxErrorBodySize = 512

	contentTypeXML = "application/xml"
	contentTypeEDI = "edi/xml"
)

// paths maps each message kind to its broker endpoint
var paths = map[gs1.Kind]string{
	gs1.KindOrder:           "/orderRequest",
	gs1.KindDespatchAdvice:  "/despatchAdvice",
	gs1.KindReceivingAdvice: "/receivingAdvice",
	gs1.KindOrderResponse:   "/orderResponse",
}

// Client posts GS1 messages to the partner broker
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new broker client
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport,
				otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
					return "broker " + r.Method + " " + r.URL.Path
				}),
			),
		},
		logger: logger,
	}, nil
}

// Path returns the broker path for kind
func Path(kind gs1.Kind) (string, bool) {
	p, ok := paths[kind]
	return p, ok
}

// Send posts msg to the endpoint of its kind. Any failure, including a
// non-2xx response, is reported as shared.ErrTransport.
func (c *Client) Send(ctx context.Context, msg gs1.Message) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "TransportClient", "Send",
		telemetry.WithAttribute("gs1.message_kind", string(msg.Kind)),
	)
	defer span.End()

	err := c.send(ctx, msg)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	telemetry.SetOK(span)
	return nil
}

func (c *Client) send(ctx context.Context, msg gs1.Message) error {
	path, ok := Path(msg.Kind)
	if !ok {
		return shared.ErrTransport.WithTarget(string(msg.Kind)).
			WithCause(fmt.Errorf("no broker endpoint for message kind %q", msg.Kind))
	}
	body, err := msg.EncodeXML()
	if err != nil {
		return shared.ErrTransport.WithTarget(string(msg.Kind)).WithCause(err)
	}

	payload, contentType, err := c.encode(body)
	if err != nil {
		return shared.ErrTransport.WithTarget(string(msg.Kind)).WithCause(err)
	}

	url := strings.TrimRight(c.config.BrokerAddress, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return shared.ErrTransport.WithTarget(url).WithCause(err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentTypeXML)
	if id := msg.InstanceID(); id != "" {
		req.Header.Set("X-Message-Id", id)
	}
	if c.config.Username != "" {
		req.SetBasicAuth(c.config.Username, c.config.Password)
	}
	if p, ok := delivery.PrincipalFrom(ctx); ok {
		req.Header.Set("X-Principal", p.Name)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return shared.ErrTransport.WithTarget(url).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return shared.ErrTransport.WithTarget(url).
			WithCause(fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(detail))))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	logger.WithLogger(ctx, c.logger).Debug("message posted to broker",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Int("body_size", len(body)),
	)
	return nil
}

// encode wraps body in an AS2-style multipart form when configured
func (c *Client) encode(body []byte) ([]byte, string, error) {
	if !c.config.UseAS2MimeEncoding {
		return body, contentTypeXML, nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="body"; filename="body.edi"`)
	header.Set("Content-Type", contentTypeEDI)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(body); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var _ delivery.Transport = (*Client)(nil)
