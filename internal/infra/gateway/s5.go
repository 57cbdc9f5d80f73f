package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/zeebo/xxh3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/totegamma/where/internal/domain"
	"github.com/totegamma/where/internal/usecase"
)

var tracer = otel.Tracer("gateway")

const userAgent = "where-backend/1.0"

var (
	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "where_s5_uploads_total",
			Help: "Uploads to the S5 gateway by result",
		},
		[]string{"result"},
	)
	uploadLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "where_s5_upload_latency_ms",
			Help:    "Latency of S5 uploads in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
	)
)

// S5Client uploads JSON blobs to an S5 gateway and derives their public URLs.
type S5Client struct {
	baseURL  string
	adminKey string
	client   *http.Client
	cache    *cache.Cache
	log      *zap.Logger
}

// NewS5Client builds a client for baseURL. adminKey is checked per upload so a
// missing credential surfaces as an UploadError instead of failing startup.
func NewS5Client(baseURL, adminKey string, log *zap.Logger) *S5Client {
	if log == nil {
		log = zap.NewNop()
	}
	c := &S5Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		adminKey: adminKey,
		cache:    cache.New(10*time.Minute, 15*time.Minute),
		log:      log.Named("s5"),
	}
	c.client = &http.Client{Transport: c}
	return c
}

func (c *S5Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", userAgent)
	return http.DefaultTransport.RoundTrip(req)
}

// Upload posts body as a multipart file named filename and returns the CID the
// gateway answered with. Identical uploads within the cache window reuse the
// previous CID.
func (c *S5Client) Upload(ctx context.Context, filename string, body []byte) (domain.Blob, error) {
	ctx, span := tracer.Start(ctx, "S5.Gateway.Upload")
	defer span.End()
	span.SetAttributes(attribute.String("filename", filename))

	if c.adminKey == "" {
		uploadsTotal.WithLabelValues("misconfigured").Inc()
		return domain.Blob{}, domain.UploadError{Reason: "admin key not configured"}
	}

	key := contentKey(filename, body)
	if cached, found := c.cache.Get(key); found {
		uploadsTotal.WithLabelValues("dedup").Inc()
		cid := cached.(string)
		span.SetAttributes(attribute.String("cid", cid), attribute.Bool("dedup", true))
		return domain.Blob{CID: cid, GatewayURL: c.GatewayURL(cid)}, nil
	}

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return domain.Blob{}, errors.Wrap(err, "create form file")
	}
	if _, err := part.Write(body); err != nil {
		return domain.Blob{}, errors.Wrap(err, "write form file")
	}
	if err := writer.Close(); err != nil {
		return domain.Blob{}, errors.Wrap(err, "close form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/s5/upload", &form)
	if err != nil {
		return domain.Blob{}, errors.Wrap(err, "create upload request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.adminKey)

	start := time.Now()
	resp, err := c.client.Do(req)
	uploadLatency.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		uploadsTotal.WithLabelValues("network_error").Inc()
		span.RecordError(err)
		return domain.Blob{}, domain.NetworkError{Err: err}
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		uploadsTotal.WithLabelValues("network_error").Inc()
		span.RecordError(err)
		return domain.Blob{}, domain.NetworkError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		uploadsTotal.WithLabelValues("rejected").Inc()
		c.log.Warn("upload rejected", zap.String("filename", filename), zap.Int("status", resp.StatusCode))
		return domain.Blob{}, domain.UploadError{
			Status: resp.StatusCode,
			Reason: strings.TrimSpace(string(text)),
		}
	}

	cid := strings.TrimSpace(string(text))
	if cid == "" {
		uploadsTotal.WithLabelValues("rejected").Inc()
		return domain.Blob{}, domain.UploadError{Status: resp.StatusCode, Reason: "empty cid in response"}
	}

	c.cache.Set(key, cid, cache.DefaultExpiration)
	uploadsTotal.WithLabelValues("ok").Inc()
	span.SetAttributes(attribute.String("cid", cid))
	c.log.Debug("uploaded", zap.String("filename", filename), zap.String("cid", cid))

	return domain.Blob{CID: cid, GatewayURL: c.GatewayURL(cid)}, nil
}

func (c *S5Client) GatewayURL(cid string) string {
	return c.baseURL + "/s5/gateway/" + cid
}

func contentKey(filename string, body []byte) string {
	h := xxh3.New()
	h.WriteString(filename)
	h.Write([]byte{0})
	h.Write(body)
	return fmt.Sprintf("%016x", h.Sum64())
}

var _ usecase.BlobStore = (*S5Client)(nil)
