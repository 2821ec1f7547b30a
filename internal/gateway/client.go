// Пакет gateway — HTTP-клиент удалённых webhook endpoints инспекций.
// Read endpoint (GET) отдаёт все записи, write endpoint (POST) принимает одну запись.
package gateway

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/inspection-module/internal/domain/model"
	"github.com/bigkaa/goartstore/inspection-module/internal/normalizer"
)

// Ошибки gateway.
var (
	// ErrTransport — сбой транспорта или декодирования ответа.
	ErrTransport = errors.New("ошибка обмена с удалённым endpoint")
	// ErrNotConfigured — URL endpoint не задан.
	ErrNotConfigured = errors.New("удалённый endpoint не настроен")
)

// placeholderMarker — маркер незаполненного URL в шаблонах конфигурации.
const placeholderMarker = "여기에"

// maxResponseSize — предел размера ответа read endpoint.
const maxResponseSize = 32 << 20

// Prometheus-метрики gateway.
var (
	gatewayRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "im_gateway_requests_total",
		Help: "Общее количество запросов к удалённым endpoints (по операции и результату).",
	}, []string{"op", "result"})

	gatewayRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "im_gateway_request_duration_seconds",
		Help:    "Длительность запросов к удалённым endpoints.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)

// Client — HTTP-клиент read/write endpoints.
type Client struct {
	httpClient *http.Client
	readURL    string
	writeURL   string
	now        func() time.Time
	logger     *slog.Logger
}

// New создаёт клиент.
// readURL, writeURL — URL webhook endpoints (пустая строка — локальный режим).
// caCertPath — путь к CA-сертификату для TLS (пустая строка — стандартный пул).
// timeout — таймаут HTTP-запросов (IM_REMOTE_TIMEOUT).
func New(
	readURL string,
	writeURL string,
	caCertPath string,
	timeout time.Duration,
	logger *slog.Logger,
) (*Client, error) {
	httpClient := &http.Client{Timeout: timeout}

	if caCertPath != "" {
		tlsConfig, err := buildTLSConfig(caCertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата: %w", err)
		}
		httpClient.Transport = &http.Transport{
			TLSClientConfig: tlsConfig,
		}
		logger.Info("CA-сертификат добавлен в пул доверия",
			slog.String("ca_cert", caCertPath),
		)
	}

	return &Client{
		httpClient: httpClient,
		readURL:    configuredURL(readURL),
		writeURL:   configuredURL(writeURL),
		now:        time.Now,
		logger:     logger.With(slog.String("component", "gateway")),
	}, nil
}

// ReadConfigured сообщает, задан ли read endpoint.
func (c *Client) ReadConfigured() bool {
	return c.readURL != ""
}

// WriteConfigured сообщает, задан ли write endpoint.
func (c *Client) WriteConfigured() bool {
	return c.writeURL != ""
}

// FetchAll читает все записи.
// GET {readURL}
// Любой сбой (сеть, статус не 2xx, некорректный JSON) оборачивает ErrTransport.
func (c *Client) FetchAll(ctx context.Context) (normalizer.Payload, error) {
	if !c.ReadConfigured() {
		return normalizer.Payload{}, ErrNotConfigured
	}

	start := time.Now()
	payload, err := c.fetchAll(ctx)
	gatewayRequestDuration.WithLabelValues("fetch").Observe(time.Since(start).Seconds())
	if err != nil {
		gatewayRequestsTotal.WithLabelValues("fetch", "error").Inc()
		return normalizer.Payload{}, err
	}
	gatewayRequestsTotal.WithLabelValues("fetch", "ok").Inc()

	c.logger.Debug("Записи получены от read endpoint",
		slog.String("kind", payload.Kind.String()),
		slog.Int("items", len(payload.Items)),
	)
	return payload, nil
}

func (c *Client) fetchAll(ctx context.Context) (normalizer.Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.readURL, http.NoBody)
	if err != nil {
		return normalizer.Payload{}, fmt.Errorf("создание запроса FetchAll: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации
	if err != nil {
		return normalizer.Payload{}, fmt.Errorf("%w: запрос FetchAll: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return normalizer.Payload{}, fmt.Errorf("%w: HTTP Error: %d", ErrTransport, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return normalizer.Payload{}, fmt.Errorf("%w: чтение ответа: %w", ErrTransport, err)
	}
	if !json.Valid(body) {
		return normalizer.Payload{}, fmt.Errorf("%w: ответ не является корректным JSON", ErrTransport)
	}

	return normalizer.Decode(body), nil
}

// Persist отправляет одну запись.
// POST {writeURL}, тело — model.WireRecord. Любой статус 2xx — подтверждение.
func (c *Client) Persist(ctx context.Context, record model.InspectionRecord) error {
	if !c.WriteConfigured() {
		return ErrNotConfigured
	}

	start := time.Now()
	err := c.persist(ctx, record)
	gatewayRequestDuration.WithLabelValues("persist").Observe(time.Since(start).Seconds())
	if err != nil {
		gatewayRequestsTotal.WithLabelValues("persist", "error").Inc()
		return err
	}
	gatewayRequestsTotal.WithLabelValues("persist", "ok").Inc()
	return nil
}

func (c *Client) persist(ctx context.Context, record model.InspectionRecord) error {
	body, err := json.Marshal(record.Wire(c.now()))
	if err != nil {
		return fmt.Errorf("сериализация записи %s: %w", record.ID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.writeURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("создание запроса Persist: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req) //nolint:gosec // G704: URL из конфигурации
	if err != nil {
		return fmt.Errorf("%w: запрос Persist: %w", ErrTransport, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if !isSuccess(resp.StatusCode) {
		return fmt.Errorf("%w: write endpoint вернул статус %d для %s", ErrTransport, resp.StatusCode, record.ID)
	}
	return nil
}

// isSuccess сообщает, что статус из диапазона 2xx.
func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// configuredURL возвращает URL без хвостовых пробелов или пустую строку,
// если URL не задан либо остался заполнителем из шаблона.
func configuredURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, placeholderMarker) {
		return ""
	}
	return raw
}

// buildTLSConfig создаёт TLS-конфигурацию с кастомным CA-сертификатом.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("чтение CA-сертификата: %w", err)
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &tls.Config{
		RootCAs:    caCertPool,
		MinVersion: tls.VersionTLS12,
	}, nil
}
