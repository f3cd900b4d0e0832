// Package shipping talks to the carrier label API.
package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/joao-fontenele/storefront/internal/domain"
)

// DefaultTimeout bounds a label call when Config.Timeout is not positive.
const DefaultTimeout = 10 * time.Second

type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient builds a label client. The timeout bounds each GenerateLabel call
// independently of httpClient's own timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{cfg: cfg, http: httpClient}
}

type labelRequest struct {
	Shipment shipment `json:"shipment"`
}

type shipment struct {
	ServiceCode string          `json:"service_code"`
	ShipTo      domain.Address  `json:"ship_to"`
	ShipFrom    domain.ShipFrom `json:"ship_from"`
	Packages    []wirePackage   `json:"packages"`
}

type wirePackage struct {
	Weight struct {
		Value json.Number `json:"value"`
		Unit  string      `json:"unit"`
	} `json:"weight"`
}

type labelResponse struct {
	LabelDownload struct {
		PDF string `json:"pdf"`
	} `json:"label_download"`
	Packages []struct {
		TrackingNumber string `json:"tracking_number"`
	} `json:"packages"`
}

func (c *Client) GenerateLabel(ctx context.Context, req domain.ShippingLabelRequest) (domain.ShippingLabel, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	packages := make([]wirePackage, len(req.Packages))
	for i, p := range req.Packages {
		packages[i].Weight.Value = json.Number(p.Weight.Value.String())
		packages[i].Weight.Unit = p.Weight.Unit
	}

	data, err := json.Marshal(labelRequest{Shipment: shipment{
		ServiceCode: req.ServiceCode,
		ShipTo:      req.ShipTo,
		ShipFrom:    req.ShipFrom,
		Packages:    packages,
	}})
	if err != nil {
		return domain.ShippingLabel{}, fmt.Errorf("marshal label request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(data))
	if err != nil {
		return domain.ShippingLabel{}, fmt.Errorf("create label request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("API-Key", c.cfg.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return domain.ShippingLabel{}, fmt.Errorf("%w: label request: %w", domain.ErrExternalService, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.ShippingLabel{}, fmt.Errorf("%w: read label response: %w", domain.ErrExternalService, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.ShippingLabel{}, fmt.Errorf("%w: label api returned status %d: %s",
			domain.ErrExternalService, resp.StatusCode, truncate(body, 256))
	}

	var parsed labelResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return domain.ShippingLabel{}, fmt.Errorf("%w: malformed label response: %w", domain.ErrExternalService, err)
	}
	if parsed.LabelDownload.PDF == "" || len(parsed.Packages) == 0 || parsed.Packages[0].TrackingNumber == "" {
		return domain.ShippingLabel{}, fmt.Errorf("%w: label response missing label or tracking number", domain.ErrExternalService)
	}

	return domain.ShippingLabel{
		LabelURL:       parsed.LabelDownload.PDF,
		TrackingNumber: parsed.Packages[0].TrackingNumber,
	}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
