package declination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Temutjin2k/room-compass/internal/domain/types"
	wrap "github.com/Temutjin2k/room-compass/pkg/logger/wrapper"
)

var ErrNoDeclination = errors.New("declination missing in response")

const DefaultBaseURL = "https://www.ngdc.noaa.gov/geomag-web/calculators/calculateDeclination"

// Client queries the NOAA magnetic field calculator.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// payload covers both the flat and the result list response layouts.
type payload struct {
	Declination *float64 `json:"declination"`
	Result      []struct {
		Declination *float64 `json:"declination"`
	} `json:"result"`
}

func (c *Client) Declination(ctx context.Context, lat, lon float64) (float64, error) {
	const op = "DeclinationClient.Declination"

	q := url.Values{}
	q.Set("lat1", strconv.FormatFloat(lat, 'f', 6, 64))
	q.Set("lon1", strconv.FormatFloat(lon, 'f', 6, 64))
	q.Set("resultFormat", "json")
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, wrap.Error(ctx, fmt.Errorf("%s: build request: %w", op, err))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)
		return 0, wrap.Error(ctx, fmt.Errorf("%s: failed to make request to NOAA: %w", op, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		ctx = wrap.WithAction(ctx, types.ActionExternalServiceFailed)
		return 0, wrap.Error(ctx, fmt.Errorf("%s: unexpected response status %d", op, resp.StatusCode))
	}

	var p payload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return 0, wrap.Error(ctx, fmt.Errorf("%s: failed to decode response: %w", op, err))
	}

	switch {
	case p.Declination != nil:
		return *p.Declination, nil
	case len(p.Result) > 0 && p.Result[0].Declination != nil:
		return *p.Result[0].Declination, nil
	default:
		return 0, wrap.Error(ctx, fmt.Errorf("%s: %w", op, ErrNoDeclination))
	}
}
