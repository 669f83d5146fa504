package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	viesNamespace = "urn:ec.europa.eu:taxud:vies:services:checkVat:types"
	viesCachePref = "vies:"
	viesCacheTTL  = 24 * time.Hour
)

var (
	// ErrInvalidVATID is returned for identifiers that cannot be a VAT id at all.
	ErrInvalidVATID = errors.New("vies: invalid VAT id format")

	vatIDPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{2,12}$`)
)

// VATCheckResult is the outcome of one VIES lookup.
type VATCheckResult struct {
	VATID              string    `json:"vat_id"`
	Valid              bool      `json:"valid"`
	TraderName         string    `json:"trader_name,omitempty"`
	TraderAddress      string    `json:"trader_address,omitempty"`
	ConsultationNumber string    `json:"consultation_number,omitempty"`
	CheckedAt          time.Time `json:"checked_at"`
}

// NormalizeVATID trims and upper-cases id and checks its shape.
func NormalizeVATID(id string) (string, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	if len(id) < 4 || !vatIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVATID, id)
	}
	return id, nil
}

// VIESClient validates VAT ids against the EU VIES SOAP service.
// Calls go through a circuit breaker; successful answers are cached in Redis.
type VIESClient struct {
	endpoint   string
	enabled    bool
	httpClient *http.Client
	cb         *CircuitBreaker
	rdb        *redis.Client
	now        func() time.Time
}

// NewVIESClient builds a client. rdb may be nil to disable caching.
func NewVIESClient(endpoint string, enabled bool, cb *CircuitBreaker, rdb *redis.Client) *VIESClient {
	if cb == nil {
		cb = NewCircuitBreaker(DefaultCBConfig())
	}
	return &VIESClient{
		endpoint:   endpoint,
		enabled:    enabled,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cb:         cb,
		rdb:        rdb,
		now:        time.Now,
	}
}

// Breaker exposes the circuit breaker for health reporting.
func (c *VIESClient) Breaker() *CircuitBreaker { return c.cb }

// Check validates id. With VIES disabled every well-formed id is reported valid.
func (c *VIESClient) Check(ctx context.Context, id string) (*VATCheckResult, error) {
	vatID, err := NormalizeVATID(id)
	if err != nil {
		return nil, err
	}
	if !c.enabled {
		return &VATCheckResult{VATID: vatID, Valid: true, CheckedAt: c.now().UTC()}, nil
	}

	if cached := c.cached(ctx, vatID); cached != nil {
		return cached, nil
	}

	var result *VATCheckResult
	err = c.cb.Execute(func() error {
		r, callErr := c.call(ctx, vatID)
		if callErr != nil {
			return callErr
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.store(ctx, result)
	return result, nil
}

func (c *VIESClient) cached(ctx context.Context, vatID string) *VATCheckResult {
	if c.rdb == nil {
		return nil
	}
	data, err := c.rdb.Get(ctx, viesCachePref+vatID).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("vat_id", vatID).Msg("vies: cache read failed")
		}
		return nil
	}
	var r VATCheckResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil
	}
	return &r
}

func (c *VIESClient) store(ctx context.Context, r *VATCheckResult) {
	if c.rdb == nil {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, viesCachePref+r.VATID, data, viesCacheTTL).Err(); err != nil {
		log.Warn().Err(err).Str("vat_id", r.VATID).Msg("vies: cache write failed")
	}
}

// ── SOAP ─────────────────────────────────────────────────────────────────────

type viesEnvelope struct {
	XMLName xml.Name `xml:"soapenv:Envelope"`
	Soapenv string   `xml:"xmlns:soapenv,attr"`
	Urn     string   `xml:"xmlns:urn,attr"`
	Header  struct{} `xml:"soapenv:Header"`
	Body    struct {
		CheckVat struct {
			CountryCode string `xml:"urn:countryCode"`
			VATNumber   string `xml:"urn:vatNumber"`
		} `xml:"urn:checkVat"`
	} `xml:"soapenv:Body"`
}

type viesResponse struct {
	Body struct {
		Fault *struct {
			String string `xml:"faultstring"`
		} `xml:"Fault"`
		Result struct {
			CountryCode       string `xml:"countryCode"`
			VATNumber         string `xml:"vatNumber"`
			Valid             bool   `xml:"valid"`
			Name              string `xml:"name"`
			Address           string `xml:"address"`
			RequestIdentifier string `xml:"requestIdentifier"`
		} `xml:"checkVatResponse"`
	} `xml:"Body"`
}

func (c *VIESClient) call(ctx context.Context, vatID string) (*VATCheckResult, error) {
	env := viesEnvelope{
		Soapenv: "http://schemas.xmlsoap.org/soap/envelope/",
		Urn:     viesNamespace,
	}
	env.Body.CheckVat.CountryCode = vatID[:2]
	env.Body.CheckVat.VATNumber = vatID[2:]

	body, err := xml.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("vies: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("vies: create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vies: service unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("vies: read response: %w", err)
	}
	var parsed viesResponse
	if err := xml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("vies: decode response (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Body.Fault != nil {
		return nil, fmt.Errorf("vies: fault: %s", parsed.Body.Fault.String)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vies: service returned %d", resp.StatusCode)
	}

	r := parsed.Body.Result
	return &VATCheckResult{
		VATID:              vatID,
		Valid:              r.Valid,
		TraderName:         strings.TrimSpace(r.Name),
		TraderAddress:      strings.TrimSpace(r.Address),
		ConsultationNumber: r.RequestIdentifier,
		CheckedAt:          c.now().UTC(),
	}, nil
}
