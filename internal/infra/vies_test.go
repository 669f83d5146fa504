package infra

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const viesValidResponse = `<env:Envelope xmlns:env="http://schemas.xmlsoap.org/soap/envelope/">
<env:Header/>
<env:Body>
<ns2:checkVatResponse xmlns:ns2="urn:ec.europa.eu:taxud:vies:services:checkVat:types">
<ns2:countryCode>DE</ns2:countryCode>
<ns2:vatNumber>123456789</ns2:vatNumber>
<ns2:requestDate>2026-03-01+01:00</ns2:requestDate>
<ns2:valid>true</ns2:valid>
<ns2:name>Müller Beratung GmbH</ns2:name>
<ns2:address> Hauptstraße 1, 10115 Berlin </ns2:address>
<ns2:requestIdentifier>WAPIAAAAX1</ns2:requestIdentifier>
</ns2:checkVatResponse>
</env:Body>
</env:Envelope>`

const viesFaultResponse = `<env:Envelope xmlns:env="http://schemas.xmlsoap.org/soap/envelope/">
<env:Body><env:Fault><faultcode>env:Server</faultcode><faultstring>MS_UNAVAILABLE</faultstring></env:Fault></env:Body>
</env:Envelope>`

func TestNormalizeVATID(t *testing.T) {
	id, err := NormalizeVATID("  de123456789 ")
	require.NoError(t, err)
	assert.Equal(t, "DE123456789", id)

	for _, bad := range []string{"", "DE1", "123456789", "DE-12345", "DE1234567890123"} {
		_, err := NormalizeVATID(bad)
		assert.ErrorIs(t, err, ErrInvalidVATID, bad)
	}
}

func TestVIESClient_DisabledReportsValid(t *testing.T) {
	c := NewVIESClient("http://127.0.0.1:1/unused", false, nil, nil)
	res, err := c.Check(context.Background(), "fr12345678901")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, "FR12345678901", res.VATID)
}

func TestVIESClient_SOAPRoundTrip(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(viesValidResponse))
	}))
	defer srv.Close()

	c := NewVIESClient(srv.URL, true, nil, nil)
	res, err := c.Check(context.Background(), "DE123456789")
	require.NoError(t, err)

	assert.Contains(t, body, "<urn:countryCode>DE</urn:countryCode>")
	assert.Contains(t, body, "<urn:vatNumber>123456789</urn:vatNumber>")
	assert.Contains(t, body, viesNamespace)
	assert.True(t, res.Valid)
	assert.Equal(t, "Müller Beratung GmbH", res.TraderName)
	assert.Equal(t, "Hauptstraße 1, 10115 Berlin", res.TraderAddress)
	assert.Equal(t, "WAPIAAAAX1", res.ConsultationNumber)
}

func TestVIESClient_FaultOpensBreaker(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(viesFaultResponse))
	}))
	defer srv.Close()

	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, OpenTimeout: time.Hour})
	c := NewVIESClient(srv.URL, true, cb, nil)

	for i := 0; i < 2; i++ {
		_, err := c.Check(context.Background(), "DE123456789")
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "MS_UNAVAILABLE"))
	}
	_, err := c.Check(context.Background(), "DE123456789")
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, CBOpen, c.Breaker().State())
}
