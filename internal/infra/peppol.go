package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const peppolNotConfigured = "Peppol endpoint not configured"

// PeppolPayload is posted to the access point.
type PeppolPayload struct {
	Receiver   string `json:"receiver"`
	DocumentID string `json:"document_id"`
	Payload    string `json:"payload"`
}

// PeppolResult is the outcome of one transmission. A rejected transmission is a
// result, not an error.
type PeppolResult struct {
	Success        bool   `json:"success"`
	Status         string `json:"status"`
	TransmissionID string `json:"transmission_id,omitempty"`
}

// PeppolClient forwards structured invoices to a Peppol access point over HTTP.
type PeppolClient struct {
	endpoint   string
	httpClient *http.Client
}

func NewPeppolClient(endpoint string) *PeppolClient {
	return &PeppolClient{
		endpoint:   strings.TrimSpace(endpoint),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Transmit sends xmlDoc for receiverID. Transport failures are returned as errors.
func (c *PeppolClient) Transmit(ctx context.Context, xmlDoc []byte, receiverID, documentID string) (*PeppolResult, error) {
	if c.endpoint == "" {
		return &PeppolResult{Success: false, Status: peppolNotConfigured}, nil
	}

	body, err := json.Marshal(PeppolPayload{Receiver: receiverID, DocumentID: documentID, Payload: string(xmlDoc)})
	if err != nil {
		return nil, fmt.Errorf("peppol: marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("peppol: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("peppol: access point unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("peppol: read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &PeppolResult{Success: false, Status: strings.TrimSpace(string(raw))}, nil
	}

	var parsed struct {
		TransmissionID string `json:"transmission_id"`
		Status         string `json:"status"`
	}
	_ = json.Unmarshal(raw, &parsed)
	status := parsed.Status
	if status == "" {
		status = "sent"
	}
	return &PeppolResult{Success: true, Status: status, TransmissionID: parsed.TransmissionID}, nil
}
