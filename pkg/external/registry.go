// Package external holds clients for services outside the fraud engine,
// currently the SHA member registry. All registry access is fail-open: an
// unreachable registry must never block claim processing, so transport-level
// failures resolve to a MemberRecord with Exists=true and APIError=true.
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/sha-claims-fraud-engine/internal/domain"
)

// memberDateFormat is the registry's wire format for dates.
const memberDateFormat = "2006-01-02"

// RegistryAPIClient is the raw HTTP client for the SHA member registry.
type RegistryAPIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	rateLimit  *rate.Limiter
	log        *logrus.Logger
}

// NewRegistryAPIClient creates a registry client from configuration.
func NewRegistryAPIClient(config domain.RegistryConfig, logger *logrus.Logger) *RegistryAPIClient {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	rps := config.RateLimit
	if rps == 0 {
		rps = 10
	}

	return &RegistryAPIClient{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(rps), 1),
		log:       logger,
	}
}

type verifyMemberRequest struct {
	SHANumber string `json:"sha_number"`
}

type verifyMemberResponse struct {
	Exists      bool   `json:"exists"`
	IsDeceased  bool   `json:"is_deceased"`
	DeathDate   string `json:"death_date,omitempty"`
	Gender      string `json:"gender,omitempty"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	County      string `json:"county,omitempty"`
	FullName    string `json:"full_name,omitempty"`
}

// Verify calls the registry's verify-member endpoint. It returns an error
// only for transport-level failures so a circuit breaker can count them; a
// non-200 response is the registry answering badly, not being down, and maps
// to the fail-open record directly.
func (c *RegistryAPIClient) Verify(ctx context.Context, shaNumber string) (*domain.MemberRecord, error) {
	if c.baseURL == "" {
		return failOpenRecord(shaNumber, "registry URL not configured"), nil
	}

	if err := c.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(verifyMemberRequest{SHANumber: shaNumber})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/verify-member", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		c.log.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
		}).Warn("Registry returned non-200, failing open")
		return failOpenRecord(shaNumber,
			fmt.Sprintf("registry returned status %d", resp.StatusCode)), nil
	}

	var payload verifyMemberResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding registry response: %w", err)
	}

	record := &domain.MemberRecord{
		SHANumber:   shaNumber,
		Exists:      payload.Exists,
		IsDeceased:  payload.IsDeceased,
		Gender:      payload.Gender,
		County:      payload.County,
		FullName:    payload.FullName,
		DeathDate:   parseMemberDate(payload.DeathDate),
		DateOfBirth: parseMemberDate(payload.DateOfBirth),
	}
	return record, nil
}

func parseMemberDate(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(memberDateFormat, value)
	if err != nil {
		return nil
	}
	return &t
}

func failOpenRecord(shaNumber, detail string) *domain.MemberRecord {
	return &domain.MemberRecord{
		SHANumber:   shaNumber,
		Exists:      true,
		APIError:    true,
		ErrorDetail: detail,
	}
}
