package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"survey-service/internal/config"
	"survey-service/internal/models"
)

// IDVerifier checks a national-ID identifier against a third-party registry.
// The check is advisory: an unreachable upstream degrades to "unreachable"
// instead of failing the calling flow.
type IDVerifier struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

// NewIDVerifier creates a national-ID verification client
func NewIDVerifier(cfg config.IDCheckConfig, logger *logrus.Logger) *IDVerifier {
	settings := gobreaker.Settings{
		Name:        "id-check",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5 ||
				(counts.Requests >= 10 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from":            from.String(),
				"to":              to.String(),
			}).Info("Circuit breaker state changed")
		},
	}

	return &IDVerifier{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// Enabled reports whether an upstream registry is configured.
func (v *IDVerifier) Enabled() bool {
	return v.baseURL != ""
}

type idCheckUpstream struct {
	Valid  bool   `json:"valid"`
	Detail string `json:"detail"`
}

// Check looks up one identifier. Breaker-open and transport failures map to
// status "unreachable"; only an upstream verdict produces valid/invalid.
func (v *IDVerifier) Check(ctx context.Context, identifier string) models.IDCheckResult {
	result := models.IDCheckResult{Identifier: identifier, Status: "unreachable"}
	if !v.Enabled() {
		result.Detail = "registry not configured"
		return result
	}

	out, err := v.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			fmt.Sprintf("%s/v1/identities/%s", v.baseURL, identifier), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+v.apiKey)

		resp, err := v.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return &idCheckUpstream{Valid: false, Detail: "identifier not found"}, nil
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("registry returned status %d", resp.StatusCode)
		}

		var body idCheckUpstream
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("failed to decode registry response: %w", err)
		}
		return &body, nil
	})
	if err != nil {
		v.logger.WithError(err).WithField("identifier", identifier).Warn("National-ID check unavailable")
		result.Detail = err.Error()
		return result
	}

	upstream := out.(*idCheckUpstream)
	if upstream.Valid {
		result.Status = "valid"
	} else {
		result.Status = "invalid"
	}
	result.Detail = upstream.Detail
	return result
}
