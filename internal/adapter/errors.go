package adapter

import (
	"errors"
	"fmt"
	"time"

	"github.com/hpn/hpn-svg-arena/internal/domain"
)

// ConfigError reports a missing credential or endpoint for one provider.
type ConfigError struct {
	Provider domain.ProviderType
	Setting  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s %s is not configured", e.Provider, e.Setting)
}

// HTTPError is a non-2xx upstream response.
type HTTPError struct {
	Provider   domain.ProviderType
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s API error [%d]: %s", e.Provider, e.StatusCode, e.Message)
}

// TimeoutError is returned when the provider did not answer within the configured timeout.
type TimeoutError struct {
	Provider domain.ProviderType
	After    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s request timed out after %s", e.Provider, e.After)
}

// EmptyResponseError means the response parsed but carried no text.
type EmptyResponseError struct {
	Provider domain.ProviderType
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("empty response from %s API", e.Provider)
}

// IsConfigError checks if an error is a ConfigError.
func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

// IsTimeoutError checks if an error is a TimeoutError.
func IsTimeoutError(err error) bool {
	var target *TimeoutError
	return errors.As(err, &target)
}

// IsEmptyResponseError checks if an error is an EmptyResponseError.
func IsEmptyResponseError(err error) bool {
	var target *EmptyResponseError
	return errors.As(err, &target)
}

// StatusCode returns the upstream status carried by err, or 0.
func StatusCode(err error) int {
	var target *HTTPError
	if errors.As(err, &target) {
		return target.StatusCode
	}
	return 0
}
