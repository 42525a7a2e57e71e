// Package access asks the authority service whether a vehicle may enter.
//
// Every failure degrades to a deny. The caller can tell an authority deny
// from a failure by the Outcome of the returned Result.
package access

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Naresh-ado/parking-final/internal/httputil"
	"github.com/Naresh-ado/parking-final/internal/monitoring"
)

// DefaultEndpoint is the authority's gate check route on a local server.
const DefaultEndpoint = "http://localhost:5000/api/gate/check-entry"

// DefaultSpotID is the parking spot every request is made against.
const DefaultSpotID = 1

// maxBodyBytes bounds how much of a response is read.
const maxBodyBytes = 1 << 20

// Messages reported for failures that did not come from the authority.
const (
	MessageAPIError     = "API Error"
	MessageNetworkError = "Network Error"
)

// Outcome tells how a Decision was reached.
type Outcome string

const (
	// OutcomeGranted and OutcomeDenied carry the authority's own answer.
	OutcomeGranted Outcome = "granted"
	OutcomeDenied  Outcome = "denied"
	// OutcomeAPIError means the authority answered with a non-200 status.
	OutcomeAPIError Outcome = "api_error"
	// OutcomeNetworkError means the request could not be completed.
	OutcomeNetworkError Outcome = "network_error"
	// OutcomeMalformed means a 200 response body could not be understood.
	OutcomeMalformed Outcome = "malformed"
)

// ErrMalformedResponse is wrapped into Result.Err for unusable 200 bodies.
var ErrMalformedResponse = errors.New("malformed authority response")

// Request is the JSON body sent to the authority.
type Request struct {
	VehicleType string `json:"vehicleType"`
	Color       string `json:"color"`
	SpotID      int    `json:"spotId"`
}

// Decision is the authority's answer.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Message string `json:"message"`
	// Spot is the authority's view of the spot after the decision, kept
	// verbatim when present.
	Spot json.RawMessage `json:"updatedSpot,omitempty"`
}

// Result is a Decision tagged with how it was obtained.
type Result struct {
	Decision   Decision
	Outcome    Outcome
	StatusCode int
	Err        error
}

// Allowed reports whether the gate may open. Only a granted outcome opens.
func (r Result) Allowed() bool {
	return r.Outcome == OutcomeGranted && r.Decision.Allowed
}

// FromAuthority reports whether the decision came from a well-formed
// authority answer.
func (r Result) FromAuthority() bool {
	return r.Outcome == OutcomeGranted || r.Outcome == OutcomeDenied
}

func (r Result) String() string {
	return fmt.Sprintf("{allowed: %t, message: %q}", r.Decision.Allowed, r.Decision.Message)
}

// Client posts access checks to a single authority endpoint.
type Client struct {
	endpoint string
	spotID   int
	http     httputil.HTTPClient
}

// NewClient returns a client for endpoint. A nil httpClient uses
// http.DefaultClient.
func NewClient(endpoint string, spotID int, httpClient httputil.HTTPClient) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if httpClient == nil {
		httpClient = httputil.NewStandardClient(nil)
	}
	return &Client{endpoint: endpoint, spotID: spotID, http: httpClient}
}

// Endpoint returns the authority URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Check asks the authority whether a vehicle of the given type and color may
// enter. It makes exactly one attempt and never returns an allowed Decision
// unless the authority answered 200 with allowed set to true.
func (c *Client) Check(ctx context.Context, vehicleType, color string) Result {
	resp, err := httputil.PostJSON(ctx, c.http, c.endpoint,
		Request{VehicleType: vehicleType, Color: color, SpotID: c.spotID})
	if err != nil {
		monitoring.Logf("Network Error: %v", err)
		return networkError(0, err)
	}
	defer httputil.Drain(resp, maxBodyBytes)

	if resp.StatusCode != http.StatusOK {
		monitoring.Logf("API Error: %d", resp.StatusCode)
		return Result{
			Decision:   Decision{Allowed: false, Message: MessageAPIError},
			Outcome:    OutcomeAPIError,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("authority returned status %d", resp.StatusCode),
		}
	}

	decision, err := decodeDecision(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		monitoring.Logf("Network Error: %v", err)
		r := networkError(resp.StatusCode, err)
		r.Outcome = OutcomeMalformed
		return r
	}

	outcome := OutcomeDenied
	if decision.Allowed {
		outcome = OutcomeGranted
	}
	return Result{Decision: decision, Outcome: outcome, StatusCode: resp.StatusCode}
}

// decodeDecision requires an "allowed" boolean; message is optional.
func decodeDecision(r io.Reader) (Decision, error) {
	var raw struct {
		Allowed *bool           `json:"allowed"`
		Message string          `json:"message"`
		Spot    json.RawMessage `json:"updatedSpot"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if raw.Allowed == nil {
		return Decision{}, fmt.Errorf("%w: missing allowed field", ErrMalformedResponse)
	}
	return Decision{Allowed: *raw.Allowed, Message: raw.Message, Spot: raw.Spot}, nil
}

func networkError(status int, err error) Result {
	return Result{
		Decision:   Decision{Allowed: false, Message: MessageNetworkError},
		Outcome:    OutcomeNetworkError,
		StatusCode: status,
		Err:        err,
	}
}
