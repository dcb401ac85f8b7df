package adapters

import "time"

// Response represents the outcome of an ingestion request.
type Response struct {
	Status int

	// RetryAfter is the server-provided backoff hint on rate-limited
	// responses, zero when the server sent none.
	RetryAfter time.Duration
}

// OK reports whether the response is a 2xx success.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// RateLimited reports whether the server rejected the batch with 429.
func (r *Response) RateLimited() bool {
	return r.Status == 429
}

// ExperimentDefinition is one experiment with its candidate variants, used
// when the server returns definitions instead of pre-assigned variants.
type ExperimentDefinition struct {
	ID       string   `json:"id"`
	Variants []string `json:"variants"`
}

// ExperimentsResponse is the body of an experiment fetch. Deployments return
// either a direct assignment map or a list of definitions for client-side
// bucketing; the assignment map takes precedence when both are present.
type ExperimentsResponse struct {
	AssignedVariants map[string]string      `json:"assigned_variants,omitempty"`
	Experiments      []ExperimentDefinition `json:"experiments,omitempty"`
}

// NetworkAdapter is an interface for the wire transport.
// Implement this interface to use custom HTTP clients.
type NetworkAdapter interface {
	// SendEvents delivers a batch to the ingestion endpoint.
	//
	// Parameters:
	//   - endpoint: The ingestion endpoint URL
	//   - batch: Events plus the send-time context snapshot
	//   - headers: Custom headers to merge with defaults
	//
	// Returns the response, or an error for transport failures.
	SendEvents(endpoint string, batch EventBatch, headers map[string]string) (*Response, error)

	// FetchExperiments retrieves experiment assignments or definitions.
	FetchExperiments(endpoint string, headers map[string]string) (*ExperimentsResponse, error)
}
