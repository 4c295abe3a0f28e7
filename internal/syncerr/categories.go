package syncerr

import "errors"

// Category is a coarse error class used for metrics labels
type Category string

const (
	// NoError indicates a successful request
	NoError Category = "none"

	// Cancelled indicates a superseded or torn-down request
	Cancelled Category = "cancelled"

	// NetworkError indicates a failure before any HTTP response arrived
	NetworkError Category = "network_error"

	// HTTPError indicates a non-2xx response
	HTTPError Category = "http_error"

	// MalformedResponse indicates an unexpected response shape
	MalformedResponse Category = "decode_error"

	// UnknownError indicates unclassified errors
	UnknownError Category = "unknown_error"
)

// Categorize maps err onto the closed taxonomy
func Categorize(err error) Category {
	if err == nil {
		return NoError
	}

	if IsCancellation(err) {
		return Cancelled
	}

	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return MalformedResponse
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		if transportErr.StatusCode != 0 {
			return HTTPError
		}
		return NetworkError
	}

	return UnknownError
}
