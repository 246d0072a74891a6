// Package deviceconfig defines the settings model of the stock display and
// validates remote write requests against it.
//
// The display reads a flat "[section] key : value" file. Only a fixed
// whitelist of keys can be changed remotely:
//
//	[base]
//	refresh_interval_minutes   integer, 1-1440
//	data_range_days            number, 0.1-365.0 (stored as float)
//	data_api_base_url          non-empty string
//	ticker                     non-empty string
//	[epd2in13v3]
//	mode                       "candle" or "line" (case-insensitive)
//
// # Validation
//
// Validate turns an untyped request object (as decoded from JSON with
// UseNumber) into an UpdateSet, or returns a validation error naming the
// offending field. No partial UpdateSet is ever returned:
//
//	updates, err := deviceconfig.Validate(payload)
//	if err != nil {
//	    return "error: " + deviceconfig.StatusMessage(err)
//	}
//
// ValidateRequest additionally checks the "wifi" and "restart" members of a
// write request.
//
// # Snapshots
//
// Snapshot is the read response. Every section and field is optional and is
// omitted from JSON when it did not resolve; nothing is defaulted.
//
// # Client
//
// Client is the remote side used by zerostock-cfg. Reads go over HTTP with
// retries and a short cache. Writes go over the websocket endpoint and fall
// back to HTTP only when the websocket cannot be dialed, so a request is
// never delivered twice:
//
//	client := deviceconfig.NewClient(dev.ConfigURL(), dev.WebSocketURL())
//	payload, req, err := deviceconfig.NewRequestBuilder().
//	    SetTicker("ETH-USD").
//	    Build()
//	status, err := client.Apply(ctx, payload)
//	result := client.VerifyApplied(ctx, req.Updates, nil)
//
// RequestBuilder validates locally with the same rules as the daemon.
// VerifyApplied re-reads until the written settings are reported back.
//
// # Error Handling
//
// ConfigError carries an ErrorType (validation, tool unavailable, tool
// failure, IO, ownership, network, HTTP, parse). StatusMessage produces the
// text reported to remote callers; IsRetryable decides which client reads
// are repeated.
package deviceconfig
