// Package protocol implements the request protocol spoken by the config
// daemon, independent of the transport that carries it.
//
// # Writes
//
// A write request is a UTF-8 JSON object. Every field is optional:
//
//	{
//	  "base": {
//	    "refresh_interval_minutes": 15,
//	    "data_range_days": 7,
//	    "data_api_base_url": "https://api.example.com",
//	    "ticker": "BTC-USD"
//	  },
//	  "epd2in13v3": {"mode": "candle"},
//	  "wifi": {"ssid": "Home", "psk": "secret"},
//	  "restart": true
//	}
//
// The reply is a single string, "ok" or "error: <reason>". Decoding and
// validation finish before anything on the device changes. The settings
// write, wifi provisioning and service restart are then attempted in that
// order; the first failure is reported, and a step that already succeeded
// is not rolled back.
//
// # Reads
//
// A read returns the current snapshot as compact JSON holding whichever of
// "base", "epd2in13v3" and "wifi" resolved:
//
//	{"base":{"ticker":"BTC-USD"},"wifi":{"ssid":"Home","status":"Connected to Home (signal 70%)"}}
//
// Reads accept a byte offset so that small-MTU clients can page through a
// large reply.
package protocol
