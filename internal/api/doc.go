// Package api is the REST client for the upstream market-data gateway.
//
// Endpoint:
//
//	GET {base}/series?ticker=T&fields=A,B&start=YYYY-MM-DD&end=YYYY-MM-DD[&cursor=C]
//
// Response:
//
//	{"fields": {"A": [{"date": "2024-01-02", "value": 4.1}, ...]}, "cursor": ""}
//
// A non-empty cursor means more pages follow. Requests are retried with
// jittered exponential backoff on 429 and 5xx responses, and may be signed
// with RSA-PSS credentials.
package api
