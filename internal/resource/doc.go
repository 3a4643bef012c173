// Package resource implements the protected data service.
//
// # Authentication
//
// POST /data accepts either path, decided per request by the Verifier:
//
//  1. An Authorization: Bearer token, verified locally against the shared
//     signing secret. No network call is made.
//  2. A username/password body, forwarded synchronously to the authority
//     service's /auth endpoint over HTTPS with a bounded timeout.
//
// A rejection ("you are not who you claim to be") and an unreachable
// authority ("the identity provider could not be reached") are reported
// distinctly: 401 for the former, 500 for the latter.
//
// # Readiness
//
// GET /readiness probes the authority's health endpoint with a short
// timeout; the resource service is only ready when its authority answers.
//
// # Auditing
//
// Successful data requests append a best-effort record to access_log.txt
// in the configured audit directory. Audit failures never fail requests.
package resource
