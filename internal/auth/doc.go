// Package auth issues and validates the bearer tokens that guard the
// FleetLock operator API.
//
// Tokens are HS256 JWTs carrying a subject and one of two roles: viewer
// (read only) or operator (may change devices). Authentication is optional;
// with no secret configured the API is open, matching the unauthenticated
// device protocol on the LAN.
package auth
