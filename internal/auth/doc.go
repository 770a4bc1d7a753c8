// Package auth implements token-based authentication for the HTTP API.
//
// Operators exchange a pre-shared operator key for a short-lived HS256
// JWT. Tokens are validated by signature and expiry alone; there is no
// user database or session store. This fits a single-tenant field
// controller where the only identity is "the operator".
package auth
