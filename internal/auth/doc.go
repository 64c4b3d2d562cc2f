// Package auth provides authentication and identity for Parley.
//
// It covers:
//   - Argon2id password hashing (OWASP 2025 recommendation)
//   - Stateless HS256 access tokens carrying subject and expiry only
//   - SQLite-backed user accounts with unique email and nickname
//
// Token verification is deliberately coarse: any failure (bad
// signature, expired, malformed) surfaces as ErrInvalidToken so
// callers cannot leak why a credential was rejected. Authorisation
// decisions live in the chat package; this package only answers
// "who is this".
package auth
