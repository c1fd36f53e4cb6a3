// Package emporia is a minimal client for the Emporia Vue cloud API.
//
// It covers the three calls the worker needs: credential login, account
// device listing, and the instantaneous per-channel usage snapshot. The
// bearer token from Login is held on the client; a session that loses its
// authentication is discarded wholesale and rebuilt rather than refreshed.
package emporia
