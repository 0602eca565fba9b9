// Package fetch is the HTTP layer of ebookdl.
//
// A Client sends browser-like headers (desktop Chrome user agent, Accept and
// an Indonesian-first Accept-Language), follows redirects, honours the
// configured timeout and attaches a stored session cookie when one exists
// for the request host. Failures come back as *errors.Error values typed
// network, timeout or http.
package fetch
