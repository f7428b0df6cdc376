// Package auth stores the chat backend's bearer token and exposes it to
// HTTP clients as an oauth2.TokenSource.
package auth
