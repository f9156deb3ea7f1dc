// Package tokenstore provides authclient.TokenStore backends. Every store
// holds at most one token per slot and Set always overwrites.
package tokenstore
