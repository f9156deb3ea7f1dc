// Package social implements the popup OAuth handshake.
//
// A popup is sent to the provider by HTTPController.Begin, the provider
// redirects it back to HTTPController.Callback and the callback renders a
// page that posts exactly one Message to the trusted opener origin and
// closes itself. Handshaker.Complete is the state machine behind the
// callback:
//
//	awaiting_redirect -> code_received | error_received -> exchanging -> success | failure
//
// Provider differences live in one Variant per provider (message family,
// whether the access token is relayed, whether state is mandatory, how the
// user payload is built). Adding a provider means adding a Variant, see
// providers/instagram, providers/naver and providers/generic.
//
// Receiver is the opener side: it checks the message origin against an
// allow-list before decoding anything.
package social
