// Package mudradesk implements the account and session layer of the
// MudraDesk invoicing application: registration with admin approval,
// cookie-held JWT sessions, request gating, asset uploads and shareable
// invoice links. Business documents themselves live client-side; the
// server owns identity, approval workflow and assets.
package mudradesk
