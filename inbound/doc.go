// Package inbound is the HTTP ingress: it turns webhook requests into
// core.InboundRequest values, renders dispatcher results as JSON and serves
// the read-only community lookup routes.
package inbound
