// Package types defines the page, context, configuration and history types
// shared by the docs-map collector, the site host and the history store,
// together with the standard errors they return.
package types
