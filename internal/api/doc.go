// Package api serves the plugin over HTTP: wallet status, action listing
// and action dispatch.
package api
