package telemetry

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// WrapHandler instruments an inbound HTTP handler. With tracing disabled the
// handler is returned unchanged.
func WrapHandler(handler http.Handler) http.Handler {
	if !IsEnabled() {
		return handler
	}
	return otelhttp.NewHandler(handler, SpanNameHTTPServer)
}
