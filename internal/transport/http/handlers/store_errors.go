package handlers

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"

	httperrors "github.com/Wewst/coffe-pass/internal/transport/http/errors"
)

// writeStoreError separates transient connectivity failures, which the client
// may retry, from genuine server faults.
func writeStoreError(w http.ResponseWriter, err error, code, message string) {
	if isUpstreamError(err) {
		httperrors.Write(w, http.StatusServiceUnavailable, httperrors.APIError{
			Code:    "UPSTREAM_UNAVAILABLE",
			Message: "storage is temporarily unavailable, retry later",
		})
		return
	}
	writeInternal(w, code, message)
}

func isUpstreamError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if pgconn.Timeout(err) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
