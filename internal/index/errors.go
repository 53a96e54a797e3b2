package index

import (
	"errors"
	"net"
	"strings"

	apperrors "github.com/anchoredrag/core/internal/errors"
)

// classifyESError maps an Elasticsearch client/server error into the
// IndexUnavailable / IndexConflict / IndexMalformed taxonomy by
// inspecting the status code and error string, since the go-elasticsearch
// client doesn't expose a typed error taxonomy of its own.
func classifyESError(err error) error {
	if err == nil {
		return nil
	}

	msg := strings.ToLower(err.Error())
	var netErr net.Error
	switch {
	case errors.As(err, &netErr):
		return apperrors.NewIndexUnavailableError(err.Error())
	case strings.Contains(msg, "version_conflict") || strings.Contains(msg, "409"):
		return apperrors.NewIndexConflictError(err.Error())
	case strings.Contains(msg, "mapper_parsing_exception") || strings.Contains(msg, "illegal_argument_exception") ||
		strings.Contains(msg, "400"):
		return apperrors.NewIndexMalformedError(err.Error())
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "503") || strings.Contains(msg, "502"):
		return apperrors.NewIndexUnavailableError(err.Error())
	default:
		return apperrors.NewIndexUnavailableError(err.Error())
	}
}
