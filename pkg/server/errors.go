// Copyright 2026 © The Agent Registry Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/conneskills/cs-agent-registry-api/pkg/errors"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code"`
}

func errorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := errorResponse(err)
		if status >= http.StatusInternalServerError {
			log.ErrorContext(c.Request().Context(), "request.failed",
				slog.String("uri", c.Request().RequestURI),
				slog.Any("error", err),
			)
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Warn("write error response", slog.Any("error", err))
		}
	}
}

func errorResponse(err error) (int, ErrorResponse) {
	var re *errors.RegistryError
	if stderrors.As(err, &re) {
		status := re.StatusCode
		if status == 0 {
			status = http.StatusInternalServerError
		}
		return status, ErrorResponse{Detail: re.Message, Code: string(re.Code)}
	}

	var he *echo.HTTPError
	if stderrors.As(err, &he) {
		return he.Code, ErrorResponse{Detail: fmt.Sprint(he.Message), Code: string(statusCode(he.Code))}
	}

	return http.StatusInternalServerError, ErrorResponse{
		Detail: "internal error",
		Code:   string(errors.CodeInternal),
	}
}

func statusCode(status int) errors.ErrorCode {
	switch status {
	case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusRequestEntityTooLarge:
		return errors.CodeInvalidInput
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return errors.CodeNotFound
	case http.StatusServiceUnavailable:
		return errors.CodeStorageUnavailable
	default:
		return errors.CodeInternal
	}
}

// badRequest turns a bind failure into an INVALID_INPUT error.
func badRequest(err error) error {
	var he *echo.HTTPError
	if stderrors.As(err, &he) {
		return errors.New(errors.CodeInvalidInput, "malformed request body: "+fmt.Sprint(he.Message), err)
	}
	return errors.New(errors.CodeInvalidInput, "malformed request body", err)
}
