package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/nkiryanov/deskled/internal/apperrors"
	"github.com/nkiryanov/deskled/internal/handlers/reqctx"
	"github.com/nkiryanov/deskled/internal/handlers/render"
	"github.com/nkiryanov/deskled/internal/logger"
	"github.com/nkiryanov/deskled/internal/service/fulfillment"
)

const maxFulfillmentBody = 1 << 20

func handleFulfillment(fulfillmentService fulfillmentService, l logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxFulfillmentBody))
		if err != nil {
			render.ServiceError(w, "Can't read request body", http.StatusBadRequest)
			return
		}

		resp, err := fulfillmentService.Handle(r.Context(), body)

		var decodeErr *fulfillment.DecodeError
		switch {
		case err == nil:
			render.JSON(w, resp)
		case errors.As(err, &decodeErr):
			render.DecodeError(w, decodeErr.Err)
		case errors.Is(err, apperrors.ErrBadRequest):
			render.ServiceError(w, err.Error(), http.StatusBadRequest)
		default:
			l.Error("Failed to handle fulfillment", "error", err, "request_id", reqctx.RequestID(r.Context()))
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
		}
	})
}
