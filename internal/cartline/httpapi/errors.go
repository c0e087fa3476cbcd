package httpapi

import (
	"context"
	"errors"
	"net/http"

	cartapp "github.com/dwikikusuma/cartline/internal/cart/app"
	lineapp "github.com/dwikikusuma/cartline/internal/cartline/app"
	identityapp "github.com/dwikikusuma/cartline/internal/identity/app"
	summaryapp "github.com/dwikikusuma/cartline/internal/summary/app"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errBadRequest = errors.New("malformed request body")

func mapErr(err error) error {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, lineapp.ErrMissingFields),
		errors.Is(err, identityapp.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, lineapp.ErrLineNotFound),
		errors.Is(err, lineapp.ErrProductNotFound),
		errors.Is(err, summaryapp.ErrEmptyCart):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, lineapp.ErrNotMounted),
		errors.Is(err, lineapp.ErrOwnerChanged):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, identityapp.ErrIdentityUnavailable),
		errors.Is(err, identityapp.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, identityapp.ErrNoVerifier):
		return status.Error(codes.Unimplemented, err.Error())
	case errors.Is(err, cartapp.ErrMalformedPartition):
		return status.Error(codes.DataLoss, "stored cart is unreadable")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, cartapp.ErrPersistence):
		return status.Error(codes.Unavailable, "cart storage unavailable")
	}
	return status.Error(codes.Internal, "internal error")
}

func httpStatusFromGRPC(err error) (int, string, string) {
	st, ok := status.FromError(err)
	if !ok {
		return http.StatusInternalServerError, "INTERNAL", "internal error"
	}

	switch st.Code() {
	case codes.InvalidArgument:
		return http.StatusBadRequest, "INVALID_ARGUMENT", st.Message()
	case codes.NotFound:
		return http.StatusNotFound, "NOT_FOUND", st.Message()
	case codes.FailedPrecondition:
		return http.StatusConflict, "FAILED_PRECONDITION", st.Message()
	case codes.Unauthenticated:
		return http.StatusUnauthorized, "UNAUTHENTICATED", st.Message()
	case codes.Unimplemented:
		return http.StatusNotImplemented, "UNIMPLEMENTED", st.Message()
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled:
		return http.StatusServiceUnavailable, "UNAVAILABLE", st.Message()
	case codes.DataLoss:
		return http.StatusInternalServerError, "DATA_LOSS", st.Message()
	default:
		return http.StatusInternalServerError, "INTERNAL", "internal error"
	}
}
