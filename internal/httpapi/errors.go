package httpapi

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"upendo/backend/internal/domain"
	"upendo/backend/internal/lock"
	"upendo/backend/internal/logger"
	"upendo/backend/internal/store"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationFailure turns the first failed struct rule into a domain
// validation error so it renders like the service's own checks.
func validationFailure(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return domain.Invalid("body", err.Error())
	}
	fe := verrs[0]
	field := fe.Namespace()
	if idx := strings.Index(field, "."); idx >= 0 {
		field = field[idx+1:]
	}
	reason := "failed " + fe.Tag()
	if fe.Param() != "" {
		reason += " " + fe.Param()
	}
	return domain.Invalid(field, reason)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrSaleNotFound),
		errors.Is(err, domain.ErrPaymentNotFound),
		errors.Is(err, domain.ErrSupplierNotFound),
		errors.Is(err, domain.ErrPurchaseOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidAdjustment),
		errors.Is(err, domain.ErrMissingTransactionID):
		return http.StatusUnprocessableEntity
	case errors.Is(err, lock.ErrBusy), errors.Is(err, store.ErrConflict):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	log := logger.FromContext(r.Context(), a.log)
	if status >= 500 {
		log.Error("request failed", zap.Int("status", status), zap.Error(err))
		writeError(w, status, err)
		return
	}

	body := map[string]any{"error": err.Error()}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body["field"] = verr.Field
		body["reason"] = verr.Reason
	}
	var serr *domain.InsufficientStockError
	if errors.As(err, &serr) {
		body["product_id"] = serr.ProductID
		body["requested"] = serr.Requested
		body["available"] = serr.Available
	}

	log.Debug("request rejected", zap.Int("status", status), zap.Error(err))
	writeJSON(w, status, body)
}
