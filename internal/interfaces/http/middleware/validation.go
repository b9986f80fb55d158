package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/waifubot/backend/internal/interfaces/http/dto"
)

// exchangeTokenLen is the length of a hex-encoded proposal token
const exchangeTokenLen = 32

var setupOnce sync.Once

// SetupValidator registers the exchange_token rule on gin's validator and
// makes field errors report json, uri or form names. Safe to call repeatedly.
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(boundName)
		_ = v.RegisterValidation("exchange_token", isExchangeToken)
	})
}

func boundName(fld reflect.StructField) string {
	for _, tag := range [...]string{"json", "uri", "form"} {
		switch name, _, _ := strings.Cut(fld.Tag.Get(tag), ","); name {
		case "-":
			return ""
		case "":
			continue
		default:
			return name
		}
	}
	return fld.Name
}

// isExchangeToken accepts lowercase hex of the broker's token length
func isExchangeToken(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if len(s) != exchangeTokenLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// FormatValidationErrors turns a binding error into the error envelope. Errors
// that are not field validation failures mean the body did not parse.
func FormatValidationErrors(err error, requestID string) dto.Response {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return dto.NewErrorResponseWithRequestID(dto.ErrCodeInvalidJSON, "Malformed request", requestID)
	}

	details := make([]dto.ValidationDetail, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, dto.ValidationDetail{Field: fe.Field(), Message: describe(fe)})
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError aborts with a 400 describing err
func HandleValidationError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, FormatValidationErrors(err, GetRequestID(c)))
}

func describe(fe validator.FieldError) string {
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "gt":
		return "Must be greater than " + fe.Param()
	case "min":
		return "Must be at least " + fe.Param() + unit
	case "max":
		return "Must be at most " + fe.Param() + unit
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "exchange_token":
		return "Must be a 32-character lowercase hex token"
	default:
		return "Invalid value"
	}
}
