package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/freightmarket/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const validationFailed = "Request validation failed"

var setupValidator sync.Once

// SetupValidator makes gin's validator report fields by their JSON name,
// falling back to the form tag for query structs.
func SetupValidator() {
	setupValidator.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				switch name, _, _ := strings.Cut(fld.Tag.Get(tag), ","); name {
				case "-":
					return ""
				case "":
				default:
					return name
				}
			}
			return ""
		})
	})
}

// FormatValidationErrors lists every failed rule with its JSON path.
func FormatValidationErrors(err error, requestID string) dto.Response {
	var fieldErrs validator.ValidationErrors
	var details []dto.ValidationDetail
	if errors.As(err, &fieldErrs) {
		details = make([]dto.ValidationDetail, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			details = append(details, dto.ValidationDetail{Field: fieldPath(fe), Message: ruleMessage(fe)})
		}
	}
	return dto.NewValidationErrorResponse(validationFailed, requestID, details)
}

// HandleValidationError answers a failed ShouldBind* call. Rule violations
// and type mismatches are VALIDATION_ERROR, unreadable bodies INVALID_JSON,
// and bodies cut off by BodyLimit REQUEST_TOO_LARGE.
func HandleValidationError(c *gin.Context, err error) {
	requestID := GetRequestID(c)
	status, body := http.StatusBadRequest, dto.Response{}

	var (
		tooLarge  *http.MaxBytesError
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		fieldErrs validator.ValidationErrors
	)
	switch {
	case errors.As(err, &tooLarge):
		status = http.StatusRequestEntityTooLarge
		body = dto.NewErrorResponseWithRequestID(dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size", requestID)
	case errors.As(err, &typeErr):
		body = dto.NewValidationErrorResponse(validationFailed, requestID,
			[]dto.ValidationDetail{{Field: typeErr.Field, Message: "Must be a " + typeErr.Type.String()}})
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		body = dto.NewErrorResponseWithRequestID(dto.ErrCodeInvalidJSON, "Request body is not valid JSON", requestID)
	case errors.As(err, &fieldErrs):
		body = FormatValidationErrors(err, requestID)
	default:
		body = dto.NewErrorResponseWithRequestID(dto.ErrCodeBadRequest, err.Error(), requestID)
	}
	c.AbortWithStatusJSON(status, body)
}

// fieldPath strips the root struct name, so "BidRequest.vehicle.type"
// becomes "vehicle.type".
func fieldPath(fe validator.FieldError) string {
	if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok {
		return rest
	}
	return fe.Field()
}

var fixedMessages = map[string]string{
	"required":  "This field is required",
	"email":     "Invalid email format",
	"uuid":      "Invalid UUID format",
	"latitude":  "Must be a latitude between -90 and 90",
	"longitude": "Must be a longitude between -180 and 180",
	"e164":      "Must be an E.164 phone number",
}

var boundMessages = map[string]string{
	"oneof": "Must be one of: ",
	"gte":   "Must be greater than or equal to ",
	"lte":   "Must be less than or equal to ",
	"gt":    "Must be greater than ",
	"lt":    "Must be less than ",
}

func ruleMessage(fe validator.FieldError) string {
	tag, param := fe.Tag(), fe.Param()
	if msg, ok := fixedMessages[tag]; ok {
		return msg
	}
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch tag {
	case "min":
		return "Must be at least " + param + unit
	case "max":
		return "Must be at most " + param + unit
	case "len":
		return "Must be exactly " + param + unit
	}
	if prefix, ok := boundMessages[tag]; ok {
		return prefix + param
	}
	return "Invalid value"
}
