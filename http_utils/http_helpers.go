package http_utils

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

func SendResponse(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)

	if err != nil {
		log.Println(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}

// ValidationMessages flattens validator errors into one message per field.
// Any other error is returned as a single message.
func ValidationMessages(err error) []string {
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return []string{err.Error()}
	}

	return lo.Map(vErrs, func(item validator.FieldError, index int) string {
		return item.Error()
	})
}

// ValidateStruct validates s and builds the response to send when it fails.
// The zero response is returned for a valid struct.
func ValidateStruct(v *validator.Validate, s interface{}) ValidationErrorResponse {
	if err := v.Struct(s); err != nil {
		return ValidationErrorResponse{
			BaseResponse: NewBaseResponse(false, "invalid request, validation failed"),
			Errors:       ValidationMessages(err),
		}
	}

	return ValidationErrorResponse{}
}
