package apierr

import (
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// в деталях должны быть json-имена полей, а не имена из структуры
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

// FromBindError разбирает ошибку ShouldBindJSON в список полей
func FromBindError(err error) []FieldError {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		out := make([]FieldError, 0, len(validationErrs))
		for _, fe := range validationErrs {
			out = append(out, FieldError{
				Field:  fieldPath(fe),
				Reason: reason(fe),
			})
		}
		return out
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return []FieldError{{Field: field, Reason: "expected " + typeErr.Type.String()}}
	}

	if errors.Is(err, io.EOF) {
		return []FieldError{{Field: "body", Reason: "empty body"}}
	}

	return []FieldError{{Field: "body", Reason: "malformed JSON"}}
}

// Missing - обязательный query-параметр не передан
func Missing(field string) FieldError {
	return FieldError{Field: field, Reason: "required"}
}

// addTeamReq.members[0].user_id -> members[0].user_id
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func reason(fe validator.FieldError) string {
	if fe.Param() != "" {
		return fe.Tag() + "=" + fe.Param()
	}
	return fe.Tag()
}
