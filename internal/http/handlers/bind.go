package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// bindSource pairs a gin binding with the struct tag its field names come
// from, so error details name fields the way the client sent them.
type bindSource struct {
	binding binding.Binding
	tag     string
	message string
}

var (
	jsonBody    = bindSource{binding: binding.JSON, tag: "json", message: "Invalid request body"}
	formBody    = bindSource{binding: binding.Form, tag: "form", message: "Invalid form data"}
	queryString = bindSource{binding: binding.Query, tag: "form", message: "Invalid query parameters"}
)

func BindJSON(ctx *gin.Context, out interface{}) bool {
	return bindWith(ctx, out, jsonBody)
}

// BindForm binds url-encoded or multipart form fields.
func BindForm(ctx *gin.Context, out interface{}) bool {
	return bindWith(ctx, out, formBody)
}

func BindQuery(ctx *gin.Context, out interface{}) bool {
	return bindWith(ctx, out, queryString)
}

func bindWith(ctx *gin.Context, out interface{}, src bindSource) bool {
	err := ctx.ShouldBindWith(out, src.binding)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		RespondError(ctx, http.StatusRequestEntityTooLarge, "payload_too_large",
			fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit), nil)
		return false
	}

	RespondBadRequest(ctx, src.message, bindErrorDetails(err, baseStructType(out), src.tag))
	return false
}

func bindErrorDetails(err error, root reflect.Type, tag string) interface{} {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := make([]FieldError, 0, len(validationErrs))
		for _, fe := range validationErrs {
			fields = append(fields, FieldError{
				Field:   fieldPath(root, fe, tag),
				Rule:    fe.Tag(),
				Param:   fe.Param(),
				Message: validationMessage(fe.Tag(), fe.Param()),
			})
		}
		return gin.H{"fields": fields}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return gin.H{"json": "invalid_json_syntax"}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := strings.TrimSpace(typeErr.Field)
		if mapped := taggedPath(root, strings.Split(field, "."), tag); mapped != "" {
			field = mapped
		}
		return gin.H{
			"json":  "invalid_json_type",
			"field": field,
			"fields": []FieldError{{
				Field:   field,
				Rule:    "type",
				Message: "must be of type " + typeErr.Type.String(),
			}},
		}
	}

	// form binding reports conversion failures without the field name
	var numErr *strconv.NumError
	if errors.As(err, &numErr) {
		return gin.H{"form": "invalid_form_value", "value": numErr.Num}
	}

	return gin.H{"reason": err.Error()}
}

func baseStructType(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	return t
}

// fieldPath turns a validator namespace such as "RegisterRequest.PhoneNumber"
// into the client-facing name, "phoneNumber".
func fieldPath(root reflect.Type, fe validator.FieldError, tag string) string {
	ns := fe.StructNamespace()
	if ns == "" {
		return fe.Field()
	}

	parts := strings.Split(ns, ".")
	if root != nil && len(parts) > 1 && parts[0] == root.Name() {
		parts = parts[1:]
	}

	if path := taggedPath(root, parts, tag); path != "" {
		return path
	}
	return fe.Field()
}

func taggedPath(root reflect.Type, parts []string, tag string) string {
	current := root
	out := make([]string, 0, len(parts))

	for _, part := range parts {
		if part == "" {
			continue
		}

		name, index := part, ""
		if i := strings.IndexByte(part, '['); i >= 0 {
			name, index = part[:i], part[i:]
		}

		var next reflect.Type
		if current != nil && current.Kind() == reflect.Struct {
			if sf, ok := current.FieldByName(name); ok {
				name = tagName(sf, tag)
				next = elemType(sf.Type)
			}
		}

		out = append(out, name+index)
		current = next
	}

	return strings.Join(out, ".")
}

func tagName(sf reflect.StructField, tag string) string {
	name, _, _ := strings.Cut(sf.Tag.Get(tag), ",")
	if name == "" || name == "-" {
		return sf.Name
	}
	return name
}

func elemType(t reflect.Type) reflect.Type {
	for {
		switch t.Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Array:
			t = t.Elem()
		default:
			return t
		}
	}
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "strongpassword":
		return "must be at least 8 characters and contain a number, a lowercase and an uppercase letter"
	case "phone":
		return "must be a phone number in international format"
	case "uuid":
		return "must be a valid id"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	}

	if param != "" {
		return fmt.Sprintf("failed %s validation (%s)", rule, param)
	}
	return "failed " + rule + " validation"
}
