package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"posadmin/internal/apierror"
	"posadmin/internal/dto"
	"posadmin/internal/middleware"
	"posadmin/internal/policy"
	"posadmin/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, max, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	// Report fields by their JSON name.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false after writing the error response; the caller returns
// without writing anything else.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			field := typeErr.Field[strings.LastIndex(typeErr.Field, ".")+1:]
			c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(map[string]string{
				field: fmt.Sprintf("The %s field has an invalid type.", label(field)),
			}))
			return false
		}
		c.JSON(http.StatusBadRequest, apierror.New("Invalid JSON: "+err.Error()))
		return false
	}
	return validateStruct(c, req)
}

func validateStruct(c *gin.Context, req interface{}) bool {
	err := validate.Struct(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
		return false
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = message(fe)
		}
	}
	c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
	return false
}

func label(field string) string { return strings.ReplaceAll(field, "_", " ") }

// message renders one validator failure as a user-facing sentence.
func message(fe validator.FieldError) string {
	f := label(fe.Field())
	numeric := fe.Kind() != reflect.String && fe.Kind() != reflect.Slice
	switch fe.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("The %s field is required.", f)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", f)
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", f)
	case "min":
		if numeric {
			return fmt.Sprintf("The %s must be at least %s.", f, fe.Param())
		}
		return fmt.Sprintf("The %s must be at least %s characters.", f, fe.Param())
	case "max":
		if numeric {
			return fmt.Sprintf("The %s may not be greater than %s.", f, fe.Param())
		}
		return fmt.Sprintf("The %s may not be greater than %s characters.", f, fe.Param())
	}
	return fmt.Sprintf("The %s field is invalid.", f)
}

// respondError maps service errors onto HTTP responses. Unknown errors go to
// the ErrorHandler middleware, which logs them and answers 500. A rule
// refusal carries redirect when one is given.
func respondError(c *gin.Context, err error, redirect ...string) {
	var verr *service.ValidationError
	var rerr *service.RuleError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(verr.Fields))
	case errors.As(err, &rerr):
		status := http.StatusConflict
		if rerr.Forbidden {
			status = http.StatusForbidden
		}
		to := ""
		if len(redirect) > 0 {
			to = redirect[0]
		}
		c.JSON(status, dto.Failure(rerr.Message, to))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, apierror.New("Record not found"))
	default:
		_ = c.Error(err)
	}
}

// actor returns the authenticated user, answering 401 when absent.
func actor(c *gin.Context) (policy.Actor, bool) {
	a, ok := middleware.ActorFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Authentication required"))
	}
	return a, ok
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

func render(c *gin.Context, component string, props interface{}) {
	c.JSON(http.StatusOK, dto.NewPage(component, props))
}

// redirectTo answers a screen request with the screen to show instead.
func redirectTo(c *gin.Context, to string) {
	c.Header("Location", to)
	c.JSON(http.StatusSeeOther, dto.Flash{Redirect: to})
}
