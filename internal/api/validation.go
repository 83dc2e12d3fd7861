package api

import (
	"log"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"hotel-booking-backend/internal/model"
	"hotel-booking-backend/internal/parse"
)

var registerOnce sync.Once

// registerValidators adds the custom rules to gin's validator engine.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			log.Printf("gin validator engine is not go-playground/validator; custom rules are not registered")
			return
		}
		v.RegisterTagNameFunc(jsonFieldName)
		if err := v.RegisterValidation("notpast", notPast); err != nil {
			log.Printf("failed to register notpast rule: %v", err)
		}
	})
}

// notPast accepts a YYYY-MM-DD date that is today (UTC) or later. Malformed
// dates fail here too.
func notPast(fl validator.FieldLevel) bool {
	d, err := parse.Date(fl.Field().String())
	if err != nil {
		return false
	}
	return !d.Before(model.Day(time.Now()))
}

// jsonFieldName reports validation failures under the request's JSON names.
func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}
