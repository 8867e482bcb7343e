package api

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	k8svalidation "k8s.io/apimachinery/pkg/util/validation"
)

var registerOnce sync.Once

// registerValidators adds the tags the request models use to gin's
// validator
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("subdomain", validateSubdomain)
		_ = v.RegisterValidation("envname", validateEnvName)
	})
}

// validateSubdomain accepts a single DNS label. The empty string clears a
// domain and is accepted as well.
func validateSubdomain(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s == "" || len(k8svalidation.IsDNS1123Label(s)) == 0
}

// validateEnvName accepts names usable both as environment variables and
// as Secret keys
func validateEnvName(fl validator.FieldLevel) bool {
	return len(k8svalidation.IsCIdentifier(fl.Field().String())) == 0
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Malformed request body"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return "Invalid request: " + strings.Join(fields, ", ")
}
