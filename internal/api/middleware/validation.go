package middleware

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/flash-service/flash_service/internal/domain/entities"
)

var addressPattern = regexp.MustCompile(`^[A-Za-z0-9]{20,100}$`)

// RegisterValidators adds the "network" and "wallet_address" rules to gin's validator
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	return registerRules(v)
}

func registerRules(v *validator.Validate) error {
	if err := v.RegisterValidation("network", func(fl validator.FieldLevel) bool {
		return entities.IsSupportedNetwork(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("wallet_address", func(fl validator.FieldLevel) bool {
		return addressPattern.MatchString(strings.TrimSpace(fl.Field().String()))
	})
}
