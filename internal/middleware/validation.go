package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/yigit/exampapers/internal/app/models/dto"
	"github.com/yigit/exampapers/internal/pkg/validation"
)

// SetupValidator installs the shared validation rules on gin's binding validator
func SetupValidator() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator engine %T", binding.Validator.Engine())
	}
	return validation.Register(v)
}

// BindingError reports a failed ShouldBind* call, listing every invalid field
func BindingError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(400, dto.NewErrorResponse(
		dto.HandleValidationError(err).WithSeverity(dto.ErrorSeverityWarning),
	))
}
