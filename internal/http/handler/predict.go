package handler

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/gofiber/fiber/v2"

	"answerapi/internal/model"
	"answerapi/internal/service"
)

// NewValidator returns a validator that reports fields by their JSON names and knows
// the "notblank" tag.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationMessage renders validator errors as "field: rule" pairs.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+": "+fe.Tag())
	}
	return strings.Join(parts, "; ")
}

// Predict answers a question using web search and the language model.
//
//	@Summary	Answer a question
//	@Tags		prediction
//	@Accept		json
//	@Produce	json
//	@Param		request	body		model.PredictionRequest	true	"Question"
//	@Success	200		{object}	model.PredictionResponse
//	@Failure	400		{object}	errorPayload
//	@Failure	500		{object}	errorPayload
//	@Router		/api/request [post]
func Predict(svc service.PredictionService, validate *validator.Validate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req model.PredictionRequest
		if err := c.App().Config().JSONDecoder(c.Body(), &req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object")
		}
		if err := validate.Struct(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", validationMessage(err))
		}

		res, err := svc.Predict(c.UserContext(), &req)
		if err != nil {
			if errors.Is(err, service.ErrInvalidRequest) {
				return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}
