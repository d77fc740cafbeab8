package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/flowsmith/flowsmith/pkg/services"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func badGateway(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(502).
		WithInstance(c.Path()).
		WithType("upstream_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadGateway).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleServiceError provides typed error handling for service layer errors.
// Validation failures carry the full enumerated finding list in the response
// body, never a bare exception.
func handleServiceError(c fiber.Ctx, err error) error {
	var validationErr *services.DefinitionValidationError
	if errors.As(err, &validationErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"valid":  false,
			"errors": validationErr.Result.Errors,
		})
	}

	switch {
	case services.IsNotFoundError(err):
		return notFound(c, "template not found")

	case services.IsConflictError(err):
		return conflict(c, err.Error())

	case services.IsValidationError(err):
		return badRequest(c, err.Error())

	default:
		return internalError(c, err)
	}
}
