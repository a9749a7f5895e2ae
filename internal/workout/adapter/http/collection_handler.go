package http

import (
	"encoding/json"
	"errors"
	"strconv"

	authhttp "gym-assistant/internal/auth/adapter/http"
	"gym-assistant/internal/collection"
	docmodel "gym-assistant/internal/docstore/domain/model"
	apperrors "gym-assistant/internal/shared/errors"
	"gym-assistant/internal/shared/logger"
	"gym-assistant/internal/workout/usecase"

	"github.com/gofiber/fiber/v2"
)

// CollectionHandler serves the collection API for signed-in users.
type CollectionHandler struct {
	service *usecase.Service
	log     logger.Logger
}

// NewCollectionHandler creates a new CollectionHandler.
func NewCollectionHandler(service *usecase.Service, log logger.Logger) *CollectionHandler {
	return &CollectionHandler{
		service: service,
		log:     logger.OrNop(log).WithComponent("collection_api"),
	}
}

// RegisterRoutes registers the collection endpoints. Every route must be
// behind middleware that sets the user id.
func (h *CollectionHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/collections", h.ListCollections)
	router.Get("/collections/:name", h.withResource(h.List))
	router.Post("/collections/:name/query", h.withResource(h.Query))
	router.Post("/collections/:name", h.withResource(h.Create))
	router.Get("/collections/:name/:id", h.withResource(h.Get))
	router.Patch("/collections/:name/:id", h.withResource(h.Update))
	router.Delete("/collections/:name/:id", h.withResource(h.Remove))
}

type resourceHandler func(c *fiber.Ctx, r usecase.Resource, owner string) error

func (h *CollectionHandler) withResource(next resourceHandler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := authhttp.GetUserID(c)
		if !ok || owner == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authentication required",
			})
		}
		r, ok := h.service.Resource(c.Params("name"))
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Unknown collection: " + c.Params("name"),
			})
		}
		return next(c, r, owner)
	}
}

// ListCollections returns the collection names.
func (h *CollectionHandler) ListCollections(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"collections": h.service.Names(),
	})
}

// List returns documents selected by query string parameters.
func (h *CollectionHandler) List(c *fiber.Ctx, r usecase.Resource, owner string) error {
	opts, err := QueryFromParams(c.Query)
	if err != nil {
		return h.fail(c, err)
	}
	return h.list(c, r, owner, opts)
}

// Query returns documents selected by a JSON QueryOptions body.
func (h *CollectionHandler) Query(c *fiber.Ctx, r usecase.Resource, owner string) error {
	var opts collection.QueryOptions
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &opts); err != nil {
			return h.fail(c, apperrors.NewValidationError("Invalid query body").WithCause(err))
		}
	}
	return h.list(c, r, owner, &opts)
}

func (h *CollectionHandler) list(c *fiber.Ctx, r usecase.Resource, owner string, opts *collection.QueryOptions) error {
	docs, err := r.List(c.UserContext(), owner, opts)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"documents": docs,
	})
}

// Get returns one document.
func (h *CollectionHandler) Get(c *fiber.Ctx, r usecase.Resource, owner string) error {
	doc, err := r.Get(c.UserContext(), owner, c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(doc)
}

// Create stores the request body as a new document.
func (h *CollectionHandler) Create(c *fiber.Ctx, r usecase.Resource, owner string) error {
	id, err := r.Create(c.UserContext(), owner, c.Body())
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id": id,
	})
}

// Update merges the request body onto a document.
func (h *CollectionHandler) Update(c *fiber.Ctx, r usecase.Resource, owner string) error {
	var fields docmodel.Fields
	if err := json.Unmarshal(c.Body(), &fields); err != nil || fields == nil {
		return h.fail(c, apperrors.NewValidationError("Invalid update body"))
	}
	if err := r.Update(c.UserContext(), owner, c.Params("id"), fields); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
	})
}

// Remove deletes a document.
func (h *CollectionHandler) Remove(c *fiber.Ctx, r usecase.Resource, owner string) error {
	if err := r.Remove(c.UserContext(), owner, c.Params("id")); err != nil {
		return h.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CollectionHandler) fail(c *fiber.Ctx, err error) error {
	status := apperrors.HTTPStatus(err)
	if status >= fiber.StatusInternalServerError {
		h.log.WithContext(c.UserContext()).Errorf("%s %s failed: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error": publicMessage(err),
	})
}

// publicMessage is the text shown to clients: an AppError's message
// without its cause.
func publicMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// QueryFromParams builds query options from the query string. A "query"
// parameter holding JSON QueryOptions takes precedence over "orderBy",
// "direction" and "limit".
func QueryFromParams(get func(key string, defaultValue ...string) string) (*collection.QueryOptions, error) {
	if raw := get("query"); raw != "" {
		var opts collection.QueryOptions
		if err := json.Unmarshal([]byte(raw), &opts); err != nil {
			return nil, apperrors.NewValidationError("Invalid query parameter").WithCause(err)
		}
		return &opts, nil
	}

	opts := collection.Query()
	if field := get("orderBy"); field != "" {
		opts.Sort(field, get("direction"))
	}
	if raw := get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, apperrors.NewValidationError("limit must be an integer")
		}
		opts.WithLimit(n)
	}
	return opts, nil
}
