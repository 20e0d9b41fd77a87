package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"gradebook/internal/repository"
)

const defaultLimit = 50

// RepositoryProvider hands out the repositories once storage is ready.
type RepositoryProvider interface {
	Repositories() (repository.Set, error)
}

// Selector picks one entity repository out of the set.
type Selector[T any, P any] func(repository.Set) repository.Repository[T, P]

type ListResult[T any] struct {
	Items []T `json:"data"`
	Total int `json:"total"`
}

// pathID returns the :id parameter, or false after writing a 400 when it
// is not a UUID.
func pathID(c *fiber.Ctx) (string, bool) {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		_ = writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		return "", false
	}
	return id, true
}

func pageQuery(c *fiber.Ctx) (repository.PageQuery, []repository.OrderBy, bool) {
	limit, err := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 0 {
		_ = writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		return repository.PageQuery{}, nil, false
	}
	offset, err := strconv.Atoi(c.Query("offset", "0"))
	if err != nil || offset < 0 {
		_ = writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		return repository.PageQuery{}, nil, false
	}

	var order []repository.OrderBy
	if field := c.Query("sort"); field != "" {
		order = append(order, repository.OrderBy{Field: field, Desc: c.QueryBool("desc")})
	}
	return repository.PageQuery{Limit: limit, Offset: offset}, order, true
}

// ListResource pages with limit (default 50, 0 for all) and offset and
// sorts by ?sort=<field>&desc=true.
func ListResource[T any, P any](p RepositoryProvider, sel Selector[T, P]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pq, order, ok := pageQuery(c)
		if !ok {
			return nil
		}
		repos, err := p.Repositories()
		if err != nil {
			return writeStorageError(c, err)
		}
		res, err := sel(repos).List(c.UserContext(), pq, order...)
		if err != nil {
			return writeStorageError(c, err)
		}
		items := res.Items
		if items == nil {
			items = []T{}
		}
		return c.JSON(ListResult[T]{Items: items, Total: res.Total})
	}
}

func GetResource[T any, P any](p RepositoryProvider, sel Selector[T, P]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return nil
		}
		repos, err := p.Repositories()
		if err != nil {
			return writeStorageError(c, err)
		}
		entity, err := sel(repos).FindByID(c.UserContext(), id)
		if err != nil {
			return writeStorageError(c, err)
		}
		if entity == nil {
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "resource not found")
		}
		return c.JSON(entity)
	}
}

func CreateResource[T any, P any](p RepositoryProvider, sel Selector[T, P]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var in T
		if err := c.BodyParser(&in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		repos, err := p.Repositories()
		if err != nil {
			return writeStorageError(c, err)
		}
		created, err := sel(repos).Add(c.UserContext(), &in)
		if err != nil {
			return writeStorageError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	}
}

// UpdateResource applies a partial update; fields absent from the body keep
// their stored values.
func UpdateResource[T any, P any](p RepositoryProvider, sel Selector[T, P]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return nil
		}
		var patch P
		if err := c.BodyParser(&patch); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}
		repos, err := p.Repositories()
		if err != nil {
			return writeStorageError(c, err)
		}
		updated, err := sel(repos).Update(c.UserContext(), id, patch)
		if err != nil {
			return writeStorageError(c, err)
		}
		return c.JSON(updated)
	}
}

func DeleteResource[T any, P any](p RepositoryProvider, sel Selector[T, P]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := pathID(c)
		if !ok {
			return nil
		}
		repos, err := p.Repositories()
		if err != nil {
			return writeStorageError(c, err)
		}
		if _, err := sel(repos).Delete(c.UserContext(), id); err != nil {
			return writeStorageError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func registerResource[T any, P any](r fiber.Router, path string, p RepositoryProvider, sel Selector[T, P]) fiber.Router {
	g := r.Group(path)
	g.Get("/", ListResource(p, sel))
	g.Post("/", CreateResource(p, sel))
	g.Get("/:id", GetResource(p, sel))
	g.Patch("/:id", UpdateResource(p, sel))
	g.Delete("/:id", DeleteResource(p, sel))
	return g
}
