package controller

import (
	"pinboard-be/internal/dto"
	"pinboard-be/internal/pkg/serverutils"
	"pinboard-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IContentController interface {
	RegisterRoutes(r fiber.Router)
	Show(ctx *fiber.Ctx) error
	Update(ctx *fiber.Ctx) error
}

type contentController struct {
	boardService service.IBoardService
}

func NewContentController(boardService service.IBoardService) IContentController {
	return &contentController{
		boardService: boardService,
	}
}

func (c *contentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/content/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get(":boardId/:contentId", c.Show)
	h.Put(":boardId/:contentId", c.Update)
}

func (c *contentController) Show(ctx *fiber.Ctx) error {
	boardId, err := parseBoardId(ctx)
	if err != nil {
		return err
	}
	contentId := ctx.Params("contentId")

	res, err := c.boardService.GetContent(ctx.Context(), boardId, contentId)
	if err != nil {
		return err
	}
	if res == nil {
		return fiber.NewError(fiber.StatusNotFound, "Content not found")
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show content", res))
}

func (c *contentController) Update(ctx *fiber.Ctx) error {
	boardId, err := parseBoardId(ctx)
	if err != nil {
		return err
	}
	contentId := ctx.Params("contentId")

	var req dto.UpdateContentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	if err := c.boardService.UpdateContent(ctx.Context(), boardId, contentId, &req); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success update content", nil))
}
