package controller

import (
	"pinboard-be/internal/dto"
	"pinboard-be/internal/pkg/serverutils"
	"pinboard-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IBoardController interface {
	RegisterRoutes(r fiber.Router)
	Show(ctx *fiber.Ctx) error
	Metrics(ctx *fiber.Ctx) error
	CreateWidget(ctx *fiber.Ctx) error
	ShowWidget(ctx *fiber.Ctx) error
	UpdateWidget(ctx *fiber.Ctx) error
	DeleteWidget(ctx *fiber.Ctx) error
	TransformWidget(ctx *fiber.Ctx) error
	TransformWidgets(ctx *fiber.Ctx) error
	ReorderWidget(ctx *fiber.Ctx) error
}

type boardController struct {
	boardService service.IBoardService
}

func NewBoardController(boardService service.IBoardService) IBoardController {
	return &boardController{
		boardService: boardService,
	}
}

func (c *boardController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/board/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get(":boardId", c.Show)
	h.Get(":boardId/metrics", c.Metrics)
	h.Post(":boardId/widgets", c.CreateWidget)
	h.Put(":boardId/widgets/transform", c.TransformWidgets)
	h.Get(":boardId/widgets/:id", c.ShowWidget)
	h.Put(":boardId/widgets/:id", c.UpdateWidget)
	h.Delete(":boardId/widgets/:id", c.DeleteWidget)
	h.Put(":boardId/widgets/:id/transform", c.TransformWidget)
	h.Put(":boardId/widgets/:id/reorder", c.ReorderWidget)
}

func parseBoardId(ctx *fiber.Ctx) (uuid.UUID, error) {
	boardId, err := uuid.Parse(ctx.Params("boardId"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid board id")
	}
	return boardId, nil
}

func parseWidgetId(ctx *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid widget id")
	}
	return id, nil
}

func (c *boardController) Show(ctx *fiber.Ctx) error {
	boardId, err := parseBoardId(ctx)
	if err != nil {
		return err
	}

	res, err := c.boardService.GetBoard(ctx.Context(), boardId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show board", res))
}

func (c *boardController) Metrics(ctx *fiber.Ctx) error {
	boardId, err := parseBoardId(ctx)
	if err != nil {
		return err
	}

	res, err := c.boardService.Metrics(ctx.Context(), boardId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show board metrics", res))
}

func (c *boardController) CreateWidget(ctx *fiber.Ctx) error {
	boardId, err := parseBoardId(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateWidgetRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.boardService.CreateWidget(ctx.Context(), boardId, &req)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create widget", res))
}

func (c *boardController) ShowWidget(ctx *fiber.Ctx) error {
	boardId, err := parseBoardId(ctx)
	if err != nil {
		return err
	}
	id, err := parseWidgetId(ctx)
	if err != nil {
		return err
	}

	res, err := c.boardService.GetWidget(ctx.Context(), boardId, id)
	if err != nil {
		return err
	}
	if res == nil {
		return fiber.NewError(fiber.StatusNotFound, "Widget not found")
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show widget", res))
}

func (c *boardController) UpdateWidget(ctx *fiber.Ctx) error {
	boardId, err := parseBoardId(ctx)
	if err != nil {
		return err
	}
	id, err := parseWidgetId(ctx)
	if err != nil {
		return err
	}

	var req dto.UpdateWidgetRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	req.Id = id

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.boardService.UpdateWidget(ctx.Context(), boardId, &req)
	if err != nil {
		return err
	}
	if res == nil {
		return fiber.NewError(fiber.StatusNotFound, "Widget not found")
	}

	return ctx.JSON(serverutils.SuccessResponse("Success update widget", res))
}

func (c *boardController) DeleteWidget(ctx *fiber.Ctx) error {
	boardId, err := parseBoardId(ctx)
	if err != nil {
		return err
	}
	id, err := parseWidgetId(ctx)
	if err != nil {
		return err
	}

	if err := c.boardService.DeleteWidget(ctx.Context(), boardId, id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete widget", nil))
}

func (c *boardController) TransformWidget(ctx *fiber.Ctx) error {
	boardId, err := parseBoardId(ctx)
	if err != nil {
		return err
	}
	id, err := parseWidgetId(ctx)
	if err != nil {
		return err
	}

	var req dto.TransformRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	res, err := c.boardService.TransformWidget(ctx.Context(), boardId, id, &req)
	if err != nil {
		return err
	}
	if res == nil {
		return fiber.NewError(fiber.StatusNotFound, "Widget not found")
	}

	return ctx.JSON(serverutils.SuccessResponse("Success transform widget", res))
}

func (c *boardController) TransformWidgets(ctx *fiber.Ctx) error {
	boardId, err := parseBoardId(ctx)
	if err != nil {
		return err
	}

	var req dto.BatchTransformRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.boardService.TransformWidgets(ctx.Context(), boardId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success transform widgets", res))
}

func (c *boardController) ReorderWidget(ctx *fiber.Ctx) error {
	boardId, err := parseBoardId(ctx)
	if err != nil {
		return err
	}
	id, err := parseWidgetId(ctx)
	if err != nil {
		return err
	}

	var req dto.ReorderWidgetRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	res, err := c.boardService.ReorderWidget(ctx.Context(), boardId, id, req.ZIndex)
	if err != nil {
		return err
	}
	if res == nil {
		return fiber.NewError(fiber.StatusNotFound, "Widget not found")
	}

	return ctx.JSON(serverutils.SuccessResponse("Success reorder widget", res))
}
