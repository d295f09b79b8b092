package handler // hall endpoints talk to the hall repository directly

import (
    "context"
    "errors"
    "fmt"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/sports-hall-booking/internal/middleware"
    "github.com/iliyamo/sports-hall-booking/internal/model"
    "github.com/iliyamo/sports-hall-booking/internal/repository"
    "github.com/iliyamo/sports-hall-booking/internal/service"
)

// HallStore is the hall persistence used by HallHandler.
type HallStore interface {
    Create(ctx context.Context, h *model.Hall) error
    GetByID(ctx context.Context, id uint64) (*model.Hall, error)
    ListByOwner(ctx context.Context, ownerID uint64) ([]model.Hall, error)
    UpdateByIDAndOwner(ctx context.Context, h *model.Hall) error
    GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*model.Hall, error)
    DeleteByIDAndOwner(ctx context.Context, id, ownerID uint64) error
    Search(ctx context.Context, q repository.HallSearchQuery) ([]model.Hall, int64, error)
}

var _ HallStore = (*repository.HallRepo)(nil)

// HallHandler serves hall browsing and owner hall management.
type HallHandler struct {
    Halls HallStore
    Log   logrus.FieldLogger
}

func NewHallHandler(halls HallStore, log logrus.FieldLogger) *HallHandler {
    if halls == nil || log == nil {
        panic("nil dependency passed to NewHallHandler")
    }
    return &HallHandler{Halls: halls, Log: log}
}

// hallErr translates repository errors on a hall lookup.
func hallErr(err error, id uint64) error {
    switch {
    case errors.Is(err, repository.ErrNotFound):
        return fmt.Errorf("%w: hall %d not found", service.ErrNotFound, id)
    case errors.Is(err, repository.ErrConflict):
        return fmt.Errorf("%w: hall %d has upcoming appointments", service.ErrInvalidState, id)
    case errors.Is(err, repository.ErrDuplicate):
        return fmt.Errorf("%w: hall already exists", service.ErrInvalidState)
    }
    return err
}

// List handles GET /halls/?name=&address=&page=&page_size=.
func (h *HallHandler) List(c echo.Context) error {
    page, _ := strconv.Atoi(c.QueryParam("page"))
    size, _ := strconv.Atoi(c.QueryParam("page_size"))
    q := repository.HallSearchQuery{
        Name:     strings.TrimSpace(c.QueryParam("name")),
        Address:  strings.TrimSpace(c.QueryParam("address")),
        Page:     page,
        PageSize: size,
    }
    q.Normalize()

    items, total, err := h.Halls.Search(c.Request().Context(), q)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "data":      items,
        "total":     total,
        "page":      q.Page,
        "page_size": q.PageSize,
    })
}

// Get handles GET /halls/:id/.
func (h *HallHandler) Get(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return writeError(c, h.Log, err)
    }
    hall, err := h.Halls.GetByID(c.Request().Context(), id)
    if err != nil {
        return writeError(c, h.Log, hallErr(err, id))
    }
    return c.JSON(http.StatusOK, hall)
}

type hallReq struct {
    Name        string          `json:"name" validate:"required,max=100"`
    Address     string          `json:"address" validate:"required,max=255"`
    Price       decimal.Decimal `json:"price"`
    Description string          `json:"description" validate:"max=2000"`
}

func (r *hallReq) normalize() error {
    r.Name = strings.TrimSpace(r.Name)
    r.Address = strings.TrimSpace(r.Address)
    r.Description = strings.TrimSpace(r.Description)
    if r.Name == "" || r.Address == "" {
        return invalid("name and address are required")
    }
    if r.Price.IsNegative() {
        return invalid("price must not be negative")
    }
    r.Price = r.Price.Round(2)
    return nil
}

// Create handles POST /halls/create/ (owners only).
func (h *HallHandler) Create(c echo.Context) error {
    var req hallReq
    if err := bind(c, &req); err != nil {
        return writeError(c, h.Log, err)
    }
    if err := req.normalize(); err != nil {
        return writeError(c, h.Log, err)
    }
    hall := &model.Hall{
        OwnerID:     middleware.IdentityFrom(c).UserID,
        Name:        req.Name,
        Address:     req.Address,
        Price:       req.Price,
        Description: req.Description,
    }
    if err := h.Halls.Create(c.Request().Context(), hall); err != nil {
        return writeError(c, h.Log, hallErr(err, 0))
    }
    h.Log.WithFields(logrus.Fields{"hall_id": hall.ID, "owner_id": hall.OwnerID}).Info("hall created")
    return c.JSON(http.StatusCreated, hall)
}

// Update handles PUT /halls/:id/.  Only the hall's owner may update it;
// other callers get 404 so hall ownership is not disclosed.
func (h *HallHandler) Update(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return writeError(c, h.Log, err)
    }
    var req hallReq
    if err := bind(c, &req); err != nil {
        return writeError(c, h.Log, err)
    }
    if err := req.normalize(); err != nil {
        return writeError(c, h.Log, err)
    }
    if req.Description == "" {
        req.Description = model.DefaultHallDescription
    }
    ownerID := middleware.IdentityFrom(c).UserID
    ctx := c.Request().Context()
    hall := &model.Hall{ID: id, OwnerID: ownerID, Name: req.Name, Address: req.Address, Price: req.Price, Description: req.Description}
    if err := h.Halls.UpdateByIDAndOwner(ctx, hall); err != nil {
        return writeError(c, h.Log, hallErr(err, id))
    }
    updated, err := h.Halls.GetByIDAndOwner(ctx, id, ownerID)
    if err != nil {
        return writeError(c, h.Log, hallErr(err, id))
    }
    return c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /halls/:id/.  Halls with upcoming pending or
// approved appointments are kept.
func (h *HallHandler) Delete(c echo.Context) error {
    id, err := pathID(c, "id")
    if err != nil {
        return writeError(c, h.Log, err)
    }
    if err := h.Halls.DeleteByIDAndOwner(c.Request().Context(), id, middleware.IdentityFrom(c).UserID); err != nil {
        return writeError(c, h.Log, hallErr(err, id))
    }
    return c.NoContent(http.StatusNoContent)
}

// Mine handles GET /my-halls/.
func (h *HallHandler) Mine(c echo.Context) error {
    list, err := h.Halls.ListByOwner(c.Request().Context(), middleware.IdentityFrom(c).UserID)
    if err != nil {
        return writeError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, list)
}
