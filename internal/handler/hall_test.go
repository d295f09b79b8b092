package handler

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/sports-hall-booking/internal/middleware"
	"github.com/iliyamo/sports-hall-booking/internal/model"
	"github.com/iliyamo/sports-hall-booking/internal/repository"
)

type memHallStore struct {
	mu     sync.Mutex
	halls  map[uint64]*model.Hall
	next   uint64
	booked map[uint64]bool
}

func newMemHallStore() *memHallStore {
	return &memHallStore{halls: map[uint64]*model.Hall{}, booked: map[uint64]bool{}}
}

func (m *memHallStore) Create(ctx context.Context, h *model.Hall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	h.ID = m.next
	cp := *h
	m.halls[h.ID] = &cp
	return nil
}

func (m *memHallStore) GetByID(ctx context.Context, id uint64) (*model.Hall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.halls[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *h
	return &cp, nil
}

func (m *memHallStore) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Hall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Hall
	for id := uint64(1); id <= m.next; id++ {
		if h, ok := m.halls[id]; ok && h.OwnerID == ownerID {
			out = append(out, *h)
		}
	}
	return out, nil
}

func (m *memHallStore) UpdateByIDAndOwner(ctx context.Context, h *model.Hall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.halls[h.ID]
	if !ok || cur.OwnerID != h.OwnerID {
		return repository.ErrNotFound
	}
	cp := *h
	m.halls[h.ID] = &cp
	return nil
}

func (m *memHallStore) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*model.Hall, error) {
	h, err := m.GetByID(ctx, id)
	if err != nil || h.OwnerID != ownerID {
		return nil, repository.ErrNotFound
	}
	return h, nil
}

func (m *memHallStore) DeleteByIDAndOwner(ctx context.Context, id, ownerID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.halls[id]
	if !ok || h.OwnerID != ownerID {
		return repository.ErrNotFound
	}
	if m.booked[id] {
		return repository.ErrConflict
	}
	delete(m.halls, id)
	return nil
}

func (m *memHallStore) Search(ctx context.Context, q repository.HallSearchQuery) ([]model.Hall, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Hall
	for id := uint64(1); id <= m.next; id++ {
		if h, ok := m.halls[id]; ok {
			out = append(out, *h)
		}
	}
	return out, int64(len(out)), nil
}

func TestHallLifecycle(t *testing.T) {
	store := newMemHallStore()
	h := NewHallHandler(store, quietLog())
	e := newEcho()
	owner := []echo.MiddlewareFunc{middleware.JWTAuth(testSecret), middleware.RequireRole(model.RoleOwner)}
	e.GET("/halls/", h.List)
	e.GET("/halls/:id/", h.Get)
	e.POST("/halls/create/", h.Create, owner...)
	e.PUT("/halls/:id/", h.Update, owner...)
	e.DELETE("/halls/:id/", h.Delete, owner...)
	e.GET("/my-halls/", h.Mine, owner...)

	ownerTok := bearerFor(t, 5, model.RoleOwner)
	otherTok := bearerFor(t, 6, model.RoleOwner)

	rec := call(e, http.MethodPost, "/halls/create/", bearerFor(t, 9, model.RolePlayer), `{"name":"Arena","address":"Main 1","price":"20"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(e, http.MethodPost, "/halls/create/", ownerTok, `{"name":"  ","address":"Main 1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(e, http.MethodPost, "/halls/create/", ownerTok, `{"name":"Arena","address":"Main 1","price":"-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = call(e, http.MethodPost, "/halls/create/", ownerTok, `{"name":"Arena","address":"Main 1","price":"20.456"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created, err := store.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, created.Price.Equal(decimal.RequireFromString("20.46")))

	list := call(e, http.MethodGet, "/halls/?page=1", "", "")
	require.Equal(t, http.StatusOK, list.Code)
	assert.EqualValues(t, 1, decode(t, list)["total"])

	assert.Equal(t, http.StatusNotFound, call(e, http.MethodGet, "/halls/99/", "", "").Code)

	rec = call(e, http.MethodPut, "/halls/1/", otherTok, `{"name":"Mine now","address":"Main 1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(e, http.MethodPut, "/halls/1/", ownerTok, `{"name":"Arena 2","address":"Main 1","price":"25"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Arena 2", body["name"])
	assert.Equal(t, model.DefaultHallDescription, body["description"])

	mine := call(e, http.MethodGet, "/my-halls/", ownerTok, "")
	require.Equal(t, http.StatusOK, mine.Code)

	store.booked[1] = true
	assert.Equal(t, http.StatusConflict, call(e, http.MethodDelete, "/halls/1/", ownerTok, "").Code)
	store.booked[1] = false
	assert.Equal(t, http.StatusNoContent, call(e, http.MethodDelete, "/halls/1/", ownerTok, "").Code)
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	e := newEcho()
	e.GET("/up", Health(pinger{}))
	e.GET("/down", Health(pinger{err: errors.New("refused")}))

	up := call(e, http.MethodGet, "/up", "", "")
	assert.Equal(t, http.StatusOK, up.Code)
	assert.Equal(t, "up", decode(t, up)["db"])

	down := call(e, http.MethodGet, "/down", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, down.Code)
	assert.Equal(t, "degraded", decode(t, down)["status"])
}
