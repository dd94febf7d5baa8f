package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shams-connect/school-needs-api/internal/models"
	"github.com/shams-connect/school-needs-api/internal/service"
)

type handlerPageRepo struct {
	pages map[string]models.Page
}

func newHandlerPageRepo() *handlerPageRepo {
	return &handlerPageRepo{pages: make(map[string]models.Page)}
}

func (f *handlerPageRepo) List(ctx context.Context, publishedOnly bool) ([]models.Page, error) {
	out := make([]models.Page, 0, len(f.pages))
	for _, p := range f.pages {
		if publishedOnly && !p.Published {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *handlerPageRepo) FindBySlug(ctx context.Context, slug string) (*models.Page, error) {
	if p, ok := f.pages[slug]; ok {
		return &p, nil
	}
	return nil, sql.ErrNoRows
}

func (f *handlerPageRepo) Create(ctx context.Context, page *models.Page) error {
	if page.ID == "" {
		page.ID = "page-new"
	}
	f.pages[page.Slug] = *page
	return nil
}

func (f *handlerPageRepo) Update(ctx context.Context, page *models.Page) error {
	for slug, existing := range f.pages {
		if existing.ID == page.ID {
			delete(f.pages, slug)
		}
	}
	f.pages[page.Slug] = *page
	return nil
}

func (f *handlerPageRepo) Delete(ctx context.Context, id string) error {
	for slug, existing := range f.pages {
		if existing.ID == id {
			delete(f.pages, slug)
		}
	}
	return nil
}

func newPageHandler(repo *handlerPageRepo) *PageHandler {
	return NewPageHandler(service.NewPageService(repo, handlerAudit{}, testValidator(), testLogger()))
}

func TestPageListHidesUnpublishedFromPublic(t *testing.T) {
	repo := newHandlerPageRepo()
	repo.pages["about"] = models.Page{ID: "page-1", Slug: "about", Published: true}
	repo.pages["draft"] = models.Page{ID: "page-2", Slug: "draft", Published: false}
	h := newPageHandler(repo)

	c, rec := testContext(t, http.MethodGet, "/pages", "")
	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)

	var pages []models.Page
	require.NoError(t, json.Unmarshal(envelope.Data, &pages))
	require.Len(t, pages, 1)
	assert.Equal(t, "about", pages[0].Slug)
}

func TestPageListIncludesUnpublishedForAdmin(t *testing.T) {
	repo := newHandlerPageRepo()
	repo.pages["about"] = models.Page{ID: "page-1", Slug: "about", Published: true}
	repo.pages["draft"] = models.Page{ID: "page-2", Slug: "draft", Published: false}
	h := newPageHandler(repo)

	c, rec := testContext(t, http.MethodGet, "/pages", "")
	authenticate(c, "admin-1", models.RoleAdmin)
	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)

	var pages []models.Page
	require.NoError(t, json.Unmarshal(envelope.Data, &pages))
	assert.Len(t, pages, 2)
}

func TestPageGetUnknownSlug(t *testing.T) {
	h := newPageHandler(newHandlerPageRepo())

	c, rec := testContext(t, http.MethodGet, "/pages/missing", "")
	c.Params = []gin.Param{{Key: "slug", Value: "missing"}}
	h.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "PAGE_NOT_FOUND", envelope.Error["code"])
}

func TestPageCreateRejectsBadSlug(t *testing.T) {
	h := newPageHandler(newHandlerPageRepo())

	body := `{"slug":"About Us","title_en":"About","title_ar":"عن المنصة","body_en":"body","body_ar":"نص"}`
	c, rec := testContext(t, http.MethodPost, "/admin/pages", body)
	authenticate(c, "admin-1", models.RoleAdmin)
	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPageCreateDuplicateSlug(t *testing.T) {
	repo := newHandlerPageRepo()
	repo.pages["about"] = models.Page{ID: "page-1", Slug: "about", Published: true}
	h := newPageHandler(repo)

	body := `{"slug":"about","title_en":"About","title_ar":"عن المنصة","body_en":"body","body_ar":"نص"}`
	c, rec := testContext(t, http.MethodPost, "/admin/pages", body)
	authenticate(c, "admin-1", models.RoleAdmin)
	h.Create(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
}
