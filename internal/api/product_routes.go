package api

import (
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"

	"backoffice/internal/models"
	"backoffice/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
)

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string) int {
	n, _ := strconv.Atoi(c.Query(name))
	return n
}

func (h *Handler) listProducts(c *gin.Context) {
	f := store.ProductFilter{
		CategoryID: int64(queryInt(c, "category_id")),
		Featured:   c.Query("featured") == "true",
		InStock:    c.Query("in_stock") == "true",
		Search:     c.Query("search"),
		Page:       queryInt(c, "page"),
		Limit:      queryInt(c, "limit"),
	}

	products, total, err := h.store.ListProducts(c.Request.Context(), f)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	respondOK(c, paginated{Items: products, Total: total, Page: normalizePage(f.Page), Limit: f.Limit})
}

func (h *Handler) getProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	product, err := h.store.GetProductByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(c, http.StatusNotFound, "product not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	if !product.IsActive {
		respondError(c, http.StatusNotFound, "product not found")
		return
	}
	respondOK(c, product)
}

type productRequestBody struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Price       float64  `json:"price" binding:"required,gt=0"`
	CategoryID  int64    `json:"category_id" binding:"required"`
	Images      []string `json:"images"`
	Stock       int      `json:"stock" binding:"min=0"`
	SKU         string   `json:"sku"`
	Featured    bool     `json:"featured"`
	Discount    float64  `json:"discount"`
	Tags        []string `json:"tags"`
}

// generateSKU builds a default SKU from category and product name prefixes
// plus four random digits, e.g. "ELE-PHO-4821".
func generateSKU(categoryName, productName string) string {
	prefix := func(s string) string {
		var b strings.Builder
		for _, r := range strings.ToUpper(s) {
			if r >= 'A' && r <= 'Z' {
				b.WriteRune(r)
				if b.Len() == 3 {
					break
				}
			}
		}
		for b.Len() < 3 {
			b.WriteByte('X')
		}
		return b.String()
	}
	return fmt.Sprintf("%s-%s-%04d", prefix(categoryName), prefix(productName), rand.Intn(10000))
}

func (h *Handler) createProduct(c *gin.Context) {
	var req productRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	category, err := h.store.GetCategoryByID(c.Request.Context(), req.CategoryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(c, http.StatusBadRequest, "unknown category")
			return
		}
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	if req.SKU == "" {
		req.SKU = generateSKU(category.Name, req.Name)
	}

	product := &models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		Images:      pq.StringArray(req.Images),
		Stock:       req.Stock,
		SKU:         req.SKU,
		Featured:    req.Featured,
		InStock:     req.Stock > 0,
		Discount:    req.Discount,
		Tags:        pq.StringArray(req.Tags),
	}
	if err := h.store.CreateProduct(c.Request.Context(), product); err != nil {
		respondError(c, http.StatusConflict, "could not create product: "+err.Error())
		return
	}
	respondCreated(c, product)
}

func (h *Handler) updateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req productRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	product := &models.Product{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		Images:      pq.StringArray(req.Images),
		Stock:       req.Stock,
		Featured:    req.Featured,
		InStock:     req.Stock > 0,
		Discount:    req.Discount,
		Tags:        pq.StringArray(req.Tags),
	}
	if err := h.store.UpdateProduct(c.Request.Context(), product); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(c, http.StatusNotFound, "product not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	respondOK(c, product)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.store.SoftDeleteProduct(c.Request.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(c, http.StatusNotFound, "product not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	respondMessage(c, "product deleted", nil)
}

type stockRequest struct {
	Stock int `json:"stock" binding:"min=0"`
}

func (h *Handler) setProductStock(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.SetProductStock(c.Request.Context(), id, req.Stock); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(c, http.StatusNotFound, "product not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	respondMessage(c, "stock updated", gin.H{"id": id, "stock": req.Stock})
}

// --- Categories ---

func (h *Handler) listCategories(c *gin.Context) {
	categories, err := h.store.ListCategories(c.Request.Context(), true)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	respondOK(c, categories)
}

func (h *Handler) listAllCategories(c *gin.Context) {
	categories, err := h.store.ListCategories(c.Request.Context(), false)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	respondOK(c, categories)
}

type categoryRequestBody struct {
	Name        string `json:"name" binding:"required"`
	Slug        string `json:"slug" binding:"required"`
	Description string `json:"description"`
	Image       string `json:"image"`
	ParentID    *int64 `json:"parent_id"`
	SortOrder   int    `json:"sort_order"`
	Visible     *bool  `json:"visible"`
}

func (req *categoryRequestBody) toModel(id int64) *models.Category {
	cat := &models.Category{
		ID:          id,
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Image:       req.Image,
		SortOrder:   req.SortOrder,
		Visible:     true,
	}
	if req.ParentID != nil {
		cat.ParentID = sql.NullInt64{Int64: *req.ParentID, Valid: true}
	}
	if req.Visible != nil {
		cat.Visible = *req.Visible
	}
	return cat
}

func (h *Handler) createCategory(c *gin.Context) {
	var req categoryRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	cat := req.toModel(0)
	if err := h.store.CreateCategory(c.Request.Context(), cat); err != nil {
		respondError(c, http.StatusConflict, "could not create category: "+err.Error())
		return
	}
	respondCreated(c, cat)
}

func (h *Handler) updateCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req categoryRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	cat := req.toModel(id)
	if err := h.store.UpdateCategory(c.Request.Context(), cat); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(c, http.StatusNotFound, "category not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	respondOK(c, cat)
}

func (h *Handler) deleteCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.store.SoftDeleteCategory(c.Request.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(c, http.StatusNotFound, "category not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	respondMessage(c, "category deleted", nil)
}

type visibilityRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

func (h *Handler) setCategoryVisibility(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req visibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.SetCategoryVisibility(c.Request.Context(), id, *req.Visible); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(c, http.StatusNotFound, "category not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "internal server error")
		return
	}
	respondMessage(c, "visibility updated", gin.H{"id": id, "visible": *req.Visible})
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
