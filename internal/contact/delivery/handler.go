package delivery

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"nexcrm-backend/internal/contact/dto"
	"nexcrm-backend/internal/contact/usecase"

	"github.com/gin-gonic/gin"
)

type ContactHandler struct {
	contactUsecase usecase.ContactUsecase
}

func NewContactHandler(contactUsecase usecase.ContactUsecase) *ContactHandler {
	return &ContactHandler{
		contactUsecase: contactUsecase,
	}
}

// Create handles POST /api/contacts
func (h *ContactHandler) Create(c *gin.Context) {
	userID := c.GetString("userID")

	var req dto.CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contact, err := h.contactUsecase.CreateContact(c.Request.Context(), userID, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, contact)
}

// Get handles GET /api/contacts/:id
func (h *ContactHandler) Get(c *gin.Context) {
	userID := c.GetString("userID")

	contact, err := h.contactUsecase.GetContact(userID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, contact)
}

// Update handles PUT /api/contacts/:id
func (h *ContactHandler) Update(c *gin.Context) {
	userID := c.GetString("userID")

	var req dto.UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contact, err := h.contactUsecase.UpdateContact(c.Request.Context(), userID, c.Param("id"), &req)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, contact)
}

// Delete handles DELETE /api/contacts/:id
func (h *ContactHandler) Delete(c *gin.Context) {
	userID := c.GetString("userID")

	if err := h.contactUsecase.DeleteContact(userID, c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// List handles GET /api/contacts?limit=&offset=&segment=
func (h *ContactHandler) List(c *gin.Context) {
	userID := c.GetString("userID")

	limit := 50
	offset := 0
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	contacts, total, err := h.contactUsecase.ListContacts(userID, limit, offset, c.Query("segment"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"contacts": contacts,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// Search handles GET /api/contacts/search?q=&mode=fuzzy|semantic
func (h *ContactHandler) Search(c *gin.Context) {
	userID := c.GetString("userID")

	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}

	limit := 20
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	if c.Query("mode") == "semantic" {
		contacts, err := h.contactUsecase.SemanticSearchContacts(c.Request.Context(), userID, query, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"contacts": contacts})
		return
	}

	contacts, err := h.contactUsecase.SearchContacts(c.Request.Context(), userID, query, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}

// Export handles GET /api/contacts/export, streaming a CSV download
func (h *ContactHandler) Export(c *gin.Context) {
	userID := c.GetString("userID")

	filename := fmt.Sprintf("contacts-%s.csv", time.Now().Format("2006-01-02"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.contactUsecase.ExportContactsCSV(userID, c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
}

// Import handles POST /api/contacts/import
func (h *ContactHandler) Import(c *gin.Context) {
	userID := c.GetString("userID")

	var req dto.ImportContactsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rows must not be empty"})
		return
	}

	progress, err := h.contactUsecase.ImportContactsBatch(c.Request.Context(), userID, req.Rows, req.OverwriteMode, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, progress)
}

// Aggregate handles POST /api/contacts/:id/aggregate
func (h *ContactHandler) Aggregate(c *gin.Context) {
	userID := c.GetString("userID")

	aggregated, err := h.contactUsecase.AggregateContactSummaries(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if aggregated == nil {
		c.JSON(http.StatusOK, gin.H{"aggregated": false, "reason": "no summarized threads"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"aggregated": true, "data": aggregated})
}

// AggregateAll handles POST /api/contacts/aggregate
func (h *ContactHandler) AggregateAll(c *gin.Context) {
	userID := c.GetString("userID")

	updated, err := h.contactUsecase.AggregateAllContacts(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
