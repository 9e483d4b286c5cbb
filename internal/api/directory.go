package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/themobileprof/ayu-be/internal/directory"
)

// DirectoryHandler serves the provider and pharmacy listings
type DirectoryHandler struct {
	dir *directory.Directory
}

// NewDirectoryHandler creates a new directory handler
func NewDirectoryHandler(dir *directory.Directory) *DirectoryHandler {
	return &DirectoryHandler{dir: dir}
}

// ListProviders returns providers filtered by search text and type
// GET /api/providers?q=cardio&type=hospital
func (h *DirectoryHandler) ListProviders(c *gin.Context) {
	providers := h.dir.FindProviders(directory.ProviderFilter{
		Query: c.Query("q"),
		Type:  c.DefaultQuery("type", directory.TypeAll),
	})
	c.JSON(http.StatusOK, gin.H{
		"providers": providers,
		"count":     len(providers),
	})
}

// GetProvider returns one provider
// GET /api/providers/:id
func (h *DirectoryHandler) GetProvider(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := h.dir.Provider(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Provider not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// ListPharmacies returns pharmacies filtered by search text and toggles
// GET /api/pharmacies?q=koramangala&delivery=true&open24=true
func (h *DirectoryHandler) ListPharmacies(c *gin.Context) {
	pharmacies := h.dir.FindPharmacies(directory.PharmacyFilter{
		Query:        c.Query("q"),
		DeliveryOnly: queryBool(c, "delivery"),
		Open24Only:   queryBool(c, "open24"),
	})
	c.JSON(http.StatusOK, gin.H{
		"pharmacies": pharmacies,
		"count":      len(pharmacies),
	})
}

// GetPharmacy returns one pharmacy
// GET /api/pharmacies/:id
func (h *DirectoryHandler) GetPharmacy(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := h.dir.Pharmacy(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pharmacy not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// DeliveryEstimate returns the delivery window for a pharmacy
// GET /api/pharmacies/:id/delivery-estimate?distance_km=3.5
func (h *DirectoryHandler) DeliveryEstimate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var distance float64
	if raw := c.Query("distance_km"); raw != "" {
		d, err := strconv.ParseFloat(raw, 64)
		if err != nil || d < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "distance_km must be a non-negative number"})
			return
		}
		distance = d
	}

	est, err := h.dir.EstimateDelivery(id, distance)
	switch {
	case errors.Is(err, directory.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Pharmacy not found"})
	case errors.Is(err, directory.ErrNoDelivery):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "This pharmacy does not offer delivery"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to estimate delivery"})
	default:
		c.JSON(http.StatusOK, est)
	}
}

func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return id, true
}

func queryBool(c *gin.Context, key string) bool {
	v, _ := strconv.ParseBool(c.Query(key))
	return v
}
