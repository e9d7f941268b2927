package gateway

import (
	"net/http"

	"github.com/example/marketplace/pkg/models"
	"github.com/gin-gonic/gin"
)

type userRequest struct {
	FullName string `json:"full_name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

func (g *Gateway) createUser(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := g.services.Users.Create(c.Request.Context(), &models.User{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Role:     models.UserRole(req.Role),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (g *Gateway) getUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	user, err := g.services.Users.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (g *Gateway) listUsers(c *gin.Context) {
	users, err := g.services.Users.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "total": len(users)})
}

func (g *Gateway) updateUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := g.services.Users.Update(c.Request.Context(), id, &models.User{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (g *Gateway) deleteUser(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := g.services.Users.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type sellerRequest struct {
	ShopName        string `json:"shop_name" binding:"required"`
	OwnerName       string `json:"owner_name"`
	Email           string `json:"email" binding:"required,email"`
	Phone           string `json:"phone"`
	BusinessAddress string `json:"business_address"`
	GSTNumber       string `json:"gst_number"`
	PANNumber       string `json:"pan_number"`
}

func (r *sellerRequest) toModel() *models.Seller {
	return &models.Seller{
		ShopName:        r.ShopName,
		OwnerName:       r.OwnerName,
		Email:           r.Email,
		Phone:           r.Phone,
		BusinessAddress: r.BusinessAddress,
		GSTNumber:       r.GSTNumber,
		PANNumber:       r.PANNumber,
	}
}

func (g *Gateway) createSeller(c *gin.Context) {
	var req sellerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	seller, err := g.services.Sellers.Create(c.Request.Context(), req.toModel())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, seller)
}

func (g *Gateway) getSeller(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	seller, err := g.services.Sellers.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, seller)
}

func (g *Gateway) listSellers(c *gin.Context) {
	sellers, err := g.services.Sellers.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sellers": sellers, "total": len(sellers)})
}

func (g *Gateway) updateSeller(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req sellerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	seller, err := g.services.Sellers.Update(c.Request.Context(), id, req.toModel())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, seller)
}

func (g *Gateway) deleteSeller(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := g.services.Sellers.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
