package handler

import (
	"net/http"

	"market-chat/internal/domain/service"
	"market-chat/internal/services"
	"market-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// ServiceHandler serves the marketplace request endpoints.
type ServiceHandler struct {
	service *services.MarketplaceService
}

func NewServiceHandler(service *services.MarketplaceService) *ServiceHandler {
	return &ServiceHandler{service: service}
}

const maxListLimit = 100

func (h *ServiceHandler) List(c *gin.Context) {
	var req httpdto.ListServicesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		invalidRequest(c)
		return
	}
	if req.Page < 1 {
		req.Page = 1
	}
	switch {
	case req.Limit < 1:
		req.Limit = 20
	case req.Limit > maxListLimit:
		req.Limit = maxListLimit
	}

	items, total, err := h.service.List(c.Request.Context(), req.Page, req.Limit)
	if err != nil {
		writeError(c, err)
		return
	}

	dtos := make([]httpdto.ServiceDTO, 0, len(items))
	for _, s := range items {
		dtos = append(dtos, h.toDTO(s))
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ListServicesResponse{
		Services: dtos,
		Total:    total,
		Page:     req.Page,
		Limit:    req.Limit,
	}))
}

func (h *ServiceHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req httpdto.ServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}

	created, err := h.service.Create(c.Request.Context(), userID, toServiceInput(req))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(httpdto.ServiceResponse{Service: h.toDTO(created)}))
}

func (h *ServiceHandler) Get(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	found, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ServiceResponse{Service: h.toDTO(found)}))
}

func (h *ServiceHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req httpdto.ServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}

	updated, err := h.service.Update(c.Request.Context(), userID, id, toServiceInput(req))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ServiceResponse{Service: h.toDTO(updated)}))
}

func (h *ServiceHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, id); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.MessageResponse{Message: "service deleted"}))
}

func (h *ServiceHandler) Complete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	done, err := h.service.Complete(c.Request.Context(), userID, id)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ServiceResponse{Service: h.toDTO(done)}))
}

func (h *ServiceHandler) PresignImage(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req httpdto.ImageUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}

	up, err := h.service.PresignImage(c.Request.Context(), userID, id, req.ContentType, req.Size)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.ImageUploadResponse{
		UploadURL: up.UploadURL,
		ObjectKey: up.ObjectKey,
		FileURL:   up.FileURL,
		Headers:   up.Headers,
	}))
}

func (h *ServiceHandler) toDTO(s service.Service) httpdto.ServiceDTO {
	return httpdto.FromService(s, h.service.ImageURL(s.ImageKey))
}

func toServiceInput(req httpdto.ServiceRequest) services.ServiceInput {
	return services.ServiceInput{
		Title:       req.Title,
		Description: req.Description,
		Method:      req.Method,
		ServiceDate: req.ServiceDate,
	}
}
