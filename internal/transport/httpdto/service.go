package httpdto

import (
	"time"

	"market-chat/internal/domain/service"
	"market-chat/internal/domain/user"
)

// ServiceRequest is used for POST /services and PUT /services/:id
type ServiceRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Method      string    `json:"method" binding:"required"`
	ServiceDate time.Time `json:"service_date" binding:"required"`
}

// ListServicesRequest holds query parameters for listing services
type ListServicesRequest struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

// ImageUploadRequest is used for POST /services/:id/image
type ImageUploadRequest struct {
	ContentType string `json:"content_type" binding:"required"`
	Size        int64  `json:"size" binding:"required"`
}

type ImageUploadResponse struct {
	UploadURL string            `json:"upload_url"`
	ObjectKey string            `json:"object_key"`
	FileURL   string            `json:"file_url,omitempty"`
	Headers   map[string]string `json:"headers"`
}

type ServiceDTO struct {
	ID          uint          `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Method      string        `json:"method"`
	ServiceDate time.Time     `json:"service_date"`
	Status      string        `json:"status"`
	ImageURL    string        `json:"image_url,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	User        SimpleUserDTO `json:"user"`
}

type ServiceResponse struct {
	Service ServiceDTO `json:"service"`
}

type ListServicesResponse struct {
	Services []ServiceDTO `json:"services"`
	Total    int64        `json:"total"`
	Page     int          `json:"page"`
	Limit    int          `json:"limit"`
}

type SimpleUserDTO struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

func FromSimpleUser(u user.User) SimpleUserDTO {
	s := u.Simple()
	return SimpleUserDTO{ID: s.ID, Name: s.Name, AvatarURL: s.AvatarURL}
}

// FromService converts a service; imageURL is resolved by the caller from the
// stored object key.
func FromService(s service.Service, imageURL string) ServiceDTO {
	dto := ServiceDTO{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		Method:      string(s.Method),
		ServiceDate: s.ServiceDate,
		Status:      string(s.Status),
		ImageURL:    imageURL,
		CompletedAt: s.CompletedAt,
		CreatedAt:   s.CreatedAt,
		User:        FromSimpleUser(s.User),
	}
	if dto.User.ID == 0 {
		dto.User.ID = s.UserID
	}
	return dto
}
