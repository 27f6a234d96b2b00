package dto

import (
	"strings"

	"ai-assistant-studio-be/internal/entity"
)

type ResponseLengthDTO struct {
	Short  int `json:"short" validate:"min=0,max=100"`
	Medium int `json:"medium" validate:"min=0,max=100"`
	Long   int `json:"long" validate:"min=0,max=100"`
}

func (r ResponseLengthDTO) Total() int {
	return r.Short + r.Medium + r.Long
}

type CreateAssistantRequest struct {
	Name           string            `json:"name" validate:"required,min=3,max=80"`
	Language       entity.Language   `json:"language" validate:"required,oneof=Español Inglés Portugués"`
	Tone           entity.Tone       `json:"tone" validate:"required,oneof=Formal Casual Profesional Amigable"`
	ResponseLength ResponseLengthDTO `json:"response_length"`
	AudioEnabled   bool              `json:"audio_enabled"`
	Rules          string            `json:"rules" validate:"max=4000"`
}

// Normalize trims the name so length validation ignores padding.
func (r *CreateAssistantRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
}

type UpdateAssistantRequest struct {
	Id             string            `json:"-"`
	Name           string            `json:"name" validate:"required,min=3,max=80"`
	Language       entity.Language   `json:"language" validate:"required,oneof=Español Inglés Portugués"`
	Tone           entity.Tone       `json:"tone" validate:"required,oneof=Formal Casual Profesional Amigable"`
	ResponseLength ResponseLengthDTO `json:"response_length"`
	AudioEnabled   bool              `json:"audio_enabled"`
	Rules          string            `json:"rules" validate:"max=4000"`
}

func (r *UpdateAssistantRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
}

type SaveRulesRequest struct {
	Rules string `json:"rules" validate:"max=4000"`
}

type AssistantResponse struct {
	Id             string            `json:"id"`
	Name           string            `json:"name"`
	Language       entity.Language   `json:"language"`
	Tone           entity.Tone       `json:"tone"`
	ResponseLength ResponseLengthDTO `json:"response_length"`
	AudioEnabled   bool              `json:"audio_enabled"`
	Rules          string            `json:"rules"`
}
