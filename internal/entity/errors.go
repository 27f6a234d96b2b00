package entity

import "errors"

var (
	ErrAssistantNotFound = errors.New("asistente no encontrado")
	// ErrTransient is the simulated "store busy" failure of the mock backend.
	ErrTransient        = errors.New("el sistema de archivos de IA está ocupado. intenta de nuevo")
	ErrInvalidAssistant = errors.New("invalid assistant")
)
