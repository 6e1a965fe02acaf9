package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// ErrValidation entrada malformada; la operación no tuvo efectos.
	ErrValidation = errors.New("validación fallida")
	// ErrInsufficientStock el decremento supera lo disponible en la ubicación.
	ErrInsufficientStock = errors.New("stock insuficiente")
	// ErrConcurrencyConflict el almacenamiento no pudo garantizar el incremento atómico; reintentar.
	ErrConcurrencyConflict = errors.New("conflicto de concurrencia")
	// ErrProtocolViolation intento de modificar o borrar un movimiento histórico.
	ErrProtocolViolation = errors.New("violación de protocolo: el libro de movimientos es de solo anexado")
)
