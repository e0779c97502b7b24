package entity

import "time"

// Product referencia de catálogo. El CRUD completo vive en la aplicación externa;
// el motor solo necesita saber que existe y su nombre para las búsquedas.
type Product struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
