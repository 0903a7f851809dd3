package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repositories holds all repository instances
type Repositories struct {
	Suppression *SuppressionRepository
	Audit       *AuditRepository
	Directory   *DirectoryRepository
}

// NewRepositories creates a new repository collection
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Suppression: NewSuppressionRepository(pool),
		Audit:       NewAuditRepository(pool),
		Directory:   NewDirectoryRepository(pool),
	}
}
