// Package database provides the data access layer for the gallery.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations
//	├── errors.go        # Error sentinels and gorm/sqlite translation
//	├── uow/             # Unit of work with optimistic concurrency
//	├── albums/          # Album save, graph load and cascade delete
//	├── mediaobjects/    # Media object save, load and delete
//	├── metadata/        # Metadata item persistence and owned deletes
//	├── tags/            # Tag synchronization and orphan collection
//	└── audit/           # Audit event storage
//
// # Using Sub-packages
//
// Repositories share one uow.Store per operation. Writes are queued on the
// store and committed by a single Save:
//
//	db, err := database.NewDatabase("./gallery.db")
//
//	store := uow.NewStore(db.DB)
//	albumsRepo := albums.NewRepository(store)
//
//	err = albumsRepo.Save(album)
//	result, err := albumsRepo.Delete(album)
//
// # Errors
//
// Repositories return errors wrapping ErrNotFound, ErrConstraintViolation,
// ErrConcurrencyConflict or ErrValidation. Check them with errors.Is.
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *uow.Store field
//  3. Add NewRepository(store *uow.Store) constructor
//  4. Queue writes with store.Add, MarkModified or Delete and call store.Save
//  5. Add compile-time interface check: var _ SomeInterface = (*Repository)(nil)
package database
