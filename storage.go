package fcbatch

import (
	"context"
	"fmt"

	"github.com/go-playground/validator"
	"go.uber.org/zap"
)

// initStorage sets the storage base properties, validates it and sets it up.
func initStorage(storage Storage, ctx context.Context, runID string, logger *zap.Logger) error {
	if err := storage.Prepare(ctx, runID, logger); err != nil {
		return err
	}
	if err := validator.New().Struct(storage); err != nil {
		return fmt.Errorf("storage validation error: %v", err)
	}
	if err := storage.Setup(); err != nil {
		return fmt.Errorf("storage setup error: %v", err)
	}
	return nil
}

// Storage is the base interface for inputs, outputs and trackers.
type Storage interface {
	// Prepare validates the config and sets the base properties.
	Prepare(ctx context.Context, runID string, logger *zap.Logger) error
	// Setup contains the storage preparations like connection etc. Is called
	// only once at the very beginning of the work with the storage.
	Setup() error
	// Shutdown is called only once at the very end of the work with the
	// storage. It is meant to perform cleanups, close connections and so on.
	Shutdown()
}

// BaseStorage contains base fields and methods for all inputs, outputs and
// trackers. It must be embedded into them.
type BaseStorage struct {
	RunID   string `validate:"required"`
	Context context.Context
	Logger  *zap.Logger `validate:"required"`
}

// Prepare sets the storage base properties.
func (b *BaseStorage) Prepare(ctx context.Context, runID string, logger *zap.Logger) error {
	b.RunID = runID
	b.Context = ctx
	b.Logger = logger
	return nil
}

// Shutdown is called only once at the very end of the work with the storage.
// As for the BaseStorage, the method does nothing. It can be redefined in the
// concrete storage to set the behaviour.
func (b *BaseStorage) Shutdown() {}
