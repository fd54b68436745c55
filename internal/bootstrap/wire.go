//go:build wireinject
// +build wireinject

package bootstrap

import (
	"context"

	"github.com/google/wire"
)

// InitializeApp assembles the application using Wire.
// It returns the App, a cleanup function to release resources, and an error.
func InitializeApp(ctx context.Context) (*App, func(), error) {
	wire.Build(ProviderSet)
	return nil, nil, nil // Wire replaces this return.
}
