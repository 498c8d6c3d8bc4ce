package mongodb

import (
	"github.com/documap/documap/pkg/adapter"
)

func init() {
	// Register the MongoDB driver with the global registry
	adapter.Register(NewDriver())
}
