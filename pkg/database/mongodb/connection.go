package mongodb

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/documap/documap/pkg/adapter"
)

// Driver creates MongoDB connections.
type Driver struct{}

// NewDriver returns the MongoDB driver.
func NewDriver() *Driver { return &Driver{} }

// Type returns the canonical store type identifier.
func (d *Driver) Type() adapter.StoreType { return adapter.MongoDB }

// Connect establishes a connection to a MongoDB database.
func (d *Driver) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Connection, error) {
	uri := buildURI(config)

	clientOptions := options.Client().ApplyURI(uri)

	// In v2, Connect handles both creation and connection
	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, &adapter.ConnectionError{
			StoreType: adapter.MongoDB,
			Host:      config.Host,
			Port:      config.Port,
			Cause:     err,
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, &adapter.ConnectionError{
			StoreType: adapter.MongoDB,
			Host:      config.Host,
			Port:      config.Port,
			Cause:     err,
		}
	}

	id := config.DatabaseID
	if id == "" {
		id = uuid.NewString()
	}

	conn := &Connection{
		id:     id,
		client: client,
		db:     client.Database(config.DatabaseName),
	}
	atomic.StoreInt32(&conn.connected, 1)
	return conn, nil
}

// buildURI assembles the connection string from the configuration.
func buildURI(config adapter.ConnectionConfig) string {
	var connString strings.Builder

	fmt.Fprintf(&connString, "mongodb://%s:%s@%s:%d/%s?authSource=admin",
		config.Username,
		config.Password,
		config.Host,
		config.Port,
		config.DatabaseName)

	if config.SSL {
		sslMode := sslModeOf(config)
		fmt.Fprintf(&connString, "&tls=%t", sslMode != "disable")

		if config.SSLCert != "" && config.SSLKey != "" {
			fmt.Fprintf(&connString, "&tlsCertificateKeyFile=%s", config.SSLCert)
		}
		if config.SSLRootCert != "" {
			fmt.Fprintf(&connString, "&tlsCAFile=%s", config.SSLRootCert)
		}
		if sslMode == "allow" || sslMode == "prefer" {
			fmt.Fprintf(&connString, "&tlsInsecure=true")
		}
	} else {
		connString.WriteString("&tls=false")
	}

	return connString.String()
}

func sslModeOf(config adapter.ConnectionConfig) string {
	if config.SSLMode != "" {
		return config.SSLMode
	}
	return "require"
}

// Connection is an active connection to one MongoDB database.
type Connection struct {
	id        string
	client    *mongo.Client
	db        *mongo.Database
	connected int32
}

func (c *Connection) ID() string              { return c.id }
func (c *Connection) Type() adapter.StoreType { return adapter.MongoDB }
func (c *Connection) Raw() interface{}        { return c.db }

func (c *Connection) IsConnected() bool {
	return atomic.LoadInt32(&c.connected) == 1
}

// Ping checks the connection against the primary.
func (c *Connection) Ping(ctx context.Context) error {
	if !c.IsConnected() {
		return adapter.ErrConnectionClosed
	}
	if err := c.client.Ping(ctx, readpref.Primary()); err != nil {
		return classifyError(err)
	}
	return nil
}

// Close disconnects the client. Further use of the connection fails with
// ErrConnectionClosed.
func (c *Connection) Close() error {
	if !atomic.CompareAndSwapInt32(&c.connected, 1, 0) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return c.client.Disconnect(ctx)
}

// Transaction runs fn inside a MongoDB session transaction, resolving it
// per the rollback policy. The block's error is returned unchanged.
func (c *Connection) Transaction(ctx context.Context, opts adapter.TxOptions, fn func(ctx context.Context) error) error {
	if !c.IsConnected() {
		return adapter.ErrConnectionClosed
	}

	session, err := c.client.StartSession()
	if err != nil {
		return classifyError(err)
	}
	defer session.EndSession(ctx)

	if err := session.StartTransaction(); err != nil {
		return classifyError(err)
	}

	sessCtx := mongo.NewSessionContext(ctx, session)
	fnErr := fn(sessCtx)

	if fnErr != nil || opts.Rollback == adapter.RollbackAlways {
		if abortErr := session.AbortTransaction(ctx); abortErr != nil && fnErr == nil {
			return classifyError(abortErr)
		}
		return fnErr
	}

	if err := session.CommitTransaction(ctx); err != nil {
		return classifyError(err)
	}
	return nil
}
