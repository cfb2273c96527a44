package orm

import (
	"context"
	"fmt"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"gorm.io/dynform/logger"
	"gorm.io/dynform/schema"
)

// Config ORM config
type Config struct {
	// NamingStrategy tables, columns and form field naming strategy
	NamingStrategy schema.Namer
	// Logger
	Logger logger.Interface
	// NowFunc the function to be used when creating a new timestamp
	NowFunc func() time.Time
	// Timeout for acquiring the database file lock, defaults to one second
	Timeout time.Duration

	bolt       *bolt.DB
	callbacks  *callbacks
	cacheStore *sync.Map
	listeners  *listenerRegistry
}

// DB ORM DB definition
type DB struct {
	*Config
	Error        error
	RowsAffected int64
	Statement    *Statement
	clone        int
}

// Session session config when create session with Session() method
type Session struct {
	// NewDB drops the chained conditions but keeps the context and the running transaction
	NewDB   bool
	Context context.Context
	Logger  logger.Interface
	NowFunc func() time.Time
}

// Open opens (creating when missing) the database file at path
func Open(path string, config *Config) (db *DB, err error) {
	if config == nil {
		config = &Config{}
	}

	if config.NamingStrategy == nil {
		config.NamingStrategy = schema.NamingStrategy{}
	}

	if config.Logger == nil {
		config.Logger = logger.Default
	}

	if config.NowFunc == nil {
		config.NowFunc = func() time.Time { return time.Now().Local() }
	}

	if config.Timeout == 0 {
		config.Timeout = time.Second
	}

	if config.cacheStore == nil {
		config.cacheStore = &sync.Map{}
	}

	if config.listeners == nil {
		config.listeners = newListenerRegistry()
	}

	if config.bolt, err = bolt.Open(path, 0o600, &bolt.Options{Timeout: config.Timeout}); err != nil {
		return nil, fmt.Errorf("failed to open database %v: %w", path, err)
	}

	db = &DB{Config: config, clone: 1}
	db.callbacks = initializeCallbacks(db)
	registerDefaultCallbacks(db)
	return db, nil
}

// Close releases the database file
func (db *DB) Close() error {
	return db.bolt.Close()
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.bolt.Path()
}

// Session create new db session
func (db *DB) Session(config *Session) *DB {
	var (
		txConfig = *db.Config
		tx       = &DB{
			Config:    &txConfig,
			Statement: db.Statement,
			clone:     2,
		}
	)

	if config.NewDB {
		tx.clone = 1
	}

	if db.Statement != nil {
		tx.Statement = db.Statement.clone()
		tx.Statement.DB = tx
	} else {
		tx.Statement = &Statement{DB: tx, Context: context.Background(), Settings: map[string]interface{}{}}
	}

	if config.Context != nil {
		tx.Statement.Context = config.Context
	}

	if config.Logger != nil {
		tx.Config.Logger = config.Logger
	}

	if config.NowFunc != nil {
		tx.Config.NowFunc = config.NowFunc
	}

	return tx
}

// WithContext change current instance db's context to ctx
func (db *DB) WithContext(ctx context.Context) *DB {
	return db.Session(&Session{Context: ctx})
}

// Debug start debug mode
func (db *DB) Debug() *DB {
	return db.Session(&Session{Logger: db.Logger.LogMode(logger.Info)})
}

// Callback returns callback manager
func (db *DB) Callback() *callbacks {
	return db.callbacks
}

// AddError add error to db
func (db *DB) AddError(err error) error {
	if db.Error == nil {
		db.Error = err
	} else if err != nil {
		db.Error = fmt.Errorf("%v; %w", db.Error, err)
	}
	return db.Error
}

// Parse returns the cached schema of a model value
func (db *DB) Parse(value interface{}) (*schema.Schema, error) {
	return schema.Parse(value, db.cacheStore, db.NamingStrategy)
}

func (db *DB) getInstance() *DB {
	if db.clone > 0 {
		tx := &DB{Config: db.Config, Error: db.Error}

		switch db.clone {
		case 1: // fresh statement, shares the running transaction only
			tx.Statement = &Statement{DB: tx, Settings: map[string]interface{}{}}
			if db.Statement != nil {
				tx.Statement.Context = db.Statement.Context
				tx.Statement.tx = db.Statement.tx
				tx.Statement.state = db.Statement.state
			}
		case 2: // clone of the session statement
			tx.Statement = db.Statement.clone()
			tx.Statement.DB = tx
		}

		if tx.Statement.Context == nil {
			tx.Statement.Context = context.Background()
		}
		return tx
	}

	return db
}
