package pull

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver (pgx)
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
)

// DatabaseConnector opens catalog connections for the supported dialects.
type DatabaseConnector struct {
	poolSettings ConnectionPoolSettings
}

// ConnectionPoolSettings defines database connection pool configuration
type ConnectionPoolSettings struct {
	MaxOpenConns    int // Maximum number of open connections
	MaxIdleConns    int // Maximum number of idle connections
	ConnMaxLifetime int // Maximum lifetime of connections in seconds
}

// ConnectionInfo contains parsed database connection information
type ConnectionInfo struct {
	Type     string
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Options  map[string]string
}

// NewDatabaseConnector creates a connector sized for a handful of catalog queries.
func NewDatabaseConnector() *DatabaseConnector {
	return &DatabaseConnector{
		poolSettings: ConnectionPoolSettings{
			MaxOpenConns:    4,
			MaxIdleConns:    2,
			ConnMaxLifetime: 300,
		},
	}
}

// SetPoolSettings configures connection pool settings
func (c *DatabaseConnector) SetPoolSettings(settings ConnectionPoolSettings) {
	c.poolSettings = settings
}

// GetPoolSettings returns current connection pool settings
func (c *DatabaseConnector) GetPoolSettings() ConnectionPoolSettings {
	return c.poolSettings
}

// ParseDatabaseURL extracts the database type from a connection URL.
func (c *DatabaseConnector) ParseDatabaseURL(databaseURL string) (string, error) {
	if databaseURL == "" {
		return "", ErrEmptyDatabaseURL
	}

	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidDatabaseURL, err)
	}

	dbType := normalizeDatabaseType(u.Scheme)
	if dbType == "" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDatabase, u.Scheme)
	}

	return dbType, nil
}

// ValidateConnectionString validates the format of a database connection string
func (c *DatabaseConnector) ValidateConnectionString(databaseURL string) error {
	dbType, err := c.ParseDatabaseURL(databaseURL)
	if err != nil {
		return err
	}

	u, _ := url.Parse(databaseURL)

	switch dbType {
	case "postgresql", "mysql":
		if u.Host == "" || strings.TrimPrefix(u.Path, "/") == "" {
			return fmt.Errorf("%w: host and database are required", ErrInvalidDatabaseURL)
		}
	case "sqlite":
		if u.Path == "" && u.Host == "" {
			return fmt.Errorf("%w: database file is required", ErrInvalidDatabaseURL)
		}
	}

	return nil
}

// Connect opens and pings a database connection.
func (c *DatabaseConnector) Connect(ctx context.Context, databaseURL string) (*sql.DB, error) {
	if err := c.ValidateConnectionString(databaseURL); err != nil {
		return nil, err
	}

	info, err := c.ParseConnectionInfo(databaseURL)
	if err != nil {
		return nil, err
	}

	connStr, err := c.convertToDriverString(info)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName(info.Type), connStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	db.SetMaxOpenConns(c.poolSettings.MaxOpenConns)
	db.SetMaxIdleConns(c.poolSettings.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(c.poolSettings.ConnMaxLifetime) * time.Second)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	return db, nil
}

// ParseConnectionInfo parses a database URL into connection information
func (c *DatabaseConnector) ParseConnectionInfo(databaseURL string) (ConnectionInfo, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return ConnectionInfo{}, fmt.Errorf("%w: %w", ErrInvalidDatabaseURL, err)
	}

	info := ConnectionInfo{
		Type:    normalizeDatabaseType(u.Scheme),
		Options: make(map[string]string),
	}

	switch info.Type {
	case "postgresql", "mysql":
		info.Host = u.Hostname()
		info.Port = u.Port()
		if info.Port == "" {
			info.Port = defaultPort(info.Type)
		}
		info.Database = strings.TrimPrefix(u.Path, "/")
		if u.User != nil {
			info.Username = u.User.Username()
			info.Password, _ = u.User.Password()
		}
	case "sqlite":
		if u.Host == "" {
			// sqlite:///path/to/db.db
			info.Database = u.Path
		} else {
			// sqlite://./db.db
			info.Database = u.Host + u.Path
		}
	default:
		return ConnectionInfo{}, fmt.Errorf("%w: %s", ErrUnsupportedDatabase, u.Scheme)
	}

	for key, values := range u.Query() {
		if len(values) > 0 {
			info.Options[key] = values[0]
		}
	}

	return info, nil
}

// BuildConnectionString builds a connection URL from connection info
func (c *DatabaseConnector) BuildConnectionString(info ConnectionInfo) string {
	hostPort := net.JoinHostPort(info.Host, info.Port)

	auth := url.User(info.Username)
	if info.Password != "" {
		auth = url.UserPassword(info.Username, info.Password)
	}

	switch info.Type {
	case "postgresql":
		return (&url.URL{Scheme: "postgres", User: auth, Host: hostPort, Path: "/" + info.Database}).String()
	case "mysql":
		return (&url.URL{Scheme: "mysql", User: auth, Host: hostPort, Path: "/" + info.Database}).String()
	case "sqlite":
		return "sqlite://" + info.Database
	default:
		return ""
	}
}

func (c *DatabaseConnector) convertToDriverString(info ConnectionInfo) (string, error) {
	switch info.Type {
	case "postgresql":
		if info.Host == "" || info.Database == "" {
			return "", ErrInvalidConnectionInfo
		}

		// pgx accepts the URL form directly
		u := &url.URL{
			Scheme: "postgres",
			Host:   net.JoinHostPort(info.Host, info.Port),
			Path:   "/" + info.Database,
		}
		if info.Password != "" {
			u.User = url.UserPassword(info.Username, info.Password)
		} else if info.Username != "" {
			u.User = url.User(info.Username)
		}

		query := url.Values{}
		for key, value := range info.Options {
			query.Set(key, value)
		}
		if query.Get("sslmode") == "" {
			query.Set("sslmode", "disable")
		}
		u.RawQuery = query.Encode()

		return u.String(), nil

	case "mysql":
		// go-sql-driver/mysql DSN: user:pass@tcp(host:port)/db
		var dsn strings.Builder
		if info.Username != "" {
			dsn.WriteString(info.Username)
			if info.Password != "" {
				dsn.WriteString(":" + info.Password)
			}
			dsn.WriteString("@")
		}
		if info.Host != "" {
			dsn.WriteString("tcp(" + net.JoinHostPort(info.Host, info.Port) + ")")
		}
		dsn.WriteString("/" + info.Database)

		return dsn.String(), nil

	case "sqlite":
		if info.Database == "" {
			return "", ErrInvalidConnectionInfo
		}
		return info.Database, nil

	default:
		return "", ErrUnsupportedDatabase
	}
}

func normalizeDatabaseType(name string) string {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pgx":
		return "postgresql"
	case "mysql":
		return "mysql"
	case "sqlite", "sqlite3":
		return "sqlite"
	default:
		return ""
	}
}

func defaultPort(dbType string) string {
	switch dbType {
	case "postgresql":
		return "5432"
	case "mysql":
		return "3306"
	default:
		return ""
	}
}

func driverName(dbType string) string {
	switch dbType {
	case "postgresql":
		return "pgx"
	case "mysql":
		return "mysql"
	case "sqlite":
		return "sqlite3"
	default:
		return ""
	}
}
