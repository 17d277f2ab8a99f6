// ABOUTME: SQLite message log recording every line received and sent per connection
// ABOUTME: Provides connection tracking, message classification and history queries

package db

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	rpcerrors "github.com/harper/rpcline/internal/errors"
	"github.com/harper/rpcline/internal/jsonvalue"
	"github.com/harper/rpcline/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

const memoryPath = ":memory:"

type DB struct {
	conn *sql.DB
}

type MessageDirection string

const (
	DirectionClientToServer MessageDirection = "client_to_server"
	DirectionServerToClient MessageDirection = "server_to_client"
)

// Message types stored with each line.
const (
	TypeRequest      = "request"
	TypeNotification = "notification"
	TypeResponse     = "response"
	TypeBatch        = "batch"
	TypeInvalid      = "invalid"
)

// Open opens or creates the SQLite database, creating its directory if needed.
func Open(dbPath string) (*DB, error) {
	if dbPath != memoryPath {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, rpcerrors.NewXDGPathError("database", dir, err)
		}
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == memoryPath {
		// Every pooled connection would otherwise get its own empty database.
		conn.SetMaxOpenConns(1)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := conn.Exec(schemaSQL); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	logger.Info("Database initialized at %s", dbPath)
	return &DB{conn: conn}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// OpenConnection records a newly accepted connection.
func (db *DB) OpenConnection(connID, transport, remoteAddr string) error {
	_, err := db.conn.Exec(
		"INSERT INTO connections (id, transport, remote_addr) VALUES (?, ?, ?)",
		connID, transport, remoteAddr,
	)
	if err != nil {
		return fmt.Errorf("failed to record connection: %w", err)
	}
	return nil
}

// CloseConnection marks a connection as closed
func (db *DB) CloseConnection(connID string) error {
	_, err := db.conn.Exec(
		"UPDATE connections SET closed_at = CURRENT_TIMESTAMP WHERE id = ?",
		connID,
	)
	if err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

// Classify extracts the message type, method and id of a raw line. Lines that
// do not parse are TypeInvalid; the id is kept in its JSON text form.
func Classify(raw string) (messageType, method, id string) {
	v, err := jsonvalue.Parse(raw)
	if err != nil {
		return TypeInvalid, "", ""
	}

	switch v := v.(type) {
	case jsonvalue.Array:
		return TypeBatch, "", ""
	case jsonvalue.Object:
		if idVal, ok := v.Get("id"); ok {
			if _, isNull := idVal.(jsonvalue.Null); !isNull {
				id = jsonvalue.Stringify(idVal)
			}
		}
		if m, ok := v.Get("method"); ok {
			if s, isString := m.(jsonvalue.String); isString {
				method = string(s)
			}
			if id == "" {
				return TypeNotification, method, ""
			}
			return TypeRequest, method, id
		}
		_, hasResult := v.Get("result")
		_, hasError := v.Get("error")
		if hasResult || hasError {
			return TypeResponse, "", id
		}
		return TypeInvalid, "", id
	case jsonvalue.Null, jsonvalue.Bool, jsonvalue.Number, jsonvalue.String:
		return TypeInvalid, "", ""
	default:
		return TypeInvalid, "", ""
	}
}

// LogMessage logs a line with its direction and classified details
func (db *DB) LogMessage(connID string, direction MessageDirection, raw string) error {
	messageType, method, id := Classify(raw)

	_, err := db.conn.Exec(
		`INSERT INTO messages (connection_id, direction, message_type, method, jsonrpc_id, raw_message)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		connID, direction, messageType, nullString(method), nullString(id), raw,
	)
	if err != nil {
		return fmt.Errorf("failed to log message: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Message represents a logged line
type Message struct {
	ID           int64
	ConnectionID string
	Direction    MessageDirection
	MessageType  string
	Method       string
	JSONRPCID    string
	RawMessage   string
	Timestamp    time.Time
}

// GetConnectionMessages retrieves all messages for a connection in arrival order
func (db *DB) GetConnectionMessages(connID string) ([]Message, error) {
	rows, err := db.conn.Query(
		`SELECT id, connection_id, direction, message_type, method, jsonrpc_id, raw_message, timestamp
		 FROM messages WHERE connection_id = ? ORDER BY id ASC`,
		connID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var messageType, method, jsonrpcID sql.NullString

		err := rows.Scan(&m.ID, &m.ConnectionID, &m.Direction, &messageType, &method, &jsonrpcID, &m.RawMessage, &m.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.MessageType = messageType.String
		m.Method = method.String
		m.JSONRPCID = jsonrpcID.String

		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// Connection represents a logged connection
type Connection struct {
	ID         string
	Transport  string
	RemoteAddr string
	OpenedAt   time.Time
	ClosedAt   *time.Time
}

// GetAllConnections retrieves all connections, newest first
func (db *DB) GetAllConnections() ([]Connection, error) {
	rows, err := db.conn.Query(
		`SELECT id, transport, remote_addr, opened_at, closed_at
		 FROM connections ORDER BY opened_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query connections: %w", err)
	}
	defer rows.Close()

	var conns []Connection
	for rows.Next() {
		var c Connection
		var remoteAddr sql.NullString
		var closedAt sql.NullTime

		if err := rows.Scan(&c.ID, &c.Transport, &remoteAddr, &c.OpenedAt, &closedAt); err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		c.RemoteAddr = remoteAddr.String
		if closedAt.Valid {
			c.ClosedAt = &closedAt.Time
		}

		conns = append(conns, c)
	}
	return conns, rows.Err()
}
