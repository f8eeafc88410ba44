// Package store provides adapters for graph storage backends.
package store

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	ch "github.com/MyCarrier-DevOps/goLibMyCarrier/clickhouse"
	"github.com/google/uuid"

	"github.com/MyCarrier-DevOps/cochange/internal/domain"
)

// Table names of the graph sink.
const (
	NodesTable = "cochange_nodes"
	EdgesTable = "cochange_edges"
)

// Logger defines the logging interface for the store adapter.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
}

// Session is the subset of a ClickHouse connection the store needs.
type Session interface {
	Exec(ctx context.Context, query string, args ...any) error
	// InsertRows sends rows as one batch for the INSERT statement query.
	InsertRows(ctx context.Context, query string, rows [][]any) error
	Close() error
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ClickHouseStore implements domain.GraphStore by writing one row per node and
// one row per half-edge. Every row of a store instance carries the same run id.
type ClickHouseStore struct {
	session  Session
	database string
	runID    uuid.UUID
	logger   Logger
	now      func() time.Time
}

// NewClickHouseStore creates a store writing into database through session.
func NewClickHouseStore(session Session, database string, log Logger) (*ClickHouseStore, error) {
	if !identifierPattern.MatchString(database) {
		return nil, fmt.Errorf("invalid ClickHouse database name %q", database)
	}
	return &ClickHouseStore{
		session:  session,
		database: database,
		runID:    uuid.New(),
		logger:   log,
		now:      time.Now,
	}, nil
}

// RunID identifies the rows written by this store instance.
func (s *ClickHouseStore) RunID() string {
	return s.runID.String()
}

// EnsureSchema creates the database and both tables when they do not exist.
func (s *ClickHouseStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", s.database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
	run_id UUID,
	recorded_at DateTime64(3),
	repo String,
	era_index UInt32,
	reset_commit Nullable(String),
	commits_in_era UInt32,
	path String,
	additions UInt32,
	deletions UInt32,
	commit_count UInt32
) ENGINE = MergeTree
ORDER BY (repo, run_id, era_index, path)`, s.database, NodesTable),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.%s (
	run_id UUID,
	recorded_at DateTime64(3),
	repo String,
	era_index UInt32,
	source String,
	target String,
	weight UInt32,
	target_commits UInt32
) ENGINE = MergeTree
ORDER BY (repo, run_id, era_index, source, target)`, s.database, EdgesTable),
	}

	for _, stmt := range statements {
		if err := s.session.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to prepare ClickHouse schema: %w", err)
		}
	}

	s.logger.Debug(ctx, "ClickHouse schema ready", map[string]interface{}{
		"database": s.database,
	})
	return nil
}

// SaveGraph inserts every node and half-edge of graph.
func (s *ClickHouseStore) SaveGraph(ctx context.Context, graph *domain.FileGraph) error {
	nodes, edges := s.rows(graph)

	if len(nodes) > 0 {
		query := fmt.Sprintf("INSERT INTO %s.%s", s.database, NodesTable)
		if err := s.session.InsertRows(ctx, query, nodes); err != nil {
			return fmt.Errorf("failed to insert nodes of %s: %w", graph.Repo, err)
		}
	}
	if len(edges) > 0 {
		query := fmt.Sprintf("INSERT INTO %s.%s", s.database, EdgesTable)
		if err := s.session.InsertRows(ctx, query, edges); err != nil {
			return fmt.Errorf("failed to insert edges of %s: %w", graph.Repo, err)
		}
	}

	s.logger.Info(ctx, "stored graph in ClickHouse", map[string]interface{}{
		"repository": graph.Repo,
		"run_id":     s.RunID(),
		"nodes":      len(nodes),
		"edges":      len(edges),
	})
	return nil
}

// rows flattens graph into node rows and edge rows matching the table layouts.
func (s *ClickHouseStore) rows(graph *domain.FileGraph) (nodes, edges [][]any) {
	recordedAt := s.now()
	for _, era := range graph.Eras {
		for _, n := range era.Nodes {
			nodes = append(nodes, []any{
				s.runID,
				recordedAt,
				graph.Repo,
				uint32(era.EraIndex),
				era.ResetCommit,
				uint32(era.CommitsInEra),
				n.Path,
				uint32(n.Additions),
				uint32(n.Deletions),
				uint32(n.CommitCount),
			})
			for _, e := range n.Edges {
				edges = append(edges, []any{
					s.runID,
					recordedAt,
					graph.Repo,
					uint32(era.EraIndex),
					n.Path,
					e.Target,
					uint32(e.Weight),
					uint32(e.TargetCommits),
				})
			}
		}
	}
	return nodes, edges
}

// Close releases the underlying session.
func (s *ClickHouseStore) Close() error {
	return s.session.Close()
}

// connSession adapts a clickhouse-go connection to Session.
type connSession struct {
	conn driver.Conn
}

// NewConnSession wraps an open clickhouse-go connection.
func NewConnSession(conn driver.Conn) Session {
	return &connSession{conn: conn}
}

// OpenSession connects to ClickHouse with the goLibMyCarrier configuration.
func OpenSession(ctx context.Context, cfg *ch.ClickhouseConfig) (Session, error) {
	session, err := ch.NewClickhouseSession(cfg, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	return NewConnSession(session.Conn()), nil
}

func (c *connSession) Exec(ctx context.Context, query string, args ...any) error {
	return c.conn.Exec(ctx, query, args...)
}

func (c *connSession) InsertRows(ctx context.Context, query string, rows [][]any) error {
	batch, err := c.conn.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := batch.Append(row...); err != nil {
			_ = batch.Abort()
			return err
		}
	}
	return batch.Send()
}

func (c *connSession) Close() error {
	return c.conn.Close()
}
