//go:build cgo

package lineage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	kuzu "github.com/kuzudb/go-kuzu"

	"github.com/dusk-indust/convene/internal/agent"
)

// KuzuStore implements the Store interface using KuzuDB as the graph backend.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(":memory:", cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given directory path, so lineage survives across sessions. KuzuDB creates
// the leaf directory itself for new databases.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(dbPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open file database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements defines the Cypher DDL executed by InitSchema.
// Order matters: node tables must precede relationship tables. StartedAt is
// stored as an RFC 3339 string so lexicographic ORDER BY is chronological.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS Run(
		id STRING,
		strategy STRING,
		success BOOLEAN,
		quality_score INT64,
		iterations INT64,
		started_at STRING,
		elapsed_ms INT64,
		PRIMARY KEY(id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Agent(
		name STRING,
		PRIMARY KEY(name)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Insight(
		id STRING,
		run_id STRING,
		agent STRING,
		seq INT64,
		severity STRING,
		title STRING,
		category STRING,
		PRIMARY KEY(id)
	)`,
	`CREATE REL TABLE IF NOT EXISTS PARTICIPATED(FROM Agent TO Run)`,
	`CREATE REL TABLE IF NOT EXISTS PRODUCED(FROM Agent TO Insight)`,
	`CREATE REL TABLE IF NOT EXISTS SHARED_WITH(FROM Insight TO Agent)`,
}

// InitSchema creates all node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Write operations ----------

// AddRun inserts a Run node.
func (s *KuzuStore) AddRun(_ context.Context, node RunNode) error {
	return s.exec(
		`CREATE (r:Run {
			id: $id,
			strategy: $strategy,
			success: $success,
			quality_score: $score,
			iterations: $iterations,
			started_at: $started,
			elapsed_ms: $elapsed
		})`,
		map[string]any{
			"id":         node.ID,
			"strategy":   node.Strategy,
			"success":    node.Success,
			"score":      int64(node.QualityScore),
			"iterations": int64(node.Iterations),
			"started":    node.StartedAt.UTC().Format(time.RFC3339Nano),
			"elapsed":    node.Elapsed.Milliseconds(),
		},
	)
}

// AddAgent upserts an Agent node.
func (s *KuzuStore) AddAgent(_ context.Context, node AgentNode) error {
	return s.exec(
		"MERGE (a:Agent {name: $name})",
		map[string]any{"name": node.Name},
	)
}

// AddInsight inserts an Insight node.
func (s *KuzuStore) AddInsight(_ context.Context, node InsightNode) error {
	return s.exec(
		`CREATE (i:Insight {
			id: $id,
			run_id: $run,
			agent: $agent,
			seq: $seq,
			severity: $severity,
			title: $title,
			category: $category
		})`,
		map[string]any{
			"id":       node.ID,
			"run":      node.RunID,
			"agent":    node.Agent,
			"seq":      int64(node.Seq),
			"severity": string(node.Severity),
			"title":    node.Title,
			"category": node.Category,
		},
	)
}

// AddEdge inserts a relationship edge between two nodes. The Cypher statement
// is chosen based on the EdgeKind.
func (s *KuzuStore) AddEdge(_ context.Context, edge Edge) error {
	cypher, err := edgeCypher(edge.Kind)
	if err != nil {
		return err
	}
	return s.exec(cypher, map[string]any{
		"src": edge.SourceID,
		"dst": edge.TargetID,
	})
}

// edgeCypher returns the MATCH-CREATE Cypher for the given edge kind.
func edgeCypher(kind EdgeKind) (string, error) {
	switch kind {
	case EdgeParticipated:
		return `MATCH (a:Agent {name: $src}), (r:Run {id: $dst})
				CREATE (a)-[:PARTICIPATED]->(r)`, nil
	case EdgeProduced:
		return `MATCH (a:Agent {name: $src}), (i:Insight {id: $dst})
				CREATE (a)-[:PRODUCED]->(i)`, nil
	case EdgeSharedWith:
		return `MATCH (i:Insight {id: $src}), (a:Agent {name: $dst})
				CREATE (i)-[:SHARED_WITH]->(a)`, nil
	default:
		return "", fmt.Errorf("kuzu: unsupported edge kind: %s", kind)
	}
}

// ---------- Read operations ----------

// GetRun retrieves a single Run node by ID, or returns nil if not found.
func (s *KuzuStore) GetRun(_ context.Context, id string) (*RunNode, error) {
	rows, err := s.query(
		`MATCH (r:Run {id: $id})
		 RETURN r.id, r.strategy, r.success, r.quality_score, r.iterations, r.started_at, r.elapsed_ms`,
		map[string]any{"id": id},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rowToRun(rows[0]), nil
}

// ListRuns returns runs newest first, up to limit.
func (s *KuzuStore) ListRuns(_ context.Context, limit int) ([]RunNode, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.query(
		`MATCH (r:Run)
		 RETURN r.id, r.strategy, r.success, r.quality_score, r.iterations, r.started_at, r.elapsed_ms
		 ORDER BY r.started_at DESC
		 LIMIT $lim`,
		map[string]any{"lim": int64(limit)},
	)
	if err != nil {
		return nil, err
	}
	out := make([]RunNode, 0, len(rows))
	for _, r := range rows {
		out = append(out, *rowToRun(r))
	}
	return out, nil
}

// RunInsights returns a run's insights in production order.
func (s *KuzuStore) RunInsights(_ context.Context, runID string) ([]InsightNode, error) {
	rows, err := s.query(
		`MATCH (i:Insight {run_id: $run})
		 RETURN i.id, i.run_id, i.agent, i.seq, i.severity, i.title, i.category
		 ORDER BY i.seq`,
		map[string]any{"run": runID},
	)
	if err != nil {
		return nil, err
	}
	out := make([]InsightNode, 0, len(rows))
	for _, r := range rows {
		out = append(out, *rowToInsight(r))
	}
	return out, nil
}

// SharedWith returns the insights shared with an agent.
func (s *KuzuStore) SharedWith(_ context.Context, agentName string) ([]InsightNode, error) {
	rows, err := s.query(
		`MATCH (i:Insight)-[:SHARED_WITH]->(a:Agent {name: $name})
		 RETURN i.id, i.run_id, i.agent, i.seq, i.severity, i.title, i.category
		 ORDER BY i.run_id, i.seq`,
		map[string]any{"name": agentName},
	)
	if err != nil {
		return nil, err
	}
	out := make([]InsightNode, 0, len(rows))
	for _, r := range rows {
		out = append(out, *rowToInsight(r))
	}
	return out, nil
}

// AllEdges returns every relationship in the graph. Node identities follow
// the Edge convention: agent name, run ID, or insight ID.
func (s *KuzuStore) AllEdges(_ context.Context) ([]Edge, error) {
	queries := []struct {
		cypher string
		kind   EdgeKind
	}{
		{`MATCH (a:Agent)-[:PARTICIPATED]->(r:Run) RETURN a.name, r.id`, EdgeParticipated},
		{`MATCH (a:Agent)-[:PRODUCED]->(i:Insight) RETURN a.name, i.id`, EdgeProduced},
		{`MATCH (i:Insight)-[:SHARED_WITH]->(a:Agent) RETURN i.id, a.name`, EdgeSharedWith},
	}

	var edges []Edge
	for _, q := range queries {
		rows, err := s.query(q.cypher, nil)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			edges = append(edges, Edge{
				SourceID: toString(r[0]),
				TargetID: toString(r[1]),
				Kind:     q.kind,
			})
		}
	}
	return edges, nil
}

// Stats reports node and edge counts.
func (s *KuzuStore) Stats(_ context.Context) (*Stats, error) {
	stats := &Stats{}

	counts := []struct {
		cypher string
		dst    *int
	}{
		{"MATCH (r:Run) RETURN count(r)", &stats.RunCount},
		{"MATCH (a:Agent) RETURN count(a)", &stats.AgentCount},
		{"MATCH (i:Insight) RETURN count(i)", &stats.InsightCount},
	}
	for _, c := range counts {
		rows, err := s.query(c.cypher, nil)
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 && len(rows[0]) > 0 {
			*c.dst = toInt(rows[0][0])
		}
	}

	for _, rel := range []string{"PARTICIPATED", "PRODUCED", "SHARED_WITH"} {
		cypher := fmt.Sprintf("MATCH ()-[e:%s]->() RETURN count(e)", rel)
		rows, err := s.query(cypher, nil)
		if err != nil {
			// Table may not exist yet; treat as zero.
			continue
		}
		if len(rows) > 0 && len(rows[0]) > 0 {
			stats.EdgeCount += toInt(rows[0][0])
		}
	}

	return stats, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// rowToRun converts a 7-column result row into a RunNode.
// Column order: id, strategy, success, quality_score, iterations, started_at,
// elapsed_ms.
func rowToRun(r []any) *RunNode {
	started, _ := time.Parse(time.RFC3339Nano, toString(r[5]))
	return &RunNode{
		ID:           toString(r[0]),
		Strategy:     toString(r[1]),
		Success:      toBool(r[2]),
		QualityScore: toInt(r[3]),
		Iterations:   toInt(r[4]),
		StartedAt:    started,
		Elapsed:      time.Duration(toInt(r[6])) * time.Millisecond,
	}
}

// rowToInsight converts a 7-column result row into an InsightNode.
// Column order: id, run_id, agent, seq, severity, title, category.
func rowToInsight(r []any) *InsightNode {
	return &InsightNode{
		ID:       toString(r[0]),
		RunID:    toString(r[1]),
		Agent:    toString(r[2]),
		Seq:      toInt(r[3]),
		Severity: agent.Severity(toString(r[4])),
		Title:    toString(r[5]),
		Category: toString(r[6]),
	}
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, float64, bool, string).
// These helpers safely coerce any -> concrete type.

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func toBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}
