package remote

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/logging"
)

// docTables maps each collection to its SurrealDB table.
var docTables = map[content.Collection]string{
	content.Projects: "projects",
	content.Sections: "sections",
	content.Images:   "images",
	content.Videos:   "videos",
	content.Settings: "site_settings",
}

// docRecord is the SurrealDB record shape shared by every table. The
// entity itself travels as JSON text in body.
type docRecord struct {
	DocID     string `json:"doc_id"`
	Ord       int    `json:"ord"`
	ProjectID string `json:"project_id"`
	Seq       int64  `json:"seq"`
	Body      string `json:"body"`
}

const docSelectFields = "doc_id, ord, project_id, seq, body"

// DocStore keeps one SurrealDB table per collection and addresses records
// by entity id. The connection is opened on first use.
type DocStore struct {
	cfg    content.DocStoreSettings
	logger *logging.Logger

	mu sync.Mutex
	db *surrealdb.DB
}

// NewDocStore creates a document store backend. Nothing is dialled until
// the first operation.
func NewDocStore(s content.DocStoreSettings, logger *logging.Logger) *DocStore {
	return &DocStore{cfg: s, logger: logging.OrSilent(logger)}
}

func (s *DocStore) Kind() content.BackendKind { return content.BackendDocStore }
func (s *DocStore) Ready() bool               { return s.cfg.Configured() }

func (s *DocStore) Capabilities() Capability {
	return CapRead | CapWrite | CapDelete | CapBatchRead | CapVideos | CapSettings
}

// conn returns the open connection, connecting, signing in and defining
// the tables on first call.
func (s *DocStore) conn(ctx context.Context) (*surrealdb.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}
	if !s.cfg.Configured() {
		return nil, fmt.Errorf("%w: document store address, namespace and database are required", content.ErrRemoteNotConfigured)
	}

	db, err := surrealdb.New(s.cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: connect to %s: %v", content.ErrRemoteUnavailable, s.cfg.Address, err)
	}
	if s.cfg.Username != "" {
		if _, err := db.SignIn(ctx, map[string]interface{}{
			"user": s.cfg.Username,
			"pass": s.cfg.Password,
		}); err != nil {
			db.Close(ctx)
			return nil, fmt.Errorf("%w: sign in: %v", content.ErrRemoteUnavailable, err)
		}
	}
	if err := db.Use(ctx, s.cfg.Namespace, s.cfg.Database); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("%w: select namespace/database: %v", content.ErrRemoteUnavailable, err)
	}
	for _, table := range docTables {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if _, err := surrealdb.Query[any](ctx, db, sql, nil); err != nil {
			db.Close(ctx)
			return nil, fmt.Errorf("%w: define table %s: %v", content.ErrRemoteUnavailable, table, err)
		}
	}

	s.logger.Info().
		Str("address", s.cfg.Address).
		Str("namespace", s.cfg.Namespace).
		Str("database", s.cfg.Database).
		Msg("document store connected")
	s.db = db
	return db, nil
}

// Close drops the connection if one was opened.
func (s *DocStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close(ctx)
	s.db = nil
	return err
}

func table(c content.Collection) (string, error) {
	t, ok := docTables[c]
	if !ok {
		return "", fmt.Errorf("%w: unknown collection %q", content.ErrInvalid, c)
	}
	return t, nil
}

func (r docRecord) document() content.Document {
	return content.Document{ID: r.DocID, Order: r.Ord, ProjectID: r.ProjectID, Body: []byte(r.Body)}
}

func (s *DocStore) GetAll(ctx context.Context, c content.Collection) ([]content.Document, error) {
	t, err := table(c)
	if err != nil {
		return nil, err
	}
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}

	sql := fmt.Sprintf("SELECT %s FROM %s ORDER BY ord ASC, seq ASC", docSelectFields, t)
	results, err := surrealdb.Query[[]docRecord](ctx, db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", content.ErrRemoteUnavailable, t, err)
	}

	docs := []content.Document{}
	if results != nil && len(*results) > 0 {
		for _, r := range (*results)[0].Result {
			docs = append(docs, r.document())
		}
	}
	return docs, nil
}

func (s *DocStore) GetOne(ctx context.Context, c content.Collection, id string) (content.Document, bool, error) {
	t, err := table(c)
	if err != nil {
		return content.Document{}, false, err
	}
	db, err := s.conn(ctx)
	if err != nil {
		return content.Document{}, false, err
	}

	record, err := surrealdb.Select[docRecord](ctx, db, surrealmodels.NewRecordID(t, id))
	if err != nil {
		if isNotFoundError(err) {
			return content.Document{}, false, nil
		}
		return content.Document{}, false, fmt.Errorf("%w: get %s %s: %v", content.ErrRemoteUnavailable, t, id, err)
	}
	if record == nil || record.DocID == "" {
		return content.Document{}, false, nil
	}
	return record.document(), true, nil
}

// Put upserts a record. seq is set on first write only, so a record keeps
// its position among equal orders.
func (s *DocStore) Put(ctx context.Context, c content.Collection, d content.Document) error {
	t, err := table(c)
	if err != nil {
		return err
	}
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	sql := `UPSERT $rid SET
		doc_id = $doc_id, ord = $ord, project_id = $project_id,
		body = $body, seq = seq ?? $seq`
	vars := map[string]any{
		"rid":        surrealmodels.NewRecordID(t, d.ID),
		"doc_id":     d.ID,
		"ord":        d.Order,
		"project_id": d.ProjectID,
		"body":       string(d.Body),
		"seq":        time.Now().UnixNano(),
	}
	if _, err := surrealdb.Query[any](ctx, db, sql, vars); err != nil {
		return fmt.Errorf("%w: put %s %s: %v", content.ErrRemoteUnavailable, t, d.ID, err)
	}
	return nil
}

// Delete removes a record. A missing record is not an error.
func (s *DocStore) Delete(ctx context.Context, c content.Collection, id string) error {
	t, err := table(c)
	if err != nil {
		return err
	}
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	if _, err := surrealdb.Delete[docRecord](ctx, db, surrealmodels.NewRecordID(t, id)); err != nil && !isNotFoundError(err) {
		return fmt.Errorf("%w: delete %s %s: %v", content.ErrRemoteUnavailable, t, id, err)
	}
	return nil
}

func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist")
}
