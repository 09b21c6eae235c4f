package dictionary

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	common_models "go-caseflow/internal/common/models"
	"go-caseflow/internal/connectors"
	"go-caseflow/internal/features/audit"
	"go-caseflow/pkg/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var ErrInvalidEntry = errors.New("invalid dictionary entry")

// ReaderFactory opens a reader for an entry. The default factory returns
// the shared application-database reader for mongo entries and opens a
// pooled SQL connection for external ones.
type ReaderFactory func(ctx context.Context, e *Entry) (connectors.Reader, error)

type RecordQuery struct {
	Filters map[string]interface{}
	Sort    map[string]int
	Limit   int64
	Offset  int64
}

// RecordPage pairs the rows with the field configs the caller should render
// them with.
type RecordPage struct {
	Fields  []FieldConfig            `json:"fields"`
	Records []map[string]interface{} `json:"records"`
}

type RecordDetail struct {
	Fields []FieldConfig          `json:"fields"`
	Record map[string]interface{} `json:"record"`
}

type DictionaryService interface {
	CreateEntry(ctx context.Context, e *Entry) error
	GetEntry(ctx context.Context, name string) (*Entry, error)
	ListEntries(ctx context.Context) ([]Entry, error)
	UpdateEntry(ctx context.Context, id string, e *Entry) error
	DeleteEntry(ctx context.Context, id string) error

	ListRecords(ctx context.Context, name string, q RecordQuery) (*RecordPage, error)
	GetRecord(ctx context.Context, name, key string) (*RecordDetail, error)
}

type DictionaryServiceImpl struct {
	Repo         EntryRepository
	AuditService audit.AuditService
	Logger       *zap.Logger
	Factory      ReaderFactory

	mu      sync.Mutex
	readers map[primitive.ObjectID]connectors.Reader
}

func NewDictionaryService(repo EntryRepository, auditService audit.AuditService, logger *zap.Logger, factory ReaderFactory) DictionaryService {
	return &DictionaryServiceImpl{
		Repo:         repo,
		AuditService: auditService,
		Logger:       logger,
		Factory:      factory,
		readers:      map[primitive.ObjectID]connectors.Reader{},
	}
}

// NewReaderFactory builds the default factory over the application's Mongo
// reader.
func NewReaderFactory(mongoReader *connectors.MongoReader) ReaderFactory {
	return func(ctx context.Context, e *Entry) (connectors.Reader, error) {
		if e.External() {
			return connectors.OpenSQLReader(ctx, e.SourceType, e.Connection)
		}
		return mongoReader, nil
	}
}

func (s *DictionaryServiceImpl) CreateEntry(ctx context.Context, e *Entry) error {
	if err := s.validateEntry(e); err != nil {
		return err
	}
	e.ID = primitive.NewObjectID()
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	if err := s.Repo.Create(ctx, e); err != nil {
		return err
	}
	s.audit(ctx, common_models.AuditActionCreate, common_models.ChangeTypeCreated, e.ID.Hex(), map[string]common_models.Change{
		"name": {New: e.Name},
	})
	return nil
}

func (s *DictionaryServiceImpl) GetEntry(ctx context.Context, name string) (*Entry, error) {
	return s.Repo.FindByName(ctx, name)
}

func (s *DictionaryServiceImpl) ListEntries(ctx context.Context) ([]Entry, error) {
	return s.Repo.List(ctx)
}

func (s *DictionaryServiceImpl) UpdateEntry(ctx context.Context, id string, e *Entry) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid entry id: %w", err)
	}
	existing, err := s.Repo.FindByID(ctx, oid)
	if err != nil {
		return err
	}
	e.ID = existing.ID
	e.CreatedAt = existing.CreatedAt
	e.UpdatedAt = time.Now()
	if err := s.validateEntry(e); err != nil {
		return err
	}
	if err := s.Repo.Update(ctx, e); err != nil {
		return err
	}
	s.dropReader(oid)
	s.audit(ctx, common_models.AuditActionUpdate, common_models.ChangeTypeChanged, id, map[string]common_models.Change{
		"name": {Old: existing.Name, New: e.Name},
	})
	return nil
}

func (s *DictionaryServiceImpl) DeleteEntry(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid entry id: %w", err)
	}
	if err := s.Repo.Delete(ctx, oid); err != nil {
		return err
	}
	s.dropReader(oid)
	s.audit(ctx, common_models.AuditActionDelete, common_models.ChangeTypeDeleted, id, nil)
	return nil
}

func (s *DictionaryServiceImpl) ListRecords(ctx context.Context, name string, q RecordQuery) (*RecordPage, error) {
	entry, reader, err := s.resolve(ctx, name)
	if err != nil {
		return nil, err
	}

	if q.Limit <= 0 || q.Limit > 200 {
		q.Limit = 50
	}
	filters, err := allowedFilters(entry, q.Filters)
	if err != nil {
		return nil, err
	}

	rows, err := reader.List(ctx, connectors.ListQuery{
		Table:   entry.Table,
		Fields:  fieldNames(entry.ListFields),
		Filters: filters,
		Sort:    q.Sort,
		Limit:   q.Limit,
		Offset:  q.Offset,
	})
	if err != nil {
		return nil, err
	}
	return &RecordPage{Fields: entry.ListFields, Records: rows}, nil
}

func (s *DictionaryServiceImpl) GetRecord(ctx context.Context, name, key string) (*RecordDetail, error) {
	entry, reader, err := s.resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	row, err := reader.Get(ctx, entry.Table, entry.KeyField, key)
	if err != nil {
		return nil, err
	}
	return &RecordDetail{Fields: entry.DetailFields, Record: project(row, entry.DetailFields)}, nil
}

func (s *DictionaryServiceImpl) resolve(ctx context.Context, name string) (*Entry, connectors.Reader, error) {
	entry, err := s.Repo.FindByName(ctx, name)
	if err != nil {
		return nil, nil, fmt.Errorf("dictionary %q not found", name)
	}
	if !entry.Active {
		return nil, nil, fmt.Errorf("dictionary %q is not active", name)
	}
	reader, err := s.reader(ctx, entry)
	if err != nil {
		return nil, nil, err
	}
	return entry, reader, nil
}

// reader returns a cached reader for the entry, opening one on first use.
// External SQL connections stay pooled until the entry changes.
func (s *DictionaryServiceImpl) reader(ctx context.Context, e *Entry) (connectors.Reader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.readers[e.ID]; ok {
		return r, nil
	}
	r, err := s.Factory(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("failed to open source for dictionary %q: %w", e.Name, err)
	}
	s.readers[e.ID] = r
	return r, nil
}

func (s *DictionaryServiceImpl) dropReader(id primitive.ObjectID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.readers[id]; ok {
		if err := r.Close(); err != nil {
			s.Logger.Warn("failed to close dictionary reader", zap.Error(err))
		}
		delete(s.readers, id)
	}
}

func (s *DictionaryServiceImpl) validateEntry(e *Entry) error {
	if e.Name == "" || e.Table == "" {
		return fmt.Errorf("%w: name and table are required", ErrInvalidEntry)
	}
	switch e.SourceType {
	case SourceMongo:
		if e.KeyField == "" {
			e.KeyField = "_id"
		}
	case SourcePostgreSQL, SourceMySQL:
		if e.KeyField == "" {
			e.KeyField = "id"
		}
		if e.Connection.Host == "" || e.Connection.Database == "" || e.Connection.Username == "" {
			return fmt.Errorf("%w: external source %q needs host, database and username", ErrInvalidEntry, e.Name)
		}
	default:
		return fmt.Errorf("%w: unknown source type %q", ErrInvalidEntry, e.SourceType)
	}
	if len(e.ListFields) == 0 {
		return fmt.Errorf("%w: at least one list field is required", ErrInvalidEntry)
	}
	if len(e.DetailFields) == 0 {
		e.DetailFields = e.ListFields
	}
	return nil
}

// allowedFilters keeps only filters on declared fields so callers cannot
// probe arbitrary columns of the backing table.
func allowedFilters(e *Entry, filters map[string]interface{}) (map[string]interface{}, error) {
	if len(filters) == 0 {
		return nil, nil
	}
	declared := map[string]bool{e.KeyField: true}
	for _, f := range e.ListFields {
		declared[f.Name] = true
	}
	for _, f := range e.DetailFields {
		declared[f.Name] = true
	}
	out := make(map[string]interface{}, len(filters))
	for field, value := range filters {
		if !declared[field] {
			return nil, fmt.Errorf("%w: field %q is not declared on dictionary %q", ErrInvalidEntry, field, e.Name)
		}
		out[field] = value
	}
	return out, nil
}

func fieldNames(fields []FieldConfig) []string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}
	return names
}

func project(row map[string]interface{}, fields []FieldConfig) map[string]interface{} {
	if len(fields) == 0 {
		return row
	}
	out := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		if v, ok := row[f.Name]; ok {
			out[f.Name] = v
		}
	}
	return out
}

func (s *DictionaryServiceImpl) audit(ctx context.Context, action common_models.AuditAction, changeType common_models.ChangeType, recordID string, changes map[string]common_models.Change) {
	_ = s.AuditService.LogChange(ctx, common_models.AuditLog{
		Action:     action,
		ChangeType: changeType,
		Entity:     "dictionary_entries",
		RecordID:   recordID,
		ActorID:    utils.ActorFromContext(ctx),
		Changes:    changes,
	})
}
