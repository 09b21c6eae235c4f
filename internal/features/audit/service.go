package audit

import (
	"context"
	"reflect"
	"time"

	common_models "go-caseflow/internal/common/models"

	"go.uber.org/zap"
)

// UserNamer resolves actor display names for history responses.
type UserNamer interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

type AuditService interface {
	LogChange(ctx context.Context, entry common_models.AuditLog) error
	ListLogs(ctx context.Context, filters map[string]interface{}, limit, offset int64) ([]common_models.AuditLog, error)
	History(ctx context.Context, entity, recordID string) ([]common_models.AuditLog, error)
}

type AuditServiceImpl struct {
	repo   AuditRepository
	namer  UserNamer
	logger *zap.Logger
}

func NewAuditService(repo AuditRepository, namer UserNamer, logger *zap.Logger) AuditService {
	return &AuditServiceImpl{
		repo:   repo,
		namer:  namer,
		logger: logger,
	}
}

func (s *AuditServiceImpl) LogChange(ctx context.Context, entry common_models.AuditLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		// history must never block the operation it records
		s.logger.Error("failed to write audit log",
			zap.String("entity", entry.Entity),
			zap.String("record_id", entry.RecordID),
			zap.Error(err))
		return err
	}
	return nil
}

func (s *AuditServiceImpl) ListLogs(ctx context.Context, filters map[string]interface{}, limit, offset int64) ([]common_models.AuditLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.List(ctx, filters, limit, offset)
}

func (s *AuditServiceImpl) History(ctx context.Context, entity, recordID string) ([]common_models.AuditLog, error) {
	logs, err := s.repo.ListByRecord(ctx, entity, recordID)
	if err != nil {
		return nil, err
	}
	// resolve actor names, best effort
	names := map[string]string{}
	for i := range logs {
		actor := logs[i].ActorID
		if actor == "" {
			continue
		}
		name, ok := names[actor]
		if !ok {
			name, err = s.namer.DisplayName(ctx, actor)
			if err != nil {
				name = actor
			}
			names[actor] = name
		}
		logs[i].ActorName = name
	}
	return logs, nil
}

// ComputeChanges produces the field level delta between two versions of a
// record. Fields present only in the new version get a nil Old, fields
// removed get a nil New.
func ComputeChanges(oldDoc, newDoc map[string]interface{}) map[string]common_models.Change {
	changes := map[string]common_models.Change{}
	for key, newVal := range newDoc {
		oldVal, existed := oldDoc[key]
		if !existed {
			changes[key] = common_models.Change{Old: nil, New: newVal}
			continue
		}
		if !reflect.DeepEqual(oldVal, newVal) {
			changes[key] = common_models.Change{Old: oldVal, New: newVal}
		}
	}
	for key, oldVal := range oldDoc {
		if _, kept := newDoc[key]; !kept {
			changes[key] = common_models.Change{Old: oldVal, New: nil}
		}
	}
	return changes
}
