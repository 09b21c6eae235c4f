package form

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"go-caseflow/internal/cache"
	common_models "go-caseflow/internal/common/models"
	"go-caseflow/internal/features/audit"
	"go-caseflow/pkg/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrInvalidPayload = errors.New("invalid section payload")

type FormService interface {
	CreateForm(ctx context.Context, f *Form) error
	GetForm(ctx context.Context, id string) (*Form, error)
	GetFormBySlug(ctx context.Context, slug string) (*Form, error)
	ListForms(ctx context.Context) ([]Form, error)
	UpdateForm(ctx context.Context, id string, f *Form) error
	DeleteForm(ctx context.Context, id string) error

	CreateSection(ctx context.Context, s *FormSection) error
	GetSection(ctx context.Context, id primitive.ObjectID) (*FormSection, error)
	ListSections(ctx context.Context, formID string) ([]FormSection, error)
	UpdateSection(ctx context.Context, id string, s *FormSection) error
	DeleteSection(ctx context.Context, id string) error

	// PublishedSections is the cached read used when assembling a new case.
	PublishedSections(ctx context.Context, formID primitive.ObjectID) ([]FormSection, error)
	ValidatePayload(section *FormSection, data map[string]interface{}) error
}

type FormServiceImpl struct {
	Repo         FormRepository
	Cache        *cache.Cache
	AuditService audit.AuditService
}

func NewFormService(repo FormRepository, c *cache.Cache, auditService audit.AuditService) FormService {
	return &FormServiceImpl{Repo: repo, Cache: c, AuditService: auditService}
}

func sectionsCacheKey(formID primitive.ObjectID) string {
	return "form:sections:" + formID.Hex()
}

func (s *FormServiceImpl) CreateForm(ctx context.Context, f *Form) error {
	if f.Name == "" {
		return errors.New("form name is required")
	}
	f.ID = primitive.NewObjectID()
	f.Slug = utils.Slugify(f.Name)
	f.CreatedAt = time.Now()
	f.UpdatedAt = f.CreatedAt

	if _, err := s.Repo.FindBySlug(ctx, f.Slug); err == nil {
		return fmt.Errorf("form with slug %q already exists", f.Slug)
	}

	if err := s.Repo.Create(ctx, f); err != nil {
		return err
	}
	_ = s.AuditService.LogChange(ctx, common_models.AuditLog{
		Action:     common_models.AuditActionCreate,
		ChangeType: common_models.ChangeTypeCreated,
		Entity:     "forms",
		RecordID:   f.ID.Hex(),
		ActorID:    utils.ActorFromContext(ctx),
		Changes: map[string]common_models.Change{
			"name": {New: f.Name},
			"slug": {New: f.Slug},
		},
	})
	return nil
}

func (s *FormServiceImpl) GetForm(ctx context.Context, id string) (*Form, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	return s.Repo.FindByID(ctx, oid)
}

func (s *FormServiceImpl) GetFormBySlug(ctx context.Context, slug string) (*Form, error) {
	return s.Repo.FindBySlug(ctx, slug)
}

func (s *FormServiceImpl) ListForms(ctx context.Context) ([]Form, error) {
	return s.Repo.List(ctx)
}

func (s *FormServiceImpl) UpdateForm(ctx context.Context, id string, f *Form) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	existing, err := s.Repo.FindByID(ctx, oid)
	if err != nil {
		return err
	}

	changes := map[string]common_models.Change{}
	if f.Name != "" && f.Name != existing.Name {
		changes["name"] = common_models.Change{Old: existing.Name, New: f.Name}
		existing.Name = f.Name
	}
	if f.Description != existing.Description {
		changes["description"] = common_models.Change{Old: existing.Description, New: f.Description}
		existing.Description = f.Description
	}
	if f.Active != existing.Active {
		changes["active"] = common_models.Change{Old: existing.Active, New: f.Active}
		existing.Active = f.Active
	}
	existing.UpdatedAt = time.Now()

	if err := s.Repo.Update(ctx, existing); err != nil {
		return err
	}
	s.Cache.Invalidate(sectionsCacheKey(oid))
	if len(changes) > 0 {
		_ = s.AuditService.LogChange(ctx, common_models.AuditLog{
			Action:     common_models.AuditActionUpdate,
			ChangeType: common_models.ChangeTypeChanged,
			Entity:     "forms",
			RecordID:   existing.ID.Hex(),
			ActorID:    utils.ActorFromContext(ctx),
			Changes:    changes,
		})
	}
	return nil
}

func (s *FormServiceImpl) DeleteForm(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, oid); err != nil {
		return err
	}
	s.Cache.Invalidate(sectionsCacheKey(oid))
	_ = s.AuditService.LogChange(ctx, common_models.AuditLog{
		Action:     common_models.AuditActionDelete,
		ChangeType: common_models.ChangeTypeDeleted,
		Entity:     "forms",
		RecordID:   id,
		ActorID:    utils.ActorFromContext(ctx),
	})
	return nil
}

func (s *FormServiceImpl) CreateSection(ctx context.Context, sec *FormSection) error {
	if sec.FormID.IsZero() || sec.Name == "" {
		return errors.New("section form_id and name are required")
	}
	if err := validateSchema(sec.Fields); err != nil {
		return err
	}
	if err := s.checkCrossSectionNames(ctx, sec.FormID, primitive.NilObjectID, sec.Fields); err != nil {
		return err
	}
	sec.ID = primitive.NewObjectID()
	sec.CreatedAt = time.Now()
	sec.UpdatedAt = sec.CreatedAt

	if err := s.Repo.CreateSection(ctx, sec); err != nil {
		return err
	}
	s.Cache.Invalidate(sectionsCacheKey(sec.FormID))
	_ = s.AuditService.LogChange(ctx, common_models.AuditLog{
		Action:     common_models.AuditActionCreate,
		ChangeType: common_models.ChangeTypeCreated,
		Entity:     "form_sections",
		RecordID:   sec.ID.Hex(),
		ActorID:    utils.ActorFromContext(ctx),
		Changes: map[string]common_models.Change{
			"name": {New: sec.Name},
		},
	})
	return nil
}

func (s *FormServiceImpl) GetSection(ctx context.Context, id primitive.ObjectID) (*FormSection, error) {
	return s.Repo.FindSectionByID(ctx, id)
}

func (s *FormServiceImpl) ListSections(ctx context.Context, formID string) ([]FormSection, error) {
	oid, err := primitive.ObjectIDFromHex(formID)
	if err != nil {
		return nil, err
	}
	return s.Repo.ListSections(ctx, oid)
}

func (s *FormServiceImpl) UpdateSection(ctx context.Context, id string, sec *FormSection) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	existing, err := s.Repo.FindSectionByID(ctx, oid)
	if err != nil {
		return err
	}
	if err := validateSchema(sec.Fields); err != nil {
		return err
	}
	if err := s.checkCrossSectionNames(ctx, existing.FormID, existing.ID, sec.Fields); err != nil {
		return err
	}

	existing.Name = sec.Name
	existing.Index = sec.Index
	existing.Published = sec.Published
	existing.Fields = sec.Fields
	existing.UpdatedAt = time.Now()

	if err := s.Repo.UpdateSection(ctx, existing); err != nil {
		return err
	}
	s.Cache.Invalidate(sectionsCacheKey(existing.FormID))
	_ = s.AuditService.LogChange(ctx, common_models.AuditLog{
		Action:     common_models.AuditActionUpdate,
		ChangeType: common_models.ChangeTypeChanged,
		Entity:     "form_sections",
		RecordID:   existing.ID.Hex(),
		ActorID:    utils.ActorFromContext(ctx),
	})
	return nil
}

func (s *FormServiceImpl) DeleteSection(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	existing, err := s.Repo.FindSectionByID(ctx, oid)
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteSection(ctx, oid); err != nil {
		return err
	}
	s.Cache.Invalidate(sectionsCacheKey(existing.FormID))
	_ = s.AuditService.LogChange(ctx, common_models.AuditLog{
		Action:     common_models.AuditActionDelete,
		ChangeType: common_models.ChangeTypeDeleted,
		Entity:     "form_sections",
		RecordID:   id,
		ActorID:    utils.ActorFromContext(ctx),
	})
	return nil
}

func (s *FormServiceImpl) PublishedSections(ctx context.Context, formID primitive.ObjectID) ([]FormSection, error) {
	v, err := s.Cache.GetOrLoad(sectionsCacheKey(formID), func() (interface{}, error) {
		return s.Repo.PublishedSections(ctx, formID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]FormSection), nil
}

// checkCrossSectionNames rejects a field name already declared by another
// section of the same form. Flatten merges all section payloads into one
// snapshot map, so a name repeated across sections would silently clobber.
func (s *FormServiceImpl) checkCrossSectionNames(ctx context.Context, formID, sectionID primitive.ObjectID, fields []common_models.FormField) error {
	sections, err := s.Repo.ListSections(ctx, formID)
	if err != nil {
		return err
	}
	taken := map[string]string{}
	for _, other := range sections {
		if other.ID == sectionID {
			continue
		}
		for _, f := range other.Fields {
			taken[f.Name] = other.Name
		}
	}
	for _, f := range fields {
		if owner, ok := taken[f.Name]; ok {
			return fmt.Errorf("field name %q already used by section %q", f.Name, owner)
		}
	}
	return nil
}

func validateSchema(fields []common_models.FormField) error {
	seen := map[string]bool{}
	for _, f := range fields {
		if f.Name == "" {
			return errors.New("field name is required")
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field name %q", f.Name)
		}
		seen[f.Name] = true
		if f.Type == common_models.FieldTypeSelect || f.Type == common_models.FieldTypeMultiSelect {
			if len(f.Options) == 0 {
				return fmt.Errorf("field %q requires options", f.Name)
			}
		}
	}
	return nil
}

// ValidatePayload checks a section payload against the section's field
// schema. Unknown keys are rejected so the workflow snapshot only ever
// carries declared fields.
func (s *FormServiceImpl) ValidatePayload(section *FormSection, data map[string]interface{}) error {
	schema := map[string]common_models.FormField{}
	for _, f := range section.Fields {
		schema[f.Name] = f
	}

	for key := range data {
		if _, ok := schema[key]; !ok {
			return fmt.Errorf("%w: unknown field %q in section %q", ErrInvalidPayload, key, section.Name)
		}
	}

	for _, f := range section.Fields {
		val, present := data[f.Name]
		if !present || val == nil {
			if f.Required {
				return fmt.Errorf("%w: field %q is required", ErrInvalidPayload, f.Name)
			}
			continue
		}
		if err := validateValue(f, val); err != nil {
			return fmt.Errorf("%w: field %q: %v", ErrInvalidPayload, f.Name, err)
		}
	}
	return nil
}

func validateValue(f common_models.FormField, val interface{}) error {
	switch f.Type {
	case common_models.FieldTypeNumber, common_models.FieldTypeCurrency:
		switch val.(type) {
		case float64, float32, int, int32, int64:
		default:
			return errors.New("expected a number")
		}
	case common_models.FieldTypeBoolean:
		if _, ok := val.(bool); !ok {
			return errors.New("expected a boolean")
		}
	case common_models.FieldTypeDate:
		str, ok := val.(string)
		if !ok {
			return errors.New("expected a date string")
		}
		if _, err := time.Parse(time.RFC3339, str); err != nil {
			if _, err := time.Parse("2006-01-02", str); err != nil {
				return errors.New("expected an RFC3339 or YYYY-MM-DD date")
			}
		}
	case common_models.FieldTypeEmail:
		str, ok := val.(string)
		if !ok {
			return errors.New("expected an email string")
		}
		if _, err := mail.ParseAddress(str); err != nil {
			return errors.New("invalid email address")
		}
	case common_models.FieldTypeSelect:
		str, ok := val.(string)
		if !ok {
			return errors.New("expected a string")
		}
		if !optionAllowed(f.Options, str) {
			return fmt.Errorf("value %q is not an allowed option", str)
		}
	case common_models.FieldTypeMultiSelect:
		list, ok := val.([]interface{})
		if !ok {
			return errors.New("expected a list")
		}
		for _, item := range list {
			str, ok := item.(string)
			if !ok || !optionAllowed(f.Options, str) {
				return fmt.Errorf("value %v is not an allowed option", item)
			}
		}
	default:
		if _, ok := val.(string); !ok {
			return errors.New("expected a string")
		}
	}
	return nil
}

func optionAllowed(options []common_models.SelectOption, value string) bool {
	for _, o := range options {
		if o.Value == value {
			return true
		}
	}
	return false
}

// Flatten merges section payloads into the single field_name -> value map
// the workflow condition evaluator runs against. Sections are assumed to be
// ordered; field names are unique per form so later sections never clobber
// earlier ones in practice.
func Flatten(payloads []map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	for _, p := range payloads {
		for k, v := range p {
			out[k] = v
		}
	}
	return out
}
