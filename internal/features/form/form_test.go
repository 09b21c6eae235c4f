package form

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-caseflow/internal/cache"
	common_models "go-caseflow/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testSection() *FormSection {
	return &FormSection{
		Name: "request",
		Fields: []common_models.FormField{
			{Name: "title", Type: common_models.FieldTypeText, Required: true},
			{Name: "amount", Type: common_models.FieldTypeNumber},
			{Name: "urgent", Type: common_models.FieldTypeBoolean},
			{Name: "due", Type: common_models.FieldTypeDate},
			{Name: "contact", Type: common_models.FieldTypeEmail},
			{Name: "region", Type: common_models.FieldTypeSelect, Options: []common_models.SelectOption{
				{Label: "North", Value: "north"},
				{Label: "South", Value: "south"},
			}},
			{Name: "tags", Type: common_models.FieldTypeMultiSelect, Options: []common_models.SelectOption{
				{Label: "A", Value: "a"},
				{Label: "B", Value: "b"},
			}},
		},
	}
}

func TestValidatePayload(t *testing.T) {
	svc := &FormServiceImpl{}

	tests := []struct {
		name    string
		data    map[string]interface{}
		wantErr bool
	}{
		{
			name: "valid full payload",
			data: map[string]interface{}{
				"title":   "broken printer",
				"amount":  float64(120),
				"urgent":  true,
				"due":     "2026-09-01",
				"contact": "ops@example.com",
				"region":  "north",
				"tags":    []interface{}{"a", "b"},
			},
		},
		{
			name: "optional fields omitted",
			data: map[string]interface{}{"title": "broken printer"},
		},
		{
			name:    "missing required field",
			data:    map[string]interface{}{"amount": float64(5)},
			wantErr: true,
		},
		{
			name:    "unknown field rejected",
			data:    map[string]interface{}{"title": "x", "color": "red"},
			wantErr: true,
		},
		{
			name:    "number field with string value",
			data:    map[string]interface{}{"title": "x", "amount": "twelve"},
			wantErr: true,
		},
		{
			name:    "boolean field with string value",
			data:    map[string]interface{}{"title": "x", "urgent": "yes"},
			wantErr: true,
		},
		{
			name:    "unparseable date",
			data:    map[string]interface{}{"title": "x", "due": "next tuesday"},
			wantErr: true,
		},
		{
			name: "rfc3339 date accepted",
			data: map[string]interface{}{"title": "x", "due": "2026-09-01T10:00:00Z"},
		},
		{
			name:    "invalid email",
			data:    map[string]interface{}{"title": "x", "contact": "not-an-email"},
			wantErr: true,
		},
		{
			name:    "select value outside options",
			data:    map[string]interface{}{"title": "x", "region": "west"},
			wantErr: true,
		},
		{
			name:    "multiselect with disallowed entry",
			data:    map[string]interface{}{"title": "x", "tags": []interface{}{"a", "z"}},
			wantErr: true,
		},
		{
			name: "nil optional value skipped",
			data: map[string]interface{}{"title": "x", "amount": nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.ValidatePayload(testSection(), tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidatePayload() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidPayload) {
				t.Fatalf("expected ErrInvalidPayload, got %v", err)
			}
		})
	}
}

func TestValidateSchema(t *testing.T) {
	tests := []struct {
		name    string
		fields  []common_models.FormField
		wantErr bool
	}{
		{
			name:   "simple schema",
			fields: []common_models.FormField{{Name: "title", Type: common_models.FieldTypeText}},
		},
		{
			name: "duplicate field names",
			fields: []common_models.FormField{
				{Name: "title", Type: common_models.FieldTypeText},
				{Name: "title", Type: common_models.FieldTypeNumber},
			},
			wantErr: true,
		},
		{
			name:    "unnamed field",
			fields:  []common_models.FormField{{Type: common_models.FieldTypeText}},
			wantErr: true,
		},
		{
			name:    "select without options",
			fields:  []common_models.FormField{{Name: "region", Type: common_models.FieldTypeSelect}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSchema(tt.fields)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateSchema() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFlatten(t *testing.T) {
	got := Flatten([]map[string]interface{}{
		{"title": "broken printer", "amount": float64(120)},
		{"region": "north"},
		nil,
	})

	want := map[string]interface{}{
		"title":  "broken printer",
		"amount": float64(120),
		"region": "north",
	}
	if len(got) != len(want) {
		t.Fatalf("Flatten() = %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("Flatten()[%q] = %v, want %v", k, got[k], v)
		}
	}
}

type memFormRepo struct {
	sections map[primitive.ObjectID]*FormSection
}

func (r *memFormRepo) Create(context.Context, *Form) error { return nil }
func (r *memFormRepo) FindByID(context.Context, primitive.ObjectID) (*Form, error) {
	return nil, errors.New("not found")
}
func (r *memFormRepo) FindBySlug(context.Context, string) (*Form, error) {
	return nil, errors.New("not found")
}
func (r *memFormRepo) List(context.Context) ([]Form, error) { return nil, nil }

func (r *memFormRepo) Update(context.Context, *Form) error { return nil }

func (r *memFormRepo) Delete(context.Context, primitive.ObjectID) error { return nil }

func (r *memFormRepo) CreateSection(_ context.Context, s *FormSection) error {
	copied := *s
	r.sections[s.ID] = &copied
	return nil
}

func (r *memFormRepo) FindSectionByID(_ context.Context, id primitive.ObjectID) (*FormSection, error) {
	s, ok := r.sections[id]
	if !ok {
		return nil, errors.New("section not found")
	}
	copied := *s
	return &copied, nil
}

func (r *memFormRepo) ListSections(_ context.Context, formID primitive.ObjectID) ([]FormSection, error) {
	var out []FormSection
	for _, s := range r.sections {
		if s.FormID == formID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memFormRepo) PublishedSections(_ context.Context, formID primitive.ObjectID) ([]FormSection, error) {
	var out []FormSection
	for _, s := range r.sections {
		if s.FormID == formID && s.Published {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memFormRepo) UpdateSection(_ context.Context, s *FormSection) error {
	copied := *s
	r.sections[s.ID] = &copied
	return nil
}

func (r *memFormRepo) DeleteSection(_ context.Context, id primitive.ObjectID) error {
	delete(r.sections, id)
	return nil
}

func (r *memFormRepo) EnsureIndexes(context.Context) error { return nil }

type noopAudit struct{}

func (noopAudit) LogChange(context.Context, common_models.AuditLog) error { return nil }
func (noopAudit) ListLogs(context.Context, map[string]interface{}, int64, int64) ([]common_models.AuditLog, error) {
	return nil, nil
}
func (noopAudit) History(context.Context, string, string) ([]common_models.AuditLog, error) {
	return nil, nil
}

// Field names must be unique across every section of a form, not only
// inside one section, because the sections flatten into a single field map.
func TestSectionFieldNamesUniquePerForm(t *testing.T) {
	repo := &memFormRepo{sections: map[primitive.ObjectID]*FormSection{}}
	svc := &FormServiceImpl{
		Repo:         repo,
		Cache:        cache.New(time.Minute),
		AuditService: noopAudit{},
	}
	formID := primitive.NewObjectID()

	first := &FormSection{
		FormID: formID,
		Name:   "request",
		Fields: []common_models.FormField{
			{Name: "amount", Type: common_models.FieldTypeNumber},
		},
	}
	if err := svc.CreateSection(context.Background(), first); err != nil {
		t.Fatalf("CreateSection() error = %v", err)
	}

	clash := &FormSection{
		FormID: formID,
		Name:   "billing",
		Fields: []common_models.FormField{
			{Name: "amount", Type: common_models.FieldTypeText},
		},
	}
	if err := svc.CreateSection(context.Background(), clash); err == nil {
		t.Fatal("creating a section reusing another section's field name must fail")
	}

	second := &FormSection{
		FormID: formID,
		Name:   "billing",
		Fields: []common_models.FormField{
			{Name: "invoice", Type: common_models.FieldTypeText},
		},
	}
	if err := svc.CreateSection(context.Background(), second); err != nil {
		t.Fatalf("CreateSection() error = %v", err)
	}

	// A section keeping its own names updates fine.
	if err := svc.UpdateSection(context.Background(), second.ID.Hex(), &FormSection{
		Name: "billing",
		Fields: []common_models.FormField{
			{Name: "invoice", Type: common_models.FieldTypeText},
			{Name: "currency", Type: common_models.FieldTypeText},
		},
	}); err != nil {
		t.Fatalf("UpdateSection() error = %v", err)
	}

	// Taking a name the first section owns does not.
	if err := svc.UpdateSection(context.Background(), second.ID.Hex(), &FormSection{
		Name: "billing",
		Fields: []common_models.FormField{
			{Name: "amount", Type: common_models.FieldTypeText},
		},
	}); err == nil {
		t.Fatal("updating a section onto another section's field name must fail")
	}
}
