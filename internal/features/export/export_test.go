package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"go-caseflow/internal/features/casefile"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeLister struct {
	cases []casefile.Case
}

func (f *fakeLister) ListCases(context.Context, casefile.ListFilter, int64, int64) ([]casefile.Case, error) {
	return f.cases, nil
}

type fakeData struct {
	rows map[primitive.ObjectID][]casefile.CaseData
}

func (f *fakeData) FindCaseData(_ context.Context, caseID primitive.ObjectID) ([]casefile.CaseData, error) {
	return f.rows[caseID], nil
}

func TestCollectColumns(t *testing.T) {
	rows := []map[string]interface{}{
		{"case_id": "x", "status": "Review", "amount": 5},
		{"case_id": "y", "status": "Draft", "region": "north"},
	}

	got := collectColumns(rows)
	want := append(append([]string{}, baseColumns...), "amount", "region")
	if len(got) != len(want) {
		t.Fatalf("columns = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("columns = %v, want %v", got, want)
		}
	}
}

func TestCellValue(t *testing.T) {
	oid := primitive.NewObjectID()
	ts := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   interface{}
		want interface{}
	}{
		{"time", ts, "2026-03-14 09:30:00"},
		{"object id", oid, oid.Hex()},
		{"nil", nil, ""},
		{"list", []interface{}{"a", "b"}, "a, b"},
		{"plain", 42, 42},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cellValue(tt.in); got != tt.want {
				t.Fatalf("cellValue(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestExportCasesProducesWorkbook(t *testing.T) {
	caseID := primitive.NewObjectID()
	lister := &fakeLister{cases: []casefile.Case{{
		ID:        caseID,
		Status:    "Review",
		Submitted: true,
		CreatedBy: "someone",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}}}
	data := &fakeData{rows: map[primitive.ObjectID][]casefile.CaseData{
		caseID: {{Data: map[string]interface{}{"amount": float64(250)}}},
	}}
	svc := NewExportService(lister, data, zap.NewNop())

	payload, filename, err := svc.ExportCases(context.Background(), casefile.ListFilter{})
	if err != nil {
		t.Fatalf("ExportCases() error = %v", err)
	}
	if len(payload) == 0 {
		t.Fatal("workbook is empty")
	}
	// xlsx files are zip archives.
	if !bytes.HasPrefix(payload, []byte("PK")) {
		t.Fatal("payload is not a zip archive")
	}
	if filename == "" || filename[len(filename)-5:] != ".xlsx" {
		t.Fatalf("filename = %q, want .xlsx suffix", filename)
	}
}
