package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/therapyhub/therapyhub/internal/platform/apperr"
)

// -- Mock Repositories --

type mockPatientRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, apperr.NotFound("patient not found")
	}
	return p, nil
}

func (m *mockPatientRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return m.GetByID(ctx, id)
}

func (m *mockPatientRepo) Update(_ context.Context, p *Patient) error {
	existing, ok := m.patients[p.ID]
	if !ok {
		return apperr.NotFound("patient not found")
	}
	p.CreditBalance = existing.CreditBalance
	p.TotalOutstandingDues = existing.TotalOutstandingDues
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatientRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.patients[id]; !ok {
		return apperr.NotFound("patient not found")
	}
	delete(m.patients, id)
	return nil
}

func (m *mockPatientRepo) List(_ context.Context, _ string, _, _ int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.patients {
		result = append(result, p)
	}
	return result, len(result), nil
}

func (m *mockPatientRepo) UpdateLedger(_ context.Context, id uuid.UUID, credit, dues float64) error {
	p, ok := m.patients[id]
	if !ok {
		return apperr.NotFound("patient not found")
	}
	p.CreditBalance = credit
	p.TotalOutstandingDues = dues
	return nil
}

type mockTherapistRepo struct {
	therapists map[uuid.UUID]*Therapist
}

func newMockTherapistRepo() *mockTherapistRepo {
	return &mockTherapistRepo{therapists: make(map[uuid.UUID]*Therapist)}
}

func (m *mockTherapistRepo) Create(_ context.Context, t *Therapist) error {
	t.ID = uuid.New()
	m.therapists[t.ID] = t
	return nil
}

func (m *mockTherapistRepo) GetByID(_ context.Context, id uuid.UUID) (*Therapist, error) {
	t, ok := m.therapists[id]
	if !ok {
		return nil, apperr.NotFound("therapist not found")
	}
	return t, nil
}

func (m *mockTherapistRepo) Update(_ context.Context, t *Therapist) error {
	if _, ok := m.therapists[t.ID]; !ok {
		return apperr.NotFound("therapist not found")
	}
	m.therapists[t.ID] = t
	return nil
}

func (m *mockTherapistRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.therapists, id)
	return nil
}

func (m *mockTherapistRepo) List(_ context.Context, activeOnly bool, _, _ int) ([]*Therapist, int, error) {
	var result []*Therapist
	for _, t := range m.therapists {
		if activeOnly && !t.Active {
			continue
		}
		result = append(result, t)
	}
	return result, len(result), nil
}

func newTestService() (*Service, *mockPatientRepo, *mockTherapistRepo) {
	patients := newMockPatientRepo()
	therapists := newMockTherapistRepo()
	return NewService(patients, therapists), patients, therapists
}

// -- Tests --

func TestCreatePatientValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name    string
		patient Patient
		wantErr bool
	}{
		{"valid", Patient{FirstName: "Maya", LastName: "Iyer"}, false},
		{"missing first name", Patient{LastName: "Iyer"}, true},
		{"missing last name", Patient{FirstName: "Maya"}, true},
		{"ledger set directly", Patient{FirstName: "Maya", LastName: "Iyer", CreditBalance: 50}, true},
		{"dues set directly", Patient{FirstName: "Maya", LastName: "Iyer", TotalOutstandingDues: 10}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.patient
			err := svc.CreatePatient(ctx, &p)
			if (err != nil) != tt.wantErr {
				t.Errorf("CreatePatient() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && !p.Active {
				t.Error("new patient should be active")
			}
			if tt.wantErr && err != nil && apperr.KindOf(err) != apperr.KindValidation {
				t.Errorf("error kind = %v, want validation", apperr.KindOf(err))
			}
		})
	}
}

func TestUpdatePatientPreservesLedger(t *testing.T) {
	svc, patients, _ := newTestService()
	ctx := context.Background()

	p := &Patient{FirstName: "Maya", LastName: "Iyer"}
	if err := svc.CreatePatient(ctx, p); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}
	patients.patients[p.ID].CreditBalance = 75
	patients.patients[p.ID].TotalOutstandingDues = 120

	updated := &Patient{ID: p.ID, FirstName: "Maya", LastName: "Iyer-Shah", CreditBalance: 9999}
	if err := svc.UpdatePatient(ctx, updated); err != nil {
		t.Fatalf("UpdatePatient: %v", err)
	}

	stored := patients.patients[p.ID]
	if stored.CreditBalance != 75 || stored.TotalOutstandingDues != 120 {
		t.Errorf("ledger changed by update: credit=%v dues=%v", stored.CreditBalance, stored.TotalOutstandingDues)
	}
	if stored.LastName != "Iyer-Shah" {
		t.Errorf("last name = %q, want Iyer-Shah", stored.LastName)
	}
}

func TestGetLedger(t *testing.T) {
	svc, patients, _ := newTestService()
	ctx := context.Background()

	p := &Patient{FirstName: "Ravi", LastName: "Menon"}
	if err := svc.CreatePatient(ctx, p); err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}
	patients.patients[p.ID].CreditBalance = 30
	patients.patients[p.ID].TotalOutstandingDues = 80

	ledger, err := svc.GetLedger(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetLedger: %v", err)
	}
	if ledger.CreditBalance != 30 || ledger.TotalOutstandingDues != 80 {
		t.Errorf("ledger = %+v, want credit=30 dues=80", ledger)
	}

	if _, err := svc.GetLedger(ctx, uuid.New()); !apperr.IsNotFound(err) {
		t.Errorf("unknown patient ledger error = %v, want not found", err)
	}
}

func TestCreateTherapist(t *testing.T) {
	svc, _, therapists := newTestService()
	ctx := context.Background()

	specialty := "Speech Therapy"
	th := &Therapist{FirstName: "Dana", LastName: "Kohli", Specialty: &specialty}
	if err := svc.CreateTherapist(ctx, th); err != nil {
		t.Fatalf("CreateTherapist: %v", err)
	}
	if !therapists.therapists[th.ID].Active {
		t.Error("new therapist should be active")
	}

	if err := svc.CreateTherapist(ctx, &Therapist{FirstName: "NoLast"}); err == nil {
		t.Error("expected validation error for missing last name")
	}
}

func TestListTherapistsActiveFilter(t *testing.T) {
	svc, _, therapists := newTestService()
	ctx := context.Background()

	a := &Therapist{FirstName: "A", LastName: "Active"}
	b := &Therapist{FirstName: "B", LastName: "Inactive"}
	if err := svc.CreateTherapist(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := svc.CreateTherapist(ctx, b); err != nil {
		t.Fatal(err)
	}
	therapists.therapists[b.ID].Active = false

	items, total, err := svc.ListTherapists(ctx, true, 20, 0)
	if err != nil {
		t.Fatalf("ListTherapists: %v", err)
	}
	if total != 1 || len(items) != 1 || items[0].ID != a.ID {
		t.Errorf("active filter returned %d items, want only the active therapist", len(items))
	}
}
