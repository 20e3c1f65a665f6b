package services_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/setuhealth/setu/backend/internal/domain/entities"
	"github.com/setuhealth/setu/backend/internal/domain/providers"
	"github.com/setuhealth/setu/backend/internal/domain/repositories"
)

type MockTriageAI struct {
	mock.Mock
}

func (m *MockTriageAI) AnalyzeSeverity(ctx context.Context, symptoms, history string, locale entities.Locale) (*entities.SeverityAnalysis, error) {
	args := m.Called(ctx, symptoms, history, locale)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SeverityAnalysis), args.Error(1)
}

func (m *MockTriageAI) GenerateReport(ctx context.Context, req entities.ReportRequest) (*entities.Report, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Report), args.Error(1)
}

func (m *MockTriageAI) Chat(ctx context.Context, history []entities.ChatMessage, locale entities.Locale) (string, error) {
	args := m.Called(ctx, history, locale)
	return args.String(0), args.Error(1)
}

func (m *MockTriageAI) AnalyzeDocument(ctx context.Context, doc providers.DocumentInput) (*entities.DocumentAnalysis, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DocumentAnalysis), args.Error(1)
}

type MockPatientRepository struct {
	mock.Mock
}

func (m *MockPatientRepository) Create(ctx context.Context, patient *entities.Patient) error {
	return m.Called(ctx, patient).Error(0)
}

func (m *MockPatientRepository) GetByPatientID(ctx context.Context, patientID string) (*entities.Patient, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Patient), args.Error(1)
}

func (m *MockPatientRepository) List(ctx context.Context, limit, offset int) ([]*entities.Patient, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Patient), args.Error(1)
}

func (m *MockPatientRepository) Delete(ctx context.Context, patientID string) error {
	return m.Called(ctx, patientID).Error(0)
}

type MockHospitalRepository struct {
	mock.Mock
}

func (m *MockHospitalRepository) Create(ctx context.Context, hospital *entities.Hospital) error {
	return m.Called(ctx, hospital).Error(0)
}

func (m *MockHospitalRepository) GetByID(ctx context.Context, id string) (*entities.Hospital, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Hospital), args.Error(1)
}

func (m *MockHospitalRepository) GetByIDs(ctx context.Context, ids []string) ([]*entities.Hospital, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Hospital), args.Error(1)
}

func (m *MockHospitalRepository) List(ctx context.Context, filter repositories.HospitalFilter) ([]*entities.Hospital, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Hospital), args.Error(1)
}

func (m *MockHospitalRepository) UpdateBeds(ctx context.Context, hospital *entities.Hospital) error {
	return m.Called(ctx, hospital).Error(0)
}

type MockHospitalSearchRepository struct {
	mock.Mock
}

func (m *MockHospitalSearchRepository) Index(ctx context.Context, hospital *entities.Hospital) error {
	return m.Called(ctx, hospital).Error(0)
}

func (m *MockHospitalSearchRepository) Search(ctx context.Context, params repositories.HospitalSearchParams) ([]*entities.HospitalSearchResult, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.HospitalSearchResult), args.Error(1)
}

type MockAmbulanceRepository struct {
	mock.Mock
}

func (m *MockAmbulanceRepository) Create(ctx context.Context, ambulance *entities.Ambulance) error {
	return m.Called(ctx, ambulance).Error(0)
}

func (m *MockAmbulanceRepository) GetByID(ctx context.Context, id string) (*entities.Ambulance, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Ambulance), args.Error(1)
}

func (m *MockAmbulanceRepository) List(ctx context.Context, district string) ([]*entities.Ambulance, error) {
	args := m.Called(ctx, district)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Ambulance), args.Error(1)
}

func (m *MockAmbulanceRepository) UpdateLocation(ctx context.Context, id string, update entities.LocationUpdate) (*entities.Ambulance, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Ambulance), args.Error(1)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *entities.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.TrackingEvent) error {
	return m.Called(ctx, channel, event).Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.TrackingEvent, error) {
	args := m.Called(ctx, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan *entities.TrackingEvent), args.Error(1)
}

func (m *MockEventBus) Unsubscribe(ctx context.Context, channel string) error {
	return m.Called(ctx, channel).Error(0)
}

func (m *MockEventBus) Close() error {
	return m.Called().Error(0)
}

type MockAlertSender struct {
	mock.Mock
}

func (m *MockAlertSender) SendText(ctx context.Context, to, body string) (string, error) {
	args := m.Called(ctx, to, body)
	return args.String(0), args.Error(1)
}
