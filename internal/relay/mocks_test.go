package relay_test

import (
	"context"
	"sync"
	"time"

	"cartag/backend/internal/models"
	"cartag/backend/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify mock over the storage interface.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetVehicle(id string) (*models.Vehicle, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vehicle), args.Error(1)
}

func (m *MockStorage) GetAccount(id string) (*models.Account, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockStorage) CreateCallLog(log *models.CallLog) error {
	args := m.Called(log)
	if args.Error(0) == nil && log.ID == "" {
		log.ID = uuid.New().String()
	}
	return args.Error(0)
}

func (m *MockStorage) GetCallLogForVehicle(vehicleID, logID string) (*models.CallLog, error) {
	args := m.Called(vehicleID, logID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CallLog), args.Error(1)
}

func (m *MockStorage) FinalizeCallStatus(providerCallID, status string, durationSec *int) (*models.CallLog, bool, error) {
	args := m.Called(providerCallID, status, durationSec)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.CallLog), args.Bool(1), args.Error(2)
}

func (m *MockStorage) MintFallbackToken(logID, token string, expiresAt time.Time) error {
	args := m.Called(logID, token, expiresAt)
	return args.Error(0)
}

func (m *MockStorage) RedeemFallbackToken(vehicleID, token, message, urgency string, now time.Time) (*models.CallLog, storage.RedeemResult, error) {
	args := m.Called(vehicleID, token, message, urgency, now)
	if args.Get(0) == nil {
		return nil, args.Get(1).(storage.RedeemResult), args.Error(2)
	}
	return args.Get(0).(*models.CallLog), args.Get(1).(storage.RedeemResult), args.Error(2)
}

func (m *MockStorage) AnonymizeAccountLogs(accountID string) (int64, error) {
	args := m.Called(accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) CreateSession(session *models.EmergencySession) error {
	args := m.Called(session)
	return args.Error(0)
}

func (m *MockStorage) GetSessionForVehicle(vehicleID, sessionID string) (*models.EmergencySession, error) {
	args := m.Called(vehicleID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmergencySession), args.Error(1)
}

func (m *MockStorage) UpdateSessionStage(sessionID, stage string, connectedTo *string) error {
	args := m.Called(sessionID, stage, connectedTo)
	return args.Error(0)
}

func (m *MockStorage) IsCallerBlocked(callerHash string) (bool, error) {
	args := m.Called(callerHash)
	return args.Bool(0), args.Error(1)
}

func (m *MockStorage) BlockCaller(callerHash string, d time.Duration) error {
	args := m.Called(callerHash, d)
	return args.Error(0)
}

func (m *MockStorage) UnblockCaller(callerHash string) error {
	args := m.Called(callerHash)
	return args.Error(0)
}

func (m *MockStorage) SaveAbuseReport(report *models.AbuseReport) error {
	args := m.Called(report)
	return args.Error(0)
}

func (m *MockStorage) GetAbuseReport(id uint) (*models.AbuseReport, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AbuseReport), args.Error(1)
}

func (m *MockStorage) UpdateAbuseReportStatus(id uint, status string) error {
	args := m.Called(id, status)
	return args.Error(0)
}

func (m *MockStorage) CountConfirmedReports(callerHash string, since time.Time) (int64, error) {
	args := m.Called(callerHash, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) PublishStageEvent(event models.StageEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

// stubLimiter answers both limit checks with fixed verdicts.
type stubLimiter struct {
	callerOK  bool
	vehicleOK bool
}

func (l *stubLimiter) CheckCallerLimit(callerHash, vehicleID string) bool { return l.callerOK }
func (l *stubLimiter) CheckVehicleLimit(vehicleID string) bool            { return l.vehicleOK }

// spyGateway records call attempts and returns a scripted outcome.
type spyGateway struct {
	mu       sync.Mutex
	calls    int
	lastFrom string
	lastTo   string
	callID   string
	err      error
}

func (g *spyGateway) InitiateCall(ctx context.Context, callerPhone, targetPhone string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.lastFrom = callerPhone
	g.lastTo = targetPhone
	if g.err != nil {
		return "", g.err
	}
	return g.callID, nil
}

func (g *spyGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// recordingNotifier captures notifications instead of delivering them.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

type sentNotification struct {
	AccountID string
	N         models.Notification
}

func (r *recordingNotifier) Notify(accountID string, n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{AccountID: accountID, N: n})
}

func (r *recordingNotifier) all() []sentNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]sentNotification, len(r.sent))
	copy(out, r.sent)
	return out
}

// staticResolver hands back fixed phone numbers without decryption.
type staticResolver struct {
	ownerPhone   string
	contactPhone string
	err          error
}

func (r *staticResolver) ResolveOwnerPhone(acct *models.Account) (string, error) {
	return r.ownerPhone, r.err
}

func (r *staticResolver) ResolveContactPhone(contact *models.EmergencyContact) (string, error) {
	return r.contactPhone, r.err
}
