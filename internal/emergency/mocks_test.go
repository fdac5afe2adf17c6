package emergency_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cartag/backend/internal/models"
	"cartag/backend/internal/storage"
	"cartag/backend/internal/telephony"

	"github.com/google/uuid"
)

// fakeStore is an in-memory storage double that records the stage history
// of every session, which is what the chain tests assert on.
type fakeStore struct {
	mu       sync.Mutex
	vehicles map[string]*models.Vehicle
	accounts map[string]*models.Account
	sessions map[string]*models.EmergencySession
	logs     map[string]*models.CallLog

	stages []string
	events []models.StageEvent

	createSessionErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		vehicles: make(map[string]*models.Vehicle),
		accounts: make(map[string]*models.Account),
		sessions: make(map[string]*models.EmergencySession),
		logs:     make(map[string]*models.CallLog),
	}
}

func (f *fakeStore) GetVehicle(id string) (*models.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vehicles[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return v, nil
}

func (f *fakeStore) GetAccount(id string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) CreateCallLog(log *models.CallLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	copied := *log
	f.logs[log.ID] = &copied
	return nil
}

func (f *fakeStore) GetCallLogForVehicle(vehicleID, logID string) (*models.CallLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	log, ok := f.logs[logID]
	if !ok || log.VehicleID != vehicleID {
		return nil, storage.ErrNotFound
	}
	copied := *log
	return &copied, nil
}

func (f *fakeStore) FinalizeCallStatus(providerCallID, status string, durationSec *int) (*models.CallLog, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, log := range f.logs {
		if log.ProviderCallID != nil && *log.ProviderCallID == providerCallID {
			transitioned := log.Status != nil && *log.Status == models.CallStatusInitiated
			if transitioned {
				log.Status = &status
				log.DurationSec = durationSec
			}
			copied := *log
			return &copied, transitioned, nil
		}
	}
	return nil, false, storage.ErrNotFound
}

func (f *fakeStore) MintFallbackToken(logID, token string, expiresAt time.Time) error { return nil }

func (f *fakeStore) RedeemFallbackToken(vehicleID, token, message, urgency string, now time.Time) (*models.CallLog, storage.RedeemResult, error) {
	return nil, storage.RedeemNotFound, nil
}

func (f *fakeStore) AnonymizeAccountLogs(accountID string) (int64, error) { return 0, nil }

func (f *fakeStore) CreateSession(session *models.EmergencySession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createSessionErr != nil {
		return f.createSessionErr
	}
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	copied := *session
	f.sessions[session.ID] = &copied
	return nil
}

func (f *fakeStore) GetSessionForVehicle(vehicleID, sessionID string) (*models.EmergencySession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok || s.VehicleID != vehicleID {
		return nil, storage.ErrNotFound
	}
	copied := *s
	return &copied, nil
}

func (f *fakeStore) UpdateSessionStage(sessionID, stage string, connectedTo *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[sessionID]; ok {
		s.Stage = stage
		s.ConnectedTo = connectedTo
	}
	f.stages = append(f.stages, stage)
	return nil
}

func (f *fakeStore) IsCallerBlocked(callerHash string) (bool, error) { return false, nil }

func (f *fakeStore) BlockCaller(callerHash string, d time.Duration) error { return nil }

func (f *fakeStore) UnblockCaller(callerHash string) error { return nil }

func (f *fakeStore) SaveAbuseReport(report *models.AbuseReport) error { return nil }

func (f *fakeStore) GetAbuseReport(id uint) (*models.AbuseReport, error) {
	return nil, storage.ErrNotFound
}

func (f *fakeStore) UpdateAbuseReportStatus(id uint, status string) error { return nil }

func (f *fakeStore) CountConfirmedReports(h string, s time.Time) (int64, error) { return 0, nil }

func (f *fakeStore) PublishStageEvent(event models.StageEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeStore) stageHistory() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.stages))
	copy(out, f.stages)
	return out
}

func (f *fakeStore) session(id string) *models.EmergencySession {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.sessions[id]; ok {
		copied := *s
		return &copied
	}
	return nil
}

// outcomeNever marks an attempt whose provider call stays unresolved until
// the ring timeout.
const outcomeNever = "never"

// scriptedGateway resolves each attempt's outcome through the status hub,
// in order, the way the real webhook path would.
type scriptedGateway struct {
	mu       sync.Mutex
	hub      *telephony.StatusHub
	outcomes []string
	calls    int
	targets  []string
	err      error
}

func (g *scriptedGateway) InitiateCall(ctx context.Context, callerPhone, targetPhone string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}

	n := g.calls
	g.calls++
	g.targets = append(g.targets, targetPhone)
	callID := fmt.Sprintf("EMG-%d", n)

	outcome := outcomeNever
	if n < len(g.outcomes) {
		outcome = g.outcomes[n]
	}
	if outcome != outcomeNever {
		// Resolve after the caller has registered its watch.
		go func() {
			time.Sleep(20 * time.Millisecond)
			g.hub.Resolve(callID, telephony.Outcome{Status: outcome})
		}()
	}
	return callID, nil
}

func (g *scriptedGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *scriptedGateway) calledTargets() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.targets))
	copy(out, g.targets)
	return out
}

// recordingNotifier captures notifications instead of delivering them.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (r *recordingNotifier) Notify(accountID string, n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) all() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Notification, len(r.sent))
	copy(out, r.sent)
	return out
}

// plainResolver treats stored phone fields as plaintext.
type plainResolver struct{}

func (plainResolver) ResolveOwnerPhone(acct *models.Account) (string, error) {
	return acct.EncryptedPhone, nil
}

func (plainResolver) ResolveContactPhone(contact *models.EmergencyContact) (string, error) {
	return contact.EncryptedPhone, nil
}
