package storage

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"cartag/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("record not found")

// RedeemResult classifies the outcome of a fallback token redemption.
type RedeemResult int

const (
	RedeemOK RedeemResult = iota
	// RedeemNotFound covers unknown tokens and already-used tokens alike.
	RedeemNotFound
	RedeemExpired
)

type Storage interface {
	GetVehicle(id string) (*models.Vehicle, error)
	GetAccount(id string) (*models.Account, error)

	CreateCallLog(log *models.CallLog) error
	GetCallLogForVehicle(vehicleID, logID string) (*models.CallLog, error)
	// FinalizeCallStatus writes the terminal status for a provider call ID.
	// It reports whether this write performed the transition; a call that is
	// already terminal is returned unchanged with transitioned=false.
	FinalizeCallStatus(providerCallID, status string, durationSec *int) (log *models.CallLog, transitioned bool, err error)
	MintFallbackToken(logID, token string, expiresAt time.Time) error
	// RedeemFallbackToken atomically flips the single-use flag while storing
	// the message, so two concurrent redemptions cannot both succeed.
	RedeemFallbackToken(vehicleID, token, message, urgency string, now time.Time) (*models.CallLog, RedeemResult, error)
	AnonymizeAccountLogs(accountID string) (int64, error)

	CreateSession(session *models.EmergencySession) error
	GetSessionForVehicle(vehicleID, sessionID string) (*models.EmergencySession, error)
	UpdateSessionStage(sessionID, stage string, connectedTo *string) error

	IsCallerBlocked(callerHash string) (bool, error)
	BlockCaller(callerHash string, d time.Duration) error
	UnblockCaller(callerHash string) error

	SaveAbuseReport(report *models.AbuseReport) error
	GetAbuseReport(id uint) (*models.AbuseReport, error)
	UpdateAbuseReportStatus(id uint, status string) error
	CountConfirmedReports(callerHash string, since time.Time) (int64, error)

	PublishStageEvent(event models.StageEvent) error
}

// Service implements Storage on PostgreSQL (records) and Redis (block list,
// stage event pub/sub).
type Service struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Ctx    context.Context
	Logger *zap.SugaredLogger
}

func NewStorageService(db *gorm.DB, rdb *redis.Client, logger *zap.SugaredLogger) *Service {
	return &Service{
		DB:     db,
		Redis:  rdb,
		Ctx:    context.Background(),
		Logger: logger,
	}
}

// GetVehicle loads a vehicle with its emergency contacts ordered for
// escalation (priority ascending, insertion order breaking ties).
func (s *Service) GetVehicle(id string) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	err := s.DB.
		Preload("EmergencyContacts", func(db *gorm.DB) *gorm.DB {
			return db.Order("priority asc, id asc")
		}).
		Where("id = ?", id).
		First(&vehicle).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.Logger.Errorf("Failed to get vehicle %s: %v", id, err)
		return nil, err
	}
	return &vehicle, nil
}

func (s *Service) GetAccount(id string) (*models.Account, error) {
	var acct models.Account
	err := s.DB.Where("id = ?", id).First(&acct).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.Logger.Errorf("Failed to get account %s: %v", id, err)
		return nil, err
	}
	return &acct, nil
}

func (s *Service) CreateCallLog(log *models.CallLog) error {
	if err := s.DB.Create(log).Error; err != nil {
		s.Logger.Errorf("Failed to save call log for vehicle %s: %v", log.VehicleID, err)
		return err
	}
	return nil
}

func (s *Service) GetCallLogForVehicle(vehicleID, logID string) (*models.CallLog, error) {
	var log models.CallLog
	err := s.DB.Where("id = ? AND vehicle_id = ?", logID, vehicleID).First(&log).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// FinalizeCallStatus performs the single-shot terminal transition. The
// guarded UPDATE only matches logs still in "initiated", so a repeated
// provider event finds zero rows and becomes a no-op.
func (s *Service) FinalizeCallStatus(providerCallID, status string, durationSec *int) (*models.CallLog, bool, error) {
	updates := map[string]interface{}{"status": status}
	if durationSec != nil {
		updates["duration_sec"] = *durationSec
	}

	res := s.DB.Model(&models.CallLog{}).
		Where("provider_call_id = ? AND status = ?", providerCallID, models.CallStatusInitiated).
		Updates(updates)
	if res.Error != nil {
		s.Logger.Errorf("Failed to finalize call %s: %v", providerCallID, res.Error)
		return nil, false, res.Error
	}

	var log models.CallLog
	err := s.DB.Where("provider_call_id = ?", providerCallID).First(&log).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, ErrNotFound
	}
	if err != nil {
		return nil, false, err
	}

	return &log, res.RowsAffected > 0, nil
}

func (s *Service) MintFallbackToken(logID, token string, expiresAt time.Time) error {
	return s.DB.Model(&models.CallLog{}).
		Where("id = ?", logID).
		Updates(map[string]interface{}{
			"fallback_token":      token,
			"fallback_expires_at": expiresAt,
			"fallback_used":       false,
		}).Error
}

// RedeemFallbackToken is the atomic lookup-and-flip: the UPDATE matches only
// an unused, unexpired token, so exactly one of two racing redemptions gets
// RowsAffected > 0. The losing path re-reads the row only to classify the
// failure.
func (s *Service) RedeemFallbackToken(vehicleID, token, message, urgency string, now time.Time) (*models.CallLog, RedeemResult, error) {
	res := s.DB.Model(&models.CallLog{}).
		Where("vehicle_id = ? AND fallback_token = ? AND fallback_used = ? AND fallback_expires_at > ?",
			vehicleID, token, false, now).
		Updates(map[string]interface{}{
			"fallback_used":    true,
			"fallback_message": message,
			"fallback_urgency": urgency,
		})
	if res.Error != nil {
		s.Logger.Errorf("Failed to redeem fallback token for vehicle %s: %v", vehicleID, res.Error)
		return nil, RedeemNotFound, res.Error
	}

	if res.RowsAffected > 0 {
		var log models.CallLog
		if err := s.DB.Where("vehicle_id = ? AND fallback_token = ?", vehicleID, token).First(&log).Error; err != nil {
			return nil, RedeemNotFound, err
		}
		return &log, RedeemOK, nil
	}

	// Classify: expired-but-unused vs unknown/used.
	var log models.CallLog
	err := s.DB.Where("vehicle_id = ? AND fallback_token = ? AND fallback_used = ?", vehicleID, token, false).
		First(&log).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, RedeemNotFound, nil
	}
	if err != nil {
		return nil, RedeemNotFound, err
	}
	return nil, RedeemExpired, nil
}

// AnonymizeAccountLogs strips caller identifiers from every log of the
// account's vehicles. Logs themselves are never deleted.
func (s *Service) AnonymizeAccountLogs(accountID string) (int64, error) {
	res := s.DB.Model(&models.CallLog{}).
		Where("vehicle_id IN (?)",
			s.DB.Model(&models.Vehicle{}).Select("id").Where("account_id = ?", accountID)).
		Update("caller_hash", "")
	if res.Error != nil {
		s.Logger.Errorf("Failed to anonymize logs for account %s: %v", accountID, res.Error)
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (s *Service) CreateSession(session *models.EmergencySession) error {
	if err := s.DB.Create(session).Error; err != nil {
		s.Logger.Errorf("Failed to save emergency session for vehicle %s: %v", session.VehicleID, err)
		return err
	}
	return nil
}

func (s *Service) GetSessionForVehicle(vehicleID, sessionID string) (*models.EmergencySession, error) {
	var session models.EmergencySession
	err := s.DB.Where("id = ? AND vehicle_id = ?", sessionID, vehicleID).First(&session).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Service) UpdateSessionStage(sessionID, stage string, connectedTo *string) error {
	updates := map[string]interface{}{"stage": stage}
	if connectedTo != nil {
		updates["connected_to"] = *connectedTo
	}
	return s.DB.Model(&models.EmergencySession{}).
		Where("id = ?", sessionID).
		Updates(updates).Error
}

// IsCallerBlocked checks the Redis block list.
func (s *Service) IsCallerBlocked(callerHash string) (bool, error) {
	status, err := s.Redis.Get(s.Ctx, "block:"+callerHash).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return status != "", nil
}

func (s *Service) BlockCaller(callerHash string, d time.Duration) error {
	return s.Redis.Set(s.Ctx, "block:"+callerHash, "blocked", d).Err()
}

func (s *Service) UnblockCaller(callerHash string) error {
	return s.Redis.Del(s.Ctx, "block:"+callerHash).Err()
}

func (s *Service) SaveAbuseReport(report *models.AbuseReport) error {
	if report.Status == "" {
		report.Status = models.ReportStatusNew
	}
	if err := s.DB.Create(report).Error; err != nil {
		s.Logger.Errorf("Failed to save abuse report for log %s: %v", report.CallLogID, err)
		return err
	}
	return nil
}

func (s *Service) GetAbuseReport(id uint) (*models.AbuseReport, error) {
	var report models.AbuseReport
	err := s.DB.First(&report, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *Service) UpdateAbuseReportStatus(id uint, status string) error {
	return s.DB.Model(&models.AbuseReport{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (s *Service) CountConfirmedReports(callerHash string, since time.Time) (int64, error) {
	var count int64
	err := s.DB.Model(&models.AbuseReport{}).
		Where("caller_hash = ? AND status = ? AND created_at >= ?",
			callerHash, models.ReportStatusConfirmed, since).
		Count(&count).Error
	return count, err
}

// ExtendQRValidity pushes a vehicle's reachability window forward after a
// QR reissue. Used by the operator CLI, not by the public surface.
func (s *Service) ExtendQRValidity(vehicleID string, until time.Time) error {
	res := s.DB.Model(&models.Vehicle{}).
		Where("id = ?", vehicleID).
		Update("qr_valid_until", until)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// PublishStageEvent broadcasts a session stage change over Redis Pub/Sub for
// the websocket stream.
func (s *Service) PublishStageEvent(event models.StageEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, stageChannel(event.SessionID), payload).Err()
}

// SubscribeStageEvents subscribes to one session's stage channel. Decoded
// events arrive on the returned channel, which closes when the stop function
// is called or the subscription dies. Callers must call stop.
func (s *Service) SubscribeStageEvents(sessionID string) (<-chan models.StageEvent, func()) {
	pubsub := s.Redis.Subscribe(s.Ctx, stageChannel(sessionID))
	out := make(chan models.StageEvent)
	done := make(chan struct{})

	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			pubsub.Close()
		})
	}

	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var event models.StageEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				s.Logger.Errorf("Bad stage event payload on %s: %v", stageChannel(sessionID), err)
				continue
			}
			select {
			case out <- event:
			case <-done:
				return
			}
		}
	}()

	return out, stop
}

func stageChannel(sessionID string) string {
	return "emergency:" + sessionID
}
