// Package emergency runs the owner-then-contacts escalation chain. The
// trigger handler returns as soon as the session exists; the chain walk is
// a detached task whose failures are logged, never surfaced to any HTTP
// caller.
package emergency

import (
	"context"
	"fmt"

	"cartag/backend/internal/clock"
	"cartag/backend/internal/config"
	"cartag/backend/internal/models"
	"cartag/backend/internal/notify"
	"cartag/backend/internal/phones"
	"cartag/backend/internal/qrsign"
	"cartag/backend/internal/relay"
	"cartag/backend/internal/storage"
	"cartag/backend/internal/telephony"

	"go.uber.org/zap"
)

// Orchestrator owns every emergency session mutation.
type Orchestrator struct {
	Store    storage.Storage
	Signer   *qrsign.Signer
	Gateway  telephony.Gateway
	Hub      *telephony.StatusHub
	Notifier notify.Notifier
	Phones   phones.Resolver
	Clock    clock.Clock
	Logger   *zap.SugaredLogger
}

// Trigger validates an emergency request, creates the session, alerts the
// owner, and detaches the chain walk. The returned session ID is what the
// scanning client polls.
func (o *Orchestrator) Trigger(vehicleID, signature, callerPhone, description string) (string, error) {
	if !o.Signer.Verify(vehicleID, signature) {
		return "", relay.ErrInvalidSignature
	}

	vehicle, err := o.Store.GetVehicle(vehicleID)
	if err != nil || !vehicle.Reachable(o.Clock.Now()) {
		return "", relay.ErrVehicleUnreachable
	}

	if !relay.ValidPhone(callerPhone) {
		return "", fmt.Errorf("%w: caller phone format", relay.ErrInvalidInput)
	}

	session := &models.EmergencySession{
		VehicleID:   vehicle.ID,
		CallerPhone: callerPhone,
		Description: description,
		Stage:       models.StageCallingOwner,
	}
	if err := o.Store.CreateSession(session); err != nil {
		return "", err
	}

	// The owner hears about the emergency regardless of any call outcome.
	body := "An emergency was reported for your car."
	if description != "" {
		body = fmt.Sprintf("An emergency was reported for your car: %s", description)
	}
	o.Notifier.Notify(vehicle.AccountID, models.Notification{
		Type:      config.NotifyEmergencyAlert,
		Title:     "EMERGENCY reported for your car",
		Body:      body,
		VehicleID: vehicle.ID,
	})

	go o.runChain(session, vehicle)

	return session.ID, nil
}

// Status answers the scanning client's poll.
func (o *Orchestrator) Status(vehicleID, sessionID string) (*models.EmergencySession, error) {
	session, err := o.Store.GetSessionForVehicle(vehicleID, sessionID)
	if err != nil {
		return nil, relay.ErrNotFound
	}
	return session, nil
}

// runChain is the detached task. It walks owner, then contacts in priority
// order, and stops at the first confirmed connection. There is no
// cancellation path: abandoning an emergency escalation mid-flight is a
// deliberate non-feature.
func (o *Orchestrator) runChain(session *models.EmergencySession, vehicle *models.Vehicle) {
	defer func() {
		if r := recover(); r != nil {
			o.Logger.Errorf("Emergency chain for session %s panicked: %v", session.ID, r)
		}
	}()

	if o.attemptOwner(session, vehicle) {
		o.setStage(session, models.StageConnected, models.ConnectedToOwner)
		return
	}

	contacts := vehicle.EmergencyContacts
	if len(contacts) > config.MaxEscalationContacts {
		contacts = contacts[:config.MaxEscalationContacts]
	}

	for i := range contacts {
		n := i + 1
		// The stage moves before the attempt so a poller always sees the
		// current target.
		o.setStage(session, models.StageCallingContact(n), "")

		phone, err := o.Phones.ResolveContactPhone(&contacts[i])
		if err != nil {
			o.Logger.Errorf("Session %s: failed to resolve contact %d phone: %v", session.ID, n, err)
			continue
		}

		if o.attempt(session, phone) {
			o.setStage(session, models.StageConnected, models.ConnectedToContact(n))
			return
		}
	}

	o.setStage(session, models.StageAllFailed, "")
}

func (o *Orchestrator) attemptOwner(session *models.EmergencySession, vehicle *models.Vehicle) bool {
	account, err := o.Store.GetAccount(vehicle.AccountID)
	if err != nil {
		o.Logger.Errorf("Session %s: owner account lookup failed: %v", session.ID, err)
		return false
	}
	phone, err := o.Phones.ResolveOwnerPhone(account)
	if err != nil {
		o.Logger.Errorf("Session %s: failed to resolve owner phone: %v", session.ID, err)
		return false
	}
	return o.attempt(session, phone)
}

// attempt places one masked call and waits (inside this task only) for the
// provider-confirmed outcome. Only a confirmed "completed" counts as
// connected; errors, missed outcomes and ring timeouts all escalate.
func (o *Orchestrator) attempt(session *models.EmergencySession, targetPhone string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), config.ProviderTimeout)
	defer cancel()

	callID, err := o.Gateway.InitiateCall(ctx, session.CallerPhone, targetPhone)
	if err != nil {
		o.Logger.Errorf("Session %s: provider call failed: %v", session.ID, err)
		return false
	}

	watch := o.Hub.Watch(callID)

	status := models.CallStatusInitiated
	log := &models.CallLog{
		VehicleID:      session.VehicleID,
		Kind:           models.KindEmergency,
		CallerHash:     phones.Hash(session.CallerPhone),
		ProviderCallID: &callID,
		Status:         &status,
	}
	if err := o.Store.CreateCallLog(log); err != nil {
		o.Logger.Errorf("Session %s: failed to log emergency attempt: %v", session.ID, err)
	}

	select {
	case out := <-watch:
		return out.Status == models.CallStatusCompleted
	case <-o.Clock.After(config.RingTimeout):
		o.Hub.Cancel(callID)
		// The outcome may have raced the watch registration; the log is
		// authoritative.
		if current, lookupErr := o.Store.GetCallLogForVehicle(session.VehicleID, log.ID); lookupErr == nil &&
			current.Status != nil && *current.Status == models.CallStatusCompleted {
			return true
		}
		o.Logger.Infof("Session %s: call %s timed out ringing", session.ID, callID)
		return false
	}
}

// setStage advances the session. Stages only ever move forward; a regression
// indicates a bug and is refused.
func (o *Orchestrator) setStage(session *models.EmergencySession, stage, connectedTo string) {
	if models.StageRank(stage) < models.StageRank(session.Stage) {
		o.Logger.Errorf("Session %s: refusing stage regression %s -> %s", session.ID, session.Stage, stage)
		return
	}

	var connected *string
	if connectedTo != "" {
		connected = &connectedTo
	}
	if err := o.Store.UpdateSessionStage(session.ID, stage, connected); err != nil {
		o.Logger.Errorf("Session %s: failed to persist stage %s: %v", session.ID, stage, err)
	}
	session.Stage = stage
	session.ConnectedTo = connected

	event := models.StageEvent{SessionID: session.ID, Stage: stage, ConnectedTo: connectedTo}
	if err := o.Store.PublishStageEvent(event); err != nil {
		o.Logger.Debugf("Session %s: stage event publish failed: %v", session.ID, err)
	}
}
