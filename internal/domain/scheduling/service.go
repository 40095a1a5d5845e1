package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/therapyhub/therapyhub/internal/platform/apperr"
	"github.com/therapyhub/therapyhub/internal/platform/db"
)

// PricingResolver supplies the effective cost and duration for a
// (therapist, therapy type) pair. Implemented by the therapy service.
type PricingResolver interface {
	Resolve(ctx context.Context, therapistID, therapyTypeID uuid.UUID) (cost float64, durationMinutes int, err error)
}

// BalanceReconciler reverses a cancelled session's financial effect on the
// patient ledger. Implemented by the billing service; a no-op for sessions
// that were never invoiced.
type BalanceReconciler interface {
	ReverseSession(ctx context.Context, sessionID, patientID uuid.UUID) error
}

type Service struct {
	availability AvailabilityRepository
	sessions     SessionRepository
	pricing      PricingResolver
	reconciler   BalanceReconciler
	runTx        db.TxRunner
}

func NewService(availability AvailabilityRepository, sessions SessionRepository,
	pricing PricingResolver, reconciler BalanceReconciler, runTx db.TxRunner) *Service {
	return &Service{
		availability: availability,
		sessions:     sessions,
		pricing:      pricing,
		reconciler:   reconciler,
		runTx:        runTx,
	}
}

// validTransitions lists the allowed session status changes. Everything
// except SCHEDULED is terminal.
var validTransitions = map[string]map[string]bool{
	StatusScheduled: {StatusCompleted: true, StatusCancelled: true, StatusNoShow: true},
}

// -- Availability --

func validateWindow(a *Availability) (start, end int, err error) {
	if a.TherapistID == uuid.Nil {
		return 0, 0, apperr.Validation("therapist_id is required")
	}
	if a.TherapyTypeID == uuid.Nil {
		return 0, 0, apperr.Validation("therapy_type_id is required")
	}
	if a.DayOfWeek < 0 || a.DayOfWeek > 6 {
		return 0, 0, apperr.Validation("day_of_week must be 0 (Sunday) through 6 (Saturday)")
	}
	start, err = parseClock(a.StartTime)
	if err != nil {
		return 0, 0, apperr.Validation(err.Error())
	}
	end, err = parseClock(a.EndTime)
	if err != nil {
		return 0, 0, apperr.Validation(err.Error())
	}
	if start >= end {
		return 0, 0, apperr.Validation("start_time must be before end_time")
	}
	return start, end, nil
}

// checkWindowOverlap rejects a window that intersects an existing active
// window for the same (therapist, day, therapy type), excluding itself.
func (s *Service) checkWindowOverlap(ctx context.Context, a *Availability, start, end int) error {
	existing, err := s.availability.ListForDay(ctx, a.TherapistID, a.DayOfWeek, &a.TherapyTypeID)
	if err != nil {
		return err
	}
	for _, w := range existing {
		if w.ID == a.ID {
			continue
		}
		ws, err := parseClock(w.StartTime)
		if err != nil {
			return err
		}
		we, err := parseClock(w.EndTime)
		if err != nil {
			return err
		}
		if overlaps(start, end, ws, we) {
			return apperr.Conflict("AVAILABILITY_OVERLAP", "window overlaps an existing availability window")
		}
	}
	return nil
}

func (s *Service) CreateAvailability(ctx context.Context, a *Availability) error {
	start, end, err := validateWindow(a)
	if err != nil {
		return err
	}
	a.Active = true
	if err := s.checkWindowOverlap(ctx, a, start, end); err != nil {
		return err
	}
	return s.availability.Create(ctx, a)
}

func (s *Service) UpdateAvailability(ctx context.Context, a *Availability) error {
	start, end, err := validateWindow(a)
	if err != nil {
		return err
	}
	if a.Active {
		if err := s.checkWindowOverlap(ctx, a, start, end); err != nil {
			return err
		}
	}
	return s.availability.Update(ctx, a)
}

func (s *Service) DeleteAvailability(ctx context.Context, id uuid.UUID) error {
	return s.availability.Delete(ctx, id)
}

func (s *Service) ListAvailabilityByTherapist(ctx context.Context, therapistID uuid.UUID, limit, offset int) ([]*Availability, int, error) {
	return s.availability.ListByTherapist(ctx, therapistID, limit, offset)
}

// ListOpenWindows returns the active windows for (therapist, day), optionally
// narrowed to a therapy type.
func (s *Service) ListOpenWindows(ctx context.Context, therapistID uuid.UUID, dayOfWeek int, therapyTypeID *uuid.UUID) ([]*Availability, error) {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return nil, apperr.Validation("day_of_week must be 0 (Sunday) through 6 (Saturday)")
	}
	return s.availability.ListForDay(ctx, therapistID, dayOfWeek, therapyTypeID)
}

// -- Slots --

// GetSlots generates the bookable slots for (therapist, therapy type) on a
// calendar date: availability windows partitioned by the resolved session
// duration, cross-referenced against booked sessions.
func (s *Service) GetSlots(ctx context.Context, therapistID, therapyTypeID uuid.UUID, date time.Time) ([]Slot, error) {
	_, duration, err := s.pricing.Resolve(ctx, therapistID, therapyTypeID)
	if err != nil {
		return nil, err
	}

	windows, err := s.availability.ListForDay(ctx, therapistID, int(date.Weekday()), &therapyTypeID)
	if err != nil {
		return nil, err
	}

	booked, err := s.sessions.ListByTherapistOnDate(ctx, therapistID, date)
	if err != nil {
		return nil, err
	}

	return GenerateSlots(windows, duration, booked)
}

// -- Conflict checking --

// CheckConflict tests the proposed interval against the therapist's and the
// patient's non-cancelled sessions on the date, half-open overlap, excluding
// the session under edit.
func (s *Service) CheckConflict(ctx context.Context, therapistID, patientID uuid.UUID,
	date time.Time, startTime, endTime string, excludeSessionID *uuid.UUID) (ConflictResult, error) {

	var result ConflictResult

	newStart, err := parseClock(startTime)
	if err != nil {
		return result, apperr.Validation(err.Error())
	}
	newEnd, err := parseClock(endTime)
	if err != nil {
		return result, apperr.Validation(err.Error())
	}
	if newStart >= newEnd {
		return result, apperr.Validation("start_time must be before end_time")
	}

	existing, err := s.sessions.ListForConflictCheck(ctx, therapistID, patientID, date)
	if err != nil {
		return result, err
	}

	for _, sess := range existing {
		if excludeSessionID != nil && sess.ID == *excludeSessionID {
			continue
		}
		es, err := parseClock(sess.StartTime)
		if err != nil {
			return result, err
		}
		ee, err := parseClock(sess.EndTime)
		if err != nil {
			return result, err
		}
		if !overlaps(newStart, newEnd, es, ee) {
			continue
		}
		if sess.TherapistID == therapistID {
			result.TherapistConflict = true
		}
		if sess.PatientID == patientID {
			result.PatientConflict = true
		}
	}
	return result, nil
}

func conflictError(result ConflictResult) error {
	if result.TherapistConflict {
		return apperr.Conflict(apperr.CodeTherapistConflict, "therapist already has a session in this interval")
	}
	if result.PatientConflict {
		return apperr.Conflict(apperr.CodePatientConflict, "patient already has a session in this interval")
	}
	return nil
}

// -- Sessions --

func (s *Service) validateSession(sess *Session) error {
	if sess.PatientID == uuid.Nil {
		return apperr.Validation("patient_id is required")
	}
	if sess.TherapistID == uuid.Nil {
		return apperr.Validation("therapist_id is required")
	}
	if sess.TherapyTypeID == uuid.Nil {
		return apperr.Validation("therapy_type_id is required")
	}
	if sess.ScheduledDate.IsZero() {
		return apperr.Validation("scheduled_date is required")
	}
	if sess.StartTime == "" {
		return apperr.Validation("start_time is required")
	}
	return nil
}

// CreateSession books a session. Cost and end time come from the pricing
// resolver unless supplied explicitly. The conflict check and the insert run
// in one transaction so concurrent bookings serialize on the locked rows.
func (s *Service) CreateSession(ctx context.Context, sess *Session) error {
	if err := s.validateSession(sess); err != nil {
		return err
	}

	if sess.EndTime == "" || sess.Cost == 0 {
		cost, duration, err := s.pricing.Resolve(ctx, sess.TherapistID, sess.TherapyTypeID)
		if err != nil {
			return err
		}
		if sess.Cost == 0 {
			sess.Cost = cost
		}
		if sess.EndTime == "" {
			start, err := parseClock(sess.StartTime)
			if err != nil {
				return apperr.Validation(err.Error())
			}
			sess.EndTime = formatClock(start + duration)
		}
	}

	sess.Status = StatusScheduled

	return s.runTx(ctx, func(ctx context.Context) error {
		result, err := s.CheckConflict(ctx, sess.TherapistID, sess.PatientID,
			sess.ScheduledDate, sess.StartTime, sess.EndTime, nil)
		if err != nil {
			return err
		}
		if err := conflictError(result); err != nil {
			return err
		}
		return s.sessions.Create(ctx, sess)
	})
}

func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.sessions.GetByID(ctx, id)
}

// RescheduleSession moves a SCHEDULED session, re-running the conflict check
// with the session itself excluded.
func (s *Service) RescheduleSession(ctx context.Context, sess *Session) error {
	if err := s.validateSession(sess); err != nil {
		return err
	}
	if sess.EndTime == "" {
		return apperr.Validation("end_time is required")
	}

	return s.runTx(ctx, func(ctx context.Context) error {
		existing, err := s.sessions.GetByID(ctx, sess.ID)
		if err != nil {
			return err
		}
		if existing.Status != StatusScheduled {
			return apperr.InvalidTransition("only SCHEDULED sessions can be rescheduled")
		}
		if existing.PatientID != sess.PatientID {
			return apperr.Validation("a session cannot change patient")
		}

		result, err := s.CheckConflict(ctx, sess.TherapistID, sess.PatientID,
			sess.ScheduledDate, sess.StartTime, sess.EndTime, &sess.ID)
		if err != nil {
			return err
		}
		if err := conflictError(result); err != nil {
			return err
		}
		if sess.Cost == 0 {
			sess.Cost = existing.Cost
		}
		return s.sessions.Update(ctx, sess)
	})
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to string, cancelReason *string) (*Session, error) {
	var out *Session
	err := s.runTx(ctx, func(ctx context.Context) error {
		sess, err := s.sessions.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !validTransitions[sess.Status][to] {
			return apperr.InvalidTransition("cannot transition session from " + sess.Status + " to " + to)
		}
		if err := s.sessions.UpdateStatus(ctx, id, to, cancelReason); err != nil {
			return err
		}
		sess.Status = to
		sess.CancelReason = cancelReason

		if to == StatusCancelled {
			if err := s.reconciler.ReverseSession(ctx, sess.ID, sess.PatientID); err != nil {
				return err
			}
		}
		out = sess
		return nil
	})
	return out, err
}

// CancelSession cancels a SCHEDULED session and reverses its financial
// effect on the patient ledger in the same transaction.
func (s *Service) CancelSession(ctx context.Context, id uuid.UUID, reason string) (*Session, error) {
	var cancelReason *string
	if reason != "" {
		cancelReason = &reason
	}
	return s.transition(ctx, id, StatusCancelled, cancelReason)
}

func (s *Service) CompleteSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.transition(ctx, id, StatusCompleted, nil)
}

// MarkNoShow marks a SCHEDULED session as missed. The charge stands; no
// ledger reversal.
func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.transition(ctx, id, StatusNoShow, nil)
}

func (s *Service) SearchSessions(ctx context.Context, params SessionSearch, limit, offset int) ([]*Session, int, error) {
	return s.sessions.Search(ctx, params, limit, offset)
}
