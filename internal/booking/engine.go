// Package booking implements the appointment booking engine and lifecycle
// manager. All checks and writes for a doctor run inside a per-doctor
// critical section wrapped around a database transaction, so the
// availability invariant (no two overlapping booked sub-intervals for
// different appointments) holds under concurrent requests.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medify-server/internal/models"
	"medify-server/internal/notify"
	"medify-server/internal/timeslot"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Sentinel errors; handlers translate these to HTTP statuses.
var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrPastTime            = errors.New("appointment date and time must be in the future")
	ErrNotAvailable        = errors.New("doctor is not available at this time")
	ErrSlotTaken           = errors.New("this time is already booked")
	ErrNotOwner            = errors.New("not authorized to modify this appointment")
	ErrCancelledLocked     = errors.New("cannot update a cancelled appointment")
	ErrCompletedLocked     = errors.New("completed appointments can only be updated with notes")
	ErrInvalidStatus       = errors.New("invalid appointment status")
)

// Engine mediates all appointment creation and mutation.
type Engine struct {
	db       *gorm.DB
	locks    *keyedMutex
	notifier notify.Notifier
	log      zerolog.Logger

	// now is injectable for tests
	now func() time.Time
}

// New creates a booking engine.
func New(db *gorm.DB, notifier notify.Notifier, log zerolog.Logger) *Engine {
	return &Engine{
		db:       db,
		locks:    newKeyedMutex(),
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// BookRequest carries the validated inputs for a new appointment.
type BookRequest struct {
	DoctorID  string
	PatientID string
	Date      time.Time // calendar date; time-of-day ignored
	StartMin  int       // minutes since midnight
	Reason    string
	Notes     string
}

// Book reserves a 60-minute appointment if the requested time falls inside
// one of the doctor's weekly windows and collides with no existing booking.
func (e *Engine) Book(ctx context.Context, req BookRequest) (*models.Appointment, error) {
	if !timeslot.Valid(req.StartMin) {
		return nil, ErrNotAvailable
	}
	if !timeslot.At(req.Date, req.StartMin).After(e.now()) {
		return nil, ErrPastTime
	}

	unlock := e.locks.lock(req.DoctorID)
	defer unlock()

	var appt models.Appointment
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &models.Doctor{}, req.DoctorID, ErrDoctorNotFound); err != nil {
			return err
		}
		if err := exists(tx, &models.Patient{}, req.PatientID, ErrPatientNotFound); err != nil {
			return err
		}

		slot, err := windowFor(tx, req.DoctorID, timeslot.DayOf(req.Date), req.StartMin)
		if err != nil {
			return err
		}

		endMin := req.StartMin + timeslot.AppointmentDuration
		if err := ensureFree(tx, slot.ID, req.StartMin, endMin, ""); err != nil {
			return err
		}

		appt = models.Appointment{
			DoctorID:  req.DoctorID,
			PatientID: req.PatientID,
			Date:      dateOnly(req.Date),
			StartMin:  req.StartMin,
			Status:    models.StatusUpcoming,
			Reason:    req.Reason,
			Notes:     req.Notes,
		}
		if err := tx.Create(&appt).Error; err != nil {
			return fmt.Errorf("creating appointment: %w", err)
		}

		booked := models.BookedSlot{
			SlotID:        slot.ID,
			StartMin:      req.StartMin,
			EndMin:        endMin,
			AppointmentID: appt.ID,
		}
		if err := tx.Create(&booked).Error; err != nil {
			return fmt.Errorf("reserving slot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.pushAsync(req.DoctorID, "New Appointment", "A new appointment has been scheduled")
	return &appt, nil
}

// Patch carries the fields of an appointment update; nil fields are left
// untouched.
type Patch struct {
	Status   *models.AppointmentStatus
	Date     *time.Time
	StartMin *int
	Notes    *string
}

// Update applies a lifecycle mutation on behalf of an actor. Only the owning
// patient or the owning doctor may mutate (admins pass through). Cancelled
// appointments are immutable; completed ones accept notes only. Date/time
// changes re-run the full availability and overlap check, excluding the
// appointment's own booking, and move the booked sub-interval when the day
// of week changes.
func (e *Engine) Update(ctx context.Context, apptID, actorID string, actorRole models.Role, patch Patch) (*models.Appointment, error) {
	if patch.Status != nil && !models.ValidStatus(*patch.Status) {
		return nil, ErrInvalidStatus
	}

	// Resolve the owning doctor before taking the lock.
	var probe models.Appointment
	if err := e.db.WithContext(ctx).First(&probe, "id = ?", apptID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	unlock := e.locks.lock(probe.DoctorID)
	defer unlock()

	var appt models.Appointment
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&appt, "id = ?", apptID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAppointmentNotFound
			}
			return err
		}

		switch actorRole {
		case models.RolePatient:
			if appt.PatientID != actorID {
				return ErrNotOwner
			}
		case models.RoleDoctor:
			if appt.DoctorID != actorID {
				return ErrNotOwner
			}
		case models.RoleAdmin:
			// admins may mutate any appointment
		default:
			return ErrNotOwner
		}

		if appt.Status == models.StatusCancelled {
			return ErrCancelledLocked
		}
		if appt.Status == models.StatusCompleted {
			statusChanged := patch.Status != nil && *patch.Status != models.StatusCompleted
			if statusChanged || patch.Date != nil || patch.StartMin != nil {
				return ErrCompletedLocked
			}
		}

		cancelling := patch.Status != nil && *patch.Status == models.StatusCancelled

		if cancelling {
			if err := tx.Where("appointment_id = ?", appt.ID).
				Delete(&models.BookedSlot{}).Error; err != nil {
				return fmt.Errorf("releasing slot: %w", err)
			}
			appt.Status = models.StatusCancelled
		} else if patch.Status != nil {
			appt.Status = *patch.Status
		}

		if !cancelling && (patch.Date != nil || patch.StartMin != nil) {
			newDate := appt.Date
			if patch.Date != nil {
				newDate = dateOnly(*patch.Date)
			}
			newStart := appt.StartMin
			if patch.StartMin != nil {
				newStart = *patch.StartMin
			}
			if !timeslot.Valid(newStart) {
				return ErrNotAvailable
			}
			if !timeslot.At(newDate, newStart).After(e.now()) {
				return ErrPastTime
			}

			slot, err := windowFor(tx, appt.DoctorID, timeslot.DayOf(newDate), newStart)
			if err != nil {
				return err
			}
			newEnd := newStart + timeslot.AppointmentDuration
			if err := ensureFree(tx, slot.ID, newStart, newEnd, appt.ID); err != nil {
				return err
			}

			// Drop the old reservation wherever it lives and re-create it in
			// the target slot; this covers day-of-week moves and plain
			// time changes alike.
			if err := tx.Where("appointment_id = ?", appt.ID).
				Delete(&models.BookedSlot{}).Error; err != nil {
				return fmt.Errorf("releasing old slot: %w", err)
			}
			booked := models.BookedSlot{
				SlotID:        slot.ID,
				StartMin:      newStart,
				EndMin:        newEnd,
				AppointmentID: appt.ID,
			}
			if err := tx.Create(&booked).Error; err != nil {
				return fmt.Errorf("reserving new slot: %w", err)
			}

			appt.Date = newDate
			appt.StartMin = newStart
		}

		if patch.Notes != nil {
			appt.Notes = *patch.Notes
		}

		return tx.Save(&appt).Error
	})
	if err != nil {
		return nil, err
	}

	recipient := appt.PatientID
	if actorRole == models.RolePatient {
		recipient = appt.DoctorID
	}
	e.pushAsync(recipient, "Appointment Update",
		fmt.Sprintf("Your appointment has been %s", appt.Status))

	return &appt, nil
}

// OpenSlots derives the bookable 60-minute start times for a doctor on a
// calendar date: each window chunked from its start, minus booked
// sub-intervals and times already in the past.
func (e *Engine) OpenSlots(ctx context.Context, doctorID string, date time.Time) ([]string, error) {
	if err := exists(e.db.WithContext(ctx), &models.Doctor{}, doctorID, ErrDoctorNotFound); err != nil {
		return nil, err
	}

	var slots []models.AvailabilitySlot
	if err := e.db.WithContext(ctx).Preload("BookedSlots").
		Where("doctor_id = ? AND day_of_week = ?", doctorID, timeslot.DayOf(date)).
		Order("start_min asc").
		Find(&slots).Error; err != nil {
		return nil, err
	}

	now := e.now()
	open := []string{}
	for _, slot := range slots {
		for t := slot.StartMin; t+timeslot.AppointmentDuration <= slot.EndMin; t += timeslot.AppointmentDuration {
			if !timeslot.At(date, t).After(now) {
				continue
			}
			free := true
			for _, b := range slot.BookedSlots {
				if timeslot.Overlaps(t, t+timeslot.AppointmentDuration, b.StartMin, b.EndMin) {
					free = false
					break
				}
			}
			if free {
				open = append(open, timeslot.FormatClock(t))
			}
		}
	}
	return open, nil
}

// WithDoctorLock runs fn while holding the doctor's booking lock. Schedule
// rewrites go through this so they serialize with concurrent bookings.
func (e *Engine) WithDoctorLock(doctorID string, fn func() error) error {
	unlock := e.locks.lock(doctorID)
	defer unlock()
	return fn()
}

// windowFor finds the availability slot whose half-open window contains
// startMin on the given day.
func windowFor(tx *gorm.DB, doctorID string, day timeslot.Day, startMin int) (*models.AvailabilitySlot, error) {
	var slot models.AvailabilitySlot
	err := tx.Where("doctor_id = ? AND day_of_week = ? AND start_min <= ? AND end_min > ?",
		doctorID, day, startMin, startMin).
		First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotAvailable
		}
		return nil, err
	}
	return &slot, nil
}

// ensureFree rejects with ErrSlotTaken if [startMin, endMin) overlaps any
// booked sub-interval in the slot, ignoring the excluded appointment's own
// reservation.
func ensureFree(tx *gorm.DB, slotID string, startMin, endMin int, excludeAppointmentID string) error {
	q := tx.Model(&models.BookedSlot{}).
		Where("slot_id = ? AND start_min < ? AND end_min > ?", slotID, endMin, startMin)
	if excludeAppointmentID != "" {
		q = q.Where("appointment_id <> ?", excludeAppointmentID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrSlotTaken
	}
	return nil
}

func exists(tx *gorm.DB, model interface{}, id string, notFound error) error {
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return notFound
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (e *Engine) pushAsync(recipientID, title, body string) {
	if e.notifier == nil {
		return
	}
	go func() {
		if err := e.notifier.Push(recipientID, title, body); err != nil {
			e.log.Warn().Err(err).Str("recipient", recipientID).Msg("notification delivery failed")
		}
	}()
}
