package allocation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hospital-frontdesk/internal/model"
	"github.com/iliyamo/hospital-frontdesk/internal/repository"
)

// -- Mock Repositories --

type mockInventory struct {
	mu         sync.Mutex
	rooms      map[uint64]*model.Room
	releaseErr error
	reserveErr error
}

func newMockInventory(rooms ...model.Room) *mockInventory {
	m := &mockInventory{rooms: make(map[uint64]*model.Room)}
	for i := range rooms {
		r := rooms[i]
		m.rooms[r.ID] = &r
	}
	return m
}

func (m *mockInventory) GetByID(_ context.Context, id uint64) (*model.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[id]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockInventory) TryReserveBed(_ context.Context, id uint64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reserveErr != nil {
		return 0, m.reserveErr
	}
	r, ok := m.rooms[id]
	if !ok {
		return 0, repository.ErrRoomNotFound
	}
	if r.OccupiedBeds >= r.BedCount {
		return r.OccupiedBeds, repository.ErrCapacityExceeded
	}
	r.OccupiedBeds++
	return r.OccupiedBeds, nil
}

func (m *mockInventory) Release(_ context.Context, id uint64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.releaseErr != nil {
		return 0, m.releaseErr
	}
	r, ok := m.rooms[id]
	if !ok {
		return 0, repository.ErrRoomNotFound
	}
	if r.OccupiedBeds > 0 {
		r.OccupiedBeds--
	}
	return r.OccupiedBeds, nil
}

func (m *mockInventory) occupied(id uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rooms[id].OccupiedBeds
}

type mockLedger struct {
	mu         sync.Mutex
	admissions map[string]*model.Admission
	createErr  error
}

func newMockLedger() *mockLedger {
	return &mockLedger{admissions: make(map[string]*model.Admission)}
}

func (m *mockLedger) Create(_ context.Context, a *model.Admission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, other := range m.admissions {
		if other.Status == model.AdmissionActive && other.RoomID == a.RoomID && other.BedNumber == a.BedNumber {
			return repository.ErrBedTaken
		}
	}
	a.ID = uuid.NewString()
	a.Status = model.AdmissionActive
	a.AdmissionDate = a.AdmittedAt.Truncate(24 * time.Hour)
	cp := *a
	m.admissions[a.ID] = &cp
	return nil
}

func (m *mockLedger) GetByID(_ context.Context, id string) (*model.Admission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admissions[id]
	if !ok {
		return nil, repository.ErrAdmissionNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockLedger) SetStatus(_ context.Context, id string, status model.AdmissionStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.admissions[id]
	if !ok {
		return false, repository.ErrAdmissionNotFound
	}
	if a.Status == status {
		return false, nil
	}
	a.Status = status
	return true, nil
}

func (m *mockLedger) ListActiveByRoom(_ context.Context, roomID uint64) ([]model.Admission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Admission
	for _, a := range m.admissions {
		if a.RoomID == roomID && a.Status == model.AdmissionActive {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockLedger) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.admissions)
}

type mockPatients map[uint64]model.Patient

func (m mockPatients) GetByID(_ context.Context, id uint64) (*model.Patient, error) {
	p, ok := m[id]
	if !ok {
		return nil, repository.ErrPatientNotFound
	}
	return &p, nil
}

type mockDoctors map[uint64]model.Doctor

func (m mockDoctors) GetByID(_ context.Context, id uint64) (*model.Doctor, error) {
	d, ok := m[id]
	if !ok {
		return nil, repository.ErrDoctorNotFound
	}
	return &d, nil
}

type mockPublisher struct {
	mu        sync.Mutex
	committed []model.Admission
	released  []uint64
	err       error
}

func (m *mockPublisher) AdmissionCommitted(_ context.Context, a model.Admission, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.committed = append(m.committed, a)
	return m.err
}

func (m *mockPublisher) BedReleased(_ context.Context, roomID uint64, _ int, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = append(m.released, roomID)
	return m.err
}

type mockRecorder struct {
	committed, released int
	failures            map[string]int
}

func (m *mockRecorder) Committed() { m.committed++ }
func (m *mockRecorder) Released()  { m.released++ }
func (m *mockRecorder) Failed(reason string) {
	if m.failures == nil {
		m.failures = make(map[string]int)
	}
	m.failures[reason]++
}

var errStorageDown = errors.New("storage unreachable")
