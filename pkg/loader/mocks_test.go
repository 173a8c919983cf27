package loader

import (
	"context"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iduprojects/insert-services/pkg/apperrors"
	"github.com/iduprojects/insert-services/pkg/models"
	"github.com/iduprojects/insert-services/pkg/repositories"
)

// Mock implementations for testing. State lives in maps keyed by id, so
// tests can run a second load over the same "store" to check idempotence.

type mockCityRepository struct {
	cities map[string]*models.City
}

func (m *mockCityRepository) GetByNameOrCode(ctx context.Context, name string) (*models.City, error) {
	if city, ok := m.cities[name]; ok {
		return city, nil
	}
	return nil, apperrors.ErrCityNotFound
}

type mockServiceTypeRepository struct {
	types map[string]*models.ServiceType
}

func (m *mockServiceTypeRepository) GetByNameOrCode(ctx context.Context, name string) (*models.ServiceType, error) {
	if st, ok := m.types[name]; ok {
		return st, nil
	}
	return nil, apperrors.ErrServiceTypeNotFound
}

type storedObject struct {
	obj     models.PhysicalObject
	geoJSON string
	isPoint bool
}

type mockPhysicalObjectRepository struct {
	nextID  int64
	objects map[int64]*storedObject
	touched []int64
	// insertErr fails the next Insert, for constraint and fault tests.
	insertErr error
}

func newMockPhysicalObjectRepository() *mockPhysicalObjectRepository {
	return &mockPhysicalObjectRepository{nextID: 1, objects: map[int64]*storedObject{}}
}

func (m *mockPhysicalObjectRepository) FindByGeometry(ctx context.Context, cityID int64, geoJSON []byte) ([]int64, error) {
	var ids []int64
	for id, stored := range m.objects {
		if stored.obj.CityID == cityID && stored.geoJSON == string(geoJSON) {
			ids = append(ids, id)
		}
	}
	sortInt64s(ids)
	return ids, nil
}

func (m *mockPhysicalObjectRepository) Insert(ctx context.Context, obj *models.PhysicalObject, geoJSON []byte) error {
	if m.insertErr != nil {
		err := m.insertErr
		m.insertErr = nil
		return err
	}
	obj.ID = m.nextID
	m.nextID++
	m.objects[obj.ID] = &storedObject{obj: *obj, geoJSON: string(geoJSON), isPoint: isPointGeoJSON(geoJSON)}
	return nil
}

func (m *mockPhysicalObjectRepository) GeometryInfo(ctx context.Context, id int64, geoJSON []byte) (bool, bool, error) {
	stored, ok := m.objects[id]
	if !ok {
		return false, false, apperrors.ErrNotFound
	}
	return stored.isPoint, stored.geoJSON == string(geoJSON), nil
}

func (m *mockPhysicalObjectRepository) UpdateGeometry(ctx context.Context, id int64, geoJSON []byte) error {
	stored, ok := m.objects[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	stored.geoJSON = string(geoJSON)
	stored.isPoint = isPointGeoJSON(geoJSON)
	return nil
}

func (m *mockPhysicalObjectRepository) Touch(ctx context.Context, id int64) error {
	if _, ok := m.objects[id]; !ok {
		return apperrors.ErrNotFound
	}
	m.touched = append(m.touched, id)
	return nil
}

func (m *mockPhysicalObjectRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.objects[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.objects, id)
	return nil
}

type mockBuildingRepository struct {
	nextID    int64
	buildings map[int64]*models.Building
	cityID    int64
	objects   *mockPhysicalObjectRepository
}

func newMockBuildingRepository(objects *mockPhysicalObjectRepository, cityID int64) *mockBuildingRepository {
	return &mockBuildingRepository{nextID: 1, buildings: map[int64]*models.Building{}, cityID: cityID, objects: objects}
}

func (m *mockBuildingRepository) FindByAddress(ctx context.Context, cityID int64, address string) ([]repositories.BuildingRef, error) {
	var refs []repositories.BuildingRef
	for id, b := range m.buildings {
		if cityID == m.cityID && b.Address != nil && *b.Address == address {
			refs = append(refs, repositories.BuildingRef{BuildingID: id, PhysicalObjectID: b.PhysicalObjectID})
		}
	}
	return refs, nil
}

func (m *mockBuildingRepository) GetByID(ctx context.Context, id int64) (*models.Building, error) {
	if b, ok := m.buildings[id]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockBuildingRepository) GetByPhysicalObject(ctx context.Context, physicalObjectID int64) (*models.Building, error) {
	for _, b := range m.buildings {
		if b.PhysicalObjectID == physicalObjectID {
			copied := *b
			return &copied, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockBuildingRepository) Insert(ctx context.Context, b *models.Building) error {
	b.ID = m.nextID
	m.nextID++
	copied := *b
	m.buildings[b.ID] = &copied
	return nil
}

func (m *mockBuildingRepository) UpdateAddress(ctx context.Context, id int64, address string) error {
	b, ok := m.buildings[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	b.Address = &address
	return nil
}

func (m *mockBuildingRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.buildings[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.buildings, id)
	return nil
}

type mockFunctionalObjectRepository struct {
	nextID   int64
	services map[int64]*models.FunctionalObject
}

func newMockFunctionalObjectRepository() *mockFunctionalObjectRepository {
	return &mockFunctionalObjectRepository{nextID: 1, services: map[int64]*models.FunctionalObject{}}
}

func (m *mockFunctionalObjectRepository) GetByID(ctx context.Context, id int64) (*models.FunctionalObject, error) {
	if fo, ok := m.services[id]; ok {
		copied := *fo
		return &copied, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockFunctionalObjectRepository) GetByTypeAndObject(ctx context.Context, physicalObjectID, serviceTypeID int64) (*models.FunctionalObject, error) {
	var best *models.FunctionalObject
	for _, fo := range m.services {
		if fo.PhysicalObjectID == physicalObjectID && fo.ServiceTypeID == serviceTypeID {
			if best == nil || fo.ID < best.ID {
				best = fo
			}
		}
	}
	if best == nil {
		return nil, apperrors.ErrNotFound
	}
	copied := *best
	return &copied, nil
}

func (m *mockFunctionalObjectRepository) Insert(ctx context.Context, fo *models.FunctionalObject) error {
	fo.ID = m.nextID
	m.nextID++
	copied := *fo
	m.services[fo.ID] = &copied
	return nil
}

func (m *mockFunctionalObjectRepository) Update(ctx context.Context, fo *models.FunctionalObject) (bool, error) {
	existing, ok := m.services[fo.ID]
	if !ok {
		return false, nil
	}
	merged := mergedProperties(existing.Properties, fo.Properties)
	changed := existing.Name != fo.Name ||
		!equalStringPtr(existing.OpeningHours, fo.OpeningHours) ||
		!equalStringPtr(existing.Website, fo.Website) ||
		!equalStringPtr(existing.Phone, fo.Phone) ||
		existing.Capacity != fo.Capacity ||
		existing.IsCapacityReal != fo.IsCapacityReal ||
		len(merged) != len(existing.Properties)
	if !changed {
		return false, nil
	}
	updated := *fo
	updated.Properties = merged
	m.services[fo.ID] = &updated
	return true, nil
}

func (m *mockFunctionalObjectRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.services[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.services, id)
	return nil
}

func (m *mockFunctionalObjectRepository) DeleteAtPhysicalObject(ctx context.Context, physicalObjectID int64) (int64, error) {
	var removed int64
	for id, fo := range m.services {
		if fo.PhysicalObjectID == physicalObjectID {
			delete(m.services, id)
			removed++
		}
	}
	return removed, nil
}

func (m *mockFunctionalObjectRepository) CountAtPhysicalObject(ctx context.Context, physicalObjectID int64) (int, error) {
	count := 0
	for _, fo := range m.services {
		if fo.PhysicalObjectID == physicalObjectID {
			count++
		}
	}
	return count, nil
}

// fakeTx satisfies the few pgx.Tx methods the loader touches. The embedded
// interface panics on anything else, which is exactly what a test wants.
type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	savepoints int
	beginErr   error
	commitErr  error
}

func (t *fakeTx) Begin(ctx context.Context) (pgx.Tx, error) {
	if t.beginErr != nil {
		return nil, t.beginErr
	}
	t.savepoints++
	return &fakeTx{}, nil
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.rolledBack = true
	return nil
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

type fakeBeginner struct {
	tx       *fakeTx
	beginErr error
}

func (b *fakeBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if b.beginErr != nil {
		return nil, b.beginErr
	}
	if b.tx == nil {
		b.tx = &fakeTx{}
	}
	return b.tx, nil
}

func sortInt64s(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

func isPointGeoJSON(geoJSON []byte) bool {
	return strings.Contains(string(geoJSON), `"type":"Point"`)
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// mergedProperties mirrors the JSONB || delta merge the real Update runs.
func mergedProperties(stored, delta models.Properties) models.Properties {
	out := make(models.Properties, len(stored)+len(delta))
	for k, v := range stored {
		out[k] = v
	}
	for k, v := range delta {
		out[k] = v
	}
	return out
}
