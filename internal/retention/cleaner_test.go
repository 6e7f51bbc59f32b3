package retention

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/trail/internal/models"
)

// memStore is an in-memory Store that records calls.
type memStore struct {
	mu       sync.Mutex
	versions map[int64]models.Version
	calls    []string

	deleteErr error
	clearErr  error
}

func newMemStore() *memStore {
	return &memStore{versions: make(map[int64]models.Version)}
}

func (m *memStore) ListVersions(_ context.Context, itemType, itemID string) ([]models.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, "ListVersions")

	return m.itemVersions(itemType, itemID), nil
}

// itemVersions returns one item's versions oldest first. Callers hold m.mu.
func (m *memStore) itemVersions(itemType, itemID string) []models.Version {
	var out []models.Version

	for _, v := range m.versions {
		if v.ItemType == itemType && v.ItemID == itemID {
			out = append(out, v)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out
}

func (m *memStore) DeleteVersions(_ context.Context, ids []int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, "DeleteVersions")
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}

	n := 0

	for _, id := range ids {
		if _, ok := m.versions[id]; ok {
			delete(m.versions, id)
			n++
		}
	}

	return n, nil
}

func (m *memStore) ClearField(_ context.Context, ids []int64, field models.Field) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, "ClearField:"+string(field))
	if m.clearErr != nil {
		return 0, m.clearErr
	}

	n := 0

	for _, id := range ids {
		v, ok := m.versions[id]
		if !ok {
			continue
		}

		switch field {
		case models.FieldObject:
			v.Object = nil
		case models.FieldObjectChanges:
			v.ObjectChanges = nil
		}

		m.versions[id] = v
		n++
	}

	return n, nil
}

func (m *memStore) callLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.calls...)
}

func (m *memStore) resetCalls() {
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}

// seed records a create followed by updates for one item, the way an item
// edited repeatedly after creation would look.
func (m *memStore) seed(itemType, itemID string, updates int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := int64(len(m.versions)) + 1
	for id := range m.versions {
		if id >= next {
			next = id + 1
		}
	}

	m.versions[next] = models.Version{
		ID:            next,
		ItemType:      itemType,
		ItemID:        itemID,
		Event:         models.EventCreate,
		ObjectChanges: json.RawMessage(`{"name":[null,"name0"]}`),
	}

	for i := 1; i <= updates; i++ {
		id := next + int64(i)
		m.versions[id] = models.Version{
			ID:            id,
			ItemType:      itemType,
			ItemID:        itemID,
			Event:         models.EventUpdate,
			Object:        json.RawMessage(fmt.Sprintf(`{"name":"name%d"}`, i-1)),
			ObjectChanges: json.RawMessage(fmt.Sprintf(`{"name":["name%d","name%d"]}`, i-1, i)),
		}
	}
}

type counts struct {
	rows, nilObjects, nilChanges int
}

func (m *memStore) count(itemType, itemID string) counts {
	m.mu.Lock()
	vs := m.itemVersions(itemType, itemID)
	m.mu.Unlock()

	var c counts

	for i := range vs {
		c.rows++

		if !vs[i].HasField(models.FieldObject) {
			c.nilObjects++
		}

		if !vs[i].HasField(models.FieldObjectChanges) {
			c.nilChanges++
		}
	}

	return c
}

// lockingStore wraps memStore with a Locker that records each transaction.
type lockingStore struct {
	*memStore
	txs int
}

func (l *lockingStore) WithEntityLock(_ context.Context, _, _ string, fn func(Store) error) error {
	l.txs++

	return fn(l.memStore)
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

func bicycleSettings(policy ThresholdPolicy, o Override) Settings {
	return Settings{
		Defaults:  Defaults{},
		Overrides: map[string]Override{"Bicycle": o},
		Policy:    policy,
	}
}

func TestEnforce_Scenarios(t *testing.T) {
	tests := []struct {
		name     string
		policy   ThresholdPolicy
		defaults Defaults
		override Override
		want     counts
	}{
		{
			name:     "row limit keeps create plus newest",
			override: Override{VersionLimit: ptr(NewLimit(3))},
			want:     counts{rows: 4, nilObjects: 1, nilChanges: 0},
		},
		{
			name:     "global objects limit only nulls snapshots",
			defaults: Defaults{ObjectsLimit: NewLimit(4), ObjectsLimitEnabled: true},
			want:     counts{rows: 16, nilObjects: 12, nilChanges: 0},
		},
		{
			name:     "objects limit below row limit",
			defaults: Defaults{ObjectsLimitEnabled: true},
			override: Override{VersionLimit: ptr(NewLimit(6)), ObjectsLimit: ptr(NewLimit(3))},
			want:     counts{rows: 7, nilObjects: 4, nilChanges: 0},
		},
		{
			name:     "objects limit above row limit extends rows",
			defaults: Defaults{ObjectsLimitEnabled: true},
			override: Override{VersionLimit: ptr(NewLimit(4)), ObjectsLimit: ptr(NewLimit(6))},
			want:     counts{rows: 7, nilObjects: 1, nilChanges: 0},
		},
		{
			name:     "objects limit above row limit with changes-only policy",
			policy:   PolicyChangesOnly,
			defaults: Defaults{ObjectsLimitEnabled: true},
			override: Override{VersionLimit: ptr(NewLimit(4)), ObjectsLimit: ptr(NewLimit(6))},
			want:     counts{rows: 5, nilObjects: 1, nilChanges: 0},
		},
		{
			name:     "equal limits",
			defaults: Defaults{ObjectsLimitEnabled: true},
			override: Override{VersionLimit: ptr(NewLimit(3)), ObjectsLimit: ptr(NewLimit(3))},
			want:     counts{rows: 4, nilObjects: 1, nilChanges: 0},
		},
		{
			name:     "objects limit override with default disabled",
			override: Override{ObjectsLimit: ptr(NewLimit(3))},
			want:     counts{rows: 16, nilObjects: 1, nilChanges: 0},
		},
		{
			name:     "objects limit enabled by override",
			override: Override{ObjectsLimit: ptr(NewLimit(3)), ObjectsLimitEnabled: ptr(true)},
			want:     counts{rows: 16, nilObjects: 13, nilChanges: 0},
		},
		{
			name:     "changes limit equal to row limit",
			defaults: Defaults{ChangesLimitEnabled: true},
			override: Override{VersionLimit: ptr(NewLimit(10)), ChangesLimit: ptr(NewLimit(10))},
			want:     counts{rows: 11, nilObjects: 1, nilChanges: 1},
		},
		{
			name:     "changes limit below row limit",
			defaults: Defaults{ChangesLimitEnabled: true},
			override: Override{VersionLimit: ptr(NewLimit(10)), ChangesLimit: ptr(NewLimit(5))},
			want:     counts{rows: 11, nilObjects: 1, nilChanges: 6},
		},
		{
			name:     "changes limit above row limit extends rows",
			defaults: Defaults{ChangesLimitEnabled: true},
			override: Override{VersionLimit: ptr(NewLimit(5)), ChangesLimit: ptr(NewLimit(10))},
			want:     counts{rows: 11, nilObjects: 1, nilChanges: 1},
		},
		{
			name:     "changes limit above row limit with row-only policy",
			policy:   PolicyRowOnly,
			defaults: Defaults{ChangesLimitEnabled: true},
			override: Override{VersionLimit: ptr(NewLimit(5)), ChangesLimit: ptr(NewLimit(10))},
			want:     counts{rows: 6, nilObjects: 1, nilChanges: 0},
		},
		{
			name:     "changes limit without row limit",
			defaults: Defaults{ChangesLimitEnabled: true},
			override: Override{ChangesLimit: ptr(NewLimit(10))},
			want:     counts{rows: 16, nilObjects: 1, nilChanges: 6},
		},
		{
			name:     "disabled changes limit is ignored",
			override: Override{VersionLimit: ptr(NewLimit(3)), ChangesLimit: ptr(NewLimit(10))},
			want:     counts{rows: 4, nilObjects: 1, nilChanges: 0},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			store.seed("Bicycle", "1", 15)

			settings := bicycleSettings(tc.policy, tc.override)
			settings.Defaults = tc.defaults

			c := NewCleaner(store, testLogger())
			if _, err := c.Enforce(context.Background(), settings, "Bicycle", "1"); err != nil {
				t.Fatalf("Enforce: %v", err)
			}

			if got := store.count("Bicycle", "1"); got != tc.want {
				t.Errorf("counts = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestEnforce_RowLimitKeepsNewestIDs(t *testing.T) {
	store := newMemStore()
	store.seed("Bicycle", "1", 15)

	c := NewCleaner(store, testLogger())

	res, err := c.Enforce(context.Background(), bicycleSettings("", Override{VersionLimit: ptr(NewLimit(3))}), "Bicycle", "1")
	if err != nil {
		t.Fatalf("Enforce: %v", err)
	}

	if res.Deleted != 12 || res.Threshold.Value() != 3 {
		t.Errorf("result = %+v, want 12 deleted at threshold 3", res)
	}

	vs, _ := store.ListVersions(context.Background(), "Bicycle", "1") //nolint:errcheck // memStore never fails to list.
	if got := ids(vs); fmt.Sprint(got) != "[1 14 15 16]" {
		t.Errorf("surviving ids = %v, want [1 14 15 16]", got)
	}

	if vs[0].Event != models.EventCreate {
		t.Errorf("oldest survivor event = %s, want create", vs[0].Event)
	}
}

func TestEnforce_ObjectPassKeepsNewestSnapshots(t *testing.T) {
	store := newMemStore()
	store.seed("Bicycle", "1", 15)

	settings := Settings{Defaults: Defaults{ObjectsLimit: NewLimit(4), ObjectsLimitEnabled: true}}

	res, err := NewCleaner(store, testLogger()).Enforce(context.Background(), settings, "Bicycle", "1")
	if err != nil {
		t.Fatalf("Enforce: %v", err)
	}

	if res.ObjectsCleared != 11 {
		t.Errorf("ObjectsCleared = %d, want 11 (create row is already null)", res.ObjectsCleared)
	}

	vs, _ := store.ListVersions(context.Background(), "Bicycle", "1") //nolint:errcheck // memStore never fails to list.
	for _, v := range vs {
		populated := v.HasField(models.FieldObject)
		if want := v.ID >= 13; populated != want {
			t.Errorf("version %d object populated = %v, want %v", v.ID, populated, want)
		}

		if v.Event != models.EventCreate && !v.HasField(models.FieldObjectChanges) {
			t.Errorf("version %d lost object_changes during object pass", v.ID)
		}
	}
}

func TestEnforce_NoopSkipsStore(t *testing.T) {
	store := newMemStore()
	store.seed("Bicycle", "1", 5)

	settings := Settings{
		Defaults: Defaults{ObjectsLimit: NewLimit(1), ChangesLimit: NewLimit(1)},
	}

	res, err := NewCleaner(store, testLogger()).Enforce(context.Background(), settings, "Bicycle", "1")
	if err != nil {
		t.Fatalf("Enforce: %v", err)
	}

	if !res.Skipped {
		t.Error("expected Skipped result")
	}

	if calls := store.callLog(); len(calls) != 0 {
		t.Errorf("store calls = %v, want none", calls)
	}
}

func TestEnforce_Idempotent(t *testing.T) {
	store := newMemStore()
	store.seed("Bicycle", "1", 15)

	settings := Settings{
		Defaults: Defaults{
			VersionLimit:        NewLimit(6),
			ObjectsLimit:        NewLimit(3),
			ObjectsLimitEnabled: true,
			ChangesLimit:        NewLimit(2),
			ChangesLimitEnabled: true,
		},
	}

	c := NewCleaner(store, testLogger())
	if _, err := c.Enforce(context.Background(), settings, "Bicycle", "1"); err != nil {
		t.Fatalf("first Enforce: %v", err)
	}

	before := store.count("Bicycle", "1")
	store.resetCalls()

	res, err := c.Enforce(context.Background(), settings, "Bicycle", "1")
	if err != nil {
		t.Fatalf("second Enforce: %v", err)
	}

	if res.Deleted != 0 || res.ObjectsCleared != 0 || res.ChangesCleared != 0 {
		t.Errorf("second run mutated: %+v", res)
	}

	if after := store.count("Bicycle", "1"); after != before {
		t.Errorf("counts changed %+v -> %+v", before, after)
	}

	if calls := store.callLog(); len(calls) != 1 || calls[0] != "ListVersions" {
		t.Errorf("second run calls = %v, want only ListVersions", calls)
	}
}

func TestEnforce_OnlyTouchesTargetItem(t *testing.T) {
	store := newMemStore()
	store.seed("Bicycle", "1", 10)
	store.seed("Bicycle", "2", 10)
	store.seed("Widget", "1", 10)

	settings := Settings{Defaults: Defaults{VersionLimit: NewLimit(2)}}

	if _, err := NewCleaner(store, testLogger()).Enforce(context.Background(), settings, "Bicycle", "1"); err != nil {
		t.Fatalf("Enforce: %v", err)
	}

	if got := store.count("Bicycle", "1").rows; got != 3 {
		t.Errorf("Bicycle/1 rows = %d, want 3", got)
	}

	for _, item := range [][2]string{{"Bicycle", "2"}, {"Widget", "1"}} {
		if got := store.count(item[0], item[1]).rows; got != 11 {
			t.Errorf("%s/%s rows = %d, want 11", item[0], item[1], got)
		}
	}
}

func TestEnforce_UsesLocker(t *testing.T) {
	store := &lockingStore{memStore: newMemStore()}
	store.seed("Bicycle", "1", 5)

	settings := Settings{Defaults: Defaults{VersionLimit: NewLimit(1)}}

	if _, err := NewCleaner(store, testLogger()).Enforce(context.Background(), settings, "Bicycle", "1"); err != nil {
		t.Fatalf("Enforce: %v", err)
	}

	if store.txs != 1 {
		t.Errorf("locked transactions = %d, want 1", store.txs)
	}

	if got := store.count("Bicycle", "1").rows; got != 2 {
		t.Errorf("rows = %d, want 2", got)
	}
}

func TestEnforce_WrapsStoreErrors(t *testing.T) {
	boom := errors.New("connection reset")

	tests := []struct {
		name  string
		setup func(*memStore)
		s     Settings
	}{
		{
			name:  "delete",
			setup: func(m *memStore) { m.deleteErr = boom },
			s:     Settings{Defaults: Defaults{VersionLimit: NewLimit(1)}},
		},
		{
			name:  "clear",
			setup: func(m *memStore) { m.clearErr = boom },
			s:     Settings{Defaults: Defaults{ChangesLimit: NewLimit(1), ChangesLimitEnabled: true}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newMemStore()
			store.seed("Bicycle", "1", 5)
			tc.setup(store)

			res, err := NewCleaner(store, testLogger()).Enforce(context.Background(), tc.s, "Bicycle", "1")
			if !errors.Is(err, models.ErrPruneFailed) {
				t.Fatalf("err = %v, want ErrPruneFailed", err)
			}

			if !errors.Is(err, boom) {
				t.Errorf("err = %v, want wrapped cause", err)
			}

			if res.Deleted != 0 || res.ChangesCleared != 0 {
				t.Errorf("failed result reports work: %+v", res)
			}

			if got := store.count("Bicycle", "1").rows; got != 6 {
				t.Errorf("rows = %d, want 6 untouched", got)
			}
		})
	}
}

func TestEnforce_ConcurrentSameItem(t *testing.T) {
	store := newMemStore()
	store.seed("Bicycle", "1", 30)

	settings := Settings{
		Defaults: Defaults{VersionLimit: NewLimit(5), ChangesLimit: NewLimit(2), ChangesLimitEnabled: true},
	}
	c := NewCleaner(store, testLogger())

	var wg sync.WaitGroup
	errs := make(chan error, 8)

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if _, err := c.Enforce(context.Background(), settings, "Bicycle", "1"); err != nil {
				errs <- err
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Enforce: %v", err)
	}

	if got, want := store.count("Bicycle", "1"), (counts{rows: 6, nilObjects: 1, nilChanges: 4}); got != want {
		t.Errorf("counts = %+v, want %+v", got, want)
	}
}
