package warehouse

import (
	"sort"
	"testing"
	"time"
)

func date(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func activeLocationSet(rows ...LocationRow) map[LocationKey]LocationRow {
	m := make(map[LocationKey]LocationRow, len(rows))
	for _, r := range rows {
		m[r.NaturalKey()] = r
	}
	return m
}

func TestReconcileNewKeyInserted(t *testing.T) {
	active := activeLocationSet(
		LocationRow{LocationKey: 1, LocationName: "A", Building: "B1", EffectiveDt: date("2021-01-04"), ExpirationDt: OpenEnd},
	)
	next := []LocationKey{{Name: "A", Building: "B1"}, {Name: "C", Building: "B2"}}

	res := Reconcile(next, func(k LocationKey) LocationKey { return k }, active)

	if len(res.Insert) != 1 || res.Insert[0] != (LocationKey{Name: "C", Building: "B2"}) {
		t.Fatalf("Insert = %v, want [{C B2}]", res.Insert)
	}
	if len(res.Expire) != 0 {
		t.Fatalf("Expire = %v, want none", res.Expire)
	}
	if res.Carried != 1 {
		t.Fatalf("Carried = %d, want 1", res.Carried)
	}
}

func TestReconcileAbsentKeyExpired(t *testing.T) {
	active := activeLocationSet(
		LocationRow{LocationKey: 1, LocationName: "A", Building: "B1", ExpirationDt: OpenEnd},
		LocationRow{LocationKey: 2, LocationName: "C", Building: "B2", ExpirationDt: OpenEnd},
	)
	next := []LocationKey{{Name: "A", Building: "B1"}}

	res := Reconcile(next, func(k LocationKey) LocationKey { return k }, active)

	if len(res.Expire) != 1 || res.Expire[0].LocationKey != 2 {
		t.Fatalf("Expire = %v, want location_key 2", res.Expire)
	}
	if len(res.Insert) != 0 {
		t.Fatalf("Insert = %v, want none", res.Insert)
	}
}

func TestReconcileDuplicateNaturalKeysCollapsed(t *testing.T) {
	next := []LocationKey{
		{Name: "A", Building: "B1"},
		{Name: "A", Building: "B1"},
		{Name: "C", Building: "B2"},
	}

	res := Reconcile(next, func(k LocationKey) LocationKey { return k }, map[LocationKey]LocationRow{})

	if len(res.Insert) != 2 {
		t.Fatalf("Insert has %d rows, want 2", len(res.Insert))
	}
}

func TestReconcileConservation(t *testing.T) {
	// (#active before) - (#expired) + (#inserted) = (#active after).
	active := activeLocationSet(
		LocationRow{LocationKey: 1, LocationName: "A", Building: "B1", ExpirationDt: OpenEnd},
		LocationRow{LocationKey: 2, LocationName: "C", Building: "B2", ExpirationDt: OpenEnd},
		LocationRow{LocationKey: 3, LocationName: "D", Building: "B2", ExpirationDt: OpenEnd},
	)
	next := []LocationKey{
		{Name: "A", Building: "B1"},
		{Name: "E", Building: "B3"},
		{Name: "F", Building: "B3"},
	}

	before := len(active)
	res := Reconcile(next, func(k LocationKey) LocationKey { return k }, active)

	after := before - len(res.Expire) + len(res.Insert)
	if after != len(next) {
		t.Fatalf("active after = %d, want %d", after, len(next))
	}
	if res.Carried+len(res.Insert) != len(next) {
		t.Fatalf("carried %d + inserted %d != snapshot keys %d", res.Carried, len(res.Insert), len(next))
	}
}

func TestReconcileGrowingLocationScenario(t *testing.T) {
	// Snapshot 1 loads ("A","B1"); snapshot 2 adds ("C","B2"). After snapshot
	// 2 there are two active rows, none expired, and ("A","B1") keeps its
	// surrogate key.
	snapshot1 := []LocationKey{{Name: "A", Building: "B1"}}
	res1 := Reconcile(snapshot1, func(k LocationKey) LocationKey { return k }, map[LocationKey]LocationRow{})
	if len(res1.Insert) != 1 || len(res1.Expire) != 0 {
		t.Fatalf("snapshot1 merge = %+v, want 1 insert 0 expires", res1)
	}

	active := activeLocationSet(
		LocationRow{LocationKey: 1, LocationName: "A", Building: "B1", EffectiveDt: date("2021-01-04"), ExpirationDt: OpenEnd},
	)

	snapshot2 := []LocationKey{{Name: "A", Building: "B1"}, {Name: "C", Building: "B2"}}
	res2 := Reconcile(snapshot2, func(k LocationKey) LocationKey { return k }, active)

	if len(res2.Insert) != 1 || len(res2.Expire) != 0 || res2.Carried != 1 {
		t.Fatalf("snapshot2 merge = %+v, want 1 insert, 0 expires, 1 carried", res2)
	}
	if got := active[LocationKey{Name: "A", Building: "B1"}].LocationKey; got != 1 {
		t.Fatalf("surrogate key for (A,B1) changed to %d", got)
	}
}

func TestReconcileEquipmentRetirementScenario(t *testing.T) {
	// Equipment E1 present in snapshot 1 only: the snapshot 2 merge retires
	// it and hands it to the fact loader as a change row.
	loadDate := date("2021-01-11")
	active := map[string]EquipmentRow{
		"e1SN1": {EquipmentKey: 10, EquipmentID: "e1SN1", LocationKey: 1, RetirementDate: OpenEnd},
		"e2SN2": {EquipmentKey: 11, EquipmentID: "e2SN2", LocationKey: 1, RetirementDate: OpenEnd},
	}

	snapshot2 := []EquipmentRow{{EquipmentID: "e2SN2", LocationKey: 1}}
	res := Reconcile(snapshot2, func(r EquipmentRow) string { return r.EquipmentID }, active)

	if len(res.Expire) != 1 || res.Expire[0].EquipmentKey != 10 {
		t.Fatalf("Expire = %v, want equipment_key 10", res.Expire)
	}

	changes := buildChangeFacts(loadDate, res.Expire)
	want := []FactRow{{EquipmentKey: 10, LocationKey: 1, DateKey: loadDate, IsDeployed: 0, HasChanged: 1}}
	if len(changes) != 1 || changes[0] != want[0] {
		t.Fatalf("change facts = %v, want %v", changes, want)
	}
}

func TestReconcileExpireOrderIndependent(t *testing.T) {
	active := activeLocationSet(
		LocationRow{LocationKey: 3, LocationName: "C", Building: "B1", ExpirationDt: OpenEnd},
		LocationRow{LocationKey: 1, LocationName: "A", Building: "B1", ExpirationDt: OpenEnd},
		LocationRow{LocationKey: 2, LocationName: "B", Building: "B1", ExpirationDt: OpenEnd},
	)

	res := Reconcile(nil, func(k LocationKey) LocationKey { return k }, active)

	keys := make([]int64, 0, len(res.Expire))
	for _, r := range res.Expire {
		keys = append(keys, r.LocationKey)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	if len(keys) != 3 || keys[0] != 1 || keys[1] != 2 || keys[2] != 3 {
		t.Fatalf("expired keys = %v, want [1 2 3]", keys)
	}
}
