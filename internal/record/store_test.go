package record

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/kv-thuringen/kvt-crawler/internal/clock"
	"github.com/kv-thuringen/kvt-crawler/internal/persist"
)

var testStart = time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

func newTestCollection() (*Collection, *persist.Memory, *clock.Fake) {
	mem := persist.NewMemory()
	clk := clock.NewFake(testStart)
	return NewCollection(mem, DefaultKey, clk), mem, clk
}

func sampleRaw() RawFields {
	return RawFields{
		Name:      "  Dr. Anna   Müller ",
		Phone:     "0361 123",
		Specialty: "Psychologische Psychotherapeutin",
		Facility:  "Praxis Müller",
		Street:    "Hauptstr. 1",
		CityLine:  "99084 Erfurt",
		Offerings: []string{"Verhaltenstherapie", " ", "Videosprechstunde"},
		Schedule: map[time.Weekday][]DayText{
			time.Monday:    {{Label: "Montag", TimeText: "08:00-12:00", Note: ""}},
			time.Wednesday: {{Label: "Mittwoch", TimeText: "nach Vereinbarung"}},
		},
		SourceURL: "https://example.org/arztsuche/arztsuche-details?id=1",
	}
}

func TestLoadMissingReturnsFreshStore(t *testing.T) {
	c, _, _ := newTestCollection()
	s, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if s.Version != CurrentVersion || len(s.Items) != 0 || s.UpdatedAt != nil {
		t.Fatalf("expected a fresh store but got %+v", s)
	}
	if !s.CreatedAt.Equal(testStart) {
		t.Fatalf("expected createdAt %v but got %v", testStart, s.CreatedAt)
	}
}

func TestLoadCorruptPayloadIsPreserved(t *testing.T) {
	payloads := []string{
		"this is not json",
		"null",
		"[1,2,3]",
		`{"version":1,"items":[]}`,
		`{"version":1,"items":{"a":null}}`,
	}
	for _, p := range payloads {
		ctx := context.Background()
		c, mem, clk := newTestCollection()
		if err := mem.Set(ctx, DefaultKey, []byte(p)); err != nil {
			t.Fatalf("got unexpected error: %v", err)
		}
		s, err := c.Load(ctx)
		if err != nil {
			t.Fatalf("payload %q: load must not fail on corruption: %v", p, err)
		}
		if len(s.Items) != 0 {
			t.Fatalf("payload %q: expected an empty store", p)
		}
		backup, ok, _ := mem.Get(ctx, c.BackupKey(clk.Now()))
		if !ok {
			t.Fatalf("payload %q: expected backup key %s", p, c.BackupKey(clk.Now()))
		}
		if string(backup) != p {
			t.Fatalf("payload %q: backup holds %q", p, backup)
		}
		backups, err := c.CorruptBackups(ctx)
		if err != nil || len(backups) != 1 {
			t.Fatalf("payload %q: expected one listed backup, got %v (%v)", p, backups, err)
		}
	}
}

func TestBackupKeyFormat(t *testing.T) {
	c, _, clk := newTestCollection()
	expected := "psychologen_sammlung_v1_corrupt_backup_" + "1709544600000"
	if k := c.BackupKey(clk.Now()); k != expected {
		t.Fatalf("expected %s but got %s", expected, k)
	}
}

func TestLoadRepairsMissingItemsAndVersion(t *testing.T) {
	ctx := context.Background()
	c, mem, _ := newTestCollection()
	_ = mem.Set(ctx, DefaultKey, []byte(`{"createdAt":"2024-01-01T00:00:00Z"}`))
	s, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if s.Items == nil || s.Version != CurrentVersion {
		t.Fatalf("expected repaired store but got %+v", s)
	}
	if keys, _ := mem.Keys(ctx); len(keys) != 1 {
		t.Fatalf("a repairable payload must not be backed up, keys: %v", keys)
	}
}

func TestSaveStampsUpdatedAt(t *testing.T) {
	ctx := context.Background()
	c, mem, clk := newTestCollection()
	s := NewStore(clk.Now())
	clk.Advance(time.Minute)
	if err := c.Save(ctx, s); err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if s.UpdatedAt == nil || !s.UpdatedAt.Equal(testStart.Add(time.Minute)) {
		t.Fatalf("expected updatedAt to be stamped, got %v", s.UpdatedAt)
	}
	raw, _, _ := mem.Get(ctx, DefaultKey)
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("stored payload is not json: %v", err)
	}
	for _, k := range []string{"version", "createdAt", "updatedAt", "items"} {
		if _, ok := payload[k]; !ok {
			t.Fatalf("stored payload lacks %s: %s", k, raw)
		}
	}
}

func TestUpsertCreatesRecord(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCollection()
	res, err := c.UpsertFromExtraction(ctx, sampleRaw())
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if !res.Created || res.Total != 1 {
		t.Fatalf("expected a created record, got %+v", res)
	}
	r := res.Record
	if r.ID != "dr_anna_müller" {
		t.Fatalf("unexpected id %q", r.ID)
	}
	if r.Name != "Dr. Anna Müller" || r.Address != "Hauptstr. 1, 99084 Erfurt" {
		t.Fatalf("unexpected record %+v", r)
	}
	if diff := cmp.Diff([]string{"Verhaltenstherapie", "Videosprechstunde"}, r.Offerings); diff != "" {
		t.Fatalf("offerings mismatch (-want +got):\n%s", diff)
	}
	if r.Fingerprint != "hb93e2c28" {
		t.Fatalf("unexpected fingerprint %s", r.Fingerprint)
	}
	if len(r.Hours.Mon) != 1 || r.Hours.Mon[0].String() != "08:00-12:00" {
		t.Fatalf("unexpected monday windows %v", r.Hours.Mon)
	}
	if len(r.Hours.Wed) != 1 || r.Hours.Wed[0].Bounded() {
		t.Fatalf("unexpected wednesday windows %v", r.Hours.Wed)
	}
	if r.Hours.Sun == nil {
		t.Fatalf("empty days must be empty lists, not missing")
	}
	if !r.ScrapedAt.Equal(testStart) {
		t.Fatalf("unexpected scrapedAt %v", r.ScrapedAt)
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c, _, clk := newTestCollection()
	first, err := c.UpsertFromExtraction(ctx, sampleRaw())
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	before, _ := c.Load(ctx)
	want := *before.Items[first.Record.ID]

	clk.Advance(time.Hour)
	changed := sampleRaw()
	changed.Phone = "0000"
	changed.Offerings = []string{"something else"}
	second, err := c.UpsertFromExtraction(ctx, changed)
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if second.Created || second.Migrated || second.Total != 1 {
		t.Fatalf("expected an untouched existing record, got %+v", second)
	}
	after, _ := c.Load(ctx)
	if diff := cmp.Diff(&want, after.Items[first.Record.ID]); diff != "" {
		t.Fatalf("record content changed on second upsert (-want +got):\n%s", diff)
	}
}

func TestUpsertBackfillsMissingSchemaFields(t *testing.T) {
	ctx := context.Background()
	c, mem, _ := newTestCollection()
	legacy := `{"version":1,"createdAt":"2023-01-01T00:00:00Z","updatedAt":null,"items":{
		"dr_anna_müller":{"id":"dr_anna_müller","name":"Dr. Anna Müller","phone":"0361 999","scrapedAt":"2023-01-01T00:00:00Z"}}}`
	_ = mem.Set(ctx, DefaultKey, []byte(legacy))

	res, err := c.UpsertFromExtraction(ctx, sampleRaw())
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if res.Created || !res.Migrated {
		t.Fatalf("expected a migrated existing record, got %+v", res)
	}
	s, _ := c.Load(ctx)
	r := s.Items["dr_anna_müller"]
	if r.Phone != "0361 999" {
		t.Fatalf("populated field was overwritten: %q", r.Phone)
	}
	if r.Specialty != "" || r.Fingerprint != "" {
		t.Fatalf("content fields must not be backfilled from the new extraction: %+v", r)
	}
	if r.Offerings == nil || r.Hours.Mon == nil || r.Hours.Sun == nil {
		t.Fatalf("schema fields were not backfilled: %+v", r)
	}
	if len(r.Hours.Mon) != 0 {
		t.Fatalf("backfilled slots must be empty, got %v", r.Hours.Mon)
	}
}

func TestUpsertWithoutName(t *testing.T) {
	ctx := context.Background()
	c, mem, _ := newTestCollection()
	raw := sampleRaw()
	raw.Name = "   "
	if _, err := c.UpsertFromExtraction(ctx, raw); !errors.Is(err, ErrExtractionIncomplete) {
		t.Fatalf("expected ErrExtractionIncomplete but got %v", err)
	}
	if _, ok, _ := mem.Get(ctx, DefaultKey); ok {
		t.Fatalf("nothing must be written for an incomplete extraction")
	}
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()
	c, _, clk := newTestCollection()
	res, _ := c.UpsertFromExtraction(ctx, sampleRaw())
	id := res.Record.ID

	clk.Advance(2 * time.Hour)
	opt, _ := LookupStatusOption("urlaub")
	r, err := c.SetStatus(ctx, id, opt.Status("bis 12.03."))
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if StatusLabel(r) != "Urlaub" || StatusNote(r) != "bis 12.03." {
		t.Fatalf("unexpected status %+v", r.Status)
	}
	if r.StatusUpdatedAt == nil || !r.StatusUpdatedAt.Equal(testStart.Add(2*time.Hour)) {
		t.Fatalf("unexpected statusUpdatedAt %v", r.StatusUpdatedAt)
	}
	if r.Phone != "0361 123" || !r.ScrapedAt.Equal(testStart) {
		t.Fatalf("content fields changed by a status update: %+v", r)
	}

	r, err = c.SetStatus(ctx, id, nil)
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if r.Status != nil || r.StatusUpdatedAt == nil {
		t.Fatalf("expected a cleared status with a timestamp, got %+v", r)
	}
}

func TestSetStatusUnknownID(t *testing.T) {
	ctx := context.Background()
	c, mem, _ := newTestCollection()
	_, err := c.SetStatus(ctx, "nobody", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound but got %v", err)
	}
	if _, ok, _ := mem.Get(ctx, DefaultKey); ok {
		t.Fatalf("a failed status update must not write")
	}
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCollection()
	_, _ = c.UpsertFromExtraction(ctx, sampleRaw())
	if err := c.Reset(ctx); err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	s, _ := c.Load(ctx)
	if len(s.Items) != 0 || s.UpdatedAt == nil {
		t.Fatalf("expected an empty saved store, got %+v", s)
	}
}

func TestIDFromName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Dr. med. Hans-Peter Schäfer", "dr_med_hans_peter_schäfer"},
		{"  Anna   B. ", "anna_b"},
		{"...", ""},
		{"Praxis 42", "praxis_42"},
	}
	for _, tt := range tests {
		if got := IDFromName(tt.input); got != tt.expected {
			t.Errorf("IDFromName(%q) = %q; want %q", tt.input, got, tt.expected)
		}
	}
}

func TestFingerprint(t *testing.T) {
	if fp := Fingerprint(&Record{}); fp != "hf80" {
		t.Fatalf("expected hf80 for empty fields but got %s", fp)
	}
	a := Fingerprint(&Record{Name: "A  B", Phone: "1"})
	b := Fingerprint(&Record{Name: "A B", Phone: " 1 "})
	if a != b || !strings.HasPrefix(a, "h") {
		t.Fatalf("fingerprint must use normalized fields: %s vs %s", a, b)
	}
}

func TestRecordJSONWireFormat(t *testing.T) {
	from, to := Minute(480), Minute(720)
	w := TimeWindow{From: &from, To: &to}
	b, err := json.Marshal(w)
	if err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if string(b) != `{"from":"08:00","to":"12:00","note":null}` {
		t.Fatalf("unexpected wire format %s", b)
	}
	var back TimeWindow
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("got unexpected error: %v", err)
	}
	if *back.From != 480 || *back.To != 720 {
		t.Fatalf("unexpected decoded window %v", back)
	}
}
