package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"seguimiento/internal/core"
	"seguimiento/internal/gateway"
)

func seeded() *Store {
	return New(
		[]core.Record{{"PROYECTO": "Alpha", "ACTIVIDAD": "Talleres", "ENERO": "10"}},
		[]core.Record{
			{"Proyecto": "Alpha", "BPIN": "111", "Tipo de Valor": "Total CDP", "Valor": "100", "Fecha Corte": "2025-03-31"},
			{"Proyecto": "Beta", "BPIN": "222", "Tipo de Valor": "Total CDP", "Valor": "50", "Fecha Corte": "2025-03-31"},
		},
		[]core.User{{Email: "a@b.co", Password: "x"}, {Email: "A@B.co", Password: "dup"}},
	)
}

func TestNewFromFilesSeeds(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFromFiles(dir)
	if err != nil {
		t.Fatalf("NewFromFiles on empty dir: %v", err)
	}
	users, _ := s.Users(context.Background())
	if len(users) != 1 {
		t.Fatalf("expected default user, got %v", users)
	}
	admin, _ := s.VerifyAdmin(context.Background(), users[0].Email)
	if !admin.IsAdmin {
		t.Fatalf("default user should be admin")
	}

	data := `[{"Proyecto":"Alpha","Tipo de Valor":"Total CDP","Valor":1000,"Fecha Corte":"2025-03-31"}]`
	if err := os.WriteFile(filepath.Join(dir, FinancialFile), []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err = NewFromFiles(dir)
	if err != nil {
		t.Fatalf("NewFromFiles: %v", err)
	}
	ds, _ := s.Dataset(context.Background())
	if len(ds.Financial) != 1 || ds.Financial[0].Amount != 1000 {
		t.Fatalf("financial = %+v", ds.Financial)
	}

	if err := os.WriteFile(filepath.Join(dir, ProjectsFile), []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFromFiles(dir); err == nil {
		t.Fatalf("expected parse error for malformed seed")
	}
}

func TestProgressUpdates(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	if _, err := s.UpdateMonthlyProgress(ctx, "Alpha", "Talleres", "marzo", "30"); err != nil {
		t.Fatalf("UpdateMonthlyProgress: %v", err)
	}
	if _, err := s.UpdateObservation(ctx, "Alpha", "Talleres", "ok"); err != nil {
		t.Fatalf("UpdateObservation: %v", err)
	}
	ds, _ := s.Dataset(ctx)
	row := ds.Projects[0]
	if row.MonthlyProgress(3) != "30" || row.Observation != "ok" {
		t.Fatalf("row = %+v", row)
	}
	_, err := s.UpdateOverallProgress(ctx, "Alpha", "Nada", "1")
	if !gateway.IsBusiness(err) {
		t.Fatalf("expected business error for unknown activity, got %v", err)
	}
	if _, err := s.UpdateMonthlyProgress(ctx, "Alpha", "Talleres", "brumario", "1"); !errors.Is(err, core.ErrInvalidMonth) {
		t.Fatalf("expected ErrInvalidMonth, got %v", err)
	}
}

func TestUsers(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	users, _ := s.Users(ctx)
	if len(users) != 1 {
		t.Fatalf("duplicate emails must collapse, got %v", users)
	}
	if res, _ := s.VerifyAccess(ctx, "A@b.co", "x"); !res.Success {
		t.Fatalf("valid credentials rejected")
	}
	if res, _ := s.VerifyAccess(ctx, "a@b.co", "bad"); res.Success {
		t.Fatalf("invalid credentials accepted")
	}
	if _, err := s.AddUser(ctx, core.User{Email: "a@b.co"}); !gateway.IsBusiness(err) {
		t.Fatalf("expected duplicate user rejection, got %v", err)
	}
	if _, err := s.AddUser(ctx, core.User{Email: "c@d.co", Password: "p"}); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if _, err := s.RemoveUser(ctx, "a@b.co"); err != nil {
		t.Fatalf("RemoveUser: %v", err)
	}
	users, _ = s.Users(ctx)
	if len(users) != 1 || users[0].Email != "c@d.co" {
		t.Fatalf("users = %v", users)
	}
	if _, err := s.RemoveUser(ctx, "zz@d.co"); !gateway.IsBusiness(err) {
		t.Fatalf("expected not-found rejection, got %v", err)
	}
}

func TestConfigAndSelectors(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	cfg, _ := s.Config(ctx)
	if cfg.ActiveMonth != "enero" || !cfg.Active {
		t.Fatalf("default config = %+v", cfg)
	}
	if _, err := s.SetActiveMonth(ctx, "Abril"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SetConfig(ctx, "version", "1.4"); err != nil {
		t.Fatal(err)
	}
	cfg, _ = s.Config(ctx)
	if cfg.ActiveMonth != "abril" || cfg.Version != "1.4" {
		t.Fatalf("config = %+v", cfg)
	}
	if _, err := s.SetConfig(ctx, "otra", "x"); !gateway.IsBusiness(err) {
		t.Fatalf("expected unknown key rejection, got %v", err)
	}

	projects, _ := s.UniqueProjects(ctx)
	bpins, _ := s.UniqueBPINs(ctx)
	types, _ := s.UniqueValueTypes(ctx)
	if len(projects) != 2 || len(bpins) != 2 || len(types) != 1 {
		t.Fatalf("selectors = %v %v %v", projects, bpins, types)
	}
}

func TestActivityLogNewestFirst(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	for _, a := range []string{"login", "dashboard_access", "logout"} {
		if err := s.RecordActivity(ctx, "a@b.co", a, ""); err != nil {
			t.Fatal(err)
		}
	}
	logs, _ := s.RecentActivity(ctx, 2)
	if len(logs) != 2 || logs[0].Action != "logout" || logs[1].Action != "dashboard_access" {
		t.Fatalf("logs = %+v", logs)
	}
	all, _ := s.RecentActivity(ctx, 0)
	if len(all) != 3 {
		t.Fatalf("limit 0 should return everything, got %d", len(all))
	}
}

func TestSaveFinancialAndLegacy(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	if _, err := s.SaveFinancial(ctx, nil); !errors.Is(err, core.ErrNoFinancialValues) {
		t.Fatalf("expected ErrNoFinancialValues, got %v", err)
	}
	rows := []core.Record{{"Proyecto": "Gamma", "Tipo de Valor": "Total CDP", "Valor": 5.0, "Fecha Corte": "2025-04-30"}}
	if _, err := s.SaveFinancial(ctx, rows); err != nil {
		t.Fatal(err)
	}
	rows[0]["Proyecto"] = "mutated"
	ds, _ := s.Dataset(ctx)
	if len(ds.Financial) != 3 || ds.Financial[2].Project != "Gamma" {
		t.Fatalf("financial = %+v", ds.Financial)
	}
	if _, err := s.PostLegacy(ctx, "proyecto", map[string]string{"nombre": "X"}); err != nil {
		t.Fatal(err)
	}
	if len(s.LegacyPosts()) != 1 {
		t.Fatalf("legacy post not recorded")
	}
}
