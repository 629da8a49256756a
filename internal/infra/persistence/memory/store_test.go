package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"aquacore/pkg/domain"

	"github.com/shopspring/decimal"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRunInTransactionCommitsState(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store.SetNowFunc(fixedClock(now))

	var created Batch
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		sp, err := tx.CreateSpecies(Species{Name: "Tilapia"})
		if err != nil {
			return err
		}
		pond, err := tx.CreatePond(Pond{Name: "North", VolumeLitres: 50000, WaterType: "freshwater"})
		if err != nil {
			return err
		}
		created, err = tx.CreateBatch(Batch{
			SpeciesID:       sp.ID,
			PondID:          pond.ID,
			BirthDate:       now.AddDate(0, -2, 0),
			InitialQuantity: 500,
			CurrentQuantity: 500,
			Status:          domain.BatchActive,
		})
		return err
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated batch id")
	}
	if !created.CreatedAt.Equal(now) || !created.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected timestamps: %v / %v", created.CreatedAt, created.UpdatedAt)
	}

	got, ok := store.GetBatch(created.ID)
	if !ok {
		t.Fatalf("batch %s not committed", created.ID)
	}
	if got.CurrentQuantity != 500 {
		t.Fatalf("unexpected quantity %d", got.CurrentQuantity)
	}
}

func TestRunInTransactionRollsBackOnError(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	boom := errors.New("boom")

	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		if _, err := tx.CreateSpecies(Species{Name: "Catfish"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if got := store.ListSpecies(); len(got) != 0 {
		t.Fatalf("expected empty store after rollback, got %d species", len(got))
	}
}

type severityRule struct {
	severity domain.Severity
}

func (r severityRule) Name() string { return "severity_rule" }

func (r severityRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	if len(changes) == 0 {
		return domain.Result{}, nil
	}
	return domain.Result{Violations: []domain.Violation{{
		Rule:     r.Name(),
		Severity: r.severity,
		Message:  "triggered",
	}}}, nil
}

func TestBlockingViolationAbortsCommit(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(severityRule{severity: domain.SeverityBlock})
	store := NewStore(engine)

	res, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreatePond(Pond{Name: "South"})
		return err
	})
	var ruleErr domain.RuleViolationError
	if !errors.As(err, &ruleErr) {
		t.Fatalf("expected RuleViolationError, got %v", err)
	}
	if !res.HasBlocking() {
		t.Fatal("expected blocking result")
	}
	if got := store.ListPonds(); len(got) != 0 {
		t.Fatalf("blocked transaction must not commit, got %d ponds", len(got))
	}
}

func TestWarningViolationCommits(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(severityRule{severity: domain.SeverityWarn})
	store := NewStore(engine)

	res, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreatePond(Pond{Name: "East"})
		return err
	})
	if err != nil {
		t.Fatalf("warning must not abort commit: %v", err)
	}
	if len(res.Warnings()) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(res.Warnings()))
	}
	if got := store.ListPonds(); len(got) != 1 {
		t.Fatalf("expected committed pond, got %d", len(got))
	}
}

func TestRunInTransactionHonorsCancelledContext(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.CreateSpecies(Species{Name: "Trout"})
		return err
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := store.ListSpecies(); len(got) != 0 {
		t.Fatalf("cancelled transaction must not commit, got %d species", len(got))
	}
}

func TestUpdateBatchMutatorErrorLeavesEntityUntouched(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	var batchID string
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		b, err := tx.CreateBatch(Batch{InitialQuantity: 100, CurrentQuantity: 100, Status: domain.BatchActive})
		if err != nil {
			return err
		}
		batchID = b.ID
		return nil
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	reject := errors.New("rejected")
	_, err = store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.UpdateBatch(batchID, func(b *Batch) error {
			b.CurrentQuantity = 0
			return reject
		})
		return err
	})
	if !errors.Is(err, reject) {
		t.Fatalf("expected mutator error, got %v", err)
	}
	got, _ := store.GetBatch(batchID)
	if got.CurrentQuantity != 100 {
		t.Fatalf("expected quantity unchanged, got %d", got.CurrentQuantity)
	}
}

func TestUpdateMissingEntityReturnsNotFound(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.UpdateOrder("missing", func(*CustomerOrder) error { return nil })
		return err
	})
	var notFound domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if notFound.Entity != domain.EntityOrder || notFound.ID != "missing" {
		t.Fatalf("unexpected error contents: %+v", notFound)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		sp, err := tx.CreateSpecies(Species{Name: "Salmon", TargetMargin: decimal.RequireFromString("0.35")})
		if err != nil {
			return err
		}
		b, err := tx.CreateBatch(Batch{SpeciesID: sp.ID, InitialQuantity: 200, CurrentQuantity: 180, Status: domain.BatchActive})
		if err != nil {
			return err
		}
		ledger := CostLedger{BatchID: b.ID}
		ledger.Accrue(domain.CostFeed, decimal.RequireFromString("120.50"))
		_, err = tx.CreateCostLedger(ledger)
		return err
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	restored := NewStore(domain.NewRulesEngine())
	restored.ImportState(store.ExportState())

	if len(restored.ListSpecies()) != 1 || len(restored.ListBatches()) != 1 {
		t.Fatal("restored store missing entities")
	}
	src := store.ListBatches()[0]
	ledger, ok := restored.GetCostLedger(src.ID)
	if !ok {
		t.Fatalf("ledger for %s missing after import", src.ID)
	}
	if !ledger.Feed.Equal(decimal.RequireFromString("120.50")) {
		t.Fatalf("unexpected feed cost %s", ledger.Feed)
	}
}

func TestListHealthEventsFiltersAndOrders(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		for i, ev := range []HealthEvent{
			{BatchID: "b1", Kind: domain.HealthEventMortality, MortalityDelta: 3},
			{BatchID: "b2", Kind: domain.HealthEventMortality, MortalityDelta: 1},
			{BatchID: "b1", Kind: domain.HealthEventHarvest},
		} {
			ev.RecordedAt = base.Add(time.Duration(i) * time.Hour)
			if _, err := tx.AppendHealthEvent(ev); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	events := store.ListHealthEvents("b1")
	if len(events) != 2 {
		t.Fatalf("expected 2 events for b1, got %d", len(events))
	}
	if events[0].Kind != domain.HealthEventMortality || events[1].Kind != domain.HealthEventHarvest {
		t.Fatal("events out of recorded order")
	}
	if all := store.ListHealthEvents(""); len(all) != 3 {
		t.Fatalf("expected 3 events total, got %d", len(all))
	}
}

func TestTransactionIsolationFromCommittedState(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	var pondID string
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		p, err := tx.CreatePond(Pond{Name: "West", VolumeLitres: 1000})
		if err != nil {
			return err
		}
		pondID = p.ID
		return nil
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// Mutations inside a failed transaction must not leak into reads taken
	// from the committed state afterwards.
	_, err = store.RunInTransaction(context.Background(), func(tx Transaction) error {
		if _, err := tx.UpdatePond(pondID, func(p *Pond) error {
			p.VolumeLitres = 9999
			return nil
		}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	if err == nil {
		t.Fatal("expected abort error")
	}
	got, _ := store.GetPond(pondID)
	if got.VolumeLitres != 1000 {
		t.Fatalf("dirty write leaked: volume %d", got.VolumeLitres)
	}
}

func TestViewSeesCommittedSnapshot(t *testing.T) {
	store := NewStore(domain.NewRulesEngine())
	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreateOrder(CustomerOrder{
			Customer: "Harbor Fish Co",
			Status:   domain.OrderPending,
			Lines:    []domain.DemandLine{{SpeciesID: "s1", Quantity: 40, UnitPrice: decimal.RequireFromString("6.25")}},
		})
		return err
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	err = store.View(context.Background(), func(view TransactionView) error {
		orders := view.ListOrders()
		if len(orders) != 1 {
			t.Fatalf("expected 1 order, got %d", len(orders))
		}
		if orders[0].Lines[0].Quantity != 40 {
			t.Fatalf("unexpected line quantity %d", orders[0].Lines[0].Quantity)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view failed: %v", err)
	}
}
