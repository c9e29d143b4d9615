package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"

	"familia/internal/database"
	"familia/internal/metrics"
	"familia/internal/repository"
)

// ReconcileReport counts the rows a reconcile pass repaired
type ReconcileReport struct {
	BackRefsAdded          int `json:"backRefsAdded"`
	RosterEntriesAdded     int `json:"rosterEntriesAdded"`
	DanglingRefsRemoved    int `json:"danglingRefsRemoved"`
	CurrentFamiliesCleared int `json:"currentFamiliesCleared"`
}

// Total returns the number of repairs
func (r ReconcileReport) Total() int {
	return r.BackRefsAdded + r.RosterEntriesAdded + r.DanglingRefsRemoved + r.CurrentFamiliesCleared
}

// Reconciler repairs memberships recorded on only one side
type Reconciler struct {
	db              *database.DB
	userRepo        *repository.UserRepository
	familyRepo      *repository.FamilyRepository
	consistencyRepo *repository.ConsistencyRepository
}

// NewReconciler creates a new reconciler
func NewReconciler(db *database.DB, userRepo *repository.UserRepository, familyRepo *repository.FamilyRepository, consistencyRepo *repository.ConsistencyRepository) *Reconciler {
	return &Reconciler{
		db:              db,
		userRepo:        userRepo,
		familyRepo:      familyRepo,
		consistencyRepo: consistencyRepo,
	}
}

// Reconcile runs one repair pass in a single transaction. A roster entry
// without a back-reference gets one, and so does a back-reference without a
// roster entry. Back-references to missing families are removed, and a
// current family outside the user's family set is cleared.
func (r *Reconciler) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	err := r.db.InTx(ctx, func(tx *database.Tx) error {
		users := r.userRepo.WithTx(tx)
		families := r.familyRepo.WithTx(tx)
		consistency := r.consistencyRepo.WithTx(tx)

		roster, err := consistency.RosterWithoutBackRef(ctx)
		if err != nil {
			return err
		}
		for _, m := range roster {
			if err := users.AddFamilyRef(ctx, m.UserID, m.FamilyID, m.JoinedAt); err != nil {
				return err
			}
		}
		report.BackRefsAdded = len(roster)

		refs, err := consistency.BackRefWithoutRoster(ctx)
		if err != nil {
			return err
		}
		for _, m := range refs {
			if err := families.AddMember(ctx, m.FamilyID, m.UserID, m.JoinedAt); err != nil {
				return err
			}
		}
		report.RosterEntriesAdded = len(refs)

		dangling, err := consistency.DanglingBackRefs(ctx)
		if err != nil {
			return err
		}
		for _, m := range dangling {
			if err := users.RemoveFamilyRef(ctx, m.UserID, m.FamilyID); err != nil {
				return err
			}
		}
		report.DanglingRefsRemoved = len(dangling)

		stale, err := consistency.StaleCurrentFamilies(ctx)
		if err != nil {
			return err
		}
		for _, userID := range stale {
			if err := users.SetCurrentFamily(ctx, userID, ""); err != nil {
				return err
			}
		}
		report.CurrentFamiliesCleared = len(stale)
		return nil
	})
	if err != nil {
		return ReconcileReport{}, fmt.Errorf("%w: reconcile: %w", ErrTransaction, err)
	}

	metrics.ReconcileRepairs.WithLabelValues("back_ref_added").Add(float64(report.BackRefsAdded))
	metrics.ReconcileRepairs.WithLabelValues("roster_entry_added").Add(float64(report.RosterEntriesAdded))
	metrics.ReconcileRepairs.WithLabelValues("dangling_ref_removed").Add(float64(report.DanglingRefsRemoved))
	metrics.ReconcileRepairs.WithLabelValues("current_family_cleared").Add(float64(report.CurrentFamiliesCleared))

	if report.Total() > 0 {
		slog.Warn("Reconcile repaired memberships",
			"back_refs_added", report.BackRefsAdded,
			"roster_entries_added", report.RosterEntriesAdded,
			"dangling_refs_removed", report.DanglingRefsRemoved,
			"current_families_cleared", report.CurrentFamiliesCleared)
	}
	return report, nil
}

// ValidateSchedule checks a cron expression
func ValidateSchedule(cronExpr string) error {
	if !gronx.IsValid(cronExpr) {
		return fmt.Errorf("invalid reconcile cron expression: %q", cronExpr)
	}
	return nil
}

// RunSchedule reconciles at every tick of cronExpr until ctx is done.
// Failed passes are logged and retried at the next tick.
func (r *Reconciler) RunSchedule(ctx context.Context, cronExpr string) error {
	if err := ValidateSchedule(cronExpr); err != nil {
		return err
	}
	slog.Info("Reconciler scheduled", "cron", cronExpr)

	for {
		next, err := gronx.NextTickAfter(cronExpr, time.Now().UTC(), false)
		if err != nil {
			return fmt.Errorf("failed to compute next reconcile tick: %w", err)
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			slog.Info("Reconciler stopping")
			return nil
		case <-timer.C:
		}

		if _, err := r.Reconcile(ctx); err != nil {
			slog.Error("Reconcile failed", "error", err)
		}
	}
}
