package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"roster-sync/internal/directory"
	"roster-sync/internal/domain"
)

// Policy decides what happens when an individual add/remove/update fails
// with something other than the absorbed duplicate/not-found outcomes.
// It applies uniformly to every backend.
type Policy int

const (
	// PolicyAbort stops the entity's reconciliation and surfaces the error.
	PolicyAbort Policy = iota
	// PolicyContinue records a warning and keeps going (best effort).
	PolicyContinue
)

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "abort", "":
		return PolicyAbort, nil
	case "continue":
		return PolicyContinue, nil
	}
	return PolicyAbort, fmt.Errorf("unknown on-op-error policy %q (want abort or continue)", s)
}

// Reconciler converges one directory entity's live membership onto a
// desired set.
type Reconciler struct {
	Adapter   directory.Adapter
	Protected domain.Principal
	OnOpError Policy
	Log       *slog.Logger
}

// Reconcile runs one pass: resolve desired principals, fetch the live
// membership, diff, and execute removes, adds, updates in that order.
// Running it twice against an unchanged roster yields all-zero tallies
// on the second pass.
func (r *Reconciler) Reconcile(ctx context.Context, entityRef string, desired DesiredSet) (Summary, error) {
	summary := Summary{Kind: r.Adapter.Kind()}

	protectedRef, err := r.resolveProtected(ctx, &summary)
	if err != nil {
		return summary, err
	}

	managers, err := r.resolveSet(ctx, desired.Managers, &summary)
	if err != nil {
		return summary, err
	}
	members, err := r.resolveSet(ctx, desired.Members, &summary)
	if err != nil {
		return summary, err
	}
	// The protected principal is enforced structurally, not via the
	// roster-derived manager set.
	delete(managers, protectedRef)

	live, err := r.Adapter.ListMembers(ctx, entityRef)
	if err != nil {
		return summary, err
	}

	p := buildPlan(live, managers, members, protectedRef, r.Adapter.HighestRole())

	for _, ref := range p.removes {
		err := r.Adapter.RemoveMember(ctx, entityRef, ref)
		switch {
		case err == nil, errors.Is(err, directory.ErrNotFound):
			summary.Removed++
		default:
			if done := r.opFailed(&summary, "remove", ref, err); done != nil {
				return summary, done
			}
		}
	}

	for _, op := range p.adds {
		err := r.Adapter.AddMember(ctx, entityRef, op.ref, op.role)
		switch {
		case err == nil, errors.Is(err, directory.ErrDuplicateMember):
			summary.Added++
		default:
			if done := r.opFailed(&summary, "add", op.ref, err); done != nil {
				return summary, done
			}
		}
	}

	for _, op := range p.updates {
		err := r.Adapter.UpdateRole(ctx, entityRef, op.ref, op.role)
		switch {
		case err == nil:
			summary.Updated++
		case errors.Is(err, directory.ErrNotFound):
			// Raced away since the list; the next run re-adds it.
		default:
			if done := r.opFailed(&summary, "update", op.ref, err); done != nil {
				return summary, done
			}
		}
	}

	return summary, nil
}

func (r *Reconciler) resolveProtected(ctx context.Context, summary *Summary) (string, error) {
	if r.Protected.IsZero() {
		return "", nil
	}
	ref, err := r.Adapter.Resolve(ctx, r.Protected)
	if err == nil {
		return ref, nil
	}
	if errors.Is(err, directory.ErrUnresolvable) {
		// Cannot enforce the invariant without an identity; record it
		// loudly and let the rest of the pass proceed.
		summary.Warnings = append(summary.Warnings, Warning{Principal: r.Protected, Reason: "protected principal not resolvable"})
		r.logger().Warn("protected principal not resolvable", "kind", summary.Kind, "principal", r.Protected.String())
		return "", nil
	}
	return "", err
}

func (r *Reconciler) resolveSet(ctx context.Context, set domain.PrincipalSet, summary *Summary) (map[string]bool, error) {
	out := make(map[string]bool, set.Len())
	for p := range set {
		ref, err := r.Adapter.Resolve(ctx, p)
		if err != nil {
			if errors.Is(err, directory.ErrUnresolvable) {
				summary.Warnings = append(summary.Warnings, Warning{Principal: p, Reason: "identity not resolvable, skipped this run"})
				r.logger().Warn("skipping unresolvable principal", "kind", summary.Kind, "principal", p.String())
				continue
			}
			return nil, err
		}
		out[ref] = true
	}
	return out, nil
}

// opFailed applies the on-op-error policy. It returns the error to abort
// with, or nil when the run should continue.
func (r *Reconciler) opFailed(summary *Summary, op, ref string, err error) error {
	if r.OnOpError == PolicyContinue {
		summary.Warnings = append(summary.Warnings, Warning{Principal: domain.Principal(ref), Reason: fmt.Sprintf("%s failed: %v", op, err)})
		r.logger().Warn("operation failed, continuing", "kind", summary.Kind, "op", op, "ref", ref, "err", err)
		return nil
	}
	return fmt.Errorf("%s %s: %w", op, ref, err)
}

func (r *Reconciler) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.Default()
}
