package schedulesview

import "context"

// Phase is the state of one mutable control.
//
//	Idle -> Pending -> Reconciled | RolledBack
type Phase int

// Control phases.
const (
	Idle Phase = iota
	Pending
	Reconciled
	RolledBack
)

func (p Phase) String() string {
	switch p {
	case Pending:
		return "pending"
	case Reconciled:
		return "reconciled"
	case RolledBack:
		return "rolled_back"
	default:
		return "idle"
	}
}

// OptimisticUpdate runs one optimistic change: apply locally, send, then
// reconcile with the server's answer or roll back.
type OptimisticUpdate[T any] struct {
	Apply     func()
	Send      func(ctx context.Context) (T, error)
	Reconcile func(ctx context.Context, result T)
	Rollback  func(err error)
	OnPhase   func(Phase) // optional
}

// Run drives the update to a terminal phase.
// PRE: Send is set
// POST: Returns Reconciled with nil, or RolledBack with Send's error
// INVARIANT: Apply happens before Send; Reconcile or Rollback happens after
// Send returns
func (u OptimisticUpdate[T]) Run(ctx context.Context) (Phase, error) {
	u.phase(Pending)
	if u.Apply != nil {
		u.Apply()
	}

	result, err := u.Send(ctx)
	if err != nil {
		if u.Rollback != nil {
			u.Rollback(err)
		}
		u.phase(RolledBack)
		return RolledBack, err
	}

	if u.Reconcile != nil {
		u.Reconcile(ctx, result)
	}
	u.phase(Reconciled)
	return Reconciled, nil
}

func (u OptimisticUpdate[T]) phase(p Phase) {
	if u.OnPhase != nil {
		u.OnPhase(p)
	}
}
