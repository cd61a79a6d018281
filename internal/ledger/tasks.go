package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/liqingnz/btc-timelock-contracts/pkg/domain"
)

// SetupTask creates a task bound to a registered partner. Requires RoleAdmin.
// Preconditions are checked in order and the first failure is returned.
func (l *Ledger) SetupTask(ctx context.Context, caller domain.Identity, partner domain.PartnerID, timelockEndTime, deadline time.Time, amount uint64, btcAddress string) (uint64, error) {
	var id uint64
	err := l.mutate(ctx, "setup_task", func(ctx context.Context) ([]domain.Event, error) {
		if err := l.guard.Require(caller, domain.RoleAdmin); err != nil {
			return nil, err
		}
		if !l.registry.Contains(partner) {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidPartner, partner)
		}
		now := l.clock.Now()
		if !timelockEndTime.After(now) {
			return nil, &domain.ParameterError{Field: "timelock_end_time", Reason: "must be in the future"}
		}
		if !deadline.After(now) {
			return nil, &domain.ParameterError{Field: "deadline", Reason: "must be in the future"}
		}
		if amount == 0 {
			return nil, &domain.ParameterError{Field: "amount", Reason: "must be nonzero"}
		}
		if err := domain.CheckText("btc_address", btcAddress); err != nil {
			return nil, err
		}

		task := domain.Task{
			ID:              uint64(len(l.tasks)),
			Partner:         partner,
			State:           domain.TaskStateCreated,
			TimelockEndTime: timelockEndTime.UTC(),
			Deadline:        deadline.UTC(),
			Amount:          amount,
			BTCAddress:      btcAddress,
		}
		l.tasks = append(l.tasks, task)
		l.registry.AppendTask(partner, task.ID)

		if err := l.persist(ctx); err != nil {
			l.tasks = l.tasks[:task.ID]
			l.registry.PopTask(partner)
			return nil, fmt.Errorf("persist ledger: %w", err)
		}

		id = task.ID
		return []domain.Event{{
			Type:            domain.EventTaskCreated,
			TaskID:          ptr(task.ID),
			Partner:         partner,
			Amount:          amount,
			TimelockEndTime: ptr(task.TimelockEndTime),
			Deadline:        ptr(task.Deadline),
			BTCAddress:      btcAddress,
			Caller:          caller,
		}}, nil
	})
	return id, err
}

// ReceiveFunds records a relayer-reported deposit for a Created task and credits
// the partner vault. Requires RoleRelayer.
func (l *Ledger) ReceiveFunds(ctx context.Context, caller domain.Identity, amount, taskID uint64, txHash domain.TxHash, txOut uint32, witnessScript []byte) error {
	return l.mutate(ctx, "receive_funds", func(ctx context.Context) ([]domain.Event, error) {
		if err := l.guard.Require(caller, domain.RoleRelayer); err != nil {
			return nil, err
		}
		task, err := l.task(taskID)
		if err != nil {
			return nil, err
		}
		if task.State != domain.TaskStateCreated {
			return nil, fmt.Errorf("%w: task %d is %s, want %s", domain.ErrInvalidState, taskID, task.State, domain.TaskStateCreated)
		}
		if l.clock.Now().After(task.Deadline) {
			return nil, fmt.Errorf("%w: task %d deadline %s", domain.ErrTaskExpired, taskID, task.Deadline.Format(time.RFC3339))
		}
		if amount != task.Amount {
			return nil, fmt.Errorf("%w: task %d expects %d, got %d", domain.ErrAmountMismatch, taskID, task.Amount, amount)
		}
		deposited, err := l.oracle.IsDeposited(ctx, txHash, txOut)
		if err != nil {
			return nil, fmt.Errorf("query deposit oracle: %w", err)
		}
		if !deposited {
			return nil, fmt.Errorf("%w: %s:%d", domain.ErrDepositNotFound, txHash, txOut)
		}
		vault, err := l.vaults.Resolve(ctx, task.Partner)
		if err != nil {
			return nil, fmt.Errorf("resolve vault for partner %q: %w", task.Partner, err)
		}

		prev := task.Clone()
		task.State = domain.TaskStateFulfilled
		task.TxHash = txHash
		task.TxOut = txOut
		task.WitnessScript = append(domain.HexBytes(nil), witnessScript...)

		if err := l.persist(ctx); err != nil {
			l.tasks[taskID] = prev
			return nil, fmt.Errorf("persist ledger: %w", err)
		}
		if err := vault.Credit(ctx, amount); err != nil {
			l.tasks[taskID] = prev
			l.compensate(ctx, "receive_funds", domain.TaskStateFulfilled, prev)
			return nil, fmt.Errorf("credit partner %q: %w", task.Partner, err)
		}

		return []domain.Event{{
			Type:          domain.EventFundsReceived,
			TaskID:        ptr(taskID),
			Partner:       task.Partner,
			Amount:        amount,
			TxHash:        ptr(txHash),
			TxOut:         ptr(txOut),
			WitnessScript: append(domain.HexBytes(nil), witnessScript...),
			Caller:        caller,
		}}, nil
	})
}

// Burn finalizes a Fulfilled task once its timelock has ended.
// Any identity may call it.
func (l *Ledger) Burn(ctx context.Context, caller domain.Identity, taskID uint64) error {
	return l.mutate(ctx, "burn", func(ctx context.Context) ([]domain.Event, error) {
		return l.burn(ctx, caller, taskID, false)
	})
}

// ForceBurn finalizes a Fulfilled task regardless of its timelock. Requires RoleAdmin.
func (l *Ledger) ForceBurn(ctx context.Context, caller domain.Identity, taskID uint64) error {
	return l.mutate(ctx, "force_burn", func(ctx context.Context) ([]domain.Event, error) {
		if err := l.guard.Require(caller, domain.RoleAdmin); err != nil {
			return nil, err
		}
		return l.burn(ctx, caller, taskID, true)
	})
}

func (l *Ledger) burn(ctx context.Context, caller domain.Identity, taskID uint64, forced bool) ([]domain.Event, error) {
	task, err := l.task(taskID)
	if err != nil {
		return nil, err
	}
	if task.State != domain.TaskStateFulfilled {
		return nil, fmt.Errorf("%w: task %d is %s, want %s", domain.ErrInvalidState, taskID, task.State, domain.TaskStateFulfilled)
	}
	if !forced && l.clock.Now().Before(task.TimelockEndTime) {
		return nil, fmt.Errorf("%w: task %d unlocks at %s", domain.ErrTimelockNotReached, taskID, task.TimelockEndTime.Format(time.RFC3339))
	}
	vault, err := l.vaults.Resolve(ctx, task.Partner)
	if err != nil {
		return nil, fmt.Errorf("resolve vault for partner %q: %w", task.Partner, err)
	}

	task.State = domain.TaskStateBurned
	if err := l.persist(ctx); err != nil {
		task.State = domain.TaskStateFulfilled
		return nil, fmt.Errorf("persist ledger: %w", err)
	}
	if err := vault.Burn(ctx, task.Amount); err != nil {
		task.State = domain.TaskStateFulfilled
		l.compensate(ctx, "burn", domain.TaskStateBurned, task.Clone())
		return nil, fmt.Errorf("burn partner %q: %w", task.Partner, err)
	}

	return []domain.Event{{
		Type:    domain.EventBurned,
		TaskID:  ptr(taskID),
		Partner: task.Partner,
		Amount:  task.Amount,
		Forced:  forced,
		Caller:  caller,
	}}, nil
}

// task returns a pointer into the ledger. The caller holds the lock.
func (l *Ledger) task(id uint64) (*domain.Task, error) {
	if id >= uint64(len(l.tasks)) {
		return nil, fmt.Errorf("%w: task %d, ledger length %d", domain.ErrIndexOutOfRange, id, len(l.tasks))
	}
	return &l.tasks[id], nil
}

// GetTask returns a copy of the task with the given id.
func (l *Ledger) GetTask(ctx context.Context, id uint64) (domain.Task, error) {
	var out domain.Task
	err := l.view(ctx, func() error {
		t, err := l.task(id)
		if err != nil {
			return err
		}
		out = t.Clone()
		return nil
	})
	return out, err
}

// TaskCount returns the ledger length; valid task ids are [0, TaskCount).
func (l *Ledger) TaskCount(ctx context.Context) (uint64, error) {
	var n uint64
	err := l.view(ctx, func() error {
		n = uint64(len(l.tasks))
		return nil
	})
	return n, err
}
