package mudradesk

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	textCodeInvalidTransition = "INVALID_ACCOUNT_STATE_TRANSITION"
	textCodeTerminalState     = "TERMINAL_ACCOUNT_STATE"
)

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid account state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrTerminalState is returned when attempting to move away from a deleted account.
var ErrTerminalState = goerrors.New("account state is terminal", goerrors.CategoryConflict).
	WithTextCode(textCodeTerminalState).
	WithCode(goerrors.CodeConflict)

// ActorRef identifies who/what triggered a transition.
type ActorRef struct {
	ID   string
	Type string
}

// UUID parses the actor id when it carries one.
func (a ActorRef) UUID() *uuid.UUID {
	if id, err := uuid.Parse(a.ID); err == nil {
		return &id
	}
	return nil
}

// TransitionMetadata captures extra context for a transition.
type TransitionMetadata struct {
	Reason   string
	Metadata map[string]any
}

// TransitionOption customizes a single transition.
type TransitionOption func(*transitionOptions)

// AccountLifecycleStore is the persistence surface the state machine
// drives. Each method is a single atomic store call.
type AccountLifecycleStore interface {
	MarkApproved(ctx context.Context, id uuid.UUID, approvedAt time.Time, approvedBy *uuid.UUID) (*Account, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*Account, error)
	Remove(ctx context.Context, id uuid.UUID) error
}

// AccountStateMachine defines lifecycle operations for accounts.
type AccountStateMachine interface {
	Transition(ctx context.Context, actor ActorRef, account *Account, target AccountStatus, opts ...TransitionOption) (*Account, error)
	CurrentStatus(account *Account) AccountStatus
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*accountStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *accountStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineActivitySink sets the ActivitySink used to publish lifecycle events.
func WithStateMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *accountStateMachine) {
		sm.activitySink = normalizeActivitySink(sink)
	}
}

// WithStateMachineLogger overrides the logger used for sink failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *accountStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// WithTransitionReason sets the human-readable reason for the transition.
func WithTransitionReason(reason string) TransitionOption {
	return func(opts *transitionOptions) {
		opts.metadata.Reason = reason
	}
}

// WithTransitionMetadata merges metadata into the transition context.
func WithTransitionMetadata(metadata map[string]any) TransitionOption {
	return func(opts *transitionOptions) {
		if len(metadata) == 0 {
			return
		}
		if opts.metadata.Metadata == nil {
			opts.metadata.Metadata = make(map[string]any, len(metadata))
		}
		for k, v := range metadata {
			opts.metadata.Metadata[k] = v
		}
	}
}

// WithForceTransition bypasses the allowed-transition table (use sparingly).
func WithForceTransition() TransitionOption {
	return func(opts *transitionOptions) {
		opts.force = true
	}
}

// WithApprovalTime overrides the timestamp recorded when an approval lands.
func WithApprovalTime(t time.Time) TransitionOption {
	return func(opts *transitionOptions) {
		opts.approvalTime = &t
	}
}

// NewAccountStateMachine returns the default implementation backed by the provided store.
func NewAccountStateMachine(store AccountLifecycleStore, opts ...StateMachineOption) AccountStateMachine {
	sm := &accountStateMachine{
		store: store,
		transitions: map[AccountStatus]map[AccountStatus]struct{}{
			AccountStatusPending: {
				AccountStatusActive:  {},
				AccountStatusDeleted: {},
			},
			AccountStatusActive: {
				AccountStatusDeactivated: {},
				AccountStatusDeleted:     {},
			},
			AccountStatusDeactivated: {
				AccountStatusActive:  {},
				AccountStatusDeleted: {},
			},
		},
		now:          time.Now,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type accountStateMachine struct {
	store        AccountLifecycleStore
	transitions  map[AccountStatus]map[AccountStatus]struct{}
	now          func() time.Time
	activitySink ActivitySink
	logger       Logger
}

type transitionOptions struct {
	metadata     TransitionMetadata
	force        bool
	approvalTime *time.Time
}

func (o *transitionOptions) cloneMetadata() TransitionMetadata {
	var cloned map[string]any
	if len(o.metadata.Metadata) > 0 {
		cloned = make(map[string]any, len(o.metadata.Metadata))
		for k, v := range o.metadata.Metadata {
			cloned[k] = v
		}
	}

	return TransitionMetadata{
		Reason:   o.metadata.Reason,
		Metadata: cloned,
	}
}

func (sm *accountStateMachine) Transition(ctx context.Context, actor ActorRef, account *Account, target AccountStatus, opts ...TransitionOption) (*Account, error) {
	if account == nil {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"target": target,
			"reason": "account is nil",
		})
	}

	from := account.Status()
	if target == "" {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"reason": "target status is empty",
		})
	}

	if from == target {
		return account, nil
	}

	options := sm.buildTransitionOptions(opts...)

	if from == AccountStatusDeleted && !options.force {
		return nil, ErrTerminalState.WithMetadata(map[string]any{
			"from": from,
			"to":   target,
		})
	}

	if !options.force && !sm.canTransition(from, target) {
		return nil, ErrInvalidTransition.WithMetadata(map[string]any{
			"from": from,
			"to":   target,
		})
	}

	// Admin accounts can never be deleted, regardless of who asks.
	// The guard runs before the store is touched.
	if target == AccountStatusDeleted && account.Admin {
		return nil, ErrForbiddenTarget.WithMetadata(map[string]any{
			"account_id": account.ID.String(),
		})
	}

	if err := sm.persist(ctx, actor, account, from, target, options); err != nil {
		return nil, err
	}

	sm.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventAccountStatusChanged,
		Actor:      actor,
		AccountID:  account.ID.String(),
		FromStatus: from,
		ToStatus:   target,
		Metadata:   sm.transitionMetadata(options.cloneMetadata()),
	})

	return account, nil
}

func (sm *accountStateMachine) CurrentStatus(account *Account) AccountStatus {
	if account == nil {
		return ""
	}
	return account.Status()
}

func (sm *accountStateMachine) persist(ctx context.Context, actor ActorRef, account *Account, from, target AccountStatus, options *transitionOptions) error {
	switch target {
	case AccountStatusActive:
		if from == AccountStatusPending {
			approvedAt := sm.now()
			if options.approvalTime != nil {
				approvedAt = *options.approvalTime
			}
			updated, err := sm.store.MarkApproved(ctx, account.ID, approvedAt, actor.UUID())
			if err != nil {
				return err
			}
			sm.applyUpdates(account, updated, func(a *Account) {
				a.Approved = true
				a.Active = true
				a.ApprovedAt = &approvedAt
				a.ApprovedBy = actor.UUID()
			})
			return nil
		}

		updated, err := sm.store.SetActive(ctx, account.ID, true)
		if err != nil {
			return err
		}
		sm.applyUpdates(account, updated, func(a *Account) {
			a.Active = true
		})
		return nil

	case AccountStatusDeactivated:
		updated, err := sm.store.SetActive(ctx, account.ID, false)
		if err != nil {
			return err
		}
		sm.applyUpdates(account, updated, func(a *Account) {
			a.Active = false
		})
		return nil

	case AccountStatusDeleted:
		return sm.store.Remove(ctx, account.ID)
	}

	return ErrInvalidTransition.WithMetadata(map[string]any{
		"from": from,
		"to":   target,
	})
}

func (sm *accountStateMachine) applyUpdates(account, updated *Account, fallback func(*Account)) {
	if updated != nil {
		account.Approved = updated.Approved
		account.Active = updated.Active
		account.ApprovedAt = updated.ApprovedAt
		account.ApprovedBy = updated.ApprovedBy
		return
	}
	fallback(account)
}

func (sm *accountStateMachine) canTransition(from, to AccountStatus) bool {
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

func (sm *accountStateMachine) buildTransitionOptions(opts ...TransitionOption) *transitionOptions {
	options := &transitionOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}
	return options
}

func (sm *accountStateMachine) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = ActorRef{Type: "system"}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = sm.now()
	}

	sink := normalizeActivitySink(sm.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		sm.logger.Warn("state machine activity sink error: %v", err)
	}
}

func (sm *accountStateMachine) transitionMetadata(meta TransitionMetadata) map[string]any {
	if meta.Reason == "" && len(meta.Metadata) == 0 {
		return nil
	}

	result := map[string]any{}
	if meta.Reason != "" {
		result["reason"] = meta.Reason
	}
	for k, v := range meta.Metadata {
		result[k] = v
	}
	return result
}
