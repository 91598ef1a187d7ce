package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fintrack/internal/common"
	"fintrack/internal/domain/model"
	"fintrack/internal/domain/repository"
)

const DefaultListLimit = 100

type OperationService struct {
	store  Sessioner
	opRepo repository.OperationRepository
}

func NewOperationService(store Sessioner, opRepo repository.OperationRepository) *OperationService {
	return &OperationService{store: store, opRepo: opRepo}
}

type CreateOperationRequest struct {
	Description string              `json:"description"`
	Value       model.Money         `json:"value"`
	Type        model.OperationType `json:"type"`
	Date        string              `json:"date"`
}

// UpdateOperationRequest carries only the fields the caller supplied.
type UpdateOperationRequest struct {
	Description *string              `json:"description,omitempty"`
	Value       *model.Money         `json:"value,omitempty"`
	Type        *model.OperationType `json:"type,omitempty"`
	Date        *string              `json:"date,omitempty"`
}

type ListOperationsQuery struct {
	Skip      int
	Limit     int
	MonthYear string
}

func validateDescription(v *common.ValidationError, description string) {
	if strings.TrimSpace(description) == "" {
		v.Add("description", "field required")
	}
}

func validateType(v *common.ValidationError, t model.OperationType) {
	if !t.Valid() {
		v.Add("type", "must be 'E' (entry) or 'S' (exit)")
	}
}

func (r CreateOperationRequest) toOperation(userID int64) (*model.Operation, error) {
	v := &common.ValidationError{}
	validateDescription(v, r.Description)
	if !r.Value.Positive() {
		v.Add("value", "must be greater than 0")
	}
	validateType(v, r.Type)
	date, err := model.ParseDate(r.Date)
	if err != nil {
		v.Add("date", err.Error())
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	return &model.Operation{
		Description: strings.TrimSpace(r.Description),
		Value:       r.Value,
		Type:        r.Type,
		Date:        date,
		UserID:      userID,
	}, nil
}

// apply copies the supplied fields onto op. Value positivity is only
// enforced at creation time.
func (r UpdateOperationRequest) apply(op *model.Operation) error {
	v := &common.ValidationError{}
	if r.Description != nil {
		validateDescription(v, *r.Description)
		op.Description = strings.TrimSpace(*r.Description)
	}
	if r.Value != nil {
		op.Value = *r.Value
	}
	if r.Type != nil {
		validateType(v, *r.Type)
		op.Type = *r.Type
	}
	if r.Date != nil {
		date, err := model.ParseDate(*r.Date)
		if err != nil {
			v.Add("date", err.Error())
		}
		op.Date = date
	}
	return v.OrNil()
}

func (s *OperationService) Create(ctx context.Context, userID int64, req CreateOperationRequest) (*model.Operation, error) {
	op, err := req.toOperation(userID)
	if err != nil {
		return nil, err
	}
	err = s.store.Session(ctx, func(q repository.DBTX) error {
		return s.opRepo.Create(ctx, q, op)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create operation: %w", err)
	}
	slog.InfoContext(ctx, "operation created", "operation_id", op.ID, "user_id", userID, "type", op.Type)
	return op, nil
}

func (s *OperationService) Get(ctx context.Context, userID, id int64) (*model.Operation, error) {
	var op *model.Operation
	err := s.store.Session(ctx, func(q repository.DBTX) error {
		var err error
		op, err = s.opRepo.FindByIDForUser(ctx, q, id, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("operation %d: %w", id, err)
	}
	return op, nil
}

// List returns a window of the caller's operations. The balance covers the
// returned window only, not the account's full history.
func (s *OperationService) List(ctx context.Context, userID int64, query ListOperationsQuery) (*model.OperationPage, error) {
	if query.Skip < 0 {
		return nil, fmt.Errorf("skip must not be negative: %w", common.ErrBadRequest)
	}
	if query.Limit < 0 {
		return nil, fmt.Errorf("limit must not be negative: %w", common.ErrBadRequest)
	}

	filter := repository.OperationFilter{UserID: userID, Offset: query.Skip, Limit: query.Limit}
	if query.MonthYear != "" {
		window, err := model.ParseMonthYear(query.MonthYear)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, common.ErrBadRequest)
		}
		filter.From, filter.To = &window.Start, &window.End
	}

	var ops []model.Operation
	err := s.store.Session(ctx, func(q repository.DBTX) error {
		var err error
		ops, err = s.opRepo.ListByUser(ctx, q, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}
	return &model.OperationPage{Balance: model.Balance(ops), Operations: ops}, nil
}

// Update applies a partial update. Missing and foreign operations are both reported as not found.
func (s *OperationService) Update(ctx context.Context, userID, id int64, req UpdateOperationRequest) (*model.Operation, error) {
	var op *model.Operation
	err := s.store.Session(ctx, func(q repository.DBTX) error {
		var err error
		op, err = s.opRepo.FindByIDForUser(ctx, q, id, userID)
		if err != nil {
			return err
		}
		if err := req.apply(op); err != nil {
			return err
		}
		return s.opRepo.Update(ctx, q, op)
	})
	if err != nil {
		return nil, fmt.Errorf("operation %d: %w", id, err)
	}
	slog.InfoContext(ctx, "operation updated", "operation_id", id, "user_id", userID)
	return op, nil
}

func (s *OperationService) Delete(ctx context.Context, userID, id int64) error {
	err := s.store.Session(ctx, func(q repository.DBTX) error {
		return s.opRepo.DeleteForUser(ctx, q, id, userID)
	})
	if err != nil {
		return fmt.Errorf("operation %d: %w", id, err)
	}
	slog.InfoContext(ctx, "operation deleted", "operation_id", id, "user_id", userID)
	return nil
}
