package school

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/ecole/core"
)

func (svc *Service) checkFeeRefs(ctx context.Context, f SchoolFee) error {
	_, err := svc.repo.GetStudent(ctx, f.StudentID)
	if err = checkRef("student_id", "student", err); err != nil {
		return err
	}
	if f.ClassID.Valid {
		_, err = svc.repo.GetClass(ctx, f.ClassID.Int)
		return checkRef("class_id", "class", err)
	}
	return nil
}

func (svc *Service) CreateFee(ctx context.Context, f SchoolFee) (SchoolFee, error) {
	f.ID = 0
	f.PaymentMethod = core.CleanString(f.PaymentMethod)
	if err := svc.validate.Struct(f); err != nil {
		return SchoolFee{}, err
	}
	if err := svc.checkFeeRefs(ctx, f); err != nil {
		return SchoolFee{}, err
	}
	f.settle()
	return svc.repo.CreateFee(ctx, f)
}

func (svc *Service) GetFee(ctx context.Context, id int) (SchoolFee, error) {
	return svc.repo.GetFee(ctx, id)
}

func (svc *Service) QueryFees(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]SchoolFee, error) {
	return svc.repo.QueryFees(ctx, filter, ordering)
}

func (svc *Service) UpdateFee(ctx context.Context, id int, f SchoolFee) (SchoolFee, error) {
	f.ID = id
	f.PaymentMethod = core.CleanString(f.PaymentMethod)
	if err := svc.validate.Struct(f); err != nil {
		return SchoolFee{}, err
	}
	if err := svc.checkFeeRefs(ctx, f); err != nil {
		return SchoolFee{}, err
	}
	f.settle()
	return svc.repo.UpdateFee(ctx, f)
}

func (svc *Service) DeleteFee(ctx context.Context, id int) error {
	return svc.repo.DeleteFee(ctx, id)
}

// RecordPayment adds an installment to the fee's paid amount and updates its balance and status.
func (svc *Service) RecordPayment(ctx context.Context, feeID int, p Payment) (SchoolFee, error) {
	p.PaymentMethod = core.CleanString(p.PaymentMethod)
	if err := svc.validate.Struct(p); err != nil {
		return SchoolFee{}, err
	}

	var fee SchoolFee
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		if fee, err = svc.repo.GetFee(ctx, feeID, tx); err != nil {
			return err
		}
		if p.Amount > fee.RemainingAmount {
			return core.NewFieldError("amount", errAmountTooHigh)
		}
		fee.AmountPaid += p.Amount
		if p.PaymentMethod != "" {
			fee.PaymentMethod = p.PaymentMethod
		}
		fee.settle()
		if fee, err = svc.repo.UpdateFee(ctx, fee, tx); err != nil {
			return errors.Wrap(err, "updating fee")
		}
		return nil
	})
	if err != nil {
		return SchoolFee{}, err
	}
	return fee, nil
}
