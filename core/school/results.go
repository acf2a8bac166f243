package school

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/ecole/core"
)

func (svc *Service) checkResult(ctx context.Context, r Result, exec core.DBExecutor) error {
	_, err := svc.repo.GetEnrollment(ctx, r.EnrollmentID, exec)
	if err = checkRef("enrollment_id", "enrollment", err); err != nil {
		return err
	}
	_, err = svc.repo.GetSubject(ctx, r.SubjectID, exec)
	return checkRef("subject_id", "subject", err)
}

func (svc *Service) checkResultUniqueness(ctx context.Context, r Result) error {
	existing, err := svc.repo.QueryResults(ctx, &QueryFilter{
		EnrollmentID: r.EnrollmentID,
		SubjectID:    r.SubjectID,
		Semester:     r.Semester,
	}, nil)
	if err != nil {
		return errors.Wrap(err, "querying results")
	}
	for _, res := range existing {
		if res.ID != r.ID {
			return core.NewFieldError("subject_id", errResultExists)
		}
	}
	return nil
}

func (svc *Service) CreateResult(ctx context.Context, r Result) (Result, error) {
	r.ID = 0
	if err := svc.validate.Struct(r); err != nil {
		return Result{}, err
	}
	if err := svc.checkResult(ctx, r, svc.db); err != nil {
		return Result{}, err
	}
	if err := svc.checkResultUniqueness(ctx, r); err != nil {
		return Result{}, err
	}
	r, err := svc.repo.CreateResult(ctx, r)
	return r, trapDuplicate(err, "subject_id", errResultExists)
}

func (svc *Service) GetResult(ctx context.Context, id int) (Result, error) {
	return svc.repo.GetResult(ctx, id)
}

func (svc *Service) QueryResults(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Result, error) {
	return svc.repo.QueryResults(ctx, filter, ordering)
}

func (svc *Service) UpdateResult(ctx context.Context, id int, r Result) (Result, error) {
	r.ID = id
	if err := svc.validate.Struct(r); err != nil {
		return Result{}, err
	}
	if _, err := svc.repo.GetResult(ctx, id); err != nil {
		return Result{}, err
	}
	if err := svc.checkResult(ctx, r, svc.db); err != nil {
		return Result{}, err
	}
	if err := svc.checkResultUniqueness(ctx, r); err != nil {
		return Result{}, err
	}
	r, err := svc.repo.UpdateResult(ctx, r)
	return r, trapDuplicate(err, "subject_id", errResultExists)
}

func (svc *Service) DeleteResult(ctx context.Context, id int) error {
	return svc.repo.DeleteResult(ctx, id)
}

// SaveResults records the scores of a whole grading sheet in a single transaction.
// A result already recorded for the same enrollment, subject and semester gets its score replaced.
// Nothing is saved if any result is invalid.
func (svc *Service) SaveResults(ctx context.Context, results []Result) ([]Result, error) {
	for _, r := range results {
		if err := svc.validate.Struct(r); err != nil {
			return nil, err
		}
	}

	saved := make([]Result, 0, len(results))
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		for _, r := range results {
			if err := svc.checkResult(ctx, r, tx); err != nil {
				return err
			}
			res, err := svc.repo.UpsertResult(ctx, r, tx)
			if err != nil {
				return errors.Wrap(err, "saving result")
			}
			saved = append(saved, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}
