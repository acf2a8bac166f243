package school

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/ecole/core"
)

func (svc *Service) checkTimetableEntry(ctx context.Context, e TimetableEntry) error {
	if e.EndTime <= e.StartTime {
		return core.NewFieldError("end_time", errEndBeforeStart)
	}

	_, err := svc.repo.GetSubject(ctx, e.SubjectID)
	if err = checkRef("subject_id", "subject", err); err != nil {
		return err
	}
	_, err = svc.repo.GetClass(ctx, e.ClassID)
	if err = checkRef("class_id", "class", err); err != nil {
		return err
	}
	if e.RoomID.Valid {
		_, err = svc.repo.GetRoom(ctx, e.RoomID.Int)
		if err = checkRef("room_id", "room", err); err != nil {
			return err
		}
	}
	if e.TeacherID.Valid {
		_, err = svc.repo.GetTeacher(ctx, e.TeacherID.Int)
		if err = checkRef("teacher_id", "teacher", err); err != nil {
			return err
		}
	}

	other, err := svc.repo.FindTimetableConflict(ctx, e)
	switch {
	case err == nil:
		return errors.Wrapf(ErrConflict, "%s %s-%s overlaps timetable entry %d (%s-%s)",
			e.Day, e.StartTime, e.EndTime, other.ID, other.StartTime, other.EndTime)
	case errors.Cause(err) != ErrNotFound:
		return errors.Wrap(err, "finding timetable conflict")
	}
	return nil
}

func (svc *Service) CreateTimetableEntry(ctx context.Context, e TimetableEntry) (TimetableEntry, error) {
	e.clean()
	e.ID = 0
	if err := svc.validate.Struct(e); err != nil {
		return TimetableEntry{}, err
	}
	if err := svc.checkTimetableEntry(ctx, e); err != nil {
		return TimetableEntry{}, err
	}
	return svc.repo.CreateTimetableEntry(ctx, e)
}

func (svc *Service) GetTimetableEntry(ctx context.Context, id int) (TimetableEntry, error) {
	return svc.repo.GetTimetableEntry(ctx, id)
}

func (svc *Service) QueryTimetable(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]TimetableEntry, error) {
	return svc.repo.QueryTimetable(ctx, filter, ordering)
}

func (svc *Service) UpdateTimetableEntry(ctx context.Context, id int, e TimetableEntry) (TimetableEntry, error) {
	e.clean()
	e.ID = id
	if err := svc.validate.Struct(e); err != nil {
		return TimetableEntry{}, err
	}
	if _, err := svc.repo.GetTimetableEntry(ctx, id); err != nil {
		return TimetableEntry{}, err
	}
	if err := svc.checkTimetableEntry(ctx, e); err != nil {
		return TimetableEntry{}, err
	}
	return svc.repo.UpdateTimetableEntry(ctx, e)
}

func (svc *Service) DeleteTimetableEntry(ctx context.Context, id int) error {
	return svc.repo.DeleteTimetableEntry(ctx, id)
}

// ClassTimetable returns the week of a class, ordered by day then start time.
func (svc *Service) ClassTimetable(ctx context.Context, classID int) ([]TimetableEntry, error) {
	if _, err := svc.repo.GetClass(ctx, classID); err != nil {
		return nil, err
	}
	entries, err := svc.repo.QueryTimetable(ctx, &QueryFilter{ClassID: classID}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying timetable")
	}
	SortTimetable(entries)
	return entries, nil
}

// SortTimetable orders entries by weekday (monday first) then start time.
func SortTimetable(entries []TimetableEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		di, dj := core.WeekdayIndex(entries[i].Day), core.WeekdayIndex(entries[j].Day)
		if di != dj {
			return di < dj
		}
		return entries[i].StartTime < entries[j].StartTime
	})
}
