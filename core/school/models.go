package school

import (
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/ecole/core"
)

// Genders
const (
	GenderMale   = "M"
	GenderFemale = "F"
)

// Fee statuses
const (
	FeeStatusPaid    = "paid"
	FeeStatusPartial = "partial"
	FeeStatusUnpaid  = "unpaid"
)

type Student struct {
	ID          int    `db:"id" json:"id"`
	Name        string `db:"name" json:"name" validate:"required,max=100"`
	Matricule   string `db:"matricule" json:"matricule" validate:"required,max=30"`
	DateOfBirth string `db:"date_of_birth" json:"date_of_birth" validate:"required,isodate"`
	Gender      string `db:"gender" json:"gender" validate:"required,gender"`
}

func (s *Student) clean() {
	s.Name = core.CleanString(s.Name)
	s.Matricule = core.CleanString(s.Matricule)
	s.DateOfBirth = core.CleanString(s.DateOfBirth)
	s.Gender = core.CleanString(s.Gender)
}

type Class struct {
	ID    int    `db:"id" json:"id"`
	Name  string `db:"name" json:"name" validate:"required,max=50"`
	Level string `db:"level" json:"level" validate:"required,max=50"`
}

func (c *Class) clean() {
	c.Name = core.CleanString(c.Name)
	c.Level = core.CleanString(c.Level)
}

type Teacher struct {
	ID         int         `db:"id" json:"id"`
	FirstName  string      `db:"first_name" json:"first_name" validate:"required,max=50"`
	LastName   string      `db:"last_name" json:"last_name" validate:"required,max=50"`
	Phone      null.String `db:"phone" json:"phone"`
	Profession null.String `db:"profession" json:"profession"`
	Diploma    null.String `db:"diploma" json:"diploma"`
	Country    null.String `db:"country" json:"country"`
	Photo      null.String `db:"photo" json:"photo"`
}

func (t *Teacher) FullName() string {
	return t.FirstName + " " + t.LastName
}

func (t *Teacher) clean() {
	t.FirstName = core.CleanString(t.FirstName)
	t.LastName = core.CleanString(t.LastName)
	for _, ns := range []*null.String{&t.Phone, &t.Profession, &t.Diploma, &t.Country, &t.Photo} {
		cleanNullString(ns)
	}
}

type Subject struct {
	ID          int      `db:"id" json:"id"`
	Name        string   `db:"name" json:"name" validate:"required,max=100"`
	Coefficient int      `db:"coefficient" json:"coefficient" validate:"required,gt=0"`
	ClassID     null.Int `db:"class_id" json:"class_id"`
	TeacherID   null.Int `db:"teacher_id" json:"teacher_id"`
}

func (s *Subject) clean() {
	s.Name = core.CleanString(s.Name)
}

// Enrollment is a student's association with a class for an academic year.
type Enrollment struct {
	ID           int    `db:"id" json:"id"`
	StudentID    int    `db:"student_id" json:"student_id" validate:"required"`
	ClassID      int    `db:"class_id" json:"class_id" validate:"required"`
	AcademicYear string `db:"academic_year" json:"academic_year" validate:"required,academicyear"`
}

type Result struct {
	ID           int     `db:"id" json:"id"`
	EnrollmentID int     `db:"enrollment_id" json:"enrollment_id" validate:"required"`
	SubjectID    int     `db:"subject_id" json:"subject_id" validate:"required"`
	Score        float64 `db:"score" json:"score" validate:"gte=0,lte=20"`
	Semester     int     `db:"semester" json:"semester" validate:"semester"`
}

type SchoolFee struct {
	ID              int      `db:"id" json:"id"`
	StudentID       int      `db:"student_id" json:"student_id" validate:"required"`
	ClassID         null.Int `db:"class_id" json:"class_id"`
	TotalFee        float64  `db:"total_fee" json:"total_fee" validate:"gte=0"`
	PaymentMethod   string   `db:"payment_method" json:"payment_method" validate:"max=30"`
	AmountPaid      float64  `db:"amount_paid" json:"amount_paid" validate:"gte=0,ltefield=TotalFee"`
	RemainingAmount float64  `db:"remaining_amount" json:"remaining_amount"`
	Status          string   `db:"status" json:"status"`
}

// settle derives RemainingAmount and Status from TotalFee and AmountPaid.
func (f *SchoolFee) settle() {
	f.RemainingAmount = f.TotalFee - f.AmountPaid
	if f.RemainingAmount < 0 {
		f.RemainingAmount = 0
	}
	switch {
	case f.RemainingAmount == 0:
		f.Status = FeeStatusPaid
	case f.AmountPaid > 0:
		f.Status = FeeStatusPartial
	default:
		f.Status = FeeStatusUnpaid
	}
}

// Payment is an installment paid against a SchoolFee.
type Payment struct {
	Amount        float64 `json:"amount" validate:"gt=0"`
	PaymentMethod string  `json:"payment_method" validate:"max=30"`
}

type Room struct {
	ID       int    `db:"id" json:"id"`
	Name     string `db:"name" json:"name" validate:"required,max=50"`
	Capacity int    `db:"capacity" json:"capacity" validate:"gte=0"`
	Location string `db:"location" json:"location" validate:"max=100"`
}

func (r *Room) clean() {
	r.Name = core.CleanString(r.Name)
	r.Location = core.CleanString(r.Location)
}

type TimetableEntry struct {
	ID        int      `db:"id" json:"id"`
	Day       string   `db:"day" json:"day" validate:"required,weekday"`
	StartTime string   `db:"start_time" json:"start_time" validate:"required,hhmm"`
	EndTime   string   `db:"end_time" json:"end_time" validate:"required,hhmm"`
	SubjectID int      `db:"subject_id" json:"subject_id" validate:"required"`
	ClassID   int      `db:"class_id" json:"class_id" validate:"required"`
	RoomID    null.Int `db:"room_id" json:"room_id"`
	TeacherID null.Int `db:"teacher_id" json:"teacher_id"`
}

func (e *TimetableEntry) clean() {
	e.Day = core.CleanString(e.Day, true /* lower */)
	e.StartTime = core.CleanString(e.StartTime)
	e.EndTime = core.CleanString(e.EndTime)
}

// Overlaps reports whether both entries share the day and their time ranges intersect.
// Ranges are half-open: an entry ending at 10:00 does not overlap one starting at 10:00.
func (e TimetableEntry) Overlaps(other TimetableEntry) bool {
	return e.Day == other.Day && e.StartTime < other.EndTime && other.StartTime < e.EndTime
}

type Dashboard struct {
	Students        int     `db:"students" json:"students"`
	Teachers        int     `db:"teachers" json:"teachers"`
	Classes         int     `db:"classes" json:"classes"`
	Subjects        int     `db:"subjects" json:"subjects"`
	Rooms           int     `db:"rooms" json:"rooms"`
	Enrollments     int     `db:"enrollments" json:"enrollments"`
	FeesCollected   float64 `db:"fees_collected" json:"fees_collected"`
	FeesOutstanding float64 `db:"fees_outstanding" json:"fees_outstanding"`
}

// QueryFilter narrows list queries. Each repository only applies the fields relevant to its entity.
type QueryFilter struct {
	Search       string `query:"search"`
	StudentID    int    `query:"student_id"`
	ClassID      int    `query:"class_id"`
	TeacherID    int    `query:"teacher_id"`
	SubjectID    int    `query:"subject_id"`
	EnrollmentID int    `query:"enrollment_id"`
	AcademicYear string `query:"academic_year"`
	Semester     int    `query:"semester"`
	Day          string `query:"day"`
	Status       string `query:"status"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.AcademicYear = core.CleanString(qf.AcademicYear)
	qf.Day = core.CleanString(qf.Day, true /* lower */)
	qf.Status = core.CleanString(qf.Status, true /* lower */)
}

func cleanNullString(ns *null.String) {
	if !ns.Valid {
		return
	}
	ns.String = core.CleanString(ns.String)
	ns.Valid = ns.String != ""
}
