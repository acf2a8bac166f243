package report

import (
	"context"
	"fmt"
	"net/mail"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/ecole/core"
)

var ErrNotFound = errors.New("enrollment not found")

type (
	// Header identifies whose bulletin it is.
	Header struct {
		EnrollmentID int    `db:"enrollment_id" json:"enrollment_id"`
		StudentID    int    `db:"student_id" json:"student_id"`
		StudentName  string `db:"student_name" json:"student_name"`
		Matricule    string `db:"matricule" json:"matricule"`
		ClassID      int    `db:"class_id" json:"class_id"`
		ClassName    string `db:"class_name" json:"class_name"`
		AcademicYear string `db:"academic_year" json:"academic_year"`
	}

	// Line is a graded subject as printed on the bulletin.
	Line struct {
		SubjectID     int     `db:"subject_id" json:"subject_id"`
		SubjectName   string  `db:"subject_name" json:"subject_name"`
		Coefficient   int     `db:"coefficient" json:"coefficient"`
		Score         float64 `db:"score" json:"score"`
		Semester      int     `db:"semester" json:"semester"`
		WeightedScore float64 `db:"-" json:"weighted_score"`
	}

	Bulletin struct {
		Header
		Semester1 []Line     `json:"semester1_lines"`
		Semester2 []Line     `json:"semester2_lines"`
		Card      ReportCard `json:"report_card"`
	}

	Repository interface {
		GetBulletinHeader(ctx context.Context, enrollmentID int, exec ...core.DBExecutor) (Header, error)
		// QueryBulletinLines returns the results of an enrollment joined with their subject, ordered by semester then subject name.
		QueryBulletinLines(ctx context.Context, enrollmentID int, exec ...core.DBExecutor) ([]Line, error)
		// QueryGradeRecords returns every result of the academic year, keyed by enrollment ID.
		QueryGradeRecords(ctx context.Context, academicYear string, exec ...core.DBExecutor) (map[int][]GradeRecord, error)
	}

	Service struct {
		repo Repository
	}
)

func (l Line) GradeRecord() GradeRecord {
	return GradeRecord{SubjectCoefficient: l.Coefficient, Score: l.Score, Semester: l.Semester}
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Bulletin loads the enrollment's graded subjects and computes its report card.
func (svc *Service) Bulletin(ctx context.Context, enrollmentID int) (Bulletin, error) {
	header, err := svc.repo.GetBulletinHeader(ctx, enrollmentID)
	if err != nil {
		return Bulletin{}, errors.Wrap(err, "getting bulletin header")
	}
	lines, err := svc.repo.QueryBulletinLines(ctx, enrollmentID)
	if err != nil {
		return Bulletin{}, errors.Wrap(err, "querying bulletin lines")
	}

	blt := Bulletin{
		Header:    header,
		Semester1: []Line{},
		Semester2: []Line{},
	}
	var sem1, sem2 []GradeRecord
	for _, l := range lines {
		l.WeightedScore = l.Score * float64(l.Coefficient)
		switch l.Semester {
		case Semester1:
			blt.Semester1 = append(blt.Semester1, l)
			sem1 = append(sem1, l.GradeRecord())
		case Semester2:
			blt.Semester2 = append(blt.Semester2, l)
			sem2 = append(sem2, l.GradeRecord())
		}
	}
	blt.Card = BuildReportCard(sem1, sem2)
	return blt, nil
}

// EmailMessage prepares the "bulletin" email announcing the report card to the given recipients.
func (b Bulletin) EmailMessage(to ...mail.Address) *core.EmailMessage {
	return &core.EmailMessage{
		To:           to,
		Subject:      "Bulletin " + b.StudentName + " " + b.AcademicYear,
		TemplateName: "bulletin",
		TemplateData: map[string]string{
			"StudentName":  b.StudentName,
			"ClassName":    b.ClassName,
			"AcademicYear": b.AcademicYear,
			"FinalAverage": fmt.Sprintf("%.2f", b.Card.FinalAverage),
		},
	}
}

// Ranking is an enrollment's final average and its rank within the academic year.
type Ranking struct {
	EnrollmentID int        `json:"enrollment_id"`
	Rank         int        `json:"rank"`
	Card         ReportCard `json:"report_card"`
}

// Rankings computes the report card of every graded enrollment of the academic year
// and ranks them by final average. Ties share the same rank.
func (svc *Service) Rankings(ctx context.Context, academicYear string) ([]Ranking, error) {
	grades, err := svc.repo.QueryGradeRecords(ctx, academicYear)
	if err != nil {
		return nil, errors.Wrap(err, "querying grade records")
	}

	rankings := make([]Ranking, 0, len(grades))
	for id, records := range grades {
		sem1, sem2 := SplitBySemester(records)
		rankings = append(rankings, Ranking{EnrollmentID: id, Card: BuildReportCard(sem1, sem2)})
	}
	sortRankings(rankings)
	return rankings, nil
}

func sortRankings(rankings []Ranking) {
	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].Card.FinalAverage == rankings[j].Card.FinalAverage {
			return rankings[i].EnrollmentID < rankings[j].EnrollmentID
		}
		return rankings[i].Card.FinalAverage > rankings[j].Card.FinalAverage
	})
	for i := range rankings {
		if i > 0 && rankings[i].Card.FinalAverage == rankings[i-1].Card.FinalAverage {
			rankings[i].Rank = rankings[i-1].Rank
		} else {
			rankings[i].Rank = i + 1
		}
	}
}
